// Package logger provides a global logger for the application
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"go.uber.org/zap"
)

var Logger = zap.NewNop()

// LevelFor resolves the zerolog level for an environment, with an explicit
// level name taking precedence.
func LevelFor(environment, level string) zerolog.Level {
	if level != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && l != zerolog.NoLevel {
			return l
		}
		log.Warn().Str("level", level).Msg("Unknown log level - falling back to environment default")
	}

	switch strings.ToLower(environment) {
	case "dev", "test":
		return zerolog.TraceLevel
	case "prod", "":
		return zerolog.InfoLevel
	default:
		log.Warn().Str("environment", environment).Msg("Unknown environment - defaulting to production log level (info and above)")
		return zerolog.InfoLevel
	}
}

func zapLevel(l zerolog.Level) zap.AtomicLevel {
	switch l {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case zerolog.WarnLevel:
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return zap.NewAtomicLevelAt(zap.InfoLevel)
}

// Init sets up the global zerolog logger with console output on stderr and
// builds the zap logger behind Sugar.
// Example usage:
//
//	logger.Init(cfg.Environment, cfg.LogLevel) <- inside whichever main() function in your entrypoint
//
// Then, `ENVIRONMENT=dev fastrank eval ...` or `LOG_LEVEL=debug fastrank eval ...`
func Init(environment, level string) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Caller().Logger()

	logLevel := LevelFor(environment, level)
	zerolog.SetGlobalLevel(logLevel)

	cfg := zap.NewProductionConfig()
	if env := strings.ToLower(environment); env == "dev" || env == "test" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zapLevel(logLevel)
	if zl, err := cfg.Build(); err == nil {
		Logger = zl
	} else {
		log.Error().Err(err).Msg("Failed to build zap logger - structured summaries disabled")
	}

	log.Debug().Str("environment", environment).Str("level", logLevel.String()).Msg("Logging initialised")
}

// Sugar returns a sugared logger for easier use
func Sugar() *zap.SugaredLogger {
	return Logger.Sugar()
}
