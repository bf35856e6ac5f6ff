package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"dev", "", zerolog.TraceLevel},
		{"TEST", "", zerolog.TraceLevel},
		{"prod", "", zerolog.InfoLevel},
		{"", "", zerolog.InfoLevel},
		{"staging", "", zerolog.InfoLevel},
		{"prod", "debug", zerolog.DebugLevel},
		{"dev", "WARN", zerolog.WarnLevel},
		{"prod", "loud", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelFor(tc.env, tc.level), "%s/%s", tc.env, tc.level)
	}
}

func TestSugarBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() { Sugar().Infow("noop", "k", 1) })
}

func TestInit(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	Init("prod", "error")
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
	assert.NotNil(t, Sugar())
}
