package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/fastrank/internal/config"
	"github.com/tensorplex-labs/fastrank/internal/utils/logger"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	var cfg *config.AppConfig

	rootCmd := &cobra.Command{
		Use:   "fastrank",
		Short: "fastrank - learning-to-rank evaluation toolkit",
		Long: `fastrank evaluates rankings against TREC relevance judgments.

Run 'fastrank eval --qrel judgments.qrel --run system.run' to score a run file.
Run 'fastrank --help' for available commands.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}
			cfg = loaded

			level := cfg.LogLevel
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				level = "debug"
			}
			if trace, _ := cmd.Flags().GetBool("trace"); trace {
				level = "trace"
			}
			logger.Init(cfg.Environment, level)
			return nil
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "sets log level to debug")
	rootCmd.PersistentFlags().Bool("trace", false, "sets log level to trace")

	rootCmd.AddCommand(
		evalCmd(func() *config.AppConfig { return cfg }),
		qrelCmd(),
		rerankCmd(func() *config.AppConfig { return cfg }),
		scoreCmd(),
		describeCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("fastrank failed")
		os.Exit(1)
	}
}
