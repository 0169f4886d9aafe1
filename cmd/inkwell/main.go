// Package main provides the inkwell command line interface.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/inkwell/internal/config"
)

var Version = "dev"

var (
	cfgPath string
	cfg     *config.Config
)

// rootCmd is the base command for the inkwell CLI.
var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Content backend demonstrating database patterns",
	Long: `inkwell is a small content backend: users, roles, posts,
categories and comments stored through GORM with versioned migrations.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		level, parseErr := zerolog.ParseLevel(cfg.LogLevel)
		if parseErr != nil {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
		return nil
	},
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "inkwell.yaml", "path to configuration file")

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
