// Package cmd contains the command-line interface of formprobe.
// It uses the Cobra library for commands and flags.
package cmd

import (
	"fmt"
	"io"

	"formprobe/internal/config"
	"formprobe/internal/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

var (
	configFile string
	logLevel   string
	noColor    bool

	settings  config.Settings
	logCloser io.Closer

	rootCmd = &cobra.Command{
		Use:   "formprobe",
		Short: "formprobe crawls one site and probes its forms for XSS and SQL injection.",
		Long: `A minimal web application security probe. It crawls a single domain to
collect HTML forms, then submits XSS and SQL injection payloads into every
named field and reports reflected or error-based hits.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: initRuntime,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(run(nil))
}

// run executes the command line in args and releases the log file whether or not
// the command failed. Cobra skips post-run hooks on error.
func run(args []string) error {
	if args != nil {
		rootCmd.SetArgs(args)
	}
	defer closeLogger()
	return rootCmd.Execute()
}

func closeLogger() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to formprobe.yaml or the directory holding it (default is the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initRuntime loads the configuration and sets up the global logger.
func initRuntime(cmd *cobra.Command, args []string) error {
	if noColor {
		color.NoColor = true
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	closer, err := logger.Setup(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		JSONFormat: cfg.Log.JSONFormat,
	})
	if err != nil {
		return err
	}

	settings = cfg
	logCloser = closer
	return nil
}
