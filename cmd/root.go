package cmd

import (
	"os"

	"github.com/gioco-play/easy-i18n/i18n"
	"github.com/spf13/cobra"

	applog "nunu-cli/internal/log"
	appi18n "nunu-cli/internal/pkg/i18n"
)

var (
	// Global flags
	cfgFile  string
	langFlag string
	verbose  bool
	logFile  string

	// logger is shared across commands, nil until PersistentPreRunE ran
	logger *applog.LogContext
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nunu-cli",
	Short: "Upload build artifacts to Nunu.ai",
	Long: `nunu-cli uploads game and app builds to a Nunu.ai project.

Examples:
  # Upload a Windows build
  nunu-cli upload Game.exe --name "Nightly 42" --token $TOKEN --project-id $PROJECT

  # Upload every APK of a directory, four at a time
  nunu-cli upload "out/*.apk" --name "Release" --parallel 4

  # Show version
  nunu-cli version`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		appi18n.InitAuto()
		if err := appi18n.SetLang(langFlag); err != nil {
			return err
		}

		var err error
		logger, err = applog.NewLogContext(logFile, verbose)
		if err != nil {
			return err
		}
		if logFile != "" {
			i18n.Fprintf(os.Stderr, "[nunu-cli] Log file: %s\n", logger.GetFileName())
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.WriteLog("SYSTEM", "Exiting with error: %v", err)
		logger.Close()
		i18n.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (json, yaml or ini; discovered when unset)")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "language: zh (Chinese) or en (English), auto-detect if unset")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug log lines to stderr")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append a detailed log to this file")
}
