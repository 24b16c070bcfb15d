package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"elite-starscan/internal/config"
	"elite-starscan/internal/logger"
)

// Version is stamped by the build.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "starscan",
	Short: "Build per-system body trees from Elite Dangerous journals",
	Long: "Starscan reads the game's exploration journal and reconciles scans, signals and " +
		"surface events into one consistent body tree per star system.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .starscan.toml or .starscan.yaml)")
	pf.BoolP("quiet", "q", false, "only print warnings and errors")
	pf.String("journal-dir", "", "directory holding Journal.*.log files")
	pf.String("archive-path", "", "SQLite archive file")
	pf.Bool("archive", true, "archive ingested lines")
	pf.Bool("replay-on-touch", true, "retry queued events whenever their system changes")

	viper.BindPFlag("quiet", pf.Lookup("quiet"))
	viper.BindPFlag("journal_dir", pf.Lookup("journal-dir"))
	viper.BindPFlag("archive_path", pf.Lookup("archive-path"))
	viper.BindPFlag("archive", pf.Lookup("archive"))
	viper.BindPFlag("replay_on_touch", pf.Lookup("replay-on-touch"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".starscan")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("STARSCAN")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// loadConfig resolves the effective config and applies the logging flags.
func loadConfig() config.Config {
	cfg := config.Load()
	logger.SetQuiet(cfg.Quiet)
	return cfg
}

// setupSignalContext returns a context cancelled on SIGINT or SIGTERM.
func setupSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
