package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/slmtnm/s4admin/internal/auth"
	"github.com/slmtnm/s4admin/internal/config"
	"github.com/slmtnm/s4admin/internal/logging"
	"github.com/slmtnm/s4admin/internal/mediaapi"
)

var (
	// Global configuration, loaded before any subcommand runs
	appConfig *config.Config

	configPath string
	apiBase    string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "s4admin",
	Short: "s4admin - browse and upload admin media from the terminal",
	Long: "s4admin browses the media library of the admin API as a folder tree\n" +
		"and uploads images into it, by file picker, drag and drop or a watched folder.\n\n" +
		"Running it without a subcommand opens the browser.",
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Assigned here: initializeApp refers back to rootCmd.
	rootCmd.PersistentPreRunE = initializeApp
	rootCmd.RunE = runBrowse

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: first of ./.s4admin, ~/.s4admin, /etc/s4admin)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "admin API base URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	browseFlags(rootCmd)

	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(setupCmd)
}

// initializeApp loads the configuration and sets up logging
func initializeApp(cmd *cobra.Command, args []string) error {
	// Setup writes the configuration; it must not require one.
	if cmd.Name() == "setup" {
		logging.InitNop()
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if apiBase != "" {
		cfg.APIBase = apiBase
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	appConfig = cfg

	logCfg := logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, OutputPath: cfg.LogFile}
	if isInteractive(cmd) && cfg.LogFile == "" {
		// Log lines would corrupt the terminal UI.
		logging.InitNop()
	} else {
		if logCfg.OutputPath == "" {
			logCfg.OutputPath = "stderr"
		}
		if err := logging.Init(logCfg); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	logging.Debug("configuration loaded",
		logging.String("path", cfg.Path),
		logging.String("api_base", cfg.APIBase))
	warnExpiredToken(cfg)
	return nil
}

func isInteractive(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd == browseCmd
}

// warnExpiredToken logs a stored JWT that has already expired. It is still
// sent; the server decides.
func warnExpiredToken(cfg *config.Config) {
	token, err := cfg.TokenSource().Token()
	if err != nil || token == "" {
		return
	}
	if exp, ok := auth.Expiry(token); ok && !time.Now().Before(exp) {
		logging.Warn("bearer token has expired", logging.String("expired_at", exp.Format(time.RFC3339)))
	}
}

func newClient(cfg *config.Config) *mediaapi.Client {
	return mediaapi.New(mediaapi.Config{
		BaseURL: cfg.APIBase,
		Timeout: cfg.Timeout,
		Tokens:  cfg.TokenSource(),
	})
}

// getContext returns a context cancelled on interrupt.
func getContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
