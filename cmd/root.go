package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	cfgpkg "github.com/KaramelBytes/tractmobility-cli/internal/config"
	"github.com/KaramelBytes/tractmobility-cli/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	debug        bool
	logLevel     string
	rawDir       string
	processedDir string

	// Loaded configuration
	cfg *cfgpkg.Global

	// Diagnostics; level is applied in loadConfig
	log = logger.New("info")
)

var rootCmd = &cobra.Command{
	Use:   "tractmobility",
	Short: "Clean and join Cook County tract mobility data",
	Long: `tractmobility cleans ACS tract extracts (income, commute mode, vehicles,
travel time) and CTA station ridership, joins the tract tables into one
master table, and reports on the results.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tractmobility/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rawDir, "raw-dir", "", "directory holding raw extracts (overrides config)")
	rootCmd.PersistentFlags().StringVar(&processedDir, "processed-dir", "", "directory for cleaned outputs (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = defaultConfig()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("raw-dir") && rawDir != "" {
		cfg.RawDir = rawDir
	}
	if f.Changed("processed-dir") && processedDir != "" {
		cfg.ProcessedDir = processedDir
	}
	level := cfg.LogLevel
	if f.Changed("log-level") && logLevel != "" {
		level = logLevel
	}
	if debug {
		level = "debug"
	}
	log.SetLevel(level)
}

func defaultConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		RawDir:        "./data_raw",
		ProcessedDir:  "./data_processed",
		RidershipYear: 2023,
		SampleRows:    5,
		LogLevel:      "info",
		ExportDialect: "postgres",
		ExportTable:   "tract_mobility_master",
	}
}

// config returns the loaded configuration, loading it on first use.
func config() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}
