package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/quickeda-cli/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global

	// log carries diagnostics on stderr; results go to stdout.
	log = newLogger()
)

var rootCmd = &cobra.Command{
	Use:   "quickeda",
	Short: "quickeda: quick exploratory analysis of tabular files",
	Long: `quickeda inspects CSV/TSV/XLSX datasets from the command line: it detects and
handles outliers (Z score, IQR or custom intervals), prints five point
summaries and category frequencies, and scores correlations and mutual
information between columns.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.quickeda/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return l
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = defaultConfig()
	}
	cfg = c
	setLogLevel(cfg.LogLevel)
}

func setLogLevel(level string) {
	if debug {
		log.SetLevel(logrus.DebugLevel)
		return
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("log_level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
}

// defaultConfig mirrors the defaults applied by config.Load.
func defaultConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		DefaultMethod:        "z",
		DefaultAction:        "compress",
		CardinalityThreshold: 20,
		HistogramBins:        10,
		MaxRows:              100000,
		MINeighbors:          3,
		MIMaxRows:            5000,
		MILimit:              10,
		LogLevel:             "info",
	}
}

// currentConfig returns the loaded configuration, or defaults when commands run
// without cobra initialization.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}
