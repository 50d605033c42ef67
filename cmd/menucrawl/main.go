package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/v0xg/menucrawl/internal/config"
	"github.com/v0xg/menucrawl/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	dbDir      string
	verbose    bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "menucrawl",
		Short: "Scrape a dining hall menu into a day, period and station snapshot",
		Long: `menucrawl drives a browser through every day, dining period and station of
a dining hall menu page and prints the foods it finds.

Example:
  menucrawl crawl https://new.dineoncampus.com/tcnj/whats-on-the-menu --save
  menucrawl show --day "18 Tue" --station grill`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./menucrawl.yaml or $XDG_CONFIG_HOME/menucrawl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbDir, "db-dir", "", "Directory of the run archive (default: $XDG_DATA_HOME/menucrawl)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(newCrawlCmd(), newShowCmd(), newHistoryCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.AppName, version)
		},
	}
}

// loadConfig finds and loads the config file, falling back to defaults when
// none exists. Persistent flags are applied on top.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	path := config.FindConfigFile(configPath)
	switch {
	case path != "":
		c, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	case configPath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	default:
		cfg = config.NewConfig()
	}

	if dbDir != "" {
		cfg.Store.Dir = dbDir
	}
	cfg.Verbose = verbose

	logger := logging.New(logging.Level(cfg.Verbose))
	slog.SetDefault(logger)
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}
	return cfg, nil
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
	}
}
