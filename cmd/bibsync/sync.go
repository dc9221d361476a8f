package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/bibsync/internal/bibtex"
	"github.com/matsen/bibsync/internal/config"
	"github.com/matsen/bibsync/internal/dblp"
	"github.com/matsen/bibsync/internal/logging"
	"github.com/matsen/bibsync/internal/reconcile"
	"github.com/matsen/bibsync/internal/storage"
)

var (
	syncConfigPath string
	syncInput      string
	syncOutput     string
	syncFailed     string
	syncLogFile    string
	syncBaseURL    string
	syncRetries    int
	syncRetryDelay time.Duration
	syncEntryDelay time.Duration
	syncCachePath  string
	syncNoCache    bool
)

func init() {
	syncCmd.Flags().StringVar(&syncConfigPath, "config", "bibsync.yml", "Path to YAML config file")
	syncCmd.Flags().StringVar(&syncInput, "input", "", "Input BibTeX file")
	syncCmd.Flags().StringVar(&syncOutput, "output", "", "Output BibTeX file")
	syncCmd.Flags().StringVar(&syncFailed, "failed", "", "Failed-keys file (written only when non-empty)")
	syncCmd.Flags().StringVar(&syncLogFile, "log-file", "", "Persistent log file")
	syncCmd.Flags().StringVar(&syncBaseURL, "base-url", "", "DBLP base URL")
	syncCmd.Flags().IntVar(&syncRetries, "max-retries", 0, "Search attempts per entry")
	syncCmd.Flags().DurationVar(&syncRetryDelay, "retry-delay", 0, "Pause after a failed search attempt")
	syncCmd.Flags().DurationVar(&syncEntryDelay, "entry-delay", 0, "Pause between entries")
	syncCmd.Flags().StringVar(&syncCachePath, "cache", "", "Record cache database path")
	syncCmd.Flags().BoolVar(&syncNoCache, "no-cache", false, "Disable the record cache")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the input bibliography against DBLP",
	Long: `Reconcile the input bibliography against DBLP.

Examples:
  bibsync sync --input refs.bib --output refs_updated.bib
  bibsync sync --config bibsync.yml --max-retries 3 --no-cache`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := loadSyncConfig(cmd)
	if err != nil {
		return configError(err)
	}

	logger, logCloser, err := logging.New(cfg.LogFile)
	if err != nil {
		return configError(err)
	}
	defer logCloser.Close()

	entries, err := bibtex.ReadFile(cfg.Input)
	if err != nil {
		return dataError(err)
	}
	logger.Info().Int("entries", len(entries)).Str("input", cfg.Input).Msg("loaded bibliography")

	client := dblp.NewClient(
		dblp.WithBaseURL(cfg.BaseURL),
		dblp.WithMaxRetries(cfg.MaxRetries),
		dblp.WithRetryDelay(cfg.RetryDelay.Std()),
		dblp.WithLogger(logger),
	)

	opts := []reconcile.Option{
		reconcile.WithLogger(logger),
		reconcile.WithEntryDelay(cfg.EntryDelay.Std()),
	}
	if !cfg.NoCache {
		cache, err := openCache(cfg.CachePath)
		if err != nil {
			logger.Warn().Err(err).Msg("record cache unavailable, continuing without it")
		} else {
			defer cache.Close()
			opts = append(opts, reconcile.WithCache(cache))
		}
	}

	reconciler := reconcile.New(client, opts...)
	out, failed, err := reconciler.Run(cmd.Context(), entries)
	if err != nil {
		return err
	}

	if err := bibtex.WriteFile(cfg.Output, out); err != nil {
		return err
	}
	if err := bibtex.WriteFailedKeys(cfg.FailedKeys, failed); err != nil {
		return err
	}

	logger.Info().
		Int("entries", len(out)).
		Int("kept", len(failed)).
		Str("output", cfg.Output).
		Msg("reconciliation complete")
	return nil
}

// loadSyncConfig loads the config file and overlays any flags the user
// set explicitly.
func loadSyncConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(syncConfigPath)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("input") {
		cfg.Input = syncInput
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = syncOutput
	}
	if cmd.Flags().Changed("failed") {
		cfg.FailedKeys = syncFailed
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = syncLogFile
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = syncBaseURL
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.MaxRetries = syncRetries
	}
	if cmd.Flags().Changed("retry-delay") {
		cfg.RetryDelay = config.Duration(syncRetryDelay)
	}
	if cmd.Flags().Changed("entry-delay") {
		cfg.EntryDelay = config.Duration(syncEntryDelay)
	}
	if cmd.Flags().Changed("cache") {
		cfg.CachePath = syncCachePath
	}
	if syncNoCache {
		cfg.NoCache = true
	}
	return cfg, nil
}

// openCache creates the cache directory if needed and opens the cache.
func openCache(path string) (*storage.Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	return storage.Open(path)
}
