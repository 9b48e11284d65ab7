package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/opt/internal/archive"
	"github.com/blackwell-systems/opt/internal/catalog"
	"github.com/blackwell-systems/opt/internal/config"
	"github.com/blackwell-systems/opt/internal/lifecycle"
	"github.com/blackwell-systems/opt/internal/log"
	"github.com/blackwell-systems/opt/internal/output"
	"github.com/blackwell-systems/opt/internal/registry"
	"github.com/blackwell-systems/opt/internal/store"
)

// session holds everything one command invocation works with.
type session struct {
	layout  config.Layout
	cfg     *config.Config
	history *store.Journal
	ctl     *lifecycle.Controller
}

type sessionOptions struct {
	// history records transitions in the journal. The journal and the
	// storage root are only created once a transition is recorded.
	history bool

	// jobs overrides the configured update-all parallelism when > 0.
	jobs int
}

// loadSettings resolves the storage root and configuration, applying the
// global flags on top of config.yaml and the environment.
func loadSettings() (config.Layout, *config.Config, error) {
	root := rootFlag
	if root == "" {
		dir, err := config.Dir()
		if err != nil {
			return config.Layout{}, nil, err
		}
		root = dir
	}
	layout := config.NewLayout(root)

	cfg, err := config.Load(layout.ConfigPath)
	if err != nil {
		return config.Layout{}, nil, err
	}
	if catalogFlag != "" {
		cfg.CatalogURL = catalogFlag
	}
	if timeoutFlag > 0 {
		cfg.Timeout = timeoutFlag
		cfg.DownloadTimeout = timeoutFlag
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Layout{}, nil, fmt.Errorf("invalid log_level in %s: %w", layout.ConfigPath, err)
	}
	if verboseFlag {
		level = slog.LevelDebug
	}
	log.SetLevel(level)

	log.Debug("root %s, catalog %s", layout.Root, cfg.CatalogURL)
	return layout, cfg, nil
}

// openSession wires a lifecycle controller for cmd.
func openSession(cmd *cobra.Command, opts sessionOptions) (*session, error) {
	layout, cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}

	s := &session{layout: layout, cfg: cfg}

	var recorder lifecycle.Recorder
	if opts.history {
		s.history = store.NewJournal(layout.HistoryPath, layout.Ensure)
		recorder = s.history
	}

	jobs := cfg.Jobs
	if opts.jobs > 0 {
		jobs = opts.jobs
	}

	s.ctl = lifecycle.New(layout, lifecycle.Options{
		Registry:  registry.New(layout.RegistryPath),
		Catalog:   catalog.NewClient(cfg.CatalogURL, cfg.Timeout),
		Transport: archive.NewDownloader(cfg.DownloadTimeout),
		Unpacker:  archive.Extractor{},
		Recorder:  recorder,
		Observer:  output.NewDownloadReporter(cmd.OutOrStdout(), jobs <= 1),
		Jobs:      jobs,
	})
	return s, nil
}

// Close releases the history journal, if it was opened.
func (s *session) Close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			log.Warn("failed to close history journal: %v", err)
		}
	}
}

// withSpinner shows a spinner on stderr while fn runs.
func withSpinner(cmd *cobra.Command, message string, fn func() error) error {
	spinner := output.NewSpinner(message)
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	defer spinner.Stop()
	return fn()
}
