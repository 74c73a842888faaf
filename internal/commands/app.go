package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/auditlog"
	"github.com/cleared-dev/envelope/internal/balance"
	"github.com/cleared-dev/envelope/internal/config"
	"github.com/cleared-dev/envelope/internal/cycle"
	"github.com/cleared-dev/envelope/internal/gitops"
	"github.com/cleared-dev/envelope/internal/ledger"
)

// app carries the global flags to every subcommand.
type app struct {
	repo    string
	verbose bool
}

func (a *app) configPath() string {
	return filepath.Join(a.repo, config.FileName)
}

func (a *app) config() (*config.Config, error) {
	cfg, err := config.Load(a.configPath())
	if err != nil {
		return nil, fmt.Errorf("%s is not a ledger repository: %w", a.repo, err)
	}
	return cfg, nil
}

// logger builds the CLI logger from the config's logging section. --verbose
// wins over the configured level.
func (a *app) logger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())

	level := logrus.InfoLevel
	if cfg.Logging.Level != "" {
		l, err := logrus.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		level = l
	}
	if a.verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Logging.Format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("logging.format: unknown format %q", cfg.Logging.Format)
	}
	return log, nil
}

// open loads the configuration and the ledger of the repository.
func (a *app) open(cmd *cobra.Command) (*ledger.Service, *config.Config, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	log, err := a.logger(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := ledger.Open(a.repo,
		ledger.WithLogger(log.WithField("ledger", cfg.Ledger.Name)),
		ledger.WithAudit(auditlog.NewFileRecorder(a.repo, "cli")),
		ledger.WithEngine(balance.NewEngine(balance.Options{Window: cfg.Matching.Window()})),
		ledger.WithSnapshotCache(cfg.Storage.Snapshot),
		ledger.WithHistoryCycles(cfg.Budget.HistoryCycles),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("opening ledger: %w", err)
	}
	return svc, cfg, nil
}

// commit records the repository's changes in git when the ledger is
// configured for it.
func (a *app) commit(cmd *cobra.Command, cfg *config.Config, message string) error {
	if !cfg.Storage.Git {
		return nil
	}
	hash, err := gitops.CommitAll(a.repo, message, gitops.DefaultAuthor)
	if err != nil {
		return fmt.Errorf("recording change: %w", err)
	}
	if hash != "" && a.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "committed %s\n", hash)
	}
	return nil
}

// cycleFlag resolves a --cycle value, defaulting to the cycle running now.
func cycleFlag(label string) (cycle.Cycle, error) {
	if label == "" {
		return cycle.Containing(time.Now()), nil
	}
	return cycle.Bounds(label)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
