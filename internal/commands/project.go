package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/depositmatch/internal/auditlog"
	"github.com/cleared-dev/depositmatch/internal/config"
	"github.com/cleared-dev/depositmatch/internal/importer"
	"github.com/cleared-dev/depositmatch/internal/ledger"
	"github.com/cleared-dev/depositmatch/internal/logger"
	"github.com/cleared-dev/depositmatch/internal/match"
	"github.com/cleared-dev/depositmatch/internal/receipt"
)

// project is an initialized depositmatch directory with its config loaded.
type project struct {
	root string
	cfg  *config.Config
}

// openProject loads the config under dir and attaches a logger to cmd's
// context. Commands read it back with logger.FromContext.
func openProject(cmd *cobra.Command, dir string) (*project, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s is not a depositmatch project (run depositmatch init)", root)
		}
		return nil, err
	}
	log, err := logger.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	return &project{root: root, cfg: cfg}, nil
}

func (p *project) path(rel string) string {
	return config.Resolve(p.root, rel)
}

func (p *project) importDir() string {
	return p.path(p.cfg.Ledger.ImportDir)
}

func (p *project) snapshots() *ledger.SnapshotStore {
	return ledger.NewSnapshotStore(p.path(p.cfg.Ledger.SnapshotDir))
}

func (p *project) extractor() *ledger.Extractor {
	return ledger.NewExtractor(p.cfg.ExtractorOptions())
}

func (p *project) readers() *importer.Registry {
	return importer.DefaultRegistry()
}

func (p *project) audit() *auditlog.Log {
	return auditlog.New(p.root)
}

func (p *project) matcher(ctx context.Context) (*match.SnapshotMatcher, error) {
	tol, err := p.cfg.Tolerance()
	if err != nil {
		return nil, err
	}
	return &match.SnapshotMatcher{
		Snapshots: p.snapshots(),
		Matcher:   match.NewMatcher(tol),
		Log:       logger.FromContext(ctx),
	}, nil
}

// receipts opens the workflow store. The caller must close it.
func (p *project) receipts(ctx context.Context) (*receipt.Service, *receipt.BoltStore, error) {
	m, err := p.matcher(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := receipt.NewBoltStore(p.path(p.cfg.Store.Path))
	if err != nil {
		return nil, nil, err
	}
	return receipt.NewService(store, m, p.audit(), logger.FromContext(ctx)), store, nil
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
