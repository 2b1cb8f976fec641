package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/ynabsite/pkg/config"
	"github.com/yurifrl/ynabsite/pkg/models"
	"github.com/yurifrl/ynabsite/pkg/site"
	"github.com/yurifrl/ynabsite/pkg/ynab"
)

// Stage names the pipeline step a failure happened in. The CI log shows
// it, and the exit code is derived from it.
type Stage string

const (
	StageCredential Stage = "credential"
	StageFetch      Stage = "fetch"
	StageRender     Stage = "render"
	StageWrite      Stage = "write"
)

// Error wraps a stage failure. Whatever stage fails, nothing is written:
// the previous output directory stays untouched.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("build: %s stage failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Exit codes, one per failure class.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitCredential = 2
	ExitFetch      = 3
	ExitRender     = 4
	ExitWrite      = 5
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, config.ErrMissingToken) || errors.Is(err, ynab.ErrMissingToken) {
		return ExitCredential
	}
	var stageErr *Error
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case StageCredential:
			return ExitCredential
		case StageFetch:
			return ExitFetch
		case StageRender:
			return ExitRender
		case StageWrite:
			return ExitWrite
		}
	}
	return ExitFailure
}

// Fetcher supplies the snapshot. Satisfied by *ynab.Client; tests and the
// local-file path plug in their own.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, budgetID string) (*models.Snapshot, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, budgetID string) (*models.Snapshot, error)

func (f FetcherFunc) FetchSnapshot(ctx context.Context, budgetID string) (*models.Snapshot, error) {
	return f(ctx, budgetID)
}

// Builder sequences one pipeline run: fetch, verify, render, publish.
type Builder struct {
	cfg      *config.Config
	fetcher  Fetcher
	renderer *site.Renderer
	logger   *log.Logger
}

func New(cfg *config.Config, fetcher Fetcher, renderer *site.Renderer, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{cfg: cfg, fetcher: fetcher, renderer: renderer, logger: logger}
}

// Run executes the pipeline. On success the output directory holds the
// complete new site; on any failure it is exactly what it was before.
func (b *Builder) Run(ctx context.Context) error {
	b.logger.Info("fetching snapshot", "budget", b.cfg.BudgetID)
	snap, err := b.fetcher.FetchSnapshot(ctx, b.cfg.BudgetID)
	if err != nil {
		return &Error{Stage: StageFetch, Err: err}
	}

	for _, issue := range snap.Verify() {
		b.logger.Warn("balance inconsistency", "detail", issue.String())
	}

	pages, err := b.renderer.Render(snap)
	if err != nil {
		return &Error{Stage: StageRender, Err: err}
	}

	if err := b.publish(pages); err != nil {
		return &Error{Stage: StageWrite, Err: err}
	}

	b.logger.Info("build complete", "pages", len(pages), "output", b.cfg.OutputDir)
	return nil
}

// publish writes all pages into a staging directory, copies static assets
// in, then swaps it into place. The rename is the commit point; a crash
// before it leaves the previous output untouched.
func (b *Builder) publish(pages []site.Page) error {
	out := b.cfg.OutputDir
	staging := out + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	for _, p := range pages {
		full := filepath.Join(staging, filepath.FromSlash(p.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, p.Body, 0o644); err != nil {
			return err
		}
	}

	if b.cfg.StaticDir != "" {
		if _, err := os.Stat(b.cfg.StaticDir); err == nil {
			if err := os.CopyFS(staging, os.DirFS(b.cfg.StaticDir)); err != nil {
				return fmt.Errorf("copying static assets: %w", err)
			}
		}
	}

	old := out + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	if _, err := os.Stat(out); err == nil {
		if err := os.Rename(out, old); err != nil {
			return err
		}
	}
	if err := os.Rename(staging, out); err != nil {
		// Put the previous site back rather than leaving nothing.
		_ = os.Rename(old, out)
		return err
	}
	committed = true
	return os.RemoveAll(old)
}
