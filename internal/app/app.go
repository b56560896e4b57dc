// Package app assembles the extraction services from configuration. The
// server and the in-process CLI commands share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackzampolin/leadscan/internal/config"
	"github.com/jackzampolin/leadscan/internal/extract"
	"github.com/jackzampolin/leadscan/internal/heuristics"
	"github.com/jackzampolin/leadscan/internal/home"
	"github.com/jackzampolin/leadscan/internal/imageprep"
	"github.com/jackzampolin/leadscan/internal/jobs"
	"github.com/jackzampolin/leadscan/internal/ocr"
	"github.com/jackzampolin/leadscan/internal/pipeline"
	"github.com/jackzampolin/leadscan/internal/providers"
	"github.com/jackzampolin/leadscan/internal/raster"
	"github.com/jackzampolin/leadscan/internal/remote"
)

// Config configures an App. Config and OCR are required; the rest override
// production dependencies.
type Config struct {
	Config *config.Config
	Home   *home.Dir
	Logger *slog.Logger

	OCR    ocr.Engine          // required
	LLM    providers.LLMClient // default: built from Config.Remote
	Runner raster.Runner       // default: exec
}

// App holds the wired extraction services.
type App struct {
	home   *home.Dir
	logger *slog.Logger
	llm    providers.LLMClient // fixed override, if any

	threshold    int
	prep         *imageprep.Preprocessor
	pool         *jobs.Pool
	orchestrator *extract.Orchestrator
	pipeline     *pipeline.Pipeline

	mu        sync.RWMutex
	cfg       *config.Config
	remote    *remote.Client
	remoteErr error
}

// New wires an App. A missing API key is not an error: the remote tier is
// simply disabled.
func New(cfg Config) (*App, error) {
	if cfg.Config == nil {
		return nil, errors.New("app: config is required")
	}
	if cfg.OCR == nil {
		return nil, errors.New("app: ocr engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		h, err := home.New("")
		if err != nil {
			return nil, err
		}
		cfg.Home = h
	}
	c := cfg.Config

	a := &App{
		home:   cfg.Home,
		logger: cfg.Logger,
		llm:    cfg.LLM,
		cfg:    c,
	}
	a.threshold = c.Local.ParallelThreshold
	if a.threshold <= 0 {
		a.threshold = extract.DefaultParallelThreshold
	}

	a.prep = imageprep.New(imageprep.Config{
		MaxSide:     c.Image.MaxSide,
		JPEGQuality: c.Image.JPEGQuality,
		Logger:      cfg.Logger,
	})
	a.pool = jobs.NewPool(jobs.PoolConfig{
		Name:    "local",
		Workers: c.Local.Workers,
		Logger:  cfg.Logger,
	})
	a.orchestrator = extract.New(extract.Config{
		Local:             heuristics.NewExtractor(cfg.OCR, a.prep, cfg.Logger),
		Pool:              a.pool,
		ParallelThreshold: a.threshold,
		Logger:            cfg.Logger,
	})

	p, err := pipeline.New(pipeline.Config{
		ScratchRoot: cfg.Home.ScratchPath(),
		Rasterizer: raster.New(raster.Config{
			Scale:  c.Raster.Scale,
			Binary: c.Raster.PDFToPPM,
			Runner: cfg.Runner,
			Logger: cfg.Logger,
		}),
		Extractor: a.orchestrator,
		MaxBytes:  c.Server.MaxUploadBytes,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.pipeline = p

	a.installRemote(c)
	return a, nil
}

// Reload rebuilds the remote tier from cfg. Local settings take effect on
// restart.
func (a *App) Reload(cfg *config.Config) {
	a.installRemote(cfg)
	a.logger.Info("remote tier reloaded", "enabled", a.RemoteEnabled())
}

func (a *App) installRemote(cfg *config.Config) {
	client, err := a.buildRemote(cfg)

	a.mu.Lock()
	a.cfg = cfg
	a.remote = client
	a.remoteErr = err
	a.mu.Unlock()

	if client == nil {
		a.orchestrator.SetRemote(nil)
		a.logger.Warn("remote extraction disabled, all pages will be processed locally", "reason", err)
		return
	}
	a.orchestrator.SetRemote(client)
	a.logger.Info("remote extraction enabled", "provider", client.Provider())
}

func (a *App) buildRemote(cfg *config.Config) (*remote.Client, error) {
	llm := a.llm
	if llm == nil {
		var err error
		llm, err = providers.New(cfg.ProviderConfig(a.logger))
		if errors.Is(err, providers.ErrNoAPIKey) {
			return nil, fmt.Errorf("%w: %w", remote.ErrUnavailable, err)
		}
		if err != nil {
			return nil, err
		}
	}
	return remote.New(llm, remote.Config{
		Model:   cfg.Remote.Model,
		Timeout: cfg.Remote.CallTimeout(),
		Encoder: a.prep,
		Logger:  a.logger,
	})
}

// Pipeline returns the document pipeline.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// Home returns the home directory.
func (a *App) Home() *home.Dir { return a.home }

// Run processes one document.
func (a *App) Run(ctx context.Context, doc pipeline.Document) (*pipeline.Result, error) {
	return a.pipeline.Run(ctx, doc)
}

// RemoteEnabled reports whether a remote tier is configured.
func (a *App) RemoteEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.remote != nil
}

// Ping probes the remote tier. It returns remote.ErrUnavailable when the
// tier is disabled.
func (a *App) Ping(ctx context.Context) error {
	a.mu.RLock()
	client, reason := a.remote, a.remoteErr
	a.mu.RUnlock()
	if client == nil {
		if errors.Is(reason, remote.ErrUnavailable) {
			return reason
		}
		return fmt.Errorf("%w: %w", remote.ErrUnavailable, reason)
	}
	return client.Ping(ctx)
}

// Status describes the extraction services.
type Status struct {
	Remote            RemoteStatus    `json:"remote"`
	Pool              jobs.PoolStatus `json:"pool"`
	ParallelThreshold int             `json:"parallel_threshold"`
	MaxUploadBytes    int64           `json:"max_upload_bytes"`
}

// RemoteStatus describes the remote tier.
type RemoteStatus struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Status returns a snapshot of the services.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rs := RemoteStatus{Enabled: a.remote != nil}
	if a.remote != nil {
		rs.Provider = a.remote.Provider()
		rs.Model = a.cfg.Remote.Model
	} else if a.remoteErr != nil {
		rs.Reason = a.remoteErr.Error()
	}
	return Status{
		Remote:            rs,
		Pool:              a.pool.Status(),
		ParallelThreshold: a.threshold,
		MaxUploadBytes:    a.pipeline.MaxBytes(),
	}
}
