// Package extract picks an extraction strategy for a batch of pages and
// drives the remote and local tiers over it.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jackzampolin/leadscan/internal/jobs"
	"github.com/jackzampolin/leadscan/internal/lead"
	"github.com/jackzampolin/leadscan/internal/remote"
)

// DefaultParallelThreshold is the page count above which a batch skips the
// remote tier and runs locally in parallel.
const DefaultParallelThreshold = 5

// PageExtractor extracts leads from one page.
type PageExtractor interface {
	ExtractPage(ctx context.Context, page lead.Page) ([]lead.Lead, error)
}

// Strategy names how a batch was processed.
type Strategy string

const (
	StrategyRemoteFirst     Strategy = "remote_first"
	StrategyLocalSequential Strategy = "local_sequential"
	StrategyLocalParallel   Strategy = "local_parallel"
)

// Method names which tier produced a page's leads.
type Method string

const (
	MethodRemote Method = "remote"
	MethodLocal  Method = "local"
	MethodFailed Method = "failed"
)

// PageReport describes what happened to one page.
type PageReport struct {
	Index  int
	Method Method
	Leads  int
	Err    error
}

// Result is the flattened batch output.
type Result struct {
	Leads       []lead.Lead
	Strategy    Strategy
	PageReports []PageReport // ordered by page index
}

// Config configures an Orchestrator.
type Config struct {
	Remote            PageExtractor // nil: every page goes local
	Local             PageExtractor
	Pool              *jobs.Pool
	ParallelThreshold int // default: 5
	Logger            *slog.Logger
}

// Orchestrator routes pages between the remote and local tiers.
type Orchestrator struct {
	mu     sync.RWMutex
	remote PageExtractor

	local     PageExtractor
	pool      *jobs.Pool
	threshold int
	logger    *slog.Logger
}

// New creates an Orchestrator. Local is required.
func New(cfg Config) *Orchestrator {
	if cfg.ParallelThreshold <= 0 {
		cfg.ParallelThreshold = DefaultParallelThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Pool == nil {
		cfg.Pool = jobs.NewPool(jobs.PoolConfig{Logger: cfg.Logger})
	}
	return &Orchestrator{
		remote:    cfg.Remote,
		local:     cfg.Local,
		pool:      cfg.Pool,
		threshold: cfg.ParallelThreshold,
		logger:    cfg.Logger.With("component", "extract"),
	}
}

// SetRemote swaps the remote tier. nil disables it.
func (o *Orchestrator) SetRemote(r PageExtractor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.remote = r
}

// RemoteEnabled reports whether a remote tier is configured.
func (o *Orchestrator) RemoteEnabled() bool {
	return o.remoteTier() != nil
}

// Pool returns the local worker pool.
func (o *Orchestrator) Pool() *jobs.Pool {
	return o.pool
}

func (o *Orchestrator) remoteTier() PageExtractor {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.remote
}

// Extract processes pages and never fails as a whole; per-page problems
// are logged and visible in PageReports.
func (o *Orchestrator) Extract(ctx context.Context, pages []lead.Page) Result {
	rt := o.remoteTier()

	var res Result
	switch {
	case len(pages) > o.threshold:
		res = o.localParallel(ctx, pages)
	case rt == nil:
		res = o.localSequential(ctx, pages)
	default:
		res = o.remoteFirst(ctx, rt, pages)
	}
	if res.Leads == nil {
		res.Leads = []lead.Lead{}
	}

	o.logger.Info("batch extracted",
		"strategy", res.Strategy,
		"pages", len(pages),
		"leads", len(res.Leads))
	return res
}

func (o *Orchestrator) remoteFirst(ctx context.Context, rt PageExtractor, pages []lead.Page) Result {
	res := Result{Strategy: StrategyRemoteFirst}
	for _, page := range pages {
		leads, err := extractSafe(ctx, rt, page)
		switch {
		case err == nil:
			res.add(PageReport{Index: page.Index, Method: MethodRemote}, leads)
		case remote.IsFallback(err):
			o.logger.Warn("remote extraction failed, falling back to local",
				"page", page.Index, "error", err)
			res.add(o.runLocal(ctx, page))
		default:
			o.logger.Error("remote extraction aborted", "page", page.Index, "error", err)
			res.add(PageReport{Index: page.Index, Method: MethodFailed, Err: err}, nil)
		}
	}
	return res
}

func (o *Orchestrator) localSequential(ctx context.Context, pages []lead.Page) Result {
	res := Result{Strategy: StrategyLocalSequential}
	for _, page := range pages {
		res.add(o.runLocal(ctx, page))
	}
	return res
}

func (o *Orchestrator) localParallel(ctx context.Context, pages []lead.Page) Result {
	res := Result{Strategy: StrategyLocalParallel}
	results := jobs.Run(ctx, o.pool, pages, o.local.ExtractPage)

	// Leads keep completion order; reports are sorted below.
	for _, r := range results {
		if r.Err != nil {
			o.logger.Error("local extraction failed", "page", r.Input.Index, "error", r.Err)
			res.add(PageReport{Index: r.Input.Index, Method: MethodFailed, Err: r.Err}, nil)
			continue
		}
		res.add(PageReport{Index: r.Input.Index, Method: MethodLocal}, r.Output)
	}
	sort.Slice(res.PageReports, func(i, j int) bool {
		return res.PageReports[i].Index < res.PageReports[j].Index
	})
	return res
}

func (o *Orchestrator) runLocal(ctx context.Context, page lead.Page) (PageReport, []lead.Lead) {
	leads, err := extractSafe(ctx, o.local, page)
	if err != nil {
		o.logger.Error("local extraction failed", "page", page.Index, "error", err)
		return PageReport{Index: page.Index, Method: MethodFailed, Err: err}, nil
	}
	return PageReport{Index: page.Index, Method: MethodLocal}, leads
}

// extractSafe runs one page on tier, reporting a panic as the page's error.
func extractSafe(ctx context.Context, tier PageExtractor, page lead.Page) (leads []lead.Lead, err error) {
	defer func() {
		if r := recover(); r != nil {
			leads, err = nil, fmt.Errorf("page %d panicked: %v", page.Index, r)
		}
	}()
	return tier.ExtractPage(ctx, page)
}

func (r *Result) add(rep PageReport, leads []lead.Lead) {
	rep.Leads = len(leads)
	r.PageReports = append(r.PageReports, rep)
	r.Leads = append(r.Leads, leads...)
}
