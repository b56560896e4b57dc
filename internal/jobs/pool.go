// Package jobs runs independent units of work on a bounded set of workers.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

// Pool bounds how many units run at once. A single Pool may be shared by
// concurrent batches; the bound applies across all of them.
type Pool struct {
	name    string
	workers int
	slots   chan struct{}
	logger  *slog.Logger

	inFlight  atomic.Int32
	completed atomic.Int64
	failed    atomic.Int64
}

// PoolConfig configures a new Pool.
type PoolConfig struct {
	Name    string
	Workers int // default: DefaultWorkers
	Logger  *slog.Logger
}

// NewPool creates a Pool.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Name == "" {
		cfg.Name = "local"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pool{
		name:    cfg.Name,
		workers: cfg.Workers,
		slots:   make(chan struct{}, cfg.Workers),
		logger:  cfg.Logger.With("pool", cfg.Name, "workers", cfg.Workers),
	}
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Workers returns the concurrency bound.
func (p *Pool) Workers() int { return p.workers }

// PoolStatus reports pool activity.
type PoolStatus struct {
	Name      string `json:"name"`
	Workers   int    `json:"workers"`
	InFlight  int    `json:"in_flight"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
}

// Status returns current pool status.
func (p *Pool) Status() PoolStatus {
	return PoolStatus{
		Name:      p.name,
		Workers:   p.workers,
		InFlight:  int(p.inFlight.Load()),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Result is the outcome of one unit. Index is the unit's position in the
// submitted slice.
type Result[In any, Out any] struct {
	Index  int
	Input  In
	Output Out
	Err    error
}

// Run processes every item and returns one Result per item in completion
// order. A failing or panicking unit is reported in its Result and never
// stops its siblings. Units still waiting for a slot when ctx is done fail
// with ctx's error.
func Run[In any, Out any](ctx context.Context, p *Pool, items []In, fn func(context.Context, In) (Out, error)) []Result[In, Out] {
	if len(items) == 0 {
		return nil
	}

	type unit struct {
		idx int
		in  In
	}

	queue := make(chan unit)
	done := make(chan Result[In, Out], len(items))

	var wg sync.WaitGroup
	for range min(p.workers, len(items)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range queue {
				done <- runUnit(ctx, p, u.idx, u.in, fn)
			}
		}()
	}

	go func() {
		// Input order follows the submitted slice.
		for i, in := range items {
			queue <- unit{idx: i, in: in}
		}
		close(queue)
		wg.Wait()
		close(done)
	}()

	results := make([]Result[In, Out], 0, len(items))
	for r := range done {
		results = append(results, r)
	}
	return results
}

// runUnit executes one unit while holding a pool slot.
func runUnit[In any, Out any](ctx context.Context, p *Pool, idx int, in In, fn func(context.Context, In) (Out, error)) (res Result[In, Out]) {
	res = Result[In, Out]{Index: idx, Input: in}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		res.Err = ctx.Err()
		p.failed.Add(1)
		return res
	}
	p.inFlight.Add(1)

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("unit %d panicked: %v", idx, r)
			p.logger.Error("unit panicked", "index", idx, "panic", r, "stack", string(debug.Stack()))
		}
		p.inFlight.Add(-1)
		<-p.slots
		if res.Err != nil {
			p.failed.Add(1)
		} else {
			p.completed.Add(1)
		}
	}()

	res.Output, res.Err = fn(ctx, in)
	if res.Err != nil {
		p.logger.Debug("unit failed", "index", idx, "error", res.Err)
	}
	return res
}
