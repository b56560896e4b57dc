package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jackzampolin/leadscan/internal/jobs"
	"github.com/jackzampolin/leadscan/internal/lead"
	"github.com/jackzampolin/leadscan/internal/remote"
)

// fakeTier returns one lead per page named after the tier, unless errs
// has an entry for the page index.
type fakeTier struct {
	name string
	errs map[int]error

	mu    sync.Mutex
	pages []int
}

func (f *fakeTier) ExtractPage(_ context.Context, page lead.Page) ([]lead.Lead, error) {
	f.mu.Lock()
	f.pages = append(f.pages, page.Index)
	f.mu.Unlock()
	if err, ok := f.errs[page.Index]; ok {
		return nil, err
	}
	return []lead.Lead{{Name: fmt.Sprintf("%s-%d", f.name, page.Index)}}, nil
}

func (f *fakeTier) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pages...)
}

func makePages(n int) []lead.Page {
	pages := make([]lead.Page, n)
	for i := range pages {
		pages[i] = lead.Page{Index: i, Path: fmt.Sprintf("/tmp/page_%04d.png", i+1)}
	}
	return pages
}

func TestExtract_LargeBatchSkipsRemote(t *testing.T) {
	rt := &fakeTier{name: "remote"}
	lt := &fakeTier{name: "local"}
	o := New(Config{Remote: rt, Local: lt, Pool: jobs.NewPool(jobs.PoolConfig{Workers: 4})})

	res := o.Extract(context.Background(), makePages(6))

	if res.Strategy != StrategyLocalParallel {
		t.Errorf("strategy = %s", res.Strategy)
	}
	if n := len(rt.calls()); n != 0 {
		t.Errorf("remote called %d times, want 0", n)
	}
	if len(res.Leads) != 6 {
		t.Errorf("expected 6 leads, got %d", len(res.Leads))
	}
	for i, rep := range res.PageReports {
		if rep.Index != i || rep.Method != MethodLocal || rep.Leads != 1 {
			t.Errorf("report %d = %+v", i, rep)
		}
	}
}

func TestExtract_ThresholdBoundary(t *testing.T) {
	rt := &fakeTier{name: "remote"}
	lt := &fakeTier{name: "local"}
	o := New(Config{Remote: rt, Local: lt})

	res := o.Extract(context.Background(), makePages(DefaultParallelThreshold))
	if res.Strategy != StrategyRemoteFirst {
		t.Errorf("strategy = %s, want %s", res.Strategy, StrategyRemoteFirst)
	}
	if got := rt.calls(); len(got) != 5 {
		t.Errorf("remote calls = %v", got)
	}
	if got := lt.calls(); len(got) != 0 {
		t.Errorf("local calls = %v", got)
	}
}

func TestExtract_RemoteFirstInOrder(t *testing.T) {
	rt := &fakeTier{name: "remote"}
	o := New(Config{Remote: rt, Local: &fakeTier{name: "local"}})

	res := o.Extract(context.Background(), makePages(3))
	want := []string{"remote-0", "remote-1", "remote-2"}
	if len(res.Leads) != len(want) {
		t.Fatalf("leads = %+v", res.Leads)
	}
	for i, w := range want {
		if res.Leads[i].Name != w {
			t.Errorf("lead %d = %q, want %q", i, res.Leads[i].Name, w)
		}
	}
}

func TestExtract_FallbackPerPage(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"timeout", fmt.Errorf("%w: %w", remote.ErrTimeout, context.DeadlineExceeded)},
		{"service", fmt.Errorf("%w: bad status", remote.ErrService)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &fakeTier{name: "remote", errs: map[int]error{1: tt.err}}
			lt := &fakeTier{name: "local"}
			o := New(Config{Remote: rt, Local: lt})

			res := o.Extract(context.Background(), makePages(3))

			if got := lt.calls(); len(got) != 1 || got[0] != 1 {
				t.Errorf("local calls = %v, want [1]", got)
			}
			names := []string{"remote-0", "local-1", "remote-2"}
			for i, n := range names {
				if res.Leads[i].Name != n {
					t.Errorf("lead %d = %q, want %q", i, res.Leads[i].Name, n)
				}
			}
			if res.PageReports[1].Method != MethodLocal {
				t.Errorf("page 1 method = %s", res.PageReports[1].Method)
			}
		})
	}
}

func TestExtract_NonFallbackErrorSkipsPage(t *testing.T) {
	rt := &fakeTier{name: "remote", errs: map[int]error{0: context.Canceled}}
	lt := &fakeTier{name: "local"}
	o := New(Config{Remote: rt, Local: lt})

	res := o.Extract(context.Background(), makePages(2))

	if got := lt.calls(); len(got) != 0 {
		t.Errorf("local calls = %v, want none", got)
	}
	if res.PageReports[0].Method != MethodFailed || !errors.Is(res.PageReports[0].Err, context.Canceled) {
		t.Errorf("page 0 report = %+v", res.PageReports[0])
	}
	if len(res.Leads) != 1 || res.Leads[0].Name != "remote-1" {
		t.Errorf("leads = %+v", res.Leads)
	}
}

func TestExtract_NoRemote(t *testing.T) {
	lt := &fakeTier{name: "local"}
	o := New(Config{Local: lt})

	res := o.Extract(context.Background(), makePages(3))

	if res.Strategy != StrategyLocalSequential {
		t.Errorf("strategy = %s", res.Strategy)
	}
	if got := lt.calls(); len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("local calls = %v", got)
	}
	if o.RemoteEnabled() {
		t.Error("RemoteEnabled = true")
	}

	o.SetRemote(&fakeTier{name: "remote"})
	if !o.RemoteEnabled() {
		t.Error("RemoteEnabled = false after SetRemote")
	}
}

func TestExtract_LocalFailuresOmitted(t *testing.T) {
	lt := &fakeTier{name: "local", errs: map[int]error{2: errors.New("ocr failed"), 4: errors.New("ocr failed")}}
	o := New(Config{Local: lt})

	res := o.Extract(context.Background(), makePages(8))

	if len(res.Leads) != 6 {
		t.Errorf("expected 6 leads, got %d", len(res.Leads))
	}
	failed := 0
	for _, rep := range res.PageReports {
		if rep.Method == MethodFailed {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("failed pages = %d, want 2", failed)
	}
}

// panicTier panics on the listed page indexes and otherwise returns one lead.
type panicTier struct {
	at map[int]bool
}

func (p panicTier) ExtractPage(_ context.Context, page lead.Page) ([]lead.Lead, error) {
	if p.at[page.Index] {
		panic("decoder blew up")
	}
	return []lead.Lead{{Name: fmt.Sprintf("ok-%d", page.Index)}}, nil
}

func TestExtract_PanicsContained(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		pages    int
		strategy Strategy
	}{
		{"local sequential", Config{Local: panicTier{at: map[int]bool{1: true}}}, 3, StrategyLocalSequential},
		{"local parallel", Config{Local: panicTier{at: map[int]bool{1: true}}}, 6, StrategyLocalParallel},
		{"remote tier", Config{Remote: panicTier{at: map[int]bool{1: true}}, Local: &fakeTier{name: "local"}}, 3, StrategyRemoteFirst},
		{"local fallback", Config{
			Remote: &fakeTier{name: "remote", errs: map[int]error{1: remote.ErrTimeout}},
			Local:  panicTier{at: map[int]bool{1: true}},
		}, 3, StrategyRemoteFirst},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(tt.cfg).Extract(context.Background(), makePages(tt.pages))

			if res.Strategy != tt.strategy {
				t.Errorf("strategy = %s, want %s", res.Strategy, tt.strategy)
			}
			if len(res.PageReports) != tt.pages {
				t.Fatalf("reports = %d, want %d", len(res.PageReports), tt.pages)
			}
			if len(res.Leads) != tt.pages-1 {
				t.Errorf("leads = %d, want %d", len(res.Leads), tt.pages-1)
			}
			rep := res.PageReports[1]
			if rep.Method != MethodFailed || rep.Err == nil {
				t.Errorf("page 1 report = %+v, want failed with error", rep)
			}
		})
	}
}

func TestExtract_EmptyBatch(t *testing.T) {
	o := New(Config{Local: &fakeTier{name: "local"}})
	res := o.Extract(context.Background(), nil)
	if res.Leads == nil || len(res.Leads) != 0 {
		t.Errorf("leads = %#v, want empty non-nil", res.Leads)
	}
}
