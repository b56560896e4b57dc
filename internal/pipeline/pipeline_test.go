package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jackzampolin/leadscan/internal/extract"
	"github.com/jackzampolin/leadscan/internal/imageprep"
	"github.com/jackzampolin/leadscan/internal/lead"
	"github.com/jackzampolin/leadscan/internal/raster"
)

var pdfBytes = []byte("%PDF-1.4\n%fake body\n")

// fakeRasterizer writes n page files into outDir, failing after failAt
// pages when failAt >= 0.
type fakeRasterizer struct {
	n      int
	failAt int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, pdfPath, outDir string) ([]lead.Page, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("source missing: %w", err)
	}
	var pages []lead.Page
	for i := range f.n {
		if f.failAt >= 0 && i == f.failAt {
			return pages, fmt.Errorf("%w: page %d", raster.ErrRasterize, i+1)
		}
		p := filepath.Join(outDir, fmt.Sprintf("page_%04d.png", i+1))
		if err := os.WriteFile(p, []byte("png"), 0o644); err != nil {
			return pages, err
		}
		pages = append(pages, lead.Page{Index: i, Path: p})
	}
	return pages, nil
}

// fakeExtractor returns one lead per page and writes an optimized sibling
// like the local tier does.
type fakeExtractor struct {
	mu    sync.Mutex
	pages []lead.Page
	leads []lead.Lead
}

func (f *fakeExtractor) Extract(_ context.Context, pages []lead.Page) extract.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, pages...)
	for _, p := range pages {
		_ = os.WriteFile(imageprep.OptimizedPath(p.Path), []byte("png"), 0o644)
	}
	leads := f.leads
	if leads == nil {
		for _, p := range pages {
			leads = append(leads, lead.Lead{Name: fmt.Sprintf("Lead %d", p.Index), Email: "a@b.co", Phone: "(111) 222-3333"})
		}
	}
	return extract.Result{Leads: leads, Strategy: extract.StrategyRemoteFirst}
}

func newTestPipeline(t *testing.T, r Rasterizer, e Extractor) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	p, err := New(Config{ScratchRoot: root, Rasterizer: r, Extractor: e, MaxBytes: 1 << 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, root
}

func assertEmpty(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read scratch root: %v", err)
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("scratch root not empty: %v", names)
	}
}

func TestRun_PDF(t *testing.T) {
	ex := &fakeExtractor{}
	p, root := newTestPipeline(t, &fakeRasterizer{n: 3, failAt: -1}, ex)

	res, err := p.Run(context.Background(), Document{Name: "deck.pdf", MIMEType: "application/pdf", Data: pdfBytes})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.FileType != FileTypePDF || res.FileName != "deck.pdf" {
		t.Errorf("file metadata = %q %q", res.FileType, res.FileName)
	}
	if res.PagesProcessed != 3 || res.LeadCount != 3 || len(res.Leads) != 3 {
		t.Errorf("pages=%d leads=%d", res.PagesProcessed, res.LeadCount)
	}
	for i, pg := range ex.pages {
		if pg.Index != i {
			t.Errorf("page %d has index %d", i, pg.Index)
		}
	}
	want := 7.0 / 13.0
	if got := res.Leads[0].Confidence; got != want {
		t.Errorf("confidence = %v, want %v", got, want)
	}
	if res.Message != "Successfully extracted 3 leads from 3 page(s)" {
		t.Errorf("message = %q", res.Message)
	}
	if res.RequestID == "" {
		t.Error("expected a request id")
	}
	if res.Strategy != string(extract.StrategyRemoteFirst) {
		t.Errorf("strategy = %q", res.Strategy)
	}
	assertEmpty(t, root)
}

func TestRun_Image(t *testing.T) {
	ex := &fakeExtractor{leads: []lead.Lead{}}
	p, root := newTestPipeline(t, &fakeRasterizer{failAt: -1}, ex)

	res, err := p.Run(context.Background(), Document{
		Name:      "card.JPG",
		MIMEType:  "image/jpeg",
		Data:      []byte("\xff\xd8\xff fake jpeg"),
		RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FileType != FileTypeImage || res.PagesProcessed != 1 {
		t.Errorf("type=%q pages=%d", res.FileType, res.PagesProcessed)
	}
	if res.RequestID != "req-1" {
		t.Errorf("request id = %q", res.RequestID)
	}
	if res.Message != "No leads found in document" {
		t.Errorf("message = %q", res.Message)
	}
	if res.Leads == nil {
		t.Error("leads should be an empty list, not nil")
	}
	if len(ex.pages) != 1 || !strings.HasSuffix(ex.pages[0].Path, "upload.jpg") {
		t.Errorf("pages = %+v", ex.pages)
	}
	assertEmpty(t, root)
}

func TestRun_RasterFailureCleansUp(t *testing.T) {
	ex := &fakeExtractor{}
	p, root := newTestPipeline(t, &fakeRasterizer{n: 4, failAt: 2}, ex)

	_, err := p.Run(context.Background(), Document{Name: "bad.pdf", MIMEType: "application/pdf", Data: pdfBytes})
	if !errors.Is(err, raster.ErrRasterize) {
		t.Fatalf("expected ErrRasterize, got %v", err)
	}
	if len(ex.pages) != 0 {
		t.Error("extractor should not run after a raster failure")
	}
	assertEmpty(t, root)
}

func TestRun_Validation(t *testing.T) {
	p, root := newTestPipeline(t, &fakeRasterizer{failAt: -1}, &fakeExtractor{})

	tests := []struct {
		name string
		doc  Document
		want error
	}{
		{"empty", Document{Name: "x.pdf", MIMEType: "application/pdf"}, ErrEmpty},
		{"too large", Document{Name: "x.pdf", MIMEType: "application/pdf", Data: make([]byte, 2<<10)}, ErrTooLarge},
		{"text", Document{Name: "x.txt", MIMEType: "text/plain", Data: []byte("hello")}, ErrUnsupportedType},
		{"garbage mime", Document{Name: "x", MIMEType: ";;", Data: []byte("hello")}, ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), tt.doc)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	assertEmpty(t, root)
}

func TestClassifyMIME(t *testing.T) {
	tests := []struct {
		declared string
		data     []byte
		want     string
		wantErr  bool
	}{
		{"application/pdf", nil, FileTypePDF, false},
		{"application/pdf; charset=binary", nil, FileTypePDF, false},
		{"image/png", nil, FileTypeImage, false},
		{"image/webp", nil, FileTypeImage, false},
		{"", pdfBytes, FileTypePDF, false},
		{"application/octet-stream", []byte("\x89PNG\r\n\x1a\n"), FileTypeImage, false},
		{"text/csv", nil, "", true},
		{"", []byte("plain text"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			got, err := ClassifyMIME(tt.declared, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Config{Extractor: &fakeExtractor{}}); err == nil {
		t.Error("expected error without rasterizer")
	}
	if _, err := New(Config{Rasterizer: &fakeRasterizer{}}); err == nil {
		t.Error("expected error without extractor")
	}
}

func TestScratch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "req")
	s, err := NewScratch(dir)
	if err != nil {
		t.Fatalf("NewScratch: %v", err)
	}

	a := s.Path("a.png")
	s.Track(a, filepath.Join(dir, ".", "a.png"), filepath.Join(dir, "never-written.png"))
	if got := s.Paths(); len(got) != 2 {
		t.Errorf("paths = %v, want 2 unique", got)
	}
	if err := os.WriteFile(a, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// untracked files go with the directory
	if err := os.WriteFile(filepath.Join(dir, "stray"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("scratch dir still exists: %v", err)
	}
	if err := s.Cleanup(); err != nil {
		t.Errorf("second Cleanup: %v", err)
	}
}
