// Package raster renders PDF pages to PNG images with pdftoppm.
package raster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/leadscan/internal/lead"
)

// ErrRasterize marks a failure to turn a PDF into page images.
// It is fatal for the request.
var ErrRasterize = errors.New("rasterization failed")

const (
	// DefaultScale renders at 3x the PDF's 72dpi user space.
	DefaultScale = 3.0
	pointsPerInch = 72.0
)

// Config configures a Rasterizer.
type Config struct {
	// Scale is the linear zoom over 72dpi (default: 3).
	Scale float64
	// Binary is the pdftoppm executable (default: "pdftoppm").
	Binary string
	Runner Runner
	Logger *slog.Logger
}

// Rasterizer turns a PDF on disk into ordered page images.
type Rasterizer struct {
	scale  float64
	binary string
	runner Runner
	logger *slog.Logger

	// countPages is swappable for tests.
	countPages func(path string) (int, error)
}

// New creates a Rasterizer.
func New(cfg Config) *Rasterizer {
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	if cfg.Binary == "" {
		cfg.Binary = "pdftoppm"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{Logger: cfg.Logger}
	}
	return &Rasterizer{
		scale:      cfg.Scale,
		binary:     cfg.Binary,
		runner:     cfg.Runner,
		logger:     cfg.Logger.With("component", "raster"),
		countPages: PageCount,
	}
}

// DPI returns the resolution passed to pdftoppm.
func (r *Rasterizer) DPI() int {
	return int(r.scale * pointsPerInch)
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// Rasterize renders every page of pdfPath into outDir, in source order.
// Files written before a failure are left in place for the caller to clean up.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]lead.Page, error) {
	n, err := r.countPages(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrRasterize)
	}

	r.logger.Debug("rasterizing", "pages", n, "dpi", r.DPI())

	pages := make([]lead.Page, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return pages, fmt.Errorf("%w: %v", ErrRasterize, err)
		}
		path, err := r.renderPage(ctx, pdfPath, outDir, i+1)
		if err != nil {
			return pages, fmt.Errorf("%w: page %d: %v", ErrRasterize, i+1, err)
		}
		pages = append(pages, lead.Page{Index: i, Path: path})
	}
	return pages, nil
}

// renderPage renders a single 1-indexed page.
func (r *Rasterizer) renderPage(ctx context.Context, pdfPath, outDir string, pageNum int) (string, error) {
	prefix := filepath.Join(outDir, fmt.Sprintf("page_%04d", pageNum))
	pageStr := strconv.Itoa(pageNum)

	_, stderr, err := r.runner.Run(ctx, r.binary,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(r.DPI()),
		"-singlefile",
		pdfPath,
		prefix,
	)
	if err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w (output: %s)", err, truncate(string(stderr), 512))
	}

	// -singlefile writes <prefix>.png
	out := prefix + ".png"
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return out, nil
}
