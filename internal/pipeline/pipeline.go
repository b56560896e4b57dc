// Package pipeline is the entry point for lead extraction: it validates an
// uploaded document, turns it into page images in a request-owned scratch
// directory, runs the extraction strategy and scores the leads.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/leadscan/internal/extract"
	"github.com/jackzampolin/leadscan/internal/imageprep"
	"github.com/jackzampolin/leadscan/internal/lead"
)

// DefaultMaxBytes is the upload size cap.
const DefaultMaxBytes int64 = 10 << 20

const (
	FileTypePDF   = "pdf"
	FileTypeImage = "image"
)

var (
	// ErrUnsupportedType is returned for anything other than a PDF or image.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTooLarge is returned when the document exceeds the size cap.
	ErrTooLarge = errors.New("file too large")

	// ErrEmpty is returned for a zero-byte document.
	ErrEmpty = errors.New("empty file")
)

// Document is one uploaded file.
type Document struct {
	Name      string
	MIMEType  string // sniffed from Data when empty
	Data      []byte
	RequestID string // generated when empty
}

// Result is the outcome of one pipeline run.
type Result struct {
	RequestID      string            `json:"request_id"`
	Leads          []lead.ScoredLead `json:"leads"`
	FileName       string            `json:"file_name"`
	FileType       string            `json:"file_type"`
	PagesProcessed int               `json:"pages_processed"`
	LeadCount      int               `json:"lead_count"`
	ProcessingTime float64           `json:"processing_time"` // seconds
	Message        string            `json:"message"`
	Strategy       string            `json:"strategy"`
}

// Rasterizer renders a PDF into page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]lead.Page, error)
}

// Extractor runs an extraction strategy over pages.
type Extractor interface {
	Extract(ctx context.Context, pages []lead.Page) extract.Result
}

// Config configures a Pipeline.
type Config struct {
	ScratchRoot string // parent of per-request directories
	Rasterizer  Rasterizer
	Extractor   Extractor
	MaxBytes    int64 // default: 10 MiB
	Logger      *slog.Logger
}

// Pipeline extracts scored leads from documents.
type Pipeline struct {
	scratchRoot string
	rasterizer  Rasterizer
	extractor   Extractor
	maxBytes    int64
	logger      *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.ScratchRoot == "" {
		cfg.ScratchRoot = filepath.Join(os.TempDir(), "leadscan")
	}
	if cfg.Rasterizer == nil {
		return nil, fmt.Errorf("pipeline: rasterizer is required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("pipeline: extractor is required")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		scratchRoot: cfg.ScratchRoot,
		rasterizer:  cfg.Rasterizer,
		extractor:   cfg.Extractor,
		maxBytes:    cfg.MaxBytes,
		logger:      cfg.Logger.With("component", "pipeline"),
	}, nil
}

// MaxBytes returns the upload size cap.
func (p *Pipeline) MaxBytes() int64 { return p.maxBytes }

// Classify validates a document's size and type, returning FileTypePDF or
// FileTypeImage.
func (p *Pipeline) Classify(doc Document) (string, error) {
	if len(doc.Data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(doc.Data)) > p.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(doc.Data), p.maxBytes)
	}
	return ClassifyMIME(doc.MIMEType, doc.Data)
}

// ClassifyMIME maps a declared MIME type to a file type. An empty or
// generic declaration is sniffed from data.
func ClassifyMIME(declared string, data []byte) (string, error) {
	mt := declared
	if mt == "" || mt == "application/octet-stream" {
		mt = http.DetectContentType(data)
	}
	base, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mt)
	}
	switch {
	case base == "application/pdf":
		return FileTypePDF, nil
	case strings.HasPrefix(base, "image/"):
		return FileTypeImage, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, base)
}

// Run executes the pipeline. Scratch files are removed on every return path.
func (p *Pipeline) Run(ctx context.Context, doc Document) (*Result, error) {
	start := time.Now()

	fileType, err := p.Classify(doc)
	if err != nil {
		return nil, err
	}

	requestID := doc.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	logger := p.logger.With("request_id", requestID, "file", doc.Name, "file_type", fileType)

	// Request ids may come from clients; scratch directories never do.
	scratch, err := NewScratch(filepath.Join(p.scratchRoot, uuid.New().String()))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := scratch.Cleanup(); err != nil {
			logger.Warn("scratch cleanup failed", "dir", scratch.Dir(), "error", err)
		}
	}()

	pages, err := p.pages(ctx, scratch, fileType, doc)
	if err != nil {
		logger.Error("failed to prepare pages", "error", err)
		return nil, err
	}
	for _, pg := range pages {
		scratch.Track(pg.Path, imageprep.OptimizedPath(pg.Path))
	}
	logger.Info("pages prepared", "pages", len(pages))

	res := p.extractor.Extract(ctx, pages)
	scored := lead.ScoreAll(res.Leads)

	out := &Result{
		RequestID:      requestID,
		Leads:          scored,
		FileName:       doc.Name,
		FileType:       fileType,
		PagesProcessed: len(pages),
		LeadCount:      len(scored),
		ProcessingTime: time.Since(start).Seconds(),
		Message:        summary(len(scored), len(pages)),
		Strategy:       string(res.Strategy),
	}
	logger.Info("document processed",
		"leads", out.LeadCount,
		"pages", out.PagesProcessed,
		"strategy", out.Strategy,
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (p *Pipeline) pages(ctx context.Context, scratch *Scratch, fileType string, doc Document) ([]lead.Page, error) {
	switch fileType {
	case FileTypePDF:
		src := scratch.Path("source.pdf")
		if err := os.WriteFile(src, doc.Data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write upload: %w", err)
		}
		return p.rasterizer.Rasterize(ctx, src, scratch.Dir())
	default:
		src := scratch.Path("upload" + imageExt(doc.Name))
		if err := os.WriteFile(src, doc.Data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write upload: %w", err)
		}
		return []lead.Page{{Index: 0, Path: src}}, nil
	}
}

// imageExt keeps the upload's extension when it has one; decoding does not
// depend on it.
func imageExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, `/\`) {
		return ".img"
	}
	return ext
}

func summary(leads, pages int) string {
	if leads == 0 {
		return "No leads found in document"
	}
	return fmt.Sprintf("Successfully extracted %d leads from %d page(s)", leads, pages)
}
