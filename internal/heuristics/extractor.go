package heuristics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/leadscan/internal/lead"
	"github.com/jackzampolin/leadscan/internal/ocr"
)

// Preparer produces the OCR-ready variant of a page image.
type Preparer interface {
	ForLocal(path string) string
}

// Extractor is the local extraction tier: preprocess, OCR, then Extract.
type Extractor struct {
	prep   Preparer
	engine ocr.Engine
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil prep skips preprocessing.
func NewExtractor(engine ocr.Engine, prep Preparer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		prep:   prep,
		engine: engine,
		logger: logger.With("component", "heuristics", "ocr", engine.Name()),
	}
}

// ExtractPage runs the local tier over one page. OCR failures are returned;
// finding nothing is not an error.
func (e *Extractor) ExtractPage(ctx context.Context, page lead.Page) ([]lead.Lead, error) {
	path := page.Path
	if e.prep != nil {
		path = e.prep.ForLocal(path)
	}

	text, err := e.engine.Text(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page.Index, err)
	}

	leads := Extract(text)
	e.logger.Debug("local extraction complete",
		"page", page.Index,
		"chars", len(text),
		"leads", len(leads))
	return leads, nil
}
