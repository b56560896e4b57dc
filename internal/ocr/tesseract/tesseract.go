// Package tesseract implements ocr.Engine with the gosseract cgo bindings.
// It needs the tesseract and leptonica libraries at build time.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/jackzampolin/leadscan/internal/ocr"
)

// Engine runs Tesseract through gosseract.
// Each call uses its own client, so it is safe for concurrent use.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed engine. Languages
// default to "eng".
func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{
		languages:     languages,
		clientFactory: gosseract.NewClient,
	}
}

func (e *Engine) Name() string { return "tesseract" }

// Text runs OCR on the image at path.
func (e *Engine) Text(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImage(path); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize %s: %w", path, err)
	}
	return text, nil
}

var _ ocr.Engine = (*Engine)(nil)
