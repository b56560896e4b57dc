// Package ocr turns page images into text for the local extraction path.
package ocr

import (
	"context"
	"fmt"
	"sync"
)

// Engine recognizes text in an image file.
type Engine interface {
	Name() string
	Text(ctx context.Context, path string) (string, error)
}

// StaticEngine returns canned text per path. Useful for tests and dry runs.
type StaticEngine struct {
	mu      sync.Mutex
	Texts   map[string]string
	Default string
	Errs    map[string]error
	calls   int
}

func (e *StaticEngine) Name() string { return "static" }

func (e *StaticEngine) Text(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if err, ok := e.Errs[path]; ok {
		return "", fmt.Errorf("ocr %s: %w", path, err)
	}
	if text, ok := e.Texts[path]; ok {
		return text, nil
	}
	return e.Default, nil
}

// Calls returns how many times Text was invoked.
func (e *StaticEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

var _ Engine = (*StaticEngine)(nil)
