// Package imageprep normalizes page images before extraction: a compressed
// JPEG for the remote model and an RGB re-save for local OCR.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	// Additional decoders for uploaded images.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxSide     = 1024
	DefaultJPEGQuality = 85
)

// Config configures a Preprocessor.
type Config struct {
	MaxSide     int // longest side for transmission (default: 1024)
	JPEGQuality int // 1-100 (default: 85)
	Logger      *slog.Logger
}

// Preprocessor prepares page images for the two extraction tiers.
type Preprocessor struct {
	maxSide int
	quality int
	logger  *slog.Logger
}

// New creates a Preprocessor.
func New(cfg Config) *Preprocessor {
	if cfg.MaxSide <= 0 {
		cfg.MaxSide = DefaultMaxSide
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Preprocessor{
		maxSide: cfg.MaxSide,
		quality: cfg.JPEGQuality,
		logger:  cfg.Logger.With("component", "imageprep"),
	}
}

// ForTransmission returns JPEG bytes of the image at path, flattened to RGB
// and downscaled so neither side exceeds the configured maximum.
func (p *Preprocessor) ForTransmission(path string) ([]byte, error) {
	src, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	img := flatten(src)
	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w > p.maxSide || h > p.maxSide {
		nw, nh := fitWithin(w, h, p.maxSide)
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ForLocal re-saves the image at path as RGB PNG next to the original,
// removes the original and returns the new path. On any failure it logs and
// returns path unchanged.
func (p *Preprocessor) ForLocal(path string) string {
	out, err := p.optimize(path)
	if err != nil {
		p.logger.Warn("local preprocessing failed, using original", "path", path, "error", err)
		return path
	}
	if out != path {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("failed to remove original image", "path", path, "error", err)
		}
	}
	return out
}

func (p *Preprocessor) optimize(path string) (string, error) {
	src, err := decodeFile(path)
	if err != nil {
		return "", err
	}

	out := OptimizedPath(path)
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("failed to create optimized image: %w", err)
	}
	if err := png.Encode(f, flatten(src)); err != nil {
		f.Close()
		os.Remove(out)
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("failed to write optimized image: %w", err)
	}
	return out, nil
}

// OptimizedPath returns where ForLocal writes its output for path.
func OptimizedPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_optimized.png"
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// flatten composites img over white into an opaque RGBA image.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// fitWithin scales w x h so the longer side equals max, preserving aspect.
func fitWithin(w, h, max int) (int, int) {
	if w >= h {
		nh := (h*max + w/2) / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := (w*max + h/2) / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}
