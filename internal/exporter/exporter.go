// internal/exporter/exporter.go
package exporter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"favgrab/internal/favicon"
)

// Sink is where an exported file goes. Save returns where the file can be
// found afterwards: a path, a download URL, or a name.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Result describes a completed export.
type Result struct {
	Size     int           `json:"size"`
	FileName string        `json:"file_name"`
	Location string        `json:"location"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Bytes    int           `json:"bytes"`
	Format   string        `json:"source_format"`
	Duration time.Duration `json:"duration"`
}

// Outcome is what Go delivers.
type Outcome struct {
	Result Result
	Err    error
}

// Exporter re-encodes loaded favicons as PNG files.
type Exporter struct {
	loader  *Loader
	timeout time.Duration
}

// New returns an Exporter. A non-positive timeout selects DefaultTimeout.
func New(loader *Loader, timeout time.Duration) *Exporter {
	if loader == nil {
		loader = NewLoader(nil, "", 0)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exporter{loader: loader, timeout: timeout}
}

// Export loads imageURL, rasterizes it at its natural dimensions and hands the
// PNG to sink as favicon-{size}.png. Every failure wraps
// favicon.ErrExportFailure and leaves sink untouched.
func (e *Exporter) Export(ctx context.Context, size int, imageURL string, sink Sink) (Result, error) {
	start := time.Now()

	if !favicon.IsSupportedSize(size) {
		return Result{}, fmt.Errorf("%w: unsupported size %d", favicon.ErrExportFailure, size)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var loaded Loaded
	select {
	case loaded = <-e.loader.LoadAsync(ctx, imageURL):
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%w: image load: %v", favicon.ErrExportFailure, ctx.Err())
	}
	if loaded.Err != nil {
		return Result{}, fmt.Errorf("%w: %v", favicon.ErrExportFailure, loaded.Err)
	}

	data, bounds, err := EncodePNG(loaded.Image)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", favicon.ErrExportFailure, err)
	}

	name := favicon.FileName(size)
	location, err := sink.Save(ctx, name, data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: save %s: %v", favicon.ErrExportFailure, name, err)
	}

	res := Result{
		Size:     size,
		FileName: name,
		Location: location,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Bytes:    len(data),
		Format:   loaded.Format,
		Duration: time.Since(start),
	}

	logrus.WithFields(logrus.Fields{
		"size":     size,
		"file":     name,
		"width":    res.Width,
		"height":   res.Height,
		"format":   res.Format,
		"location": location,
	}).Debug("Exported favicon")

	return res, nil
}

// Go runs Export in the background. The channel receives exactly one Outcome
// and is then closed.
func (e *Exporter) Go(ctx context.Context, size int, imageURL string, sink Sink) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		res, err := e.Export(ctx, size, imageURL, sink)
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}

// EncodePNG draws img onto an RGBA surface of its natural size and encodes
// the surface as PNG.
func EncodePNG(img image.Image) ([]byte, image.Rectangle, error) {
	if img == nil {
		return nil, image.Rectangle{}, fmt.Errorf("no image")
	}

	src := img.Bounds()
	if src.Empty() {
		return nil, src, fmt.Errorf("image has no pixels")
	}

	surface := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	draw.Draw(surface, surface.Bounds(), img, src.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface); err != nil {
		return nil, src, fmt.Errorf("encode PNG: %w", err)
	}
	if buf.Len() == 0 {
		return nil, src, fmt.Errorf("empty PNG encoding")
	}

	return buf.Bytes(), surface.Bounds(), nil
}
