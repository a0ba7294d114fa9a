// internal/exporter/loader.go
package exporter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	DefaultUserAgent = "favgrab/1.0"
	DefaultMaxBytes  = 4 << 20
	DefaultTimeout   = 30 * time.Second
)

// Loaded is the outcome of an image load: a decoded bitmap or the reason
// there is none.
type Loaded struct {
	Image  image.Image
	Format string
	Err    error
}

// Loader fetches and decodes remote images.
type Loader struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewLoader returns a Loader. A nil client gets one with DefaultTimeout.
func NewLoader(client *http.Client, userAgent string, maxBytes int64) *Loader {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Loader{client: client, userAgent: userAgent, maxBytes: maxBytes}
}

// Load fetches imageURL and decodes the body.
func (l *Loader) Load(ctx context.Context, imageURL string) (image.Image, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "image/png,image/webp,image/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("image request returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, "", fmt.Errorf("image exceeds size limit of %d bytes", l.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image body")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// LoadAsync runs Load on its own goroutine. The channel receives exactly one
// value and is then closed.
func (l *Loader) LoadAsync(ctx context.Context, imageURL string) <-chan Loaded {
	out := make(chan Loaded, 1)
	go func() {
		defer close(out)
		img, format, err := l.Load(ctx, imageURL)
		out <- Loaded{Image: img, Format: format, Err: err}
	}()
	return out
}
