// Package render draws the studio's composite images: fixed grids,
// dynamic strips and the long-form album pages. All layouts share the
// same loader, text helpers and JPEG output settings.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bananafashion/studio/internal/fanout"
	"github.com/bananafashion/studio/internal/transform"
)

// Loader resolves image references to decoded images. A reference can
// be a data URI, an http(s) URL or a local file path. Resolved images
// are memoized for a short TTL so one composite does not fetch the
// same URL four times.
type Loader struct {
	httpClient *http.Client
	cache      *gocache.Cache
}

// NewLoader creates a Loader with a 5 minute memo cache.
func NewLoader() *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Load resolves a single image reference and decodes it.
func (l *Loader) Load(ctx context.Context, url string) (image.Image, error) {
	if cached, ok := l.cache.Get(url); ok {
		return cached.(image.Image), nil
	}

	data, err := l.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", displayURL(url), err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", displayURL(url), err)
	}

	l.cache.SetDefault(url, img)
	return img, nil
}

// LoadAll resolves all references in parallel, preserving input order.
// A single failure aborts the whole batch.
func (l *Loader) LoadAll(ctx context.Context, urls []string) ([]image.Image, error) {
	results := fanout.Collect(ctx, len(urls), 4, func(ctx context.Context, i int) (image.Image, error) {
		return l.Load(ctx, urls[i])
	})
	if err := fanout.FirstError(results); err != nil {
		return nil, err
	}
	return fanout.Successes(results), nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	switch {
	case transform.IsDataURI(url):
		_, data, err := transform.DecodeDataURI(url)
		return data, err
	case strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	default:
		return os.ReadFile(url)
	}
}

// displayURL keeps error messages readable when the reference is a
// multi-megabyte data URI.
func displayURL(url string) string {
	if transform.IsDataURI(url) {
		if len(url) > 48 {
			return url[:48] + "..."
		}
	}
	return url
}
