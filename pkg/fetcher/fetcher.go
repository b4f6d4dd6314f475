// Package fetcher retrieves article pages and images over HTTP.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dtnitsch/news-insight/pkg/caching"
)

const (
	KindPage  = "page"
	KindImage = "image"

	// DefaultMaxBytes caps any single response body.
	DefaultMaxBytes = 10 << 20
	userAgent       = "news-insight/1.0 (+https://github.com/dtnitsch/news-insight)"
)

// ErrTooLarge is returned when a body exceeds the size limit.
var ErrTooLarge = errors.New("response body too large")

// ErrNotImage is returned when an image URL serves something else.
var ErrNotImage = errors.New("response is not an image")

// Recorder logs fetch attempts.
type Recorder interface {
	RecordFetch(ctx context.Context, rawURL string, statusCode int, errorType string, success bool) error
}

type Fetcher struct {
	client   *http.Client
	cache    *caching.Cache
	recorder Recorder
	logger   *slog.Logger
	maxBytes int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithClient(c *http.Client) Option { return func(f *Fetcher) { f.client = c } }
func WithCache(c *caching.Cache) Option { return func(f *Fetcher) { f.cache = c } }
func WithRecorder(r Recorder) Option { return func(f *Fetcher) { f.recorder = r } }
func WithLogger(l *slog.Logger) Option { return func(f *Fetcher) { f.logger = l } }
func WithMaxBytes(n int64) Option { return func(f *Fetcher) { f.maxBytes = n } }

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{},
		logger:   slog.Default(),
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Image is a fetched image body.
type Image struct {
	Data     []byte
	MIMEType string
}

// GetHTMLBytes fetches a page body, served from cache when fresh.
func (f *Fetcher) GetHTMLBytes(ctx context.Context, url string) ([]byte, error) {
	return f.get(ctx, KindPage, url)
}

// GetImage fetches an image and checks that it really is one.
func (f *Fetcher) GetImage(ctx context.Context, url string) (*Image, error) {
	body, err := f.get(ctx, KindImage, url)
	if err != nil {
		return nil, err
	}
	mime := http.DetectContentType(body)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%s: %w (%s)", url, ErrNotImage, mime)
	}
	return &Image{Data: body, MIMEType: mime}, nil
}

func (f *Fetcher) get(ctx context.Context, kind, url string) ([]byte, error) {
	if f.cache != nil {
		if data, ok := f.cache.Get(kind, url); ok {
			f.logger.Debug("Cache hit", "kind", kind, "url", url)
			return data, nil
		}
	}

	body, status, err := f.download(ctx, url)
	f.record(ctx, url, status, err)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(kind, url, body); err != nil {
			f.logger.Warn("Failed to cache response", "url", url, "error", err)
		}
	}
	return body, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("failed to fetch %s, status code: %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, resp.StatusCode, fmt.Errorf("%s: %w", url, ErrTooLarge)
	}
	return body, resp.StatusCode, nil
}

func (f *Fetcher) record(ctx context.Context, url string, status int, fetchErr error) {
	if f.recorder == nil {
		return
	}
	errorType := ""
	switch {
	case fetchErr == nil:
	case errors.Is(fetchErr, ErrTooLarge):
		errorType = "too_large"
	case errors.Is(fetchErr, context.Canceled), errors.Is(fetchErr, context.DeadlineExceeded):
		errorType = "canceled"
	case status != 0:
		errorType = "http_status"
	default:
		errorType = "network"
	}
	// The log outlives a cancelled request.
	if err := f.recorder.RecordFetch(context.WithoutCancel(ctx), url, status, errorType, fetchErr == nil); err != nil {
		f.logger.Warn("Failed to record fetch", "url", url, "error", err)
	}
}
