/*
Package fetch retrieves the delivery statistics page with a browser-like header set,
a fixed retry budget and checks that catch blocked or truncated pages served with a 2xx status.
*/
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/shanehull/dlvscan/internal/types"
)

var (
	ErrBlocked         = errors.New("page looks blocked")
	ErrContentTooShort = errors.New("page content too short")
	ErrContentTooLarge = errors.New("page content too large")
)

// DefaultHeaders mimics a desktop browser; the source rejects bare clients.
var DefaultHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// DefaultMinContentLength is the smallest body a real delivery page produces.
const DefaultMinContentLength = 5000

var DefaultBlockMarkers = []string{
	"access denied",
	"captcha",
	"verify you are human",
	"challenge-platform",
}

// AcquisitionError is returned once every attempt has failed.
type AcquisitionError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

type Config struct {
	Headers          map[string]string
	Timeout          time.Duration // per attempt
	MaxAttempts      int
	RetryDelay       time.Duration
	MinContentLength int // zero disables the length check
	BlockMarkers     []string
	MaxBytes         int64
}

func (c *Config) defaults() {
	if c.Headers == nil {
		c.Headers = DefaultHeaders
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.MinContentLength < 0 {
		c.MinContentLength = 0
	}
	if c.BlockMarkers == nil {
		c.BlockMarkers = DefaultBlockMarkers
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
}

type Fetcher struct {
	client    *http.Client
	config    Config
	markers   [][]byte
	onAttempt func(attempt int, err error)
}

type Option func(*Fetcher)

// WithHTTPClient replaces the default client. Timeouts are still applied per attempt.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithAttemptHook registers fn to be called after every attempt; err is nil on success.
func WithAttemptHook(fn func(attempt int, err error)) Option {
	return func(f *Fetcher) {
		f.onAttempt = fn
	}
}

func New(cfg Config, opts ...Option) *Fetcher {
	cfg.defaults()

	markers := make([][]byte, 0, len(cfg.BlockMarkers))
	for _, m := range cfg.BlockMarkers {
		if m == "" {
			continue
		}
		markers = append(markers, bytes.ToLower([]byte(m)))
	}

	f := &Fetcher{
		client:  &http.Client{},
		config:  cfg,
		markers: markers,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs url, retrying transport failures, non-2xx responses and pages that fail
// content validation. The document is only returned when an attempt fully succeeds.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*types.RawDocument, error) {
	logger := zerolog.Ctx(ctx).With().Str("url", url).Logger()

	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= f.config.MaxAttempts; attempt++ {
		attempts = attempt

		doc, err := f.attempt(ctx, url)
		if f.onAttempt != nil {
			f.onAttempt(attempt, err)
		}
		if err == nil {
			doc.Attempts = attempt
			logger.Info().
				Int("attempt", attempt).
				Int("status", doc.StatusCode).
				Int("bytes", doc.Length).
				Msg("Fetched source page")
			return doc, nil
		}

		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", f.config.MaxAttempts).Msg("Fetch attempt failed")

		if attempt == f.config.MaxAttempts {
			break
		}
		if err := sleep(ctx, f.config.RetryDelay); err != nil {
			lastErr = fmt.Errorf("retry wait interrupted: %w", err)
			break
		}
	}

	return nil, &AcquisitionError{URL: url, Attempts: attempts, Err: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, url string) (*types.RawDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range f.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("received non-2xx status code %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrContentTooLarge, f.config.MaxBytes)
	}

	if err := f.validate(body); err != nil {
		return nil, err
	}

	return &types.RawDocument{
		URL:        url,
		Body:       body,
		StatusCode: resp.StatusCode,
		Length:     len(body),
		FetchedAt:  time.Now(),
	}, nil
}

// validate rejects payloads that arrived with a 2xx status but are not the real page.
func (f *Fetcher) validate(body []byte) error {
	if len(body) < f.config.MinContentLength {
		return fmt.Errorf("%w: %d bytes, want at least %d", ErrContentTooShort, len(body), f.config.MinContentLength)
	}
	lower := bytes.ToLower(body)
	for _, m := range f.markers {
		if bytes.Contains(lower, m) {
			return fmt.Errorf("%w: found marker %q", ErrBlocked, m)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
