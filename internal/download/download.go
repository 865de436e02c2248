// Package download fetches raw book payloads from mirror URLs.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/dgallion1/bookfetch/internal/book"
)

const userAgent = "bookfetch/1.0"

// Config controls timeouts, payload limits, and backoff.
type Config struct {
	Timeout     time.Duration
	MaxBytes    int64
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

// Downloader performs GETs and classifies failures as *book.DownloadError.
type Downloader struct {
	httpClient *http.Client
	cfg        Config
	log        *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Downloader {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		log:        log,
	}
}

// Download fetches url, retrying transient failures with capped exponential
// backoff. Every returned error other than a context error is a
// *book.DownloadError.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := retry.Do(
		func() error {
			var err error
			data, err = d.get(ctx, url)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(d.cfg.MaxAttempts)),
		retry.Delay(d.cfg.Backoff),
		retry.MaxDelay(d.cfg.MaxBackoff),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(d.cfg.Backoff/2),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			d.log.Warn("retryable download error", "url", url, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var derr *book.DownloadError
		if !errors.As(err, &derr) {
			err = &book.DownloadError{URL: url, Err: err}
		}
		return nil, err
	}
	return data, nil
}

// IsRetryable reports whether err is a transient download failure.
func IsRetryable(err error) bool {
	var derr *book.DownloadError
	return errors.As(err, &derr) && derr.Retryable()
}

// Close releases idle connections.
func (d *Downloader) Close() {
	d.httpClient.CloseIdleConnections()
}

func (d *Downloader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &book.DownloadError{URL: url, Err: fmt.Errorf("create request: %w", err), Terminal: true}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &book.DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, &book.DownloadError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	body := io.Reader(resp.Body)
	if d.cfg.MaxBytes > 0 {
		if resp.ContentLength > d.cfg.MaxBytes {
			return nil, tooLarge(url, resp.ContentLength, d.cfg.MaxBytes)
		}
		body = io.LimitReader(resp.Body, d.cfg.MaxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &book.DownloadError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if d.cfg.MaxBytes > 0 && int64(len(data)) > d.cfg.MaxBytes {
		return nil, tooLarge(url, int64(len(data)), d.cfg.MaxBytes)
	}
	return data, nil
}

func tooLarge(url string, size, limit int64) error {
	return &book.DownloadError{
		URL:      url,
		Err:      fmt.Errorf("payload of %d bytes exceeds limit of %d", size, limit),
		Terminal: true,
	}
}
