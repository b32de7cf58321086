// Package datasource fetches cash-flow tables for the classifier. It defines
// the RowSource interface and implements it for IRBANK pages, in-memory
// tables and CSV exports.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seenimoa/cfpattern/internal/config"
	"github.com/seenimoa/cfpattern/pkg/models"
)

// RowSource yields the raw rows of a cash-flow table for a target, which is
// a page URL or a company code the source knows how to expand.
type RowSource interface {
	// Name returns the human-readable name of this source.
	Name() string

	// FetchRows returns the table's data rows, header row excluded.
	FetchRows(ctx context.Context, target string) (*models.Table, error)
}

// --- Sentinel errors ---

// ErrTableNotFound is returned when the page has no cash-flow table.
var ErrTableNotFound = errors.New("cash-flow table not found")

// ErrInvalidTarget is returned when a target is neither a URL nor a code.
var ErrInvalidTarget = errors.New("invalid target")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used when none is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// NewHTTPClient returns a client with the configured timeout.
func NewHTTPClient(cfg config.SourceConfig) *http.Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// doGet performs a GET request with the given URL and headers, returning the response body.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	// Set default headers.
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "text/html, */*")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")

	// Override/add custom headers.
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}
