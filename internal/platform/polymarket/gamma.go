// Package polymarket provides the REST client for the Polymarket Gamma API,
// which serves market discovery and metadata for the oracle pipeline.
package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/quantfable/oracle/internal/domain"
)

const (
	// pageSize is the fixed Gamma pagination window.
	pageSize = 100

	defaultRetries   = 3
	defaultBaseDelay = 1 * time.Second
	defaultPageDelay = 200 * time.Millisecond
)

// FetchDiag is the non-fatal diagnostic attached to a best-effort fetch:
// why pagination stopped and how far it got.
type FetchDiag struct {
	Pages      int
	StopReason string // "complete", "end_of_data", "retries_exhausted", "cancelled"
}

// GammaClient is the REST client for the Polymarket Gamma API.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	baseDelay  time.Duration
	pageDelay  time.Duration
	logger     *slog.Logger
}

// Option customizes a GammaClient.
type Option func(*GammaClient)

// WithRetries sets the per-page retry budget.
func WithRetries(n int) Option {
	return func(g *GammaClient) {
		if n > 0 {
			g.retries = n
		}
	}
}

// WithBaseDelay sets the base backoff delay used when a 429 response carries
// no Retry-After header.
func WithBaseDelay(d time.Duration) Option {
	return func(g *GammaClient) {
		if d > 0 {
			g.baseDelay = d
		}
	}
}

// WithPageDelay sets the fixed pause between successful pages.
func WithPageDelay(d time.Duration) Option {
	return func(g *GammaClient) {
		if d >= 0 {
			g.pageDelay = d
		}
	}
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, logger *slog.Logger, opts ...Option) *GammaClient {
	g := &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retries:   defaultRetries,
		baseDelay: defaultBaseDelay,
		pageDelay: defaultPageDelay,
		logger:    logger.With(slog.String("component", "gamma")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetMarkets returns one page of active, open markets.
func (g *GammaClient) GetMarkets(ctx context.Context, limit, offset int) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	body, retryAfter, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		if retryAfter > 0 {
			return nil, &rateLimitError{retryAfter: retryAfter, err: err}
		}
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	return markets, nil
}

// FetchActiveMarkets paginates through active markets until maxRecords have
// accumulated or the API runs out of data. It is best-effort and never
// returns an error: rate limits are absorbed by honoring Retry-After (or
// exponential backoff), transient failures are retried per page, and when a
// page exhausts its retry budget pagination is abandoned and whatever was
// accumulated so far is returned with a diagnostic.
func (g *GammaClient) FetchActiveMarkets(ctx context.Context, maxRecords int) ([]APIMarket, FetchDiag) {
	var (
		accumulated []APIMarket
		diag        = FetchDiag{StopReason: "complete"}
		offset      = 0
	)

	for len(accumulated) < maxRecords {
		markets, ok := g.fetchPage(ctx, offset, &diag)
		if !ok {
			break
		}
		if len(markets) == 0 {
			diag.StopReason = "end_of_data"
			break
		}

		accumulated = append(accumulated, markets...)
		diag.Pages++
		offset += pageSize

		g.logger.DebugContext(ctx, "fetched market page",
			slog.Int("page_size", len(markets)),
			slog.Int("accumulated", len(accumulated)),
			slog.Int("offset", offset),
		)

		if len(accumulated) >= maxRecords {
			break
		}
		if !g.sleep(ctx, g.pageDelay) {
			diag.StopReason = "cancelled"
			break
		}
	}

	// Whole pages are appended, so the accumulator can overshoot.
	if len(accumulated) > maxRecords {
		accumulated = accumulated[:maxRecords]
	}

	g.logger.InfoContext(ctx, "market fetch finished",
		slog.Int("records", len(accumulated)),
		slog.Int("pages", diag.Pages),
		slog.String("stop_reason", diag.StopReason),
	)
	return accumulated, diag
}

// fetchPage attempts one page up to the retry budget. A 429 honors the
// server's Retry-After when present, otherwise exponential backoff from the
// base delay. It reports false when pagination should stop.
func (g *GammaClient) fetchPage(ctx context.Context, offset int, diag *FetchDiag) ([]APIMarket, bool) {
	for attempt := 0; attempt < g.retries; attempt++ {
		markets, err := g.GetMarkets(ctx, pageSize, offset)
		if err == nil {
			return markets, true
		}

		if ctx.Err() != nil {
			diag.StopReason = "cancelled"
			return nil, false
		}

		// 429 with Retry-After uses the server's delay; everything else
		// backs off exponentially from the base delay.
		delay := g.baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		var rl *rateLimitError
		if errors.As(err, &rl) && rl.retryAfter > 0 {
			delay = rl.retryAfter
		}

		g.logger.WarnContext(ctx, "market page fetch failed",
			slog.Int("offset", offset),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)

		if !g.sleep(ctx, delay) {
			diag.StopReason = "cancelled"
			return nil, false
		}
	}

	diag.StopReason = "retries_exhausted"
	return nil, false
}

// sleep pauses for d, returning false if the context is cancelled first.
func (g *GammaClient) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// rateLimitError carries the server-requested backoff from a 429 response.
type rateLimitError struct {
	retryAfter time.Duration
	err        error
}

func (e *rateLimitError) Error() string { return e.err.Error() }
func (e *rateLimitError) Unwrap() error { return e.err }

// doGet sends an unauthenticated GET request to the Gamma API. On a 429
// response the second return value holds the parsed Retry-After duration
// (zero when the header is absent).
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, retryAfter, fmt.Errorf("%w: %s", domain.ErrRateLimited, string(body))
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, 0, err
	}
	return body, 0, nil
}

// parseRetryAfter reads a Retry-After header value in seconds.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, string(body))
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, string(body))
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
}
