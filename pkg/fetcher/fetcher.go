package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/arnavshah/compliance-api-go/pkg/models"
	"github.com/arnavshah/compliance-api-go/pkg/normalizer"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrUpstreamStatus is returned when the report endpoint answers with a non-200 status
var ErrUpstreamStatus = errors.New("unexpected upstream status")

const maxBodyBytes = 16 << 20

// ReportCache stores raw report bodies between requests
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// Query selects the posts of one zone and, optionally, one business unit
type Query struct {
	Zone string
	Unit string
}

// RangeResult holds one report per requested date. Dates whose request
// failed map to an empty report and are listed in Failed.
type RangeResult struct {
	Reports map[string]normalizer.RawReport
	Failed  []string
}

// Records normalizes every report of the range
func (r RangeResult) Records() []models.ShiftRecord {
	return normalizer.NormalizeDays(r.Reports)
}

// Client pulls per-date post reports from the upstream reporting endpoint
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	cache    ReportCache
	cacheTTL time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithToken sends a bearer token upstream
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds every upstream request
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCache enables report caching
func WithCache(cache ReportCache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// NewClient creates a report client for baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(date string, q Query) string {
	return fmt.Sprintf("report:%s:%s:%s", q.Zone, q.Unit, date)
}

// FetchDay retrieves the report of a single date
func (c *Client) FetchDay(ctx context.Context, date string, q Query) (normalizer.RawReport, error) {
	key := cacheKey(date, q)
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, key); ok {
			var report normalizer.RawReport
			if err := json.Unmarshal(body, &report); err == nil {
				return report, nil
			}
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse report url: %w", err)
	}
	params := u.Query()
	params.Set("fecha", date)
	if q.Zone != "" {
		params.Set("zona", q.Zone)
	}
	if q.Unit != "" {
		params.Set("unidad_negocio_id", q.Unit)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch report %s: %w", date, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch report %s: %w: %d", date, ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", date, err)
	}

	var report normalizer.RawReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", date, err)
	}
	if report == nil {
		report = normalizer.RawReport{}
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, body, c.cacheTTL)
	}
	return report, nil
}

// FetchRange issues one concurrent request per date of the range. A failed
// date is logged and left empty; only cancellation of ctx fails the call.
func (c *Client) FetchRange(ctx context.Context, rng models.DateRange, q Query) (RangeResult, error) {
	days := rng.Days()
	res := RangeResult{Reports: make(map[string]normalizer.RawReport, len(days))}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, day := range days {
		day := day
		g.Go(func() error {
			report, err := c.FetchDay(gctx, day, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn().
					Err(err).
					Str("date", day).
					Str("zone", q.Zone).
					Str("unit", q.Unit).
					Msg("report fetch failed, using empty report")
				res.Reports[day] = normalizer.RawReport{}
				res.Failed = append(res.Failed, day)
				return nil
			}
			res.Reports[day] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return RangeResult{}, err
	}
	sort.Strings(res.Failed)
	return res, nil
}
