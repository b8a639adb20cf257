// Package pxweb provides a client for the Statistics Sweden (SCB) PxWeb v2
// table API, flattening JSON-stat 2.0 responses into columnar tables with
// normalized column names.
package pxweb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public SCB PxWeb v2 beta endpoint.
const DefaultBaseURL = "https://api.scb.se/OV0104/v2beta/api/v2"

// desoCodePattern matches DeSO area codes: 4-digit municipality prefix, a
// category letter A-C, and a 4-digit serial (e.g. "0114A0010").
var desoCodePattern = regexp.MustCompile(`^\d{4}[A-C]\d{4}$`)

// IsDeSOCode reports whether code is a DeSO-level region code.
func IsDeSOCode(code string) bool {
	return desoCodePattern.MatchString(code)
}

// Selection describes which slice of a table to fetch. ValueCodes maps
// dimension codes to requested value codes, "*" meaning all values.
type Selection struct {
	ValueCodes map[string][]string
	// RegionType optionally restricts the region dimension after fetch.
	// Only "deso" is supported; other values keep all regions.
	RegionType string
}

// Client defines the PxWeb operations used by the indicator fetchers.
type Client interface {
	// Data fetches a table slice and returns it flattened to a Table.
	Data(ctx context.Context, tableID string, sel Selection) (*Table, error)
}

// Option configures the PxWeb client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLanguage sets the API language, "sv" (default) or "en".
func WithLanguage(lang string) Option {
	return func(c *httpClient) { c.lang = lang }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit overrides the request rate limit. SCB allows 30 calls per
// rolling 10 seconds for anonymous clients; the default stays under that.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *httpClient) { c.limiter = l }
}

type httpClient struct {
	baseURL string
	lang    string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a PxWeb v2 client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		lang:    "sv",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*httpClient)(nil)

func (c *httpClient) Data(ctx context.Context, tableID string, sel Selection) (*Table, error) {
	if tableID == "" {
		return nil, eris.New("pxweb: table id is required")
	}

	q := url.Values{}
	q.Set("lang", c.lang)
	q.Set("outputFormat", "json-stat2")
	for dim, codes := range sel.ValueCodes {
		q.Set(fmt.Sprintf("valueCodes[%s]", dim), strings.Join(codes, ","))
	}

	reqURL := fmt.Sprintf("%s/tables/%s/data?%s", c.baseURL, url.PathEscape(tableID), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pxweb: create request")
	}
	req.Header.Set("Accept", "application/json")

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "pxweb: fetch table %s", tableID)
	}
	if statusCode == http.StatusNotFound {
		return nil, eris.Errorf("pxweb: table %s not found", tableID)
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("pxweb: table %s: unexpected status %d: %s", tableID, statusCode, truncate(body, 256))
	}

	table, err := ParseDataset(body)
	if err != nil {
		return nil, eris.Wrapf(err, "pxweb: parse table %s", tableID)
	}

	if sel.RegionType == "deso" {
		table.Rows = filterDeSO(table.Rows)
	}
	return table, nil
}

// filterDeSO keeps only rows whose region code is a DeSO code. PxWeb region
// queries with "*" return every administrative level; the analysis only
// wants the finest one.
func filterDeSO(rows []Row) []Row {
	out := rows[:0]
	for _, r := range rows {
		if IsDeSOCode(r.String(RegionCodeColumn)) {
			out = append(out, r)
		}
	}
	return out
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes a request with exponential backoff on transient failures
// (429, 500, 502, 503), waiting on the rate limiter before each attempt.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}

		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "pxweb: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("pxweb: status %d: %s", resp.StatusCode, truncate(body, 256))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
