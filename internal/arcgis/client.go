// Package arcgis queries the Maryland parcel MapServer layer for owner records.
package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/cardinal-lookup/internal/parser"
)

// Options configures a Client. Zero values get sensible defaults.
type Options struct {
	URL          string
	Jurisdiction string
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	StrictLimit  int
	CacheTTL     time.Duration // 0 disables the response cache
	HTTPClient   *http.Client
	Logger       logrus.FieldLogger
}

// Client issues parcel queries, one at a time.
type Client struct {
	baseURL      string
	jurisdiction string
	retries      int
	retryDelay   time.Duration
	strictLimit  int
	http         *http.Client
	cache        *cache.Cache
	log          logrus.FieldLogger
}

// NewClient creates a query client.
func NewClient(opts Options) *Client {
	if opts.Jurisdiction == "" {
		opts.Jurisdiction = "PRIN"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.StrictLimit < 1 {
		opts.StrictLimit = 25
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	c := &Client{
		baseURL:      opts.URL,
		jurisdiction: opts.Jurisdiction,
		retries:      opts.Retries,
		retryDelay:   opts.RetryDelay,
		strictLimit:  opts.StrictLimit,
		http:         opts.HTTPClient,
		log:          opts.Logger,
	}
	if opts.CacheTTL > 0 {
		c.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return c
}

// EscapeLiteral doubles single quotes so the value can sit inside a quoted
// SQL string in a where clause.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Where builds the filter expression for a tuple: exact house number,
// case-insensitive substring on street name, scoped to the jurisdiction.
func (c *Client) Where(q parser.QueryTuple) string {
	return fmt.Sprintf("PREMSNUM = '%s' AND UPPER(PREMSNAM) LIKE UPPER('%%%s%%') AND JURSCODE = '%s'",
		EscapeLiteral(q.HouseNumber), EscapeLiteral(q.StreetName), EscapeLiteral(c.jurisdiction))
}

// Params returns the query string for a tuple. Non-strict lookups need only the
// first record; strict lookups fetch up to the strict limit so the selector can
// search for an owner-occupied candidate.
func (c *Client) Params(q parser.QueryTuple, strict bool) url.Values {
	limit := 1
	if strict {
		limit = c.strictLimit
	}
	return url.Values{
		"where":             {c.Where(q)},
		"outFields":         {OutFields},
		"f":                 {"json"},
		"resultRecordCount": {strconv.Itoa(limit)},
	}
}

// Query fetches the candidate records for one tuple. Any failure is returned
// as a *LookupError.
func (c *Client) Query(ctx context.Context, q parser.QueryTuple, strict bool) ([]Attributes, error) {
	params := c.Params(q, strict)
	key := params.Encode()

	if c.cache != nil {
		if hit, ok := c.cache.Get(key); ok {
			c.log.WithField("query", q.String()).Debug("lookup cache hit")
			return append([]Attributes(nil), hit.([]Attributes)...), nil
		}
	}

	records, err := c.fetchWithRetry(ctx, key)
	if err != nil {
		return nil, &LookupError{Tuple: q, Err: err}
	}

	if c.cache != nil {
		c.cache.Set(key, records, cache.DefaultExpiration)
	}
	return append([]Attributes(nil), records...), nil
}

// retryable marks failures worth a second attempt: transport errors and 5xx.
type retryable struct{ err error }

func (r retryable) Error() string { return r.err.Error() }
func (r retryable) Unwrap() error { return r.err }

func (c *Client) fetchWithRetry(ctx context.Context, rawQuery string) ([]Attributes, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.WithFields(logrus.Fields{"attempt": attempt + 1, "error": lastErr}).Debug("retrying lookup")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		records, err := c.fetch(ctx, rawQuery)
		if err == nil {
			return records, nil
		}
		lastErr = err

		var r retryable
		if !errors.As(err, &r) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) fetch(ctx context.Context, rawQuery string) ([]Attributes, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+rawQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, retryable{fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, retryable{fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Error != nil {
		return nil, &ServiceError{Code: body.Error.Code, Message: body.Error.Message}
	}

	records := make([]Attributes, 0, len(body.Features))
	for _, f := range body.Features {
		records = append(records, f.Attributes)
	}
	return records, nil
}
