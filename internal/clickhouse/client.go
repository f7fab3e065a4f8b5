// Package clickhouse provides a minimal HTTP client for reading
// snapshot-consistent table data out of a ClickHouse database.
//
// Queries go over the ClickHouse HTTP interface with default_format=JSON,
// which wraps results in an envelope holding a "data" array of row objects.
// Rows come back as loosely-typed maps: ClickHouse renders UInt64/Int64
// columns as strings and smaller integers as JSON numbers, so numeric
// fields are decoded with json.Number to avoid float precision loss.
package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Row is one result row: column name to loosely-typed scalar.
// Values are string, json.Number, bool, nil, or nested []any / map[string]any.
type Row = map[string]any

// Client issues queries against a ClickHouse HTTP endpoint.
type Client struct {
	baseURL  string
	database string
	httpc    *http.Client
}

// New creates a client for the given HTTP endpoint and database.
// A zero timeout falls back to 60 seconds.
func New(baseURL, database string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		database: database,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// envelope is the ClickHouse JSON response format.
type envelope struct {
	Data []Row `json:"data"`
}

// Query runs a SQL query and returns the decoded data rows.
// Any transport error or non-2xx response is returned as an error; the
// migrator treats those as fatal.
func (c *Client) Query(ctx context.Context, sql string) ([]Row, error) {
	params := url.Values{}
	params.Set("database", c.database)
	params.Set("default_format", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"?"+params.Encode(), strings.NewReader(sql))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clickhouse query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// ClickHouse returns the error text in the body.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("clickhouse query: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode clickhouse response: %w", err)
	}
	return env.Data, nil
}

// FetchAll returns the latest-version snapshot of a table.
// FINAL collapses the ReplacingMergeTree history so each key appears once,
// with its most recent version.
func (c *Client) FetchAll(ctx context.Context, table string) ([]Row, error) {
	sql := fmt.Sprintf("SELECT * FROM %s.%s FINAL", c.database, table)
	rows, err := c.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	return rows, nil
}

// Ping runs a trivial query to verify the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.Query(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("clickhouse ping: %w", err)
	}
	return nil
}
