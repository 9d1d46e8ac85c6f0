// Package airtable pulls this server's registry record from Airtable and
// renders deployment files from it.
package airtable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://api.airtable.com/v0"
	ServersTable   = "MCP Servers"
	maxPages       = 100
)

var ErrTokenRequired = errors.New("AIRTABLE_TOKEN is required")

// Record is one Airtable row. Fields holds the raw "fields" object.
type Record struct {
	ID     string
	Fields gjson.Result
}

// Field returns a field as text. Arrays (multi-select, linked records) are
// joined with ", ".
func (r Record) Field(name string) string {
	v := r.Fields.Get(name)
	if !v.IsArray() {
		return v.String()
	}
	var out string
	for i, item := range v.Array() {
		if i > 0 {
			out += ", "
		}
		out += item.String()
	}
	return out
}

type Client struct {
	baseURL    string
	token      string
	baseID     string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(token, baseID string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		baseID:     baseID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListRecords fetches every record of table, following the offset cursor.
func (c *Client) ListRecords(ctx context.Context, table string) ([]Record, error) {
	var records []Record
	offset := ""
	for page := 0; page < maxPages; page++ {
		body, err := c.get(ctx, table, offset)
		if err != nil {
			return nil, err
		}
		parsed := gjson.ParseBytes(body)
		parsed.Get("records").ForEach(func(_, rec gjson.Result) bool {
			records = append(records, Record{
				ID:     rec.Get("id").String(),
				Fields: rec.Get("fields"),
			})
			return true
		})
		offset = parsed.Get("offset").String()
		if offset == "" {
			return records, nil
		}
	}
	return nil, fmt.Errorf("airtable: more than %d pages in %q", maxPages, table)
}

func (c *Client) get(ctx context.Context, table, offset string) ([]byte, error) {
	u := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.baseID), url.PathEscape(table))
	if offset != "" {
		u += "?offset=" + url.QueryEscape(offset)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("airtable: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("airtable: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("airtable: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "error").String()
		}
		return nil, fmt.Errorf("airtable: %s: %s", resp.Status, msg)
	}
	return body, nil
}
