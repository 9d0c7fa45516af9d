package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dxblostfound/lostfound/pkg/matching"
	"github.com/dxblostfound/lostfound/pkg/whttp"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 30 * time.Second
	UserAgent      = "lostfound/0.1.0"
)

// Config describes how to reach the backend.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RetryMax is the number of automatic retries for transport errors and
	// 5xx responses. Zero keeps retries manual.
	RetryMax int
	Proxy    string
}

// Client talks to the two backend endpoints the pipeline consumes.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient, err := whttp.NewClient(whttp.ClientOptions{
		Timeout:  timeout,
		RetryMax: cfg.RetryMax,
		Proxy:    cfg.Proxy,
	})
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: base, http: httpClient}, nil
}

// BaseURL is the address relative image references resolve against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit posts a report and returns the created item with its candidates.
func (c *Client) Submit(ctx context.Context, r Report) (*SubmitResponse, error) {
	op := fmt.Sprintf("submit %s item", r.Kind)
	body, contentType, err := r.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	headers := []whttp.WHTTPHeader{{Name: "Content-Type", Value: contentType}}
	if r.IdempotencyKey != "" {
		headers = append(headers, whttp.WHTTPHeader{Name: "Idempotency-Key", Value: r.IdempotencyKey})
	}
	res, err := c.do(ctx, op, http.MethodPost, r.Path(), body, headers)
	if err != nil {
		return nil, err
	}

	out, err := decodeSubmitResponse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return out, nil
}

// FetchHistory returns every reported item with its current candidates.
func (c *Client) FetchHistory(ctx context.Context) (*matching.HistoryPayload, error) {
	const op = "fetch history"
	res, err := c.do(ctx, op, http.MethodGet, "/api/history", nil, nil)
	if err != nil {
		return nil, err
	}
	out, err := decodeHistory(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, headers []whttp.WHTTPHeader) (*whttp.WHTTPRes, error) {
	headers = append([]whttp.WHTTPHeader{
		{Name: "User-Agent", Value: UserAgent},
		{Name: "Accept", Value: "application/json"},
	}, headers...)

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  method,
		URL:     c.baseURL + path,
		Headers: headers,
		Body:    body,
	}, c.http)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	if !res.OK() {
		summary := errorDetail(res.Body)
		if summary == "" {
			summary = whttp.Summary(res)
		}
		if summary == "" {
			summary = http.StatusText(res.StatusCode)
		}
		return nil, &HTTPError{Op: op, StatusCode: res.StatusCode, Summary: summary}
	}
	return res, nil
}
