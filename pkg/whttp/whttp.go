package whttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
)

const maxSummaryLength = 300

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    []byte
}

type WHTTPRes struct {
	StatusCode  int
	ContentType string
	Body        []byte
	HTTPTitle   string
}

// OK reports a 2xx status.
func (r *WHTTPRes) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *WHTTPRes) BodyString() string {
	return string(r.Body)
}

// ClientOptions configures the shared retrying client.
type ClientOptions struct {
	Timeout  time.Duration
	RetryMax int
	Proxy    string
}

// NewClient builds a retryablehttp client. Responses are always handed back
// to the caller, whatever their status, once retries are exhausted.
func NewClient(opts ClientOptions) (*retryablehttp.Client, error) {
	client := retryablehttp.NewClient()
	client.Logger = log.New(io.Discard, "", 0)
	client.RetryMax = opts.RetryMax
	if client.RetryMax < 0 {
		client.RetryMax = 0
	}
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		if transport, ok := client.HTTPClient.Transport.(*http.Transport); ok {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return client, nil
}

func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (*WHTTPRes, error) {
	if client == nil {
		var err error
		if client, err = NewClient(ClientOptions{}); err != nil {
			return nil, err
		}
	}

	var body interface{}
	if wReq.Body != nil {
		body = wReq.Body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, wReq.Method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept-Language", "en")
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	wRes := &WHTTPRes{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        bodyBytes,
	}
	if isHTML(wRes) {
		if title, ok := getHTMLTitle(bodyBytes); ok {
			wRes.HTTPTitle = title
		}
	}
	return wRes, nil
}

// Summary is a short human-readable description of a response body: the page
// title for HTML error pages, otherwise the trimmed body text.
func Summary(res *WHTTPRes) string {
	if res == nil {
		return ""
	}
	if res.HTTPTitle != "" {
		return res.HTTPTitle
	}
	text := strings.TrimSpace(res.BodyString())
	if isHTML(res) {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body)); err == nil {
			text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
		}
	}
	text = strings.ToValidUTF8(text, "")
	if utf8.RuneCountInString(text) > maxSummaryLength {
		text = string([]rune(text)[:maxSummaryLength]) + "..."
	}
	return text
}

func isHTML(res *WHTTPRes) bool {
	if strings.Contains(strings.ToLower(res.ContentType), "text/html") {
		return true
	}
	trimmed := bytes.TrimSpace(res.Body)
	return bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<!doctype html")) || bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<html"))
}

func getHTMLTitle(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	title := doc.Find("title").First().Text()
	title = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	return title, title != ""
}
