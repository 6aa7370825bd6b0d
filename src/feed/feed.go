package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
)

// DefaultURL is the proxyscrape v3 listing in protocol://ip:port JSON form.
const DefaultURL = "https://api.proxyscrape.com/v3/free-proxy-list/get?request=displayproxies&proxy_format=protocolipport&format=json"

// Record is one raw upstream proxy object, decoded later so a single bad
// record cannot spoil the batch.
type Record = json.RawMessage

// Fetcher pulls one batch of raw proxy records from upstream.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// FetchError means the upstream could not be read: transport failure, a
// non-200 status or an undecodable body.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type document struct {
	Proxies []Record `json:"proxies"`
}

// Client fetches the feed over HTTP with a bounded timeout.
type Client struct {
	url     string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:     url,
		timeout: timeout,
		client: &fasthttp.Client{
			Name:                "free-proxy-bot",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: 64 << 20,
		},
	}
}

func (c *Client) Fetch(ctx context.Context) ([]Record, error) {
	l := logger.WithComponent("Feed")

	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &FetchError{URL: c.url, StatusCode: resp.StatusCode()}
	}

	var doc document
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, &FetchError{URL: c.url, Err: fmt.Errorf("decode body: %w", err)}
	}

	l.Info().Int("count", len(doc.Proxies)).Dur("took", time.Since(start)).Msg("Fetched proxies.")
	return doc.Proxies, nil
}
