package fetcher

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/rs/zerolog/log"
)

const (
	DefaultUserAgent              = "UniversalAudioEditor/1.0"
	DefaultTimeout                = 30 * time.Second
	DefaultMaxContentLength int64 = 500 << 20
)

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	UserAgent        string
	Timeout          time.Duration
	MaxContentLength int64
	StrictGuard      bool
	Transport        http.RoundTripper
}

// Client performs single-attempt outbound downloads.
type Client struct {
	httpClient       *http.Client
	userAgent        string
	timeout          time.Duration
	maxContentLength int64
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = DefaultMaxContentLength
	}
	if opts.Transport == nil {
		opts.Transport = NewTransport(opts.StrictGuard)
	}

	return &Client{
		httpClient:       &http.Client{Transport: opts.Transport},
		userAgent:        opts.UserAgent,
		timeout:          opts.Timeout,
		maxContentLength: opts.MaxContentLength,
	}
}

// NewTransport builds the outbound transport. Compression is disabled so the
// relayed bytes and Content-Length are exactly what upstream sent. In strict
// mode every dialed address is checked and environment proxies are ignored.
func NewTransport(strict bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}

	if strict {
		dialer.Control = strictControl
		transport.Proxy = nil
	}

	return transport
}

// MaxContentLength returns the configured payload cap in bytes.
func (c *Client) MaxContentLength() int64 {
	return c.maxContentLength
}

// Validate checks a raw URL string against the validation pipeline.
func (c *Client) Validate(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, ErrURLRequired
	}
	return ParseTarget(raw)
}

// Fetch downloads target and buffers the whole body. The configured timeout
// bounds the entire exchange, body read included.
func (c *Client) Fetch(ctx context.Context, target *url.URL) (*model.FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, unknownError(err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp.StatusCode, statusText(resp))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = model.DefaultContentType
	}

	contentLength := declaredLength(resp)
	if contentLength > c.maxContentLength {
		log.Debug().
			Str("host", target.Host).
			Int64("contentLength", contentLength).
			Msg("Upstream declared length over limit")
		return nil, tooLargeError(c.maxContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxContentLength+1))
	if err != nil {
		return nil, classify(ctx, err)
	}
	if int64(len(data)) > c.maxContentLength {
		return nil, tooLargeError(c.maxContentLength)
	}

	return &model.FetchResult{
		Data:          data,
		ContentType:   contentType,
		ContentLength: contentLength,
	}, nil
}

func classify(ctx context.Context, err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err)
	}

	return unknownError(err)
}

// declaredLength returns the upstream Content-Length or -1.
func declaredLength(resp *http.Response) int64 {
	if raw := strings.TrimSpace(resp.Header.Get("Content-Length")); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return resp.ContentLength
}

// statusText extracts the reason phrase from the status line.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}
