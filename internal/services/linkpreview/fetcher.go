package linkpreview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

const (
	// MaxResponseSize caps every preview download, enforced while reading.
	MaxResponseSize = 2 * 1024 * 1024

	// Some sites only serve Open Graph tags to user agents they recognize as link unfurlers.
	DefaultUserAgent = "WhatsApp/2"

	maxRedirects = 10
)

// SessionConfig is the immutable configuration every preview fetch is built from.
type SessionConfig struct {
	UserAgent       string
	MaxResponseSize int64
	Timeout         time.Duration
	Transport       http.RoundTripper
	Policy          URLPolicy
}

// Fetcher performs single bounded GET requests for link previews.
type Fetcher struct {
	cfg SessionConfig
}

func NewFetcher(cfg SessionConfig) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = MaxResponseSize
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.Policy == nil {
		cfg.Policy = NewDefaultPolicy()
	}
	return &Fetcher{cfg: cfg}
}

type fetchResponse struct {
	finalURL    *url.URL
	contentType string
	body        []byte
}

// FetchText fetches an HTML page and returns the URL that finally responded along with the
// decoded body. Relative URLs inside the page must be resolved against that URL.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (*url.URL, string, error) {
	defer observeFetch("text", time.Now())

	resp, err := f.get(ctx, rawURL, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}

	text, err := decodeText(resp.body, resp.contentType)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidPreview, err)
	}
	return resp.finalURL, text, nil
}

// FetchBytes fetches raw bytes, typically an image referenced by a page.
func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	defer observeFetch("bytes", time.Now())

	resp, err := f.get(ctx, rawURL, "image/*,*/*;q=0.8")
	if err != nil {
		if errors.Is(err, ErrResponseTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPreview, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}

	if len(resp.body) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPreview, ErrEmptyResponse)
	}
	if int64(len(resp.body)) >= f.cfg.MaxResponseSize {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPreview, ErrResponseTooLarge)
	}
	return resp.body, nil
}

// newClient builds a fresh client for one request. Nothing is cached between calls and
// every redirect hop has to pass the same policy as the original URL.
func (f *Fetcher) newClient(ctx context.Context) *http.Client {
	return &http.Client{
		Transport: f.cfg.Transport,
		Timeout:   f.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			if !f.cfg.Policy.IsPermitted(ctx, req.URL) {
				return ErrRedirectNotPermitted
			}
			return nil
		},
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL, accept string) (*fetchResponse, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if !f.cfg.Policy.IsPermitted(ctx, parsed) {
		return nil, ErrURLNotPermitted
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.newClient(ctx).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	if resp.ContentLength > f.cfg.MaxResponseSize {
		return nil, ErrResponseTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.cfg.MaxResponseSize {
		return nil, ErrResponseTooLarge
	}

	return &fetchResponse{
		finalURL:    resp.Request.URL,
		contentType: resp.Header.Get("Content-Type"),
		body:        body,
	}, nil
}

func decodeText(body []byte, contentType string) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", ErrEmptyResponse
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUndecodableText, err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUndecodableText, err)
	}
	if !utf8.Valid(decoded) {
		return "", ErrUndecodableText
	}

	text := string(decoded)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
