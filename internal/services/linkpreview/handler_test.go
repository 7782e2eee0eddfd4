package linkpreview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	body string
	err  error
}

func (f stubFetcher) FetchText(_ context.Context, rawURL string) (*url.URL, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	u, err := url.Parse(rawURL)
	return u, f.body, err
}

func (f stubFetcher) FetchBytes(context.Context, string) ([]byte, error) {
	return nil, errors.New("no images")
}

type memorySettings struct {
	enabled bool
	err     error
}

func (m *memorySettings) LinkPreviewsEnabled(context.Context) (bool, error) {
	return m.enabled, m.err
}

func (m *memorySettings) SetLinkPreviewsEnabled(_ context.Context, enabled bool) error {
	if m.err != nil {
		return m.err
	}
	m.enabled = enabled
	return nil
}

type envelope struct {
	Data struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Enabled bool   `json:"enabled"`
	} `json:"data"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

func serve(t *testing.T, h *Handler, method, target, body string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func newTestHandler(settings *memorySettings, fetcher ResourceFetcher) *Handler {
	svc := NewService(Dependencies{Settings: settings, Fetcher: fetcher})
	return NewHandler(svc, settings)
}

func TestGetPreview(t *testing.T) {
	h := newTestHandler(&memorySettings{enabled: true}, stubFetcher{body: "<title>Hello</title>"})

	status, resp := serve(t, h, http.MethodGet, "/?url="+url.QueryEscape("https://example.com/a"), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://example.com/a", resp.Data.URL)
	assert.Equal(t, "Hello", resp.Data.Title)
}

func TestGetPreviewValidation(t *testing.T) {
	h := newTestHandler(&memorySettings{enabled: true}, stubFetcher{})

	for _, target := range []string{"/", "/?url=not-a-url", "/?url=" + url.QueryEscape("ftp://example.com/")} {
		status, resp := serve(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, status, target)
		assert.Equal(t, "VALIDATION_ERROR", resp.Code, target)
	}
}

func TestGetPreviewErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		fetchErr   error
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "disabled", enabled: false, wantStatus: http.StatusForbidden, wantCode: "FEATURE_DISABLED"},
		{name: "no preview", enabled: true, body: "<p>nothing</p>", wantStatus: http.StatusNotFound, wantCode: "NO_PREVIEW"},
		{name: "invalid", enabled: true, fetchErr: fmt.Errorf("%w: %w", ErrInvalidPreview, ErrEmptyResponse), wantStatus: http.StatusUnprocessableEntity, wantCode: "INVALID_PREVIEW"},
		{name: "fetch failure", enabled: true, fetchErr: fmt.Errorf("%w: %w", ErrFetchFailure, ErrHTTPStatus), wantStatus: http.StatusBadGateway, wantCode: "FETCH_FAILED"},
		{name: "timeout", enabled: true, fetchErr: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout, wantCode: "TIMEOUT"},
		{name: "fetch timeout", enabled: true, fetchErr: fmt.Errorf("%w: %w", ErrFetchFailure, &url.Error{Op: "Get", URL: "https://example.com/", Err: context.DeadlineExceeded}), wantStatus: http.StatusGatewayTimeout, wantCode: "TIMEOUT"},
		{name: "unexpected", enabled: true, fetchErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&memorySettings{enabled: tt.enabled}, stubFetcher{body: tt.body, err: tt.fetchErr})

			status, resp := serve(t, h, http.MethodGet, "/?url="+url.QueryEscape("https://example.com/"), "")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestExtractPreview(t *testing.T) {
	h := newTestHandler(&memorySettings{enabled: true}, stubFetcher{body: "<title>From message</title>"})

	status, resp := serve(t, h, http.MethodPost, "/extract", `{"content":"have you seen https://example.com/post?"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://example.com/post", resp.Data.URL)
	assert.Equal(t, "From message", resp.Data.Title)

	status, resp = serve(t, h, http.MethodPost, "/extract", `{"content":"no links"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NO_PREVIEW", resp.Code)

	status, _ = serve(t, h, http.MethodPost, "/extract", `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = serve(t, h, http.MethodPost, "/extract", `{"text":"unknown field"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSettingsRoutes(t *testing.T) {
	settings := &memorySettings{enabled: true}
	h := newTestHandler(settings, stubFetcher{})

	status, resp := serve(t, h, http.MethodGet, "/settings", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Data.Enabled)

	status, resp = serve(t, h, http.MethodPut, "/settings", `{"enabled":false}`)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, resp.Data.Enabled)
	assert.False(t, settings.enabled)

	status, resp = serve(t, h, http.MethodPut, "/settings", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)

	status, resp = serve(t, h, http.MethodGet, "/?url="+url.QueryEscape("https://example.com/"), "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FEATURE_DISABLED", resp.Code)
}

func TestSettingsStoreFailure(t *testing.T) {
	h := newTestHandler(&memorySettings{err: errors.New("redis down")}, stubFetcher{})

	status, _ := serve(t, h, http.MethodGet, "/settings", "")
	assert.Equal(t, http.StatusInternalServerError, status)

	status, _ = serve(t, h, http.MethodPut, "/settings", `{"enabled":true}`)
	assert.Equal(t, http.StatusInternalServerError, status)
}
