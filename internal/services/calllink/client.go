package calllink

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zentra/linkpreview/internal/models"
	"github.com/zentra/linkpreview/pkg/auth"
)

const maxStateResponseSize = 64 * 1024

var (
	ErrNetwork          = errors.New("calling service unreachable")
	ErrCallLinkNotFound = errors.New("call link not found")
	ErrUnauthorized     = errors.New("call link credential rejected")
	ErrUnexpectedStatus = errors.New("unexpected calling service status")
	ErrInvalidResponse  = errors.New("invalid calling service response")
)

// Client mints call link credentials locally and reads call link state from the
// calling service.
type Client struct {
	baseURL       *url.URL
	http          *http.Client
	secret        string
	credentialTTL time.Duration
}

func NewClient(baseURL, secret string, credentialTTL, timeout time.Duration) (*Client, error) {
	return NewClientWithHTTP(baseURL, secret, credentialTTL, &http.Client{Timeout: timeout})
}

func NewClientWithHTTP(baseURL, secret string, credentialTTL time.Duration, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid calling service URL: %w", err)
	}
	return &Client{
		baseURL:       parsed,
		http:          httpClient,
		secret:        secret,
		credentialTTL: credentialTTL,
	}, nil
}

func (c *Client) IssueCredential(ctx context.Context, account models.AccountIdentity) (*models.CallLinkCredential, error) {
	token, expiresAt, err := auth.IssueCallLinkCredential(account.ID, c.secret, c.credentialTTL)
	if err != nil {
		return nil, err
	}
	return &models.CallLinkCredential{Token: token, ExpiresAt: expiresAt}, nil
}

// FetchState reads the current name and status of the room behind key.
func (c *Client) FetchState(ctx context.Context, key models.CallLinkRootKey, credential *models.CallLinkCredential) (*models.CallLinkState, error) {
	if credential == nil || credential.Token == "" {
		return nil, ErrUnauthorized
	}

	roomID := base64.RawURLEncoding.EncodeToString(key.RoomID)
	endpoint := c.baseURL.JoinPath("v1", "call-link", roomID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCallLinkNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStateResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if len(body) > maxStateResponseSize {
		return nil, fmt.Errorf("%w: response too large", ErrInvalidResponse)
	}

	state := &models.CallLinkState{}
	if err := json.Unmarshal(body, state); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return state, nil
}
