package groups

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/zentra/linkpreview/internal/models"
	"github.com/zentra/linkpreview/pkg/encryption"
)

const (
	maxPreviewResponseSize = 64 * 1024
	maxAvatarSize          = 2 * 1024 * 1024

	invitePasswordHeader = "X-Group-Invite-Password"
)

var (
	// ErrNetwork marks transport failures: the group service could not be reached.
	ErrNetwork          = errors.New("group service unreachable")
	ErrGroupNotFound    = errors.New("group not found")
	ErrInviteForbidden  = errors.New("invite link rejected")
	ErrUnexpectedStatus = errors.New("unexpected group service status")
	ErrInvalidResponse  = errors.New("invalid group service response")
	ErrAvatarTooLarge   = errors.New("group avatar exceeds size limit")
)

// Client talks to the group service over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid group service URL: %w", err)
	}
	return &Client{baseURL: parsed, http: httpClient}, nil
}

// FetchInvitePreview returns what an invitee may see of a group before joining.
func (c *Client) FetchInvitePreview(ctx context.Context, params models.GroupSecretParams, invitePassword []byte, bypassCache bool) (*models.GroupInvitePreview, error) {
	groupID := base64.RawURLEncoding.EncodeToString(params.GroupID)
	endpoint := c.baseURL.JoinPath("v1", "groups", groupID, "invite-preview")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(invitePasswordHeader, base64.RawURLEncoding.EncodeToString(invitePassword))
	if bypassCache {
		req.Header.Set("Cache-Control", "no-cache")
	}

	body, err := c.do(req, maxPreviewResponseSize, ErrInvalidResponse)
	if err != nil {
		return nil, err
	}

	preview := &models.GroupInvitePreview{}
	if err := json.Unmarshal(body, preview); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return preview, nil
}

// FetchAvatar downloads the encrypted avatar and decrypts it with the group's avatar key.
func (c *Client) FetchAvatar(ctx context.Context, avatarPath string, params models.GroupSecretParams) ([]byte, error) {
	ref, err := url.Parse(strings.TrimLeft(avatarPath, "/"))
	if err != nil || !relativeAvatarPath(ref) {
		return nil, fmt.Errorf("%w: bad avatar path %q", ErrInvalidResponse, avatarPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, err
	}

	ciphertext, err := c.do(req, maxAvatarSize, ErrAvatarTooLarge)
	if err != nil {
		return nil, err
	}

	avatar, err := encryption.Decrypt(ciphertext, params.AvatarKey)
	if err != nil {
		return nil, fmt.Errorf("%w: avatar: %w", ErrInvalidResponse, err)
	}
	return avatar, nil
}

// relativeAvatarPath keeps the resolved avatar URL under the service base path.
func relativeAvatarPath(ref *url.URL) bool {
	if ref.IsAbs() || ref.Host != "" || ref.Path == "" {
		return false
	}
	return !slices.Contains(strings.Split(ref.Path, "/"), "..")
}

// do returns tooLarge when the body exceeds limit bytes.
func (c *Client) do(req *http.Request, limit int64, tooLarge error) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrGroupNotFound
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrInviteForbidden
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if int64(len(body)) > limit {
		return nil, tooLarge
	}
	return body, nil
}
