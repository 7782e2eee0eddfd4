package calllink

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zentra/linkpreview/internal/models"
	"github.com/zentra/linkpreview/pkg/auth"
)

const testSecret = "call-link-test-secret"

func testKey() models.CallLinkRootKey {
	return models.CallLinkRootKey{
		Bytes:  bytes.Repeat([]byte{0x11}, 16),
		RoomID: bytes.Repeat([]byte{0x22}, 32),
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, testSecret, time.Minute, 5*time.Second)
	require.NoError(t, err)
	return client
}

func TestIssueCredential(t *testing.T) {
	client, err := NewClient("http://calling.invalid", testSecret, time.Minute, time.Second)
	require.NoError(t, err)

	account := models.AccountIdentity{ID: uuid.New(), Username: "alice"}
	credential, err := client.IssueCredential(context.Background(), account)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), credential.ExpiresAt, 5*time.Second)

	accountID, err := auth.ValidateCallLinkCredential(credential.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, account.ID, accountID)
}

func TestFetchState(t *testing.T) {
	key := testKey()
	account := models.AccountIdentity{ID: uuid.New()}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/call-link/"+base64.RawURLEncoding.EncodeToString(key.RoomID), r.URL.Path)

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		accountID, err := auth.ValidateCallLinkCredential(token, testSecret)
		if err != nil || accountID != account.ID {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"name":"Weekly sync","revoked":false}`))
	}))

	credential, err := client.IssueCredential(context.Background(), account)
	require.NoError(t, err)

	state, err := client.FetchState(context.Background(), key, credential)
	require.NoError(t, err)
	assert.Equal(t, "Weekly sync", state.Name)

	_, err = client.FetchState(context.Background(), key, &models.CallLinkCredential{Token: "forged"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = client.FetchState(context.Background(), key, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFetchStateErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			wantErr: ErrCallLinkNotFound,
		},
		{
			name:    "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			wantErr: ErrUnauthorized,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			wantErr: ErrUnexpectedStatus,
		},
		{
			name:    "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("nope")) },
			wantErr: ErrInvalidResponse,
		},
		{
			name: "oversized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write(bytes.Repeat([]byte(" "), maxStateResponseSize+1))
			},
			wantErr: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.FetchState(context.Background(), testKey(), &models.CallLinkCredential{Token: "t"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFetchStateUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := NewClient(server.URL, testSecret, time.Minute, time.Second)
	require.NoError(t, err)

	_, err = client.FetchState(context.Background(), testKey(), &models.CallLinkCredential{Token: "t"})
	assert.ErrorIs(t, err, ErrNetwork)
}
