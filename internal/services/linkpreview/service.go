package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/zentra/linkpreview/internal/models"
)

var errUnsupportedLink = errors.New("no handler configured for link kind")

// SettingsStore exposes the user-controlled feature switch.
type SettingsStore interface {
	LinkPreviewsEnabled(ctx context.Context) (bool, error)
}

// ResourceFetcher is satisfied by *Fetcher.
type ResourceFetcher interface {
	FetchText(ctx context.Context, rawURL string) (*url.URL, string, error)
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// StickerService materializes sticker packs on local storage.
type StickerService interface {
	DownloadPack(ctx context.Context, ref models.StickerPackRef) (*models.StickerPack, error)
	CoverPath(ctx context.Context, pack *models.StickerPack) (string, error)
}

type GroupService interface {
	FetchInvitePreview(ctx context.Context, params models.GroupSecretParams, invitePassword []byte, bypassCache bool) (*models.GroupInvitePreview, error)
	FetchAvatar(ctx context.Context, avatarPath string, params models.GroupSecretParams) ([]byte, error)
}

type CallLinkService interface {
	IssueCredential(ctx context.Context, account models.AccountIdentity) (*models.CallLinkCredential, error)
	FetchState(ctx context.Context, key models.CallLinkRootKey, credential *models.CallLinkCredential) (*models.CallLinkState, error)
}

// IdentityProvider resolves the account the request is made for.
type IdentityProvider interface {
	CurrentAccount(ctx context.Context) (*models.AccountIdentity, error)
}

type Dependencies struct {
	Settings   SettingsStore
	Fetcher    ResourceFetcher
	Thumbnails *ThumbnailDeriver
	Stickers   StickerService
	Groups     GroupService
	CallLinks  CallLinkService
	Accounts   IdentityProvider
	Strings    Localizer
}

type pipeline func(ctx context.Context, u *url.URL) (*models.LinkPreviewDraft, error)

type Service struct {
	deps      Dependencies
	pipelines map[LinkKind]pipeline
}

// NewService registers a pipeline for every kind whose collaborators are present.
// Generic pages only need the fetcher.
func NewService(deps Dependencies) *Service {
	if deps.Thumbnails == nil {
		deps.Thumbnails = NewThumbnailDeriver()
	}
	if deps.Strings == nil {
		deps.Strings = NewStrings("en")
	}

	s := &Service{deps: deps, pipelines: make(map[LinkKind]pipeline)}
	if deps.Fetcher != nil {
		s.pipelines[KindGeneric] = s.fetchGenericPreview
	}
	if deps.Stickers != nil {
		s.pipelines[KindStickerPack] = s.fetchStickerPreview
	}
	if deps.Groups != nil {
		s.pipelines[KindGroupInvite] = s.fetchGroupInvitePreview
	}
	if deps.CallLinks != nil && deps.Accounts != nil {
		s.pipelines[KindCallLink] = s.fetchCallLinkPreview
	}
	return s
}

// FetchLinkPreview builds a draft for rawURL. Failures are ErrFeatureDisabled,
// ErrFetchFailure, ErrInvalidPreview, ErrNoPreview or an error passed through from a
// collaborator.
func (s *Service) FetchLinkPreview(ctx context.Context, rawURL string) (draft *models.LinkPreviewDraft, err error) {
	kind := KindGeneric
	defer func() {
		requestsTotal.WithLabelValues(kind.String(), outcomeLabel(err)).Inc()
	}()

	enabled, err := s.deps.Settings.LinkPreviewsEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("read link preview setting: %w", err)
	}
	if !enabled {
		return nil, ErrFeatureDisabled
	}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: not an absolute url", ErrInvalidPreview)
	}

	kind = Classify(u)
	logger := zerolog.Ctx(ctx).With().Str("linkKind", kind.String()).Str("host", u.Hostname()).Logger()
	ctx = logger.WithContext(ctx)

	run, ok := s.pipelines[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPreview, errUnsupportedLink)
	}

	draft, err = run(ctx, u)
	if err != nil {
		logger.Debug().Err(err).Msg("Link preview pipeline failed")
		return nil, err
	}
	// A cancelled call may have degraded to a partial draft.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	draft.URL = rawURL
	if !draft.IsValid() {
		return nil, ErrNoPreview
	}
	return draft, nil
}

// FetchFirstLinkPreview previews the first URL found in message text.
func (s *Service) FetchFirstLinkPreview(ctx context.Context, content string) (*models.LinkPreviewDraft, error) {
	rawURL := ExtractFirstURL(content)
	if rawURL == "" {
		return nil, ErrNoPreview
	}
	return s.FetchLinkPreview(ctx, rawURL)
}

// deriveThumbnail is the best-effort image step. It never fails the draft.
func (s *Service) deriveThumbnail(ctx context.Context, data []byte, mimeHint string) *models.Thumbnail {
	if len(data) == 0 {
		return nil
	}
	return s.deps.Thumbnails.Derive(ctx, data, mimeHint)
}
