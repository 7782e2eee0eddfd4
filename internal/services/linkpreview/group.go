package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/zentra/linkpreview/internal/models"
	"github.com/zentra/linkpreview/internal/services/groups"
)

// fetchGroupInvitePreview asks the group service for a fresh invite preview. The avatar
// is optional: no failure while fetching it reaches the caller.
func (s *Service) fetchGroupInvitePreview(ctx context.Context, u *url.URL) (*models.LinkPreviewDraft, error) {
	link, err := parseGroupInviteURL(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPreview, err)
	}

	params, err := deriveGroupSecretParams(link.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("%w: derive group params: %w", ErrInvalidPreview, err)
	}

	preview, err := s.deps.Groups.FetchInvitePreview(ctx, params, link.InvitePassword, true)
	if err != nil {
		return nil, err
	}

	draft := &models.LinkPreviewDraft{Title: normalizeText(preview.Title, titleMaxLines)}
	if preview.Description != preview.Title {
		draft.Description = normalizeText(preview.Description, descriptionMaxLines)
	}

	if preview.AvatarPath != "" {
		draft.SetThumbnail(s.fetchGroupAvatar(ctx, preview.AvatarPath, params))
	}
	return draft, nil
}

func (s *Service) fetchGroupAvatar(ctx context.Context, avatarPath string, params models.GroupSecretParams) *models.Thumbnail {
	logger := zerolog.Ctx(ctx)

	data, err := s.deps.Groups.FetchAvatar(ctx, avatarPath, params)
	if err != nil {
		if isNetworkFailure(err) {
			logger.Warn().Err(err).Msg("Group avatar fetch failed")
		} else {
			logger.Error().Err(err).Msg("Unexpected error fetching group avatar")
		}
		return nil
	}
	return s.deriveThumbnail(ctx, data, "")
}

func isNetworkFailure(err error) bool {
	if errors.Is(err, groups.ErrNetwork) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
