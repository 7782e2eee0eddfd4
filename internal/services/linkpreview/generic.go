package linkpreview

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/zentra/linkpreview/internal/models"
)

// fetchGenericPreview fetches the page, then its image. Page failures are fatal, image
// failures only cost the thumbnail.
func (s *Service) fetchGenericPreview(ctx context.Context, u *url.URL) (*models.LinkPreviewDraft, error) {
	finalURL, body, err := s.deps.Fetcher.FetchText(ctx, u.String())
	if err != nil {
		return nil, err
	}

	meta := ExtractMetadata(body, finalURL)
	draft := &models.LinkPreviewDraft{
		Title:       meta.Title,
		Description: meta.Description,
		Date:        meta.Date,
	}

	if meta.ImageURL != nil {
		draft.SetThumbnail(s.fetchRemoteThumbnail(ctx, meta.ImageURL))
	}
	return draft, nil
}

// fetchRemoteThumbnail sniffs the format from the bytes; the response content type is
// not trusted.
func (s *Service) fetchRemoteThumbnail(ctx context.Context, imageURL *url.URL) *models.Thumbnail {
	data, err := s.deps.Fetcher.FetchBytes(ctx, imageURL.String())
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("imageUrl", imageURL.Redacted()).Msg("Link preview image fetch failed")
		return nil
	}
	return s.deriveThumbnail(ctx, data, "")
}
