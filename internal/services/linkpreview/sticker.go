package linkpreview

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/zentra/linkpreview/internal/models"
)

const stickerMimeHint = "webp"

// fetchStickerPreview downloads the pack (or reuses the local copy) and thumbnails its
// cover. Every failure here is an invalid preview.
func (s *Service) fetchStickerPreview(ctx context.Context, u *url.URL) (*models.LinkPreviewDraft, error) {
	ref, err := parseStickerShareURL(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPreview, err)
	}

	pack, err := s.deps.Stickers.DownloadPack(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: download sticker pack: %w", ErrInvalidPreview, err)
	}

	coverPath, err := s.deps.Stickers.CoverPath(ctx, pack)
	if err != nil {
		return nil, fmt.Errorf("%w: locate sticker cover: %w", ErrInvalidPreview, err)
	}

	data, err := readBoundedFile(coverPath, MaxResponseSize)
	if err != nil {
		return nil, fmt.Errorf("%w: read sticker cover: %w", ErrInvalidPreview, err)
	}

	draft := &models.LinkPreviewDraft{}
	if pack.Title != nil {
		draft.Title = normalizeText(*pack.Title, titleMaxLines)
	}
	draft.SetThumbnail(s.deriveThumbnail(ctx, data, stickerMimeHint))
	return draft, nil
}

func readBoundedFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}
