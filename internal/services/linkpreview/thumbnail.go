package linkpreview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	"github.com/zentra/linkpreview/internal/models"
)

const (
	// MaxThumbnailDimension bounds width and height independently.
	MaxThumbnailDimension = 2400

	thumbnailJPEGQuality = 80

	branchContainer   = "container"
	branchPassthrough = "passthrough"
	branchReencode    = "reencode"
	branchProbe       = "probe"
)

var errResizeFailed = errors.New("resize produced an empty image")

// ThumbnailDeriver turns untrusted image bytes into a still thumbnail no larger than
// MaxDimension on either edge.
type ThumbnailDeriver struct {
	MaxDimension int
}

func NewThumbnailDeriver() *ThumbnailDeriver {
	return &ThumbnailDeriver{MaxDimension: MaxThumbnailDimension}
}

// Derive never fails loudly. Any problem, including a decoder panic, yields nil.
func (d *ThumbnailDeriver) Derive(ctx context.Context, data []byte, mimeHint string) (thumb *models.Thumbnail) {
	logger := zerolog.Ctx(ctx)
	branch := branchProbe

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("branch", branch).Msg("Thumbnail derivation panicked")
			thumb = nil
		}
		outcome := "ok"
		if thumb == nil {
			outcome = "failed"
		}
		thumbnailsTotal.WithLabelValues(branch, outcome).Inc()
	}()

	meta, err := probeImage(data, mimeHint)
	if err != nil {
		logger.Debug().Err(err).Msg("Thumbnail source is not a usable image")
		return nil
	}

	needsResize := meta.width > d.maxDimension() || meta.height > d.maxDimension()

	switch {
	case meta.webp != nil:
		branch = branchContainer
		thumb, err = d.deriveFromContainer(data, meta)
	case !needsResize && (meta.mimeType == mimeTypeJPEG || meta.mimeType == mimeTypePNG):
		branch = branchPassthrough
		thumb = &models.Thumbnail{Data: data, MimeType: meta.mimeType}
	default:
		branch = branchReencode
		thumb, err = d.reencode(data, meta, needsResize)
	}
	if err != nil {
		logger.Debug().Err(err).Str("branch", branch).Str("mimeType", meta.mimeType).Msg("Thumbnail derivation failed")
		return nil
	}
	return thumb
}

// deriveFromContainer never falls back to the generic decoder.
func (d *ThumbnailDeriver) deriveFromContainer(data []byte, meta imageMetadata) (*models.Thumbnail, error) {
	img, err := decodeWebPStill(data, *meta.webp)
	if err != nil {
		return nil, fmt.Errorf("extract still frame: %w", err)
	}

	img, err = d.fit(img)
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}

func (d *ThumbnailDeriver) reencode(data []byte, meta imageMetadata, needsResize bool) (*models.Thumbnail, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	alpha := sourceHasAlpha(data, meta.mimeType, img)

	if needsResize {
		if img, err = d.fit(img); err != nil {
			return nil, err
		}
	}

	if alpha {
		return encodePNG(img)
	}
	return encodeJPEG(img)
}

// fit downsizes img so neither edge exceeds the limit, keeping the aspect ratio.
func (d *ThumbnailDeriver) fit(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	width, height := fitDimensions(bounds.Dx(), bounds.Dy(), d.maxDimension())
	if width == bounds.Dx() && height == bounds.Dy() {
		return img, nil
	}
	if width == 0 || height == 0 {
		return nil, errResizeFailed
	}

	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	if resized == nil || resized.Bounds().Empty() {
		return nil, errResizeFailed
	}
	return resized, nil
}

func (d *ThumbnailDeriver) maxDimension() int {
	if d.MaxDimension <= 0 {
		return MaxThumbnailDimension
	}
	return d.MaxDimension
}

// fitDimensions scales width and height down by the same factor. An edge that rounds to
// zero is reported as zero.
func fitDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}
	if width >= height {
		return maxDimension, int(int64(height) * int64(maxDimension) / int64(width))
	}
	return int(int64(width) * int64(maxDimension) / int64(height)), maxDimension
}

func encodePNG(img image.Image) (*models.Thumbnail, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return &models.Thumbnail{Data: buf.Bytes(), MimeType: mimeTypePNG}, nil
}

func encodeJPEG(img image.Image) (*models.Thumbnail, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbnailJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &models.Thumbnail{Data: buf.Bytes(), MimeType: mimeTypeJPEG}, nil
}
