package linkpreview

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	mimeTypeJPEG = "image/jpeg"
	mimeTypePNG  = "image/png"
	mimeTypeWebP = "image/webp"
	mimeTypeBMP  = "image/bmp"

	// Anything bigger is refused before a decoder allocates pixel buffers for it.
	maxProbePixels = 100_000_000
)

var (
	errEmptyImage       = errors.New("empty image data")
	errUnsupportedImage = errors.New("unsupported image format")
	errImageDimensions  = errors.New("invalid image dimensions")
)

type imageMetadata struct {
	mimeType string
	width    int
	height   int
	webp     *webpInfo
}

// probeImage sniffs the container and reads its pixel size. mimeHint is only consulted
// when sniffing cannot tell what the bytes are.
func probeImage(data []byte, mimeHint string) (imageMetadata, error) {
	if len(data) == 0 {
		return imageMetadata{}, errEmptyImage
	}

	mimeType := baseMimeType(mimetype.Detect(data).String())
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = normalizeMimeHint(mimeHint)
		if mimeType == "" {
			return imageMetadata{}, errUnsupportedImage
		}
	}

	meta := imageMetadata{mimeType: mimeType}
	if mimeType == mimeTypeWebP {
		info, err := probeWebP(data)
		if err != nil {
			return imageMetadata{}, err
		}
		meta.width, meta.height, meta.webp = info.width, info.height, &info
	} else {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return imageMetadata{}, errors.Join(errUnsupportedImage, err)
		}
		meta.width, meta.height = cfg.Width, cfg.Height
	}

	if meta.width <= 0 || meta.height <= 0 || meta.width*meta.height > maxProbePixels {
		return imageMetadata{}, errImageDimensions
	}
	return meta, nil
}

func baseMimeType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// normalizeMimeHint accepts either a full mime type or a bare format name such as "webp".
func normalizeMimeHint(hint string) string {
	hint = baseMimeType(hint)
	if hint == "" {
		return ""
	}
	if !strings.Contains(hint, "/") {
		hint = "image/" + hint
	}
	if !strings.HasPrefix(hint, "image/") {
		return ""
	}
	return hint
}

// sourceHasAlpha decides from the file header where the format records it, and from
// the decoded pixels otherwise.
func sourceHasAlpha(data []byte, mimeType string, img image.Image) bool {
	switch mimeType {
	case mimeTypePNG:
		return pngHasAlpha(data)
	case mimeTypeBMP:
		return bmpHasAlpha(data)
	}
	return hasAlphaChannel(img)
}

// hasAlphaChannel reports whether the decoded pixel format carries alpha. Decoders use
// premultiplied RGBA buffers for opaque truecolor sources too, so those only count when
// some pixel is transparent.
func hasAlphaChannel(img image.Image) bool {
	switch src := img.(type) {
	case *image.YCbCr, *image.Gray, *image.Gray16, *image.CMYK:
		return false
	case *image.RGBA:
		return !src.Opaque()
	case *image.RGBA64:
		return !src.Opaque()
	case *image.NYCbCrA, *image.NRGBA, *image.NRGBA64, *image.Alpha, *image.Alpha16:
		return true
	case *image.Paletted:
		for _, c := range src.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	}

	switch img.ColorModel() {
	case color.YCbCrModel, color.GrayModel, color.Gray16Model, color.CMYKModel:
		return false
	}
	return true
}

// pngHasAlpha reads the PNG header instead of the decoded image, since the decoder
// returns RGBA buffers for opaque truecolor files too.
func pngHasAlpha(data []byte) bool {
	const (
		signatureLen    = 8
		colorTypeOffset = signatureLen + 8 + 9
		colorGrayAlpha  = 4
		colorTruecolorA = 6
	)
	if len(data) <= colorTypeOffset {
		return false
	}
	switch data[colorTypeOffset] {
	case colorGrayAlpha, colorTruecolorA:
		return true
	}

	b := data[signatureLen:]
	for len(b) >= 8 {
		length := uint64(binary.BigEndian.Uint32(b[0:4]))
		kind := string(b[4:8])
		switch kind {
		case "tRNS":
			return true
		case "IDAT", "IEND":
			return false
		}
		next := 12 + length
		if next > uint64(len(b)) {
			return false
		}
		b = b[next:]
	}
	return false
}

// bmpHasAlpha mirrors the decoder: only 32-bit files with a V4 or V5 info header keep
// their alpha bytes, smaller headers mean the fourth byte is padding.
func bmpHasAlpha(data []byte) bool {
	const (
		infoLenOffset = 14
		bppOffset     = 28
		infoHeaderLen = 40
	)
	if len(data) < bppOffset+2 || string(data[0:2]) != "BM" {
		return false
	}
	infoLen := binary.LittleEndian.Uint32(data[infoLenOffset : infoLenOffset+4])
	bpp := binary.LittleEndian.Uint16(data[bppOffset : bppOffset+2])
	return bpp == 32 && infoLen > infoHeaderLen
}
