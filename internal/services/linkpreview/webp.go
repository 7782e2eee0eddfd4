package linkpreview

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"io"

	"golang.org/x/image/draw"
	"golang.org/x/image/riff"
	"golang.org/x/image/webp"
)

var (
	errWebPInvalid   = errors.New("invalid webp container")
	errWebPNoFrame   = errors.New("webp has no decodable frame")
	errWebPFrameSize = errors.New("webp frame outside canvas")
)

const (
	webpFlagAnimation = 1 << 1
	webpFlagAlpha     = 1 << 4

	anmfHeaderSize = 16
)

type riffChunk struct {
	fourCC string
	data   []byte
}

type webpInfo struct {
	width    int
	height   int
	animated bool
	chunks   []riffChunk
}

// probeWebP reads the canvas size and animation flag without decoding any pixels.
func probeWebP(data []byte) (webpInfo, error) {
	chunks, err := readWebPChunks(data)
	if err != nil {
		return webpInfo{}, err
	}

	info := webpInfo{chunks: chunks}
	first := chunks[0]
	switch first.fourCC {
	case "VP8X":
		if len(first.data) < 10 {
			return webpInfo{}, errWebPInvalid
		}
		info.animated = first.data[0]&webpFlagAnimation != 0
		info.width = 1 + int(le24(first.data[4:7]))
		info.height = 1 + int(le24(first.data[7:10]))
	case "VP8L":
		w, h, err := vp8lSize(first.data)
		if err != nil {
			return webpInfo{}, err
		}
		info.width, info.height = w, h
	case "VP8 ":
		w, h, err := vp8Size(first.data)
		if err != nil {
			return webpInfo{}, err
		}
		info.width, info.height = w, h
	default:
		return webpInfo{}, errWebPInvalid
	}
	return info, nil
}

// decodeWebPStill returns a single still image. For animations this is the first frame,
// placed at its offset on a transparent canvas.
func decodeWebPStill(data []byte, info webpInfo) (image.Image, error) {
	if !info.animated {
		return webp.Decode(bytes.NewReader(data))
	}

	var frame []byte
	for _, chunk := range info.chunks {
		if chunk.fourCC == "ANMF" {
			frame = chunk.data
			break
		}
	}
	if len(frame) < anmfHeaderSize {
		return nil, errWebPNoFrame
	}

	offsetX := 2 * int(le24(frame[0:3]))
	offsetY := 2 * int(le24(frame[3:6]))
	frameWidth := 1 + int(le24(frame[6:9]))
	frameHeight := 1 + int(le24(frame[9:12]))
	if offsetX+frameWidth > info.width || offsetY+frameHeight > info.height {
		return nil, errWebPFrameSize
	}

	frameChunks, err := readFrameChunks(frame)
	if err != nil {
		return nil, err
	}
	still, err := buildStillWebP(frameChunks, frameWidth, frameHeight)
	if err != nil {
		return nil, err
	}

	img, err := webp.Decode(bytes.NewReader(still))
	if err != nil {
		return nil, err
	}

	if offsetX == 0 && offsetY == 0 && frameWidth == info.width && frameHeight == info.height {
		return img, nil
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, info.width, info.height))
	target := image.Rect(offsetX, offsetY, offsetX+frameWidth, offsetY+frameHeight)
	draw.Draw(canvas, target, img, img.Bounds().Min, draw.Src)
	return canvas, nil
}

// buildStillWebP wraps the bitstream chunks of one animation frame into a standalone file.
func buildStillWebP(chunks []riffChunk, width, height int) ([]byte, error) {
	var alph, bitstream *riffChunk
	for i := range chunks {
		switch chunks[i].fourCC {
		case "ALPH":
			if alph == nil {
				alph = &chunks[i]
			}
		case "VP8 ", "VP8L":
			if bitstream == nil {
				bitstream = &chunks[i]
			}
		}
	}
	if bitstream == nil {
		return nil, errWebPNoFrame
	}

	var body bytes.Buffer
	body.WriteString("WEBP")
	if alph != nil && bitstream.fourCC == "VP8 " {
		header := make([]byte, 10)
		header[0] = webpFlagAlpha
		putLE24(header[4:7], uint32(width-1))
		putLE24(header[7:10], uint32(height-1))
		writeChunk(&body, "VP8X", header)
		writeChunk(&body, alph.fourCC, alph.data)
	}
	writeChunk(&body, bitstream.fourCC, bitstream.data)

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

var fourCCWebP = riff.FourCC{'W', 'E', 'B', 'P'}

func readWebPChunks(data []byte) ([]riffChunk, error) {
	formType, r, err := riff.NewReader(bytes.NewReader(data))
	if err != nil || formType != fourCCWebP {
		return nil, errWebPInvalid
	}

	chunks, err := collectChunks(r)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, errWebPInvalid
	}
	return chunks, nil
}

// readFrameChunks walks the chunks that follow an ANMF header. The reader consumes four
// bytes as a list type, so it starts on the header's duration and flags field.
func readFrameChunks(frame []byte) ([]riffChunk, error) {
	const listTypeOffset = anmfHeaderSize - 4

	_, r, err := riff.NewListReader(uint32(len(frame)-listTypeOffset), bytes.NewReader(frame[listTypeOffset:]))
	if err != nil {
		return nil, errors.Join(errWebPInvalid, err)
	}
	return collectChunks(r)
}

func collectChunks(r *riff.Reader) ([]riffChunk, error) {
	var chunks []riffChunk
	for {
		id, _, chunkData, err := r.Next()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return nil, errors.Join(errWebPInvalid, err)
		}

		data, err := io.ReadAll(chunkData)
		if err != nil {
			return nil, errors.Join(errWebPInvalid, err)
		}
		chunks = append(chunks, riffChunk{fourCC: string(id[:]), data: data})
	}
}

func writeChunk(buf *bytes.Buffer, fourCC string, data []byte) {
	buf.WriteString(fourCC)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	if len(data)&1 == 1 {
		buf.WriteByte(0)
	}
}

func vp8lSize(data []byte) (int, int, error) {
	if len(data) < 5 || data[0] != 0x2f {
		return 0, 0, errWebPInvalid
	}
	bits := binary.LittleEndian.Uint32(data[1:5])
	width := 1 + int(bits&0x3fff)
	height := 1 + int((bits>>14)&0x3fff)
	return width, height, nil
}

func vp8Size(data []byte) (int, int, error) {
	if len(data) < 10 || data[3] != 0x9d || data[4] != 0x01 || data[5] != 0x2a {
		return 0, 0, errWebPInvalid
	}
	width := int(binary.LittleEndian.Uint16(data[6:8]) & 0x3fff)
	height := int(binary.LittleEndian.Uint16(data[8:10]) & 0x3fff)
	return width, height, nil
}

func le24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func putLE24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
