package stickers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"github.com/zentra/linkpreview/internal/models"
	"github.com/zentra/linkpreview/pkg/encryption"
	"github.com/zentra/linkpreview/pkg/storage"
)

const (
	manifestObject = "manifest.json"

	maxManifestSize = 256 * 1024
	maxStickerSize  = 2 * 1024 * 1024
)

var (
	ErrPackNotFound   = errors.New("sticker pack not found")
	ErrInvalidPack    = errors.New("invalid sticker pack")
	ErrNoCover        = errors.New("sticker pack has no cover")
	ErrCoverNotCached = errors.New("sticker cover not downloaded")

	errCachedTooLarge = errors.New("cached sticker object exceeds size limit")
)

// ObjectReader reads objects from the sticker bucket.
type ObjectReader interface {
	ReadObject(ctx context.Context, objectName string, limit int64) ([]byte, error)
}

type minioReader struct {
	client *minio.Client
	bucket string
}

func (m minioReader) ReadObject(ctx context.Context, objectName string, limit int64) ([]byte, error) {
	return storage.ReadObject(ctx, m.client, m.bucket, objectName, limit)
}

// Service keeps decrypted sticker packs under cacheDir/<packId>/. Files already on disk
// are reused, so a pack is downloaded at most once.
type Service struct {
	objects  ObjectReader
	cacheDir string
}

func NewService(client *minio.Client, bucket, cacheDir string) *Service {
	return NewServiceWithReader(minioReader{client: client, bucket: bucket}, cacheDir)
}

func NewServiceWithReader(objects ObjectReader, cacheDir string) *Service {
	return &Service{objects: objects, cacheDir: cacheDir}
}

// DownloadPack makes the manifest and cover sticker of a pack available locally.
func (s *Service) DownloadPack(ctx context.Context, ref models.StickerPackRef) (*models.StickerPack, error) {
	packID := hex.EncodeToString(ref.PackID)
	logger := zerolog.Ctx(ctx).With().Str("packId", packID).Logger()

	manifest, err := s.cachedOrDownload(ctx, ref, manifestObject, maxManifestSize)
	if err != nil {
		return nil, err
	}

	pack := &models.StickerPack{}
	if err := json.Unmarshal(manifest, pack); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPack, err)
	}
	pack.Ref = ref

	cover, err := coverOf(pack)
	if err != nil {
		return nil, err
	}
	pack.Cover = &cover

	if _, err := s.cachedOrDownload(ctx, ref, stickerObject(cover.ID), maxStickerSize); err != nil {
		return nil, err
	}

	logger.Debug().Uint32("coverId", cover.ID).Int("stickers", len(pack.Items)).Msg("Sticker pack available")
	return pack, nil
}

// CoverPath returns the local file holding the pack's cover. The pack must have been
// downloaded first.
func (s *Service) CoverPath(ctx context.Context, pack *models.StickerPack) (string, error) {
	if pack == nil || pack.Cover == nil {
		return "", ErrNoCover
	}
	path := s.localPath(pack.Ref, stickerObject(pack.Cover.ID))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCoverNotCached, err)
	}
	return path, nil
}

func (s *Service) cachedOrDownload(ctx context.Context, ref models.StickerPackRef, objectName string, limit int64) ([]byte, error) {
	path := s.localPath(ref, objectName)
	if data, err := readCached(path, limit); err == nil {
		return data, nil
	}

	ciphertext, err := s.objects.ReadObject(ctx, hex.EncodeToString(ref.PackID)+"/"+objectName, limit)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrPackNotFound, err)
		}
		return nil, err
	}

	plaintext, err := encryption.Decrypt(ciphertext, ref.PackKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPack, objectName, err)
	}

	if err := writeFileAtomic(path, plaintext); err != nil {
		return nil, fmt.Errorf("cache %s: %w", objectName, err)
	}
	return plaintext, nil
}

// readCached fails for files over limit, which sends the caller back to storage.
func readCached(path string, limit int64) ([]byte, error) {
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
		return nil, errCachedTooLarge
	}
	return data, nil
}

func (s *Service) localPath(ref models.StickerPackRef, objectName string) string {
	return filepath.Join(s.cacheDir, hex.EncodeToString(ref.PackID), objectName)
}

func stickerObject(id uint32) string {
	return fmt.Sprintf("%d.webp", id)
}

// coverOf falls back to the first sticker when the manifest names no cover.
func coverOf(pack *models.StickerPack) (models.StickerInfo, error) {
	if pack.Cover != nil {
		return *pack.Cover, nil
	}
	if len(pack.Items) > 0 {
		return pack.Items[0], nil
	}
	return models.StickerInfo{}, ErrNoCover
}

// writeFileAtomic keeps concurrent downloads of the same pack from exposing partial files.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
