package settings

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/zentra/linkpreview/internal/middleware"
	"github.com/zentra/linkpreview/pkg/database"
)

const linkPreviewsFlag = "link_previews_enabled"

// Service stores feature switches in redis. Per-account values override the
// deployment default.
type Service struct {
	redis          *redis.Client
	defaultEnabled bool
}

func NewService(client *redis.Client, defaultEnabled bool) *Service {
	return &Service{redis: client, defaultEnabled: defaultEnabled}
}

func (s *Service) LinkPreviewsEnabled(ctx context.Context) (bool, error) {
	enabled, found, err := database.GetFlag(ctx, s.redis, flagName(ctx))
	if err != nil {
		return false, err
	}
	if !found {
		return s.defaultEnabled, nil
	}
	return enabled, nil
}

func (s *Service) SetLinkPreviewsEnabled(ctx context.Context, enabled bool) error {
	return database.SetFlag(ctx, s.redis, flagName(ctx), enabled)
}

func flagName(ctx context.Context) string {
	if userID, ok := middleware.GetUserID(ctx); ok {
		return linkPreviewsFlag + ":" + userID.String()
	}
	return linkPreviewsFlag
}
