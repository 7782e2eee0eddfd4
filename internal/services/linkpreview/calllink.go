package linkpreview

import (
	"context"
	"fmt"
	"net/url"

	"github.com/zentra/linkpreview/internal/models"
)

// fetchCallLinkPreview runs identity -> credential -> state. Each step needs the previous
// one's result. The description is a fixed string, never network content.
func (s *Service) fetchCallLinkPreview(ctx context.Context, u *url.URL) (*models.LinkPreviewDraft, error) {
	key, err := parseCallLinkURL(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPreview, err)
	}
	if key.RoomID, err = deriveCallLinkRoomID(key.Bytes); err != nil {
		return nil, fmt.Errorf("%w: derive room id: %w", ErrInvalidPreview, err)
	}

	account, err := s.deps.Accounts.CurrentAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}

	credential, err := s.deps.CallLinks.IssueCredential(ctx, *account)
	if err != nil {
		return nil, fmt.Errorf("issue call link credential: %w", err)
	}

	state, err := s.deps.CallLinks.FetchState(ctx, key, credential)
	if err != nil {
		return nil, fmt.Errorf("fetch call link state: %w", err)
	}

	description := s.deps.Strings.CallLinkDescription()
	return &models.LinkPreviewDraft{
		Title:       normalizeText(state.LocalizedName(s.deps.Strings.DefaultCallTitle()), titleMaxLines),
		Description: &description,
	}, nil
}
