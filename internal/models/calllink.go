package models

import (
	"time"

	"github.com/google/uuid"
)

// CallLinkRootKey is the 16 byte secret shared through a call link.
type CallLinkRootKey struct {
	Bytes  []byte
	RoomID []byte
}

type AccountIdentity struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Username string    `json:"username" db:"username"`
}

type CallLinkCredential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type CallLinkState struct {
	Name         string     `json:"name"`
	Restrictions string     `json:"restrictions,omitempty"`
	Revoked      bool       `json:"revoked"`
	ExpiresAt    *time.Time `json:"expiration,omitempty"`
}

// LocalizedName returns the name to display for the link, falling back to the default call title.
func (s *CallLinkState) LocalizedName(fallback string) string {
	if s == nil || s.Name == "" {
		return fallback
	}
	return s.Name
}
