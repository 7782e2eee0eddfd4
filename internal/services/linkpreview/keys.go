package linkpreview

import (
	"github.com/zentra/linkpreview/internal/models"
	"github.com/zentra/linkpreview/pkg/encryption"
)

// HKDF info labels. Changing any of them changes every derived identifier.
const (
	groupIdentifierInfo = "Zentra_Group_Identifier"
	groupAvatarInfo     = "Zentra_Group_Avatar"
	callLinkRoomInfo    = "Zentra_CallLink_Room"

	derivedKeySize = 32
)

func deriveGroupSecretParams(masterKey []byte) (models.GroupSecretParams, error) {
	groupID, err := encryption.DeriveKey(masterKey, groupIdentifierInfo, derivedKeySize)
	if err != nil {
		return models.GroupSecretParams{}, err
	}
	avatarKey, err := encryption.DeriveKey(masterKey, groupAvatarInfo, derivedKeySize)
	if err != nil {
		return models.GroupSecretParams{}, err
	}
	return models.GroupSecretParams{GroupID: groupID, AvatarKey: avatarKey}, nil
}

func deriveCallLinkRoomID(rootKey []byte) ([]byte, error) {
	return encryption.DeriveKey(rootKey, callLinkRoomInfo, derivedKeySize)
}
