package models

// GroupInviteLink is the key material carried in a group invite URL.
type GroupInviteLink struct {
	MasterKey      []byte
	InvitePassword []byte
}

// GroupSecretParams holds the values derived from a group's master key.
type GroupSecretParams struct {
	GroupID   []byte
	AvatarKey []byte
}

type GroupInvitePreview struct {
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	AvatarPath       string `json:"avatarPath,omitempty"`
	MemberCount      int    `json:"memberCount"`
	AddFromInviteReq bool   `json:"addFromInviteLinkRequiresApproval"`
}
