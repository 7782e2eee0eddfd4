package models

// StickerPackRef identifies a sticker pack from a share link.
type StickerPackRef struct {
	PackID  []byte
	PackKey []byte
}

type StickerPack struct {
	Ref    StickerPackRef `json:"-"`
	Title  *string        `json:"title,omitempty"`
	Author *string        `json:"author,omitempty"`
	Cover  *StickerInfo   `json:"cover,omitempty"`
	Items  []StickerInfo  `json:"stickers"`
}

type StickerInfo struct {
	ID    uint32 `json:"id"`
	Emoji string `json:"emoji,omitempty"`
}
