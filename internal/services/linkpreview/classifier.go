package linkpreview

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"

	"github.com/zentra/linkpreview/internal/models"
)

// LinkKind selects the derivation strategy for a URL.
type LinkKind int

const (
	KindGeneric LinkKind = iota
	KindStickerPack
	KindGroupInvite
	KindCallLink
)

func (k LinkKind) String() string {
	switch k {
	case KindStickerPack:
		return "sticker_pack"
	case KindGroupInvite:
		return "group_invite"
	case KindCallLink:
		return "call_link"
	default:
		return "generic"
	}
}

const (
	stickerHost     = "zentra.art"
	stickerPath     = "/addstickers"
	groupInviteHost = "zentra.group"
	callLinkHost    = "zentra.link"
	callLinkPath    = "/call"

	stickerPackIDSize  = 16
	stickerPackKeySize = 32
	groupMasterKeySize = 32
	groupPasswordSize  = 16
	callLinkKeySize    = 16

	// One character per nibble.
	callLinkAlphabet = "bcdfghkmnpqrstxz"
)

var (
	errMalformedStickerLink = errors.New("malformed sticker pack link")
	errMalformedGroupLink   = errors.New("malformed group invite link")
	errMalformedCallLink    = errors.New("malformed call link")
)

// Classify picks exactly one strategy. Earlier kinds win.
func Classify(u *url.URL) LinkKind {
	switch {
	case isStickerShareURL(u):
		return KindStickerPack
	case isGroupInviteURL(u):
		return KindGroupInvite
	case isCallLinkURL(u):
		return KindCallLink
	default:
		return KindGeneric
	}
}

func isStickerShareURL(u *url.URL) bool {
	return u.Scheme == "https" && hostIs(u, stickerHost) && trimSlash(u.Path) == stickerPath
}

func isGroupInviteURL(u *url.URL) bool {
	return u.Scheme == "https" && hostIs(u, groupInviteHost) && trimSlash(u.Path) == ""
}

// isCallLinkURL also requires the key to parse, so a call link with a broken key is
// previewed like any other page.
func isCallLinkURL(u *url.URL) bool {
	if u.Scheme != "https" || !hostIs(u, callLinkHost) || trimSlash(u.Path) != callLinkPath {
		return false
	}
	_, err := parseCallLinkURL(u)
	return err == nil
}

// parseStickerShareURL reads pack_id and pack_key from the fragment.
func parseStickerShareURL(u *url.URL) (models.StickerPackRef, error) {
	params, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return models.StickerPackRef{}, errMalformedStickerLink
	}

	packID, err := hex.DecodeString(params.Get("pack_id"))
	if err != nil || len(packID) != stickerPackIDSize {
		return models.StickerPackRef{}, errMalformedStickerLink
	}
	packKey, err := hex.DecodeString(params.Get("pack_key"))
	if err != nil || len(packKey) != stickerPackKeySize {
		return models.StickerPackRef{}, errMalformedStickerLink
	}
	return models.StickerPackRef{PackID: packID, PackKey: packKey}, nil
}

// parseGroupInviteURL decodes base64url(masterKey || password) from the fragment.
func parseGroupInviteURL(u *url.URL) (models.GroupInviteLink, error) {
	encoded := strings.TrimRight(u.Fragment, "=")
	if encoded == "" {
		return models.GroupInviteLink{}, errMalformedGroupLink
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) != groupMasterKeySize+groupPasswordSize {
		return models.GroupInviteLink{}, errMalformedGroupLink
	}
	return models.GroupInviteLink{
		MasterKey:      raw[:groupMasterKeySize],
		InvitePassword: raw[groupMasterKeySize:],
	}, nil
}

// parseCallLinkURL reads the root key from "#key=xxxx-xxxx-...". The room id is filled
// in later by key derivation.
func parseCallLinkURL(u *url.URL) (models.CallLinkRootKey, error) {
	params, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return models.CallLinkRootKey{}, errMalformedCallLink
	}
	key, err := decodeCallLinkKey(params.Get("key"))
	if err != nil {
		return models.CallLinkRootKey{}, err
	}
	return models.CallLinkRootKey{Bytes: key}, nil
}

func decodeCallLinkKey(s string) ([]byte, error) {
	s = strings.ToLower(strings.ReplaceAll(s, "-", ""))
	if len(s) != 2*callLinkKeySize {
		return nil, errMalformedCallLink
	}

	out := make([]byte, callLinkKeySize)
	for i := range out {
		hi := strings.IndexByte(callLinkAlphabet, s[2*i])
		lo := strings.IndexByte(callLinkAlphabet, s[2*i+1])
		if hi < 0 || lo < 0 {
			return nil, errMalformedCallLink
		}
		out[i] = byte(hi<<4 | lo)
	}
	return out, nil
}

func hostIs(u *url.URL, host string) bool {
	return strings.EqualFold(strings.TrimSuffix(u.Hostname(), "."), host)
}

func trimSlash(p string) string {
	return strings.TrimRight(p, "/")
}
