package linkpreview

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testPackID    = bytes.Repeat([]byte{0xab}, stickerPackIDSize)
	testPackKey   = bytes.Repeat([]byte{0x01}, stickerPackKeySize)
	testMasterKey = bytes.Repeat([]byte{0x02}, groupMasterKeySize)
	testPassword  = bytes.Repeat([]byte{0x03}, groupPasswordSize)
	testRootKey   = []byte{0x00, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0xfe, 0xdc, 0xba, 0x98, 0x76, 0x54, 0x10}
)

func stickerShareURL(packID, packKey []byte) string {
	return "https://zentra.art/addstickers/#pack_id=" + hex.EncodeToString(packID) + "&pack_key=" + hex.EncodeToString(packKey)
}

func groupInviteURL(masterKey, password []byte) string {
	return "https://zentra.group/#" + base64.RawURLEncoding.EncodeToString(append(append([]byte{}, masterKey...), password...))
}

func callLinkURL(key []byte) string {
	return "https://zentra.link/call/#key=" + encodeCallLinkKey(key)
}

// encodeCallLinkKey writes key in the consonant alphabet, dash separated every four characters.
func encodeCallLinkKey(key []byte) string {
	var b strings.Builder
	for i, v := range key {
		if i > 0 && i%2 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(callLinkAlphabet[v>>4])
		b.WriteByte(callLinkAlphabet[v&0x0f])
	}
	return b.String()
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want LinkKind
	}{
		{name: "sticker pack", raw: stickerShareURL(testPackID, testPackKey), want: KindStickerPack},
		{name: "sticker pack without trailing slash", raw: strings.Replace(stickerShareURL(testPackID, testPackKey), "addstickers/", "addstickers", 1), want: KindStickerPack},
		{name: "malformed sticker pack still routed", raw: "https://zentra.art/addstickers/#pack_id=zz", want: KindStickerPack},
		{name: "group invite", raw: groupInviteURL(testMasterKey, testPassword), want: KindGroupInvite},
		{name: "group invite host case", raw: strings.Replace(groupInviteURL(testMasterKey, testPassword), "zentra.group", "Zentra.GROUP", 1), want: KindGroupInvite},
		{name: "call link", raw: callLinkURL(testRootKey), want: KindCallLink},
		{name: "call link with bad key is generic", raw: "https://zentra.link/call/#key=aaaa-bbbb", want: KindGeneric},
		{name: "call link without key is generic", raw: "https://zentra.link/call/", want: KindGeneric},
		{name: "plain http sticker host is generic", raw: "http://zentra.art/addstickers/#pack_id=00", want: KindGeneric},
		{name: "other path on sticker host", raw: "https://zentra.art/about", want: KindGeneric},
		{name: "article", raw: "https://news.example.com/story", want: KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(mustParseURL(t, tt.raw)))
		})
	}
}

func TestParseStickerShareURL(t *testing.T) {
	ref, err := parseStickerShareURL(mustParseURL(t, stickerShareURL(testPackID, testPackKey)))
	require.NoError(t, err)
	assert.Equal(t, testPackID, ref.PackID)
	assert.Equal(t, testPackKey, ref.PackKey)

	for _, raw := range []string{
		"https://zentra.art/addstickers/",
		"https://zentra.art/addstickers/#pack_id=abcd&pack_key=" + hex.EncodeToString(testPackKey),
		"https://zentra.art/addstickers/#pack_id=" + hex.EncodeToString(testPackID) + "&pack_key=xyz",
	} {
		_, err := parseStickerShareURL(mustParseURL(t, raw))
		assert.ErrorIs(t, err, errMalformedStickerLink, raw)
	}
}

func TestParseGroupInviteURL(t *testing.T) {
	link, err := parseGroupInviteURL(mustParseURL(t, groupInviteURL(testMasterKey, testPassword)))
	require.NoError(t, err)
	assert.Equal(t, testMasterKey, link.MasterKey)
	assert.Equal(t, testPassword, link.InvitePassword)

	for _, raw := range []string{
		"https://zentra.group/",
		"https://zentra.group/#" + base64.RawURLEncoding.EncodeToString(testMasterKey),
		"https://zentra.group/#!!!not-base64",
	} {
		_, err := parseGroupInviteURL(mustParseURL(t, raw))
		assert.ErrorIs(t, err, errMalformedGroupLink, raw)
	}
}

func TestCallLinkKeyRoundTrip(t *testing.T) {
	encoded := encodeCallLinkKey(testRootKey)
	assert.Equal(t, 8, strings.Count(encoded, "-")+1)

	decoded, err := decodeCallLinkKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, testRootKey, decoded)

	decoded, err = decodeCallLinkKey(strings.ToUpper(encoded))
	require.NoError(t, err)
	assert.Equal(t, testRootKey, decoded)

	_, err = decodeCallLinkKey(strings.Replace(encoded, "b", "a", 1))
	assert.ErrorIs(t, err, errMalformedCallLink)
}

func TestLinkKindString(t *testing.T) {
	assert.Equal(t, "generic", KindGeneric.String())
	assert.Equal(t, "sticker_pack", KindStickerPack.String())
	assert.Equal(t, "group_invite", KindGroupInvite.String())
	assert.Equal(t, "call_link", KindCallLink.String())
}
