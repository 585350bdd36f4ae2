package nav

import (
	"crypto/aes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	// SHA-512, uppercase hex.
	got := passwordHash("password")
	assert.Len(t, got, 128)
	assert.Equal(t, strings.ToUpper(got), got)
	assert.Equal(t,
		"B109F3BBBC244EB82441917ED06D618B9008DD09B3BEFD1B5E07394C706A8BB980B1D7785E5976EC049B46DF5F1326AF5A2EA6D103FD07C95385FFAB0CACBC86",
		got,
	)
}

func TestContentHashDeterministic(t *testing.T) {
	a := contentHash("CREATE" + base64.StdEncoding.EncodeToString([]byte("<xml/>")))
	b := contentHash("CREATE" + base64.StdEncoding.EncodeToString([]byte("<xml/>")))
	assert.Equal(t, a, b)
	assert.Len(t, a, 128)
	assert.NotEqual(t, a, contentHash("MODIFY"+base64.StdEncoding.EncodeToString([]byte("<xml/>"))))
}

func TestRequestSignatureBindsPayloadHashes(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	base := requestSignature("key", "NVG123", ts, nil)
	withPayload := requestSignature("key", "NVG123", ts, []string{"AABB"})

	assert.NotEqual(t, base, withPayload)
	// Signature over concatenated parts: id + yyyyMMddHHmmss + key + hashes.
	assert.Equal(t, contentHash("NVG12320260314092653key"), base)
	assert.Equal(t, contentHash("NVG12320260314092653keyAABB"), withPayload)
}

func TestNewRequestIDShape(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		id := newRequestID()
		assert.True(t, strings.HasPrefix(id, requestIDPrefix))
		assert.LessOrEqual(t, len(id), requestIDMaxLen)
		assert.False(t, seen[id], "request ids must be fresh")
		seen[id] = true
	}
}

func TestDecryptExchangeToken(t *testing.T) {
	key := "0123456789abcdef" // 16 bytes
	token := "c3f1d2token-value"

	// Encrypt with AES-128-ECB + PKCS7, the way the authority does.
	block, err := aes.NewCipher([]byte(key))
	require.NoError(t, err)
	pad := block.BlockSize() - len(token)%block.BlockSize()
	plain := append([]byte(token), make([]byte, pad)...)
	for i := len(token); i < len(plain); i++ {
		plain[i] = byte(pad)
	}
	encrypted := make([]byte, len(plain))
	for i := 0; i < len(plain); i += block.BlockSize() {
		block.Encrypt(encrypted[i:i+block.BlockSize()], plain[i:i+block.BlockSize()])
	}

	decrypted, err := decryptExchangeToken(key, encrypted)
	require.NoError(t, err)
	assert.Equal(t, token, string(decrypted))
}

func TestDecryptExchangeTokenRejectsGarbage(t *testing.T) {
	_, err := decryptExchangeToken("0123456789abcdef", []byte("short"))
	assert.Error(t, err)

	_, err = decryptExchangeToken("tooshort", make([]byte, 16))
	assert.Error(t, err)
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 26, 53, 123_000_000, time.FixedZone("CET", 3600))
	assert.Equal(t, "2026-03-14T09:26:53.123Z", formatTimestamp(ts))
}
