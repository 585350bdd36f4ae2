package nav

import (
	"crypto/aes"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// requestIDPrefix marks requests originating from this software.
const requestIDPrefix = "NVG"

// requestIDMaxLen is the authority-imposed limit on requestId length.
const requestIDMaxLen = 30

// newRequestID generates a fresh request id: prefix + UUID hex, truncated.
// Monotonic freshness comes from the UUID; the id is bound into the request
// signature so every request signs differently.
func newRequestID() string {
	id := requestIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(id) > requestIDMaxLen {
		id = id[:requestIDMaxLen]
	}
	return id
}

// passwordHash computes the SHA-512 hash of the password, uppercase hex,
// as required in the request user block.
func passwordHash(password string) string {
	sum := sha512.Sum512([]byte(password))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// contentHash computes the SHA3-512 hash of a value, uppercase hex. Used for
// per-invoice content hashes (operation + base64 payload) and the request
// signature.
func contentHash(value string) string {
	sum := sha3.Sum512([]byte(value))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// requestSignature computes the request signature:
// SHA3-512 over requestID + timestamp(yyyyMMddHHmmss, UTC) + signature key +
// the concatenated content hashes in batch index order. Binding the payload
// hashes into the signature prevents tampering with submitted content.
func requestSignature(signatureKey, requestID string, timestamp time.Time, payloadHashes []string) string {
	parts := []string{requestID, timestamp.UTC().Format("20060102150405"), signatureKey}
	parts = append(parts, payloadHashes...)
	return contentHash(strings.Join(parts, ""))
}

// decryptExchangeToken decrypts the AES-128-ECB encrypted token returned by
// tokenExchange, using the credential's replacement key, and strips the
// PKCS7 padding.
func decryptExchangeToken(replacementKey string, encrypted []byte) ([]byte, error) {
	block, err := aes.NewCipher([]byte(replacementKey))
	if err != nil {
		return nil, fmt.Errorf("replacement key: %w", err)
	}
	if len(encrypted) == 0 || len(encrypted)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("encrypted token length %d is not a multiple of the block size", len(encrypted))
	}

	decrypted := make([]byte, len(encrypted))
	for i := 0; i < len(encrypted); i += block.BlockSize() {
		block.Decrypt(decrypted[i:i+block.BlockSize()], encrypted[i:i+block.BlockSize()])
	}

	return pkcs7Unpad(decrypted, block.BlockSize())
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, fmt.Errorf("invalid PKCS7 padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("invalid PKCS7 padding")
		}
	}
	return data[:len(data)-pad], nil
}

// formatTimestamp renders a wire timestamp: UTC with millisecond precision.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
