package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// API key secrets look like vd_live_<48 hex chars>. The fixed prefix makes
// leaked keys recognisable in logs and secret scanners without revealing
// anything about the secret itself.
const (
	KeySecretPrefix = "vd_live_"
	keySecretBytes  = 24

	// PreviewLength is the number of trailing characters retained for display.
	PreviewLength = 4
)

// GeneratedKey holds the transient parts of a freshly minted API key. The
// Secret field exists only in memory at creation time and must never be
// persisted or logged.
type GeneratedKey struct {
	Secret  string
	Hash    string
	Preview string
}

// GenerateKeySecret mints a new random API key secret together with its
// storage hash and display preview. The preview is a trailing slice of the
// raw secret, not of the hash.
func GenerateKeySecret() (*GeneratedKey, error) {
	buf := make([]byte, keySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("crypto: generate key secret: %w", err)
	}

	secret := KeySecretPrefix + hex.EncodeToString(buf)

	return &GeneratedKey{
		Secret:  secret,
		Hash:    HashKeySecret(secret),
		Preview: Preview(secret),
	}, nil
}

// HashKeySecret computes the one-way storage hash of an API key secret.
// The hash is deterministic so the column can carry a uniqueness constraint
// and incoming keys can be matched by hashing alone.
func HashKeySecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Preview returns the fixed-length trailing slice of a secret or hash used
// for human recognition. Values shorter than the preview length are returned
// unchanged.
func Preview(value string) string {
	if len(value) <= PreviewLength {
		return value
	}
	return value[len(value)-PreviewLength:]
}

// GenerateToken returns a random hex token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
