package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

const (
	DefaultTokenLength = 32 // 256 bits
	fingerprintLength  = 12
)

// AdminToken is a bearer token for an admins entry. Only Hash is written
// to the config file.
type AdminToken struct {
	Token string
	Hash  string
}

// GenerateSecret returns byteLength random bytes, URL-safe base64 encoded.
// A non-positive length means DefaultTokenLength.
func GenerateSecret(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenLength
	}
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func NewAdminToken(byteLength int) (AdminToken, error) {
	token, err := GenerateSecret(byteLength)
	if err != nil {
		return AdminToken{}, err
	}
	return AdminToken{Token: token, Hash: HashToken(token)}, nil
}

// MatchesHash reports whether token hashes to storedHash. Empty inputs
// never match.
func MatchesHash(token, storedHash string) bool {
	if token == "" || storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(storedHash)) == 1
}

// HashToken returns the hex SHA-256 of token. Platform keys are cached and
// logged under this hash, never in the clear.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Fingerprint is a short prefix of HashToken suitable for log lines
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	return HashToken(token)[:fingerprintLength]
}
