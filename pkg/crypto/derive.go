package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the size in bytes of every key derived from the site secret
const KeySize = 32

// HKDF info strings give each use of the site secret its own key.
// Changing one invalidates everything produced under it.
var (
	hkdfInfoToken  = []byte("webpro.token.v1")
	hkdfInfoRevoke = []byte("webpro.revoke.v1")
)

func deriveKey(secret []byte, info []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("deriving key: empty secret")
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, info), key); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return key, nil
}
