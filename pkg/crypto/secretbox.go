package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/lborres/webpro/core"
)

// SealedVersion prefixes every sealed value and is authenticated as AAD,
// so a flipped version byte fails to open.
const SealedVersion byte = 0x01

// sealedOverhead is 1 (version) + 24 (nonce) + 16 (tag)
const sealedOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// SecretBox seals revoke credentials with XChaCha20-Poly1305 under a key
// derived from the site secret. Output is unpadded URL-safe base64 of
//
//	[version][nonce][ciphertext+tag]
type SecretBox struct {
	aead cipher.AEAD
}

var _ core.SecretStore = (*SecretBox)(nil)

func NewSecretBox(siteSecret string) (*SecretBox, error) {
	if siteSecret == "" {
		return nil, core.ErrSecretRequired
	}

	key, err := deriveKey([]byte(siteSecret), hkdfInfoRevoke)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	return &SecretBox{aead: aead}, nil
}

func (b *SecretBox) Encrypt(plaintext string) (string, error) {
	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating random nonce: %w", err)
	}

	out := make([]byte, 1+len(nonce), sealedOverhead+len(plaintext))
	out[0] = SealedVersion
	copy(out[1:], nonce[:])
	out = b.aead.Seal(out, nonce[:], []byte(plaintext), []byte{SealedVersion})

	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (b *SecretBox) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecryption, err)
	}
	if len(raw) < sealedOverhead {
		return "", fmt.Errorf("%w: sealed value too short (%d bytes)", core.ErrDecryption, len(raw))
	}
	if raw[0] != SealedVersion {
		return "", fmt.Errorf("%w: unsupported version 0x%02x", core.ErrDecryption, raw[0])
	}

	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := b.aead.Open(nil, nonce, raw[1+chacha20poly1305.NonceSizeX:], raw[:1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecryption, err)
	}

	return string(plaintext), nil
}
