package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// PLATFORM PORT (remote Web Pro platform)
// ============================================

// Platform is the remote service that issues keys and tracks revocation
type Platform interface {
	// VerifyKey returns ErrInvalidKey when the platform does not accept the key.
	VerifyKey(ctx context.Context, key string) (*Verification, error)
	ExchangeToken(ctx context.Context, record Record, signedToken string) (revokeCredential string, err error)
	NotifyRevoke(ctx context.Context, revokeCredential string, referenceID int64) error
}

// ============================================
// CRYPTO PORTS
// ============================================

// SecretStore encrypts small secrets for storage in account metadata
type SecretStore interface {
	Encrypt(plaintext string) (string, error)
	// Decrypt returns an error wrapping ErrDecryption for malformed or foreign ciphertext
	Decrypt(ciphertext string) (string, error)
}

// TokenIssuer signs the access token the platform exchanges for a revoke credential
type TokenIssuer interface {
	Generate(record Record) (string, error)
}

type PasswordHandler interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// ============================================
// AUTHORIZATION PORT
// ============================================

// Authorizer answers questions about whoever is acting in ctx
type Authorizer interface {
	CurrentActor(ctx context.Context) string
	CanManageUsers(ctx context.Context) bool
}

// ============================================
// CACHE PORT
// ============================================

// VerificationCache holds successful key verifications keyed by key hash
type VerificationCache interface {
	Get(keyHash string) (*Verification, error)
	Set(keyHash string, v *Verification) error
	Delete(keyHash string) error
	Clear() error
}

// CacheConfig configures cache behavior
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
	Clock   func() time.Time // defaults to time.Now
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}

// ============================================
// CONNECTION HANDLER (for HTTP adapters)
// ============================================

// ConnectionHandler provides connection operations for HTTP adapters
type ConnectionHandler interface {
	CheckKey(ctx context.Context, key string) (*KeyCheck, error)
	Connect(ctx context.Context, key string) (*ConnectResult, error)
	Status(ctx context.Context, accountID string) (*RecordView, error)
	SetKey(ctx context.Context, accountID, key string) (*RecordView, error)
	Disconnect(ctx context.Context, accountID string) error
	RoleChanged(ctx context.Context, accountID, newRole string) error
	AccountDeleted(ctx context.Context, accountID string) error
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(handler ConnectionHandler, basePath string) error
}
