package core

import "context"

// Metadata keys stored per account. Each entry is independent so that
// disconnect can remove them one by one.
const (
	MetaKey              = "webpro_key"
	MetaReferenceID      = "webpro_reference_id"
	MetaLocation         = "webpro_location"
	MetaAddedBy          = "webpro_added_by"
	MetaAddedAt          = "webpro_added_at"
	MetaRevokeCredential = "webpro_revoke_token"
)

// ConnectionMetaKeys lists the entries written during connect, in the order
// they are removed on disconnect. The revoke credential is handled separately.
var ConnectionMetaKeys = []string{
	MetaKey,
	MetaReferenceID,
	MetaLocation,
	MetaAddedBy,
	MetaAddedAt,
}

// UserDirectory resolves, provisions and annotates local accounts.
//
// Implementations must make SetMetadataOnce atomic per (id, key): when two
// callers race, exactly one write wins and the other observes stored=false.
type UserDirectory interface {
	// Query methods
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create fills u.ID. Returns ErrUserExists when the email or login is taken.
	Create(ctx context.Context, u *User) error
	SetRole(ctx context.Context, id, role string) error

	// Metadata
	GetMetadata(ctx context.Context, id, key string) (value string, ok bool, err error)
	SetMetadata(ctx context.Context, id, key, value string) error
	SetMetadataOnce(ctx context.Context, id, key, value string) (stored bool, err error)
	// DeleteMetadata succeeds when the entry is already absent
	DeleteMetadata(ctx context.Context, id, key string) error
}
