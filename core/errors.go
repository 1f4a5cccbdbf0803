package core

import "errors"

// Connection errors
var (
	ErrInvalidArgument  = errors.New("an account id or platform key is required")  // 400 Bad Request
	ErrNotFound         = errors.New("web pro could not be resolved")               // 404 Not Found
	ErrKeyMismatch      = errors.New("platform key does not match account")         // 409 Conflict
	ErrIdentityConflict = errors.New("account email does not match platform")       // 409 Conflict
	ErrPermissionDenied = errors.New("actor is not allowed to manage users")        // 403 Forbidden
	ErrMissingKey       = errors.New("web pro must have a verified platform key")   // 400 Bad Request
	ErrConnectFailed    = errors.New("platform did not issue a revoke credential") // 502 Bad Gateway
	ErrDecryption       = errors.New("stored credential could not be decrypted")
)

// Platform errors
var (
	ErrInvalidKey   = errors.New("platform rejected key")
	ErrNoCredential = errors.New("platform response has no token")
)

// User directory errors
var (
	ErrUserExists   = errors.New("user already exists") // 409 Conflict
	ErrUserNotFound = errors.New("user not found")      // 404 Not Found
)

// Request errors
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")                                 // 401
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Bearer <token>'")     // 401
	ErrUnknownActor      = errors.New("authorization token does not belong to a known administrator") // 401
)

var (
	ErrCacheNotFound = errors.New("entry not found in cache")
)

// Config errors (server-side configuration)
var (
	ErrDirectoryRequired   = errors.New("user directory is required")  // 500
	ErrPlatformRequired    = errors.New("platform client is required") // 500
	ErrSecretStoreRequired = errors.New("secret store is required")    // 500
	ErrTokenIssuerRequired = errors.New("token issuer is required")    // 500
	ErrAuthorizerRequired  = errors.New("authorizer is required")      // 500
	ErrSecretRequired      = errors.New("secret is required")          // 500
	ErrSecretTooShort      = errors.New("secret too short")            // 500
	ErrSiteURLRequired     = errors.New("site url is required")        // 500
	ErrInsecureSiteURL     = errors.New("site url must use https")     // 500
)
