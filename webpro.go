package webpro

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/lborres/webpro/adapters/platform"
	"github.com/lborres/webpro/core"
	"github.com/lborres/webpro/pkg/cache"
	"github.com/lborres/webpro/pkg/crypto"
	"github.com/lborres/webpro/services"
)

// interfaces
type (
	UserDirectory     = core.UserDirectory
	Platform          = core.Platform
	SecretStore       = core.SecretStore
	TokenIssuer       = core.TokenIssuer
	Authorizer        = core.Authorizer
	VerificationCache = core.VerificationCache
	PasswordHandler   = core.PasswordHandler

	HTTPAdapter       = core.HTTPAdapter
	ConnectionHandler = core.ConnectionHandler
)

// structs
type (
	User          = core.User
	Record        = core.Record
	RecordView    = core.RecordView
	State         = core.State
	Verification  = core.Verification
	KeyCheck      = core.KeyCheck
	ConnectResult = core.ConnectResult
	Actor         = core.Actor
	CacheConfig   = core.CacheConfig
	CacheStats    = core.CacheStats
)

const (
	StateUnresolved   = core.StateUnresolved
	StateKeyPending   = core.StateKeyPending
	StateBound        = core.StateBound
	StateConnected    = core.StateConnected
	StateDisconnected = core.StateDisconnected
)

const (
	defaultBasePath  = "/api/webpro"
	defaultSecretLen = 32
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2    = crypto.NewArgon2
	WithActor    = core.WithActor
	HashToken    = crypto.HashToken
	NewSecretBox = crypto.NewSecretBox
)

var (
	ErrInvalidArgument  = core.ErrInvalidArgument
	ErrNotFound         = core.ErrNotFound
	ErrKeyMismatch      = core.ErrKeyMismatch
	ErrIdentityConflict = core.ErrIdentityConflict
	ErrPermissionDenied = core.ErrPermissionDenied
	ErrMissingKey       = core.ErrMissingKey
	ErrConnectFailed    = core.ErrConnectFailed
	ErrDecryption       = core.ErrDecryption
)

var (
	ErrInvalidKey   = core.ErrInvalidKey
	ErrNoCredential = core.ErrNoCredential
	ErrUserExists   = core.ErrUserExists
	ErrUserNotFound = core.ErrUserNotFound
)

var (
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrInvalidAuthHeader = core.ErrInvalidAuthHeader
	ErrUnknownActor      = core.ErrUnknownActor
)

var (
	ErrDirectoryRequired   = core.ErrDirectoryRequired
	ErrPlatformRequired    = core.ErrPlatformRequired
	ErrSecretStoreRequired = core.ErrSecretStoreRequired
	ErrTokenIssuerRequired = core.ErrTokenIssuerRequired
	ErrAuthorizerRequired  = core.ErrAuthorizerRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
	ErrSiteURLRequired     = core.ErrSiteURLRequired
	ErrInsecureSiteURL     = core.ErrInsecureSiteURL
)

// Config configures a WebPro instance
type Config struct {
	// SiteURL identifies this site to the platform and must use https
	SiteURL string
	// Secret is the site-wide secret that token signing and credential
	// encryption keys are derived from
	Secret string
	// AllowInsecureSiteURL permits an http site url, for local development
	AllowInsecureSiteURL bool

	Directory UserDirectory

	// Optional
	Platform        Platform          // defaults to the HTTP platform client
	PlatformBaseURL string            // used by the default platform client
	Cache           VerificationCache // used by the default platform client
	Authorizer      Authorizer        // defaults to the actor carried in ctx
	PasswordHasher  PasswordHandler   // defaults to argon2id
	Logger          *slog.Logger

	// HTTP mounts the connection endpoints when set
	HTTP     HTTPAdapter
	BasePath string
}

// WebPro holds the wired connection service
type WebPro struct {
	*services.ConnectionService

	Platform Platform
	BasePath string
}

func New(config Config) (*WebPro, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if err := checkSiteURL(config.SiteURL, config.AllowInsecureSiteURL); err != nil {
		return nil, err
	}
	if config.Directory == nil {
		return nil, ErrDirectoryRequired
	}

	// Set Defaults

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	platformClient := config.Platform
	if platformClient == nil {
		verificationCache := config.Cache
		if verificationCache == nil {
			verificationCache = cache.NewInMemoryCache[*core.Verification](CacheConfig{
				TTL:     platform.DefaultCacheTTL,
				MaxSize: 500,
			})
		}
		client, err := platform.New(platform.Config{
			BaseURL: config.PlatformBaseURL,
			SiteURL: config.SiteURL,
			Cache:   verificationCache,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		platformClient = client
	}

	authorizer := config.Authorizer
	if authorizer == nil {
		authorizer = core.ContextAuthorizer{}
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	secrets, err := crypto.NewSecretBox(config.Secret)
	if err != nil {
		return nil, err
	}
	tokens, err := crypto.NewJWTIssuer(config.Secret, config.SiteURL)
	if err != nil {
		return nil, err
	}

	service, err := services.NewConnectionService(services.ConnectionDeps{
		Directory:  config.Directory,
		Platform:   platformClient,
		Secrets:    secrets,
		Tokens:     tokens,
		Authorizer: authorizer,
		Passwords:  passwordHasher,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	wp := &WebPro{
		ConnectionService: service,
		Platform:          platformClient,
		BasePath:          basePath,
	}

	if config.HTTP != nil {
		if err := config.HTTP.RegisterRoutes(service, basePath); err != nil {
			return nil, err
		}
	}

	return wp, nil
}

// checkSiteURL enforces an absolute https site url
func checkSiteURL(siteURL string, allowInsecure bool) error {
	if siteURL == "" {
		return ErrSiteURLRequired
	}
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute url", ErrSiteURLRequired, siteURL)
	}
	if u.Scheme == "https" || (allowInsecure && u.Scheme == "http") {
		return nil
	}
	return fmt.Errorf("%w: got %q", ErrInsecureSiteURL, u.Scheme)
}
