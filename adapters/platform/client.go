package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lborres/webpro/core"
	"github.com/lborres/webpro/pkg/cache"
	"github.com/lborres/webpro/pkg/crypto"
)

const (
	DefaultBaseURL       = "https://api-maestro.webpropanel.com/wp-plugin"
	DefaultVerifyTimeout = 30 * time.Second
	DefaultCallTimeout   = 10 * time.Second
	DefaultCacheTTL      = 5 * time.Minute

	// responses larger than this are not platform responses
	maxResponseBytes = 1 << 20
)

// Config holds configuration for creating a Client
type Config struct {
	// BaseURL of the platform API. Defaults to DefaultBaseURL.
	BaseURL string
	// SiteURL identifies this site to the platform. Required.
	SiteURL string
	// HTTPClient is used for all requests. If nil, a client without a
	// global timeout is used; each call sets its own deadline.
	HTTPClient *http.Client

	VerifyTimeout time.Duration
	CallTimeout   time.Duration

	// Cache holds successful verifications. If nil, an in-memory cache
	// with a five minute TTL is used.
	Cache core.VerificationCache

	Logger *slog.Logger
}

// Client talks to the Web Pro platform
type Client struct {
	baseURL       string
	siteURL       string
	httpClient    *http.Client
	verifyTimeout time.Duration
	callTimeout   time.Duration
	cache         core.VerificationCache
	group         singleflight.Group
	logger        *slog.Logger
}

var _ core.Platform = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if cfg.SiteURL == "" {
		return nil, core.ErrSiteURLRequired
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("platform: invalid base url %q: %w", baseURL, err)
	}

	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		siteURL:       cfg.SiteURL,
		httpClient:    cfg.HTTPClient,
		verifyTimeout: cfg.VerifyTimeout,
		callTimeout:   cfg.CallTimeout,
		cache:         cfg.Cache,
		logger:        cfg.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.verifyTimeout <= 0 {
		c.verifyTimeout = DefaultVerifyTimeout
	}
	if c.callTimeout <= 0 {
		c.callTimeout = DefaultCallTimeout
	}
	if c.cache == nil {
		c.cache = cache.NewInMemoryCache[*core.Verification](core.CacheConfig{TTL: DefaultCacheTTL})
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// VerifyKey asks the platform who key belongs to. Successful answers are
// cached by key hash and concurrent lookups of one key share a request.
func (c *Client) VerifyKey(ctx context.Context, key string) (*core.Verification, error) {
	if key == "" {
		return nil, core.ErrInvalidKey
	}
	keyHash := crypto.HashToken(key)

	if v, err := c.cache.Get(keyHash); err == nil {
		c.logger.Debug("verification cache hit", "key", keyHash[:12])
		return clone(v), nil
	}

	// the shared fetch must outlive whichever caller started it
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(keyHash, func() (interface{}, error) {
		// a caller that just finished may have filled the cache
		if v, err := c.cache.Get(keyHash); err == nil {
			return v, nil
		}

		v, err := c.fetchVerification(fetchCtx, key)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(keyHash, v); err != nil {
			c.logger.Warn("failed to cache verification", "key", keyHash[:12], "error", err)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.(*core.Verification)), nil
	}
}

func (c *Client) fetchVerification(ctx context.Context, key string) (*core.Verification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.verifyTimeout)
	defer cancel()

	query := url.Values{
		"sessionToken": {key},
		"websiteUrl":   {c.siteURL},
	}
	status, body, err := c.do(ctx, http.MethodGet, "/verify", nil, query)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", core.ErrInvalidKey, status)
	}

	var v core.Verification
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("platform: failed to parse verify response: %w", err)
	}
	if v.Email == "" || v.ReferenceID == 0 {
		return nil, fmt.Errorf("platform: verify response missing email or reference id")
	}
	return &v, nil
}

type tokenRequest struct {
	SessionToken string `json:"sessionToken"`
	ReferenceID  int64  `json:"webproReferenceId"`
	WebsiteURL   string `json:"websiteUrl"`
	WPSecret     string `json:"wpSecret"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// ExchangeToken trades the site's signed token for a revoke credential
func (c *Client) ExchangeToken(ctx context.Context, record core.Record, signedToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	status, body, err := c.do(ctx, http.MethodPost, "/token", tokenRequest{
		SessionToken: record.Key,
		ReferenceID:  record.ReferenceID,
		WebsiteURL:   c.siteURL,
		WPSecret:     signedToken,
	}, nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("platform: unexpected %d response from /token", status)
	}

	var response tokenResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("platform: failed to parse token response: %w", err)
	}
	if response.Token == "" {
		return "", core.ErrNoCredential
	}
	return response.Token, nil
}

type revokeRequest struct {
	Token       string `json:"token"`
	ReferenceID int64  `json:"webproReferenceId"`
	WebsiteURL  string `json:"websiteUrl"`
}

// NotifyRevoke tells the platform the site dropped the connection. The
// response body is ignored; callers log the error and move on.
func (c *Client) NotifyRevoke(ctx context.Context, revokeCredential string, referenceID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	status, _, err := c.do(ctx, http.MethodPost, "/revoke", revokeRequest{
		Token:       revokeCredential,
		ReferenceID: referenceID,
		WebsiteURL:  c.siteURL,
	}, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("platform: unexpected %d response from /revoke", status)
	}
	return nil
}

// CacheStats reports verification cache counters when the cache keeps them
func (c *Client) CacheStats() (core.CacheStats, bool) {
	s, ok := c.cache.(interface{ Stats() core.CacheStats })
	if !ok {
		return core.CacheStats{}, false
	}
	return s.Stats(), true
}

// do sends a request and returns the status and body. Only transport
// failures are errors.
func (c *Client) do(ctx context.Context, method, path string, requestBody any, query url.Values) (int, []byte, error) {
	requestURL := c.baseURL + path
	if query != nil {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return 0, nil, fmt.Errorf("platform: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("platform: failed to create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		// the url carries the key as a query parameter
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return 0, nil, fmt.Errorf("platform: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("platform: failed to read response body: %w", err)
	}
	return response.StatusCode, body, nil
}

func clone(v *core.Verification) *core.Verification {
	cp := *v
	if v.State != nil {
		state := *v.State
		cp.State = &state
	}
	if v.Country != nil {
		country := *v.Country
		cp.Country = &country
	}
	return &cp
}
