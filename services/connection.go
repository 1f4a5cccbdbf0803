package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lborres/webpro/core"
	"github.com/lborres/webpro/pkg/crypto"
)

const placeholderPasswordBytes = 20

// ConnectionDeps are the collaborators a ConnectionManager works with
type ConnectionDeps struct {
	Directory  core.UserDirectory
	Platform   core.Platform
	Secrets    core.SecretStore
	Tokens     core.TokenIssuer
	Authorizer core.Authorizer

	// Optional
	Passwords core.PasswordHandler // defaults to argon2id
	Logger    *slog.Logger         // defaults to slog.Default()
	Now       func() time.Time     // defaults to time.Now
}

func (d ConnectionDeps) validate() error {
	switch {
	case d.Directory == nil:
		return core.ErrDirectoryRequired
	case d.Platform == nil:
		return core.ErrPlatformRequired
	case d.Secrets == nil:
		return core.ErrSecretStoreRequired
	case d.Tokens == nil:
		return core.ErrTokenIssuerRequired
	case d.Authorizer == nil:
		return core.ErrAuthorizerRequired
	}
	return nil
}

func (d ConnectionDeps) withDefaults() ConnectionDeps {
	if d.Passwords == nil {
		d.Passwords = crypto.NewArgon2()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// ConnectionManager drives one web pro through
// Unresolved -> KeyPending -> Bound -> Connected -> Disconnected.
//
// A manager is built per request by ResolveByAccount or ResolveByKey and
// must not be shared between goroutines.
type ConnectionManager struct {
	deps   ConnectionDeps
	log    *slog.Logger
	user   *core.User
	record core.Record
	state  core.State
}

func newConnectionManager(deps ConnectionDeps) *ConnectionManager {
	deps = deps.withDefaults()
	return &ConnectionManager{
		deps: deps,
		log:  deps.Logger,
	}
}

// ResolveByAccount loads the web pro stored against accountID. When key is
// also given it must match the bound key, or verify to the account's email
// if nothing is bound yet. An unknown account falls back to resolving key.
func ResolveByAccount(ctx context.Context, deps ConnectionDeps, accountID, key string) (*ConnectionManager, error) {
	if accountID == "" {
		if key == "" {
			return nil, core.ErrInvalidArgument
		}
		return ResolveByKey(ctx, deps, key)
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	m := newConnectionManager(deps)

	user, err := m.deps.Directory.FindByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, core.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to find account: %w", err)
		}
		if key == "" {
			return nil, core.ErrNotFound
		}
		if err := m.resolveKey(ctx, key); err != nil {
			return nil, err
		}
		return m, nil
	}

	m.attach(user)
	if err := m.load(ctx); err != nil {
		return nil, err
	}

	if key != "" {
		if err := m.MatchKey(ctx, key); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ResolveByKey verifies key against the platform and attaches the local
// account with the verified email, if one exists.
func ResolveByKey(ctx context.Context, deps ConnectionDeps, key string) (*ConnectionManager, error) {
	if key == "" {
		return nil, core.ErrInvalidArgument
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	m := newConnectionManager(deps)
	if err := m.resolveKey(ctx, key); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ConnectionManager) resolveKey(ctx context.Context, key string) error {
	v, err := m.deps.Platform.VerifyKey(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrInvalidKey) {
			m.log.Info("platform rejected key", "key", crypto.Fingerprint(key))
			return core.ErrNotFound
		}
		return fmt.Errorf("failed to verify key: %w", err)
	}

	user, err := m.deps.Directory.FindByEmail(ctx, v.Email)
	switch {
	case err == nil:
		if user.Email != v.Email {
			return core.ErrIdentityConflict
		}
		m.attach(user)
		if err := m.load(ctx); err != nil {
			return err
		}
		if m.record.Key != "" && m.record.Key != key {
			return core.ErrKeyMismatch
		}
	case errors.Is(err, core.ErrUserNotFound):
	default:
		return fmt.Errorf("failed to find account by email: %w", err)
	}

	m.record.Key = key
	m.applyVerification(v)
	if m.state < core.StateKeyPending {
		m.state = core.StateKeyPending
	}
	return nil
}

// MatchKey checks key against the resolved account. A bound key must be
// identical; otherwise key must verify to the account's email.
func (m *ConnectionManager) MatchKey(ctx context.Context, key string) error {
	if m.user == nil {
		return core.ErrNotFound
	}

	if m.record.Key != "" {
		if m.record.Key != key {
			return core.ErrKeyMismatch
		}
		return nil
	}

	v, err := m.deps.Platform.VerifyKey(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrInvalidKey) {
			return fmt.Errorf("%w: %v", core.ErrKeyMismatch, err)
		}
		return fmt.Errorf("failed to verify key: %w", err)
	}
	if v.Email != m.user.Email {
		return core.ErrKeyMismatch
	}

	m.record.Key = key
	m.applyVerification(v)
	m.state = core.StateKeyPending
	return nil
}

func (m *ConnectionManager) attach(user *core.User) {
	m.user = user
	m.record.AccountID = user.ID
	m.record.Email = user.Email
	m.record.FirstName = user.FirstName
	m.record.LastName = user.LastName
}

func (m *ConnectionManager) applyVerification(v *core.Verification) {
	m.record.Email = v.Email
	m.record.FirstName = v.FirstName
	m.record.LastName = v.LastName
	m.record.ReferenceID = v.ReferenceID
	m.record.Location = v.Location()
}

// load reads the stored connection metadata for the attached account
func (m *ConnectionManager) load(ctx context.Context) error {
	id := m.user.ID

	key, ok, err := m.deps.Directory.GetMetadata(ctx, id, core.MetaKey)
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	if ok && key == "" {
		// empty entries are leftovers; treat them as absent
		if err := m.deps.Directory.DeleteMetadata(ctx, id, core.MetaKey); err != nil {
			return fmt.Errorf("failed to clean up empty key: %w", err)
		}
	}
	m.record.Key = key

	if ref, ok, err := m.deps.Directory.GetMetadata(ctx, id, core.MetaReferenceID); err != nil {
		return fmt.Errorf("failed to read reference id: %w", err)
	} else if ok {
		m.record.ReferenceID, _ = strconv.ParseInt(ref, 10, 64)
	}

	if m.record.Location, _, err = m.deps.Directory.GetMetadata(ctx, id, core.MetaLocation); err != nil {
		return fmt.Errorf("failed to read location: %w", err)
	}
	if m.record.AddedBy, _, err = m.deps.Directory.GetMetadata(ctx, id, core.MetaAddedBy); err != nil {
		return fmt.Errorf("failed to read added by: %w", err)
	}
	if at, ok, err := m.deps.Directory.GetMetadata(ctx, id, core.MetaAddedAt); err != nil {
		return fmt.Errorf("failed to read added at: %w", err)
	} else if ok {
		m.record.AddedAt, _ = time.Parse(time.RFC3339, at)
	}

	return m.refreshState(ctx)
}

func (m *ConnectionManager) refreshState(ctx context.Context) error {
	connected, err := m.IsConnected(ctx)
	if err != nil {
		return err
	}
	switch {
	case connected:
		m.state = core.StateConnected
	case m.record.Key != "":
		m.state = core.StateBound
	default:
		m.state = core.StateUnresolved
	}
	return nil
}

// IsConnected re-reads storage on every call. An account is connected when
// it has a bound key, a non-zero reference id and a revoke credential that
// decrypts. A credential that fails to decrypt counts as absent.
func (m *ConnectionManager) IsConnected(ctx context.Context) (bool, error) {
	if m.user == nil {
		return false, nil
	}
	id := m.user.ID

	key, ok, err := m.deps.Directory.GetMetadata(ctx, id, core.MetaKey)
	if err != nil {
		return false, fmt.Errorf("failed to read key: %w", err)
	}
	if !ok || key == "" {
		return false, nil
	}

	ref, ok, err := m.deps.Directory.GetMetadata(ctx, id, core.MetaReferenceID)
	if err != nil {
		return false, fmt.Errorf("failed to read reference id: %w", err)
	}
	if n, _ := strconv.ParseInt(ref, 10, 64); !ok || n == 0 {
		return false, nil
	}

	if _, ok, err := m.revokeCredential(ctx); err != nil || !ok {
		return false, err
	}
	return true, nil
}

// revokeCredential returns the decrypted credential. ok is false when it
// is missing or unreadable.
func (m *ConnectionManager) revokeCredential(ctx context.Context) (string, bool, error) {
	sealed, ok, err := m.deps.Directory.GetMetadata(ctx, m.user.ID, core.MetaRevokeCredential)
	if err != nil {
		return "", false, fmt.Errorf("failed to read revoke credential: %w", err)
	}
	if !ok || sealed == "" {
		return "", false, nil
	}

	credential, err := m.deps.Secrets.Decrypt(sealed)
	if err != nil {
		m.log.Warn("stored revoke credential is unreadable", "account_id", m.user.ID, "error", err)
		return "", false, nil
	}
	return credential, true, nil
}

// Connect provisions or promotes the web pro's account, binds the key and
// exchanges a signed token for a revoke credential. When the exchange fails
// the bound metadata stays in place and SetKey can finish the job.
func (m *ConnectionManager) Connect(ctx context.Context) (string, error) {
	if m.record.Key == "" || m.state == core.StateDisconnected {
		return "", core.ErrMissingKey
	}
	if !m.deps.Authorizer.CanManageUsers(ctx) {
		return "", core.ErrPermissionDenied
	}
	if m.state == core.StateConnected {
		return m.user.ID, nil
	}

	if m.user == nil {
		if err := m.provision(ctx); err != nil {
			return "", err
		}
	}

	if err := m.deps.Directory.SetRole(ctx, m.user.ID, core.RoleAdministrator); err != nil {
		return "", fmt.Errorf("failed to promote account: %w", err)
	}
	m.user.Role = core.RoleAdministrator

	if err := m.bind(ctx); err != nil {
		return "", err
	}

	if err := m.exchange(ctx); err != nil {
		return "", err
	}

	m.log.Info("web pro connected",
		"account_id", m.user.ID,
		"reference_id", m.record.ReferenceID,
		"added_by", m.record.AddedBy,
	)
	return m.user.ID, nil
}

// SetKey repairs a bound account whose exchange never completed, or binds
// key to an account that has none. It returns the key on success.
func (m *ConnectionManager) SetKey(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", core.ErrInvalidArgument
	}
	if m.user == nil {
		return "", core.ErrNotFound
	}
	if !m.deps.Authorizer.CanManageUsers(ctx) {
		return "", core.ErrPermissionDenied
	}
	if m.record.Key != "" && m.record.Key != key {
		return "", core.ErrKeyMismatch
	}

	v, err := m.deps.Platform.VerifyKey(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrInvalidKey) {
			return "", fmt.Errorf("%w: %v", core.ErrKeyMismatch, err)
		}
		return "", fmt.Errorf("%w: %v", core.ErrConnectFailed, err)
	}
	if v.Email != m.user.Email {
		return "", core.ErrKeyMismatch
	}

	m.record.Key = key
	m.applyVerification(v)
	if err := m.bind(ctx); err != nil {
		return "", err
	}

	if err := m.exchange(ctx); err != nil {
		return "", err
	}

	m.log.Info("web pro key set", "account_id", m.user.ID, "key", crypto.Fingerprint(key))
	return key, nil
}

// provision creates the web pro's account, or adopts the one a concurrent
// caller created for the same email.
func (m *ConnectionManager) provision(ctx context.Context) error {
	password, err := crypto.GenerateSecret(placeholderPasswordBytes)
	if err != nil {
		return fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := m.deps.Passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &core.User{
		Login:        loginFromEmail(m.record.Email),
		Email:        m.record.Email,
		FirstName:    m.record.FirstName,
		LastName:     m.record.LastName,
		DisplayName:  m.record.DisplayName(),
		Role:         core.RoleAdministrator,
		PasswordHash: hash,
	}

	err = m.deps.Directory.Create(ctx, user)
	if errors.Is(err, core.ErrUserExists) {
		existing, findErr := m.deps.Directory.FindByEmail(ctx, m.record.Email)
		switch {
		case findErr == nil:
			if existing.Email != m.record.Email {
				return core.ErrIdentityConflict
			}
			m.log.Debug("adopting account created concurrently", "account_id", existing.ID)
			user, err = existing, nil
		case errors.Is(findErr, core.ErrUserNotFound):
			// the login belongs to someone else
			suffix, genErr := crypto.GenerateSecret(3)
			if genErr != nil {
				return fmt.Errorf("failed to generate login suffix: %w", genErr)
			}
			user.Login = user.Login + "-" + strings.ToLower(suffix)
			err = m.deps.Directory.Create(ctx, user)
		default:
			return fmt.Errorf("failed to find account by email: %w", findErr)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	m.user = user
	m.record.AccountID = user.ID
	m.log.Info("web pro account created", "account_id", user.ID, "login", user.Login)
	return nil
}

// bind writes the key, reference id and provenance. Each entry is written
// once; a key that lost the race to a different key is a mismatch.
func (m *ConnectionManager) bind(ctx context.Context) error {
	id := m.user.ID

	stored, err := m.deps.Directory.SetMetadataOnce(ctx, id, core.MetaKey, m.record.Key)
	if err != nil {
		return fmt.Errorf("failed to save key: %w", err)
	}
	if !stored {
		existing, _, err := m.deps.Directory.GetMetadata(ctx, id, core.MetaKey)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		if existing != m.record.Key {
			return core.ErrKeyMismatch
		}
	}
	m.state = core.StateBound

	addedBy := m.deps.Authorizer.CurrentActor(ctx)
	addedAt := m.deps.Now().UTC().Truncate(time.Second)

	entries := []struct {
		key   string
		value string
	}{
		{core.MetaReferenceID, strconv.FormatInt(m.record.ReferenceID, 10)},
		{core.MetaLocation, m.record.Location},
		{core.MetaAddedBy, addedBy},
		{core.MetaAddedAt, addedAt.Format(time.RFC3339)},
	}
	for _, e := range entries {
		if _, err := m.deps.Directory.SetMetadataOnce(ctx, id, e.key, e.value); err != nil {
			return fmt.Errorf("failed to save %s: %w", e.key, err)
		}
	}

	// provenance reflects whoever won the write
	if v, ok, err := m.deps.Directory.GetMetadata(ctx, id, core.MetaAddedBy); err == nil && ok {
		addedBy = v
	}
	if v, ok, err := m.deps.Directory.GetMetadata(ctx, id, core.MetaAddedAt); err == nil && ok {
		if t, perr := time.Parse(time.RFC3339, v); perr == nil {
			addedAt = t
		}
	}
	m.record.AddedBy = addedBy
	m.record.AddedAt = addedAt
	return nil
}

// exchange issues a signed token, trades it for a revoke credential and
// stores the credential encrypted. The credential is written once; a caller
// that loses the write keeps the stored one and revokes its own.
func (m *ConnectionManager) exchange(ctx context.Context) error {
	if _, ok, err := m.revokeCredential(ctx); err != nil {
		return err
	} else if ok {
		m.state = core.StateConnected
		return nil
	}

	signed, err := m.deps.Tokens.Generate(m.record)
	if err != nil {
		return fmt.Errorf("%w: failed to sign token: %v", core.ErrConnectFailed, err)
	}

	credential, err := m.deps.Platform.ExchangeToken(ctx, m.record, signed)
	if err != nil {
		m.log.Warn("token exchange failed",
			"account_id", m.user.ID,
			"reference_id", m.record.ReferenceID,
			"error", err,
		)
		return fmt.Errorf("%w: %v", core.ErrConnectFailed, err)
	}
	if credential == "" {
		return fmt.Errorf("%w: %v", core.ErrConnectFailed, core.ErrNoCredential)
	}

	sealed, err := m.deps.Secrets.Encrypt(credential)
	if err != nil {
		return fmt.Errorf("failed to encrypt revoke credential: %w", err)
	}
	if err := m.storeCredential(ctx, credential, sealed); err != nil {
		return err
	}

	m.state = core.StateConnected
	return nil
}

func (m *ConnectionManager) storeCredential(ctx context.Context, credential, sealed string) error {
	stored, err := m.deps.Directory.SetMetadataOnce(ctx, m.user.ID, core.MetaRevokeCredential, sealed)
	if err != nil {
		return fmt.Errorf("failed to save revoke credential: %w", err)
	}
	if stored {
		return nil
	}

	if _, ok, err := m.revokeCredential(ctx); err != nil {
		return err
	} else if !ok {
		// the stored entry is unreadable and cannot revoke anything
		if err := m.deps.Directory.SetMetadata(ctx, m.user.ID, core.MetaRevokeCredential, sealed); err != nil {
			return fmt.Errorf("failed to save revoke credential: %w", err)
		}
		return nil
	}

	m.log.Debug("revoke credential stored concurrently", "account_id", m.user.ID)
	if err := m.deps.Platform.NotifyRevoke(ctx, credential, m.record.ReferenceID); err != nil {
		m.log.Warn("failed to revoke surplus credential",
			"account_id", m.user.ID,
			"reference_id", m.record.ReferenceID,
			"error", err,
		)
	}
	return nil
}

// Disconnect removes every stored connection entry and then notifies the
// platform. Platform failures are logged and swallowed. Disconnecting a
// record with nothing stored succeeds.
func (m *ConnectionManager) Disconnect(ctx context.Context) error {
	if m.user == nil {
		m.clear()
		return nil
	}

	if m.record.ReferenceID == 0 {
		if ref, ok, err := m.deps.Directory.GetMetadata(ctx, m.user.ID, core.MetaReferenceID); err == nil && ok {
			m.record.ReferenceID, _ = strconv.ParseInt(ref, 10, 64)
		}
	}

	var errs []error
	for _, key := range core.ConnectionMetaKeys {
		if err := m.deps.Directory.DeleteMetadata(ctx, m.user.ID, key); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}

	if err := m.Revoke(ctx); err != nil {
		errs = append(errs, err)
	}

	m.log.Info("web pro disconnected", "account_id", m.user.ID, "reference_id", m.record.ReferenceID)
	m.clear()
	return errors.Join(errs...)
}

// Revoke tells the platform the connection is gone, then deletes the
// stored credential whether or not the platform heard about it.
func (m *ConnectionManager) Revoke(ctx context.Context) error {
	if m.user == nil {
		return nil
	}

	credential, ok, err := m.revokeCredential(ctx)
	if err != nil {
		m.log.Warn("skipping revoke notification", "account_id", m.user.ID, "error", err)
	}
	if ok {
		if err := m.deps.Platform.NotifyRevoke(ctx, credential, m.record.ReferenceID); err != nil {
			m.log.Warn("revoke notification failed",
				"account_id", m.user.ID,
				"reference_id", m.record.ReferenceID,
				"error", err,
			)
		}
	}

	if err := m.deps.Directory.DeleteMetadata(ctx, m.user.ID, core.MetaRevokeCredential); err != nil {
		return fmt.Errorf("failed to delete revoke credential: %w", err)
	}
	if m.state == core.StateConnected {
		m.state = core.StateBound
	}
	return nil
}

func (m *ConnectionManager) clear() {
	accountID := m.record.AccountID
	m.record = core.Record{AccountID: accountID}
	if m.user != nil {
		m.record.Email = m.user.Email
		m.record.FirstName = m.user.FirstName
		m.record.LastName = m.user.LastName
	}
	m.state = core.StateDisconnected
}

// State is the state as of the last operation; IsConnected re-reads storage
func (m *ConnectionManager) State() core.State {
	return m.state
}

func (m *ConnectionManager) Record() core.Record {
	return m.record
}

func (m *ConnectionManager) View() core.RecordView {
	return core.RecordView{
		Record: m.record,
		Name:   m.record.DisplayName(),
		State:  m.state,
	}
}

// loginFromEmail keeps the local part of email, minus anything that is not
// a letter, digit, dot, dash or underscore
func loginFromEmail(email string) string {
	local := email
	if i := strings.LastIndex(email, "@"); i >= 0 {
		local = email[:i]
	}

	login := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return -1
	}, local)

	if login == "" {
		return "webpro"
	}
	return login
}
