package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lborres/webpro/core"
)

const (
	testKey   = "abc123"
	testEmail = "pro@example.com"
)

var testNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	deps      ConnectionDeps
	directory *FakeDirectory
	platform  *FakePlatform
	auth      *FakeAuthorizer
}

func newTestEnv() *testEnv {
	directory := NewFakeDirectory()
	platform := NewFakePlatform()
	platform.AddKey(testKey, core.Verification{
		Email:       testEmail,
		FirstName:   "Pat",
		LastName:    "Pro",
		ReferenceID: 42,
		City:        "Austin",
		State:       &core.NamedPlace{Name: "Texas"},
		Country:     &core.NamedPlace{Name: "US"},
	})
	auth := &FakeAuthorizer{Actor: "owner", Allowed: true}

	return &testEnv{
		deps: ConnectionDeps{
			Directory:  directory,
			Platform:   platform,
			Secrets:    &FakeSecretStore{},
			Tokens:     &FakeTokenIssuer{},
			Authorizer: auth,
			Passwords:  FakePasswords{},
			Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
			Now:        func() time.Time { return testNow },
		},
		directory: directory,
		platform:  platform,
		auth:      auth,
	}
}

// connect resolves testKey and connects it, failing the test on error
func (e *testEnv) connect(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	m, err := ResolveByKey(ctx, e.deps, testKey)
	if err != nil {
		t.Fatalf("ResolveByKey() error = %v", err)
	}
	id, err := m.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return id
}

func (e *testEnv) isConnected(t *testing.T, accountID string) bool {
	t.Helper()
	m, err := ResolveByAccount(context.Background(), e.deps, accountID, "")
	if err != nil {
		t.Fatalf("ResolveByAccount() error = %v", err)
	}
	connected, err := m.IsConnected(context.Background())
	if err != nil {
		t.Fatalf("IsConnected() error = %v", err)
	}
	return connected
}

// Requirement: resolution needs an account id or key, and fails when neither resolves.
func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name    string
		resolve func(ctx context.Context, deps ConnectionDeps) (*ConnectionManager, error)
		wantErr error
	}{
		{
			name: "nothing supplied",
			resolve: func(ctx context.Context, deps ConnectionDeps) (*ConnectionManager, error) {
				return ResolveByAccount(ctx, deps, "", "")
			},
			wantErr: core.ErrInvalidArgument,
		},
		{
			name: "empty key",
			resolve: func(ctx context.Context, deps ConnectionDeps) (*ConnectionManager, error) {
				return ResolveByKey(ctx, deps, "")
			},
			wantErr: core.ErrInvalidArgument,
		},
		{
			name: "unknown account",
			resolve: func(ctx context.Context, deps ConnectionDeps) (*ConnectionManager, error) {
				return ResolveByAccount(ctx, deps, "user_404", "")
			},
			wantErr: core.ErrNotFound,
		},
		{
			name: "rejected key",
			resolve: func(ctx context.Context, deps ConnectionDeps) (*ConnectionManager, error) {
				return ResolveByKey(ctx, deps, "not-a-key")
			},
			wantErr: core.ErrNotFound,
		},
		{
			name: "unknown account with rejected key",
			resolve: func(ctx context.Context, deps ConnectionDeps) (*ConnectionManager, error) {
				return ResolveByAccount(ctx, deps, "user_404", "not-a-key")
			},
			wantErr: core.ErrNotFound,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			env := newTestEnv()

			// Act
			m, err := test.resolve(context.Background(), env.deps)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Errorf("error = %v, want %v", err, test.wantErr)
			}
			if m != nil {
				t.Error("manager should be nil on error")
			}
		})
	}
}

func TestResolveByKey_PopulatesFromPlatform(t *testing.T) {
	// Arrange
	env := newTestEnv()

	// Act
	m, err := ResolveByKey(context.Background(), env.deps, testKey)

	// Assert
	if err != nil {
		t.Fatalf("ResolveByKey() error = %v", err)
	}
	r := m.Record()
	if r.AccountID != "" {
		t.Errorf("AccountID = %q, want empty before connect", r.AccountID)
	}
	if r.ReferenceID != 42 || r.Email != testEmail || r.Key != testKey {
		t.Errorf("record = %+v", r)
	}
	if r.Location != "Austin, Texas, US" {
		t.Errorf("Location = %q, want %q", r.Location, "Austin, Texas, US")
	}
	if m.State() != core.StateKeyPending {
		t.Errorf("State() = %v, want key_pending", m.State())
	}
}

func TestResolveByAccount_UnknownAccountFallsBackToKey(t *testing.T) {
	env := newTestEnv()

	m, err := ResolveByAccount(context.Background(), env.deps, "user_404", testKey)

	if err != nil {
		t.Fatalf("ResolveByAccount() error = %v", err)
	}
	if m.State() != core.StateKeyPending {
		t.Errorf("State() = %v, want key_pending", m.State())
	}
}

func TestResolveByKey_IdentityConflict(t *testing.T) {
	// Arrange: directory matches emails case-insensitively
	env := newTestEnv()
	env.directory.AddUser(core.User{Email: "PRO@example.com", Login: "pro"})

	// Act
	_, err := ResolveByKey(context.Background(), env.deps, testKey)

	// Assert
	if !errors.Is(err, core.ErrIdentityConflict) {
		t.Errorf("error = %v, want ErrIdentityConflict", err)
	}
}

func TestResolveByAccount_CleansUpEmptyKey(t *testing.T) {
	// Arrange
	env := newTestEnv()
	id := env.directory.AddUser(core.User{Email: testEmail, Login: "pro"})
	env.directory.Seed(id, core.MetaKey, "")

	// Act
	m, err := ResolveByAccount(context.Background(), env.deps, id, "")

	// Assert
	if err != nil {
		t.Fatalf("ResolveByAccount() error = %v", err)
	}
	if _, ok := env.directory.Meta(id, core.MetaKey); ok {
		t.Error("empty key entry should be deleted")
	}
	if m.State() != core.StateUnresolved {
		t.Errorf("State() = %v, want unresolved", m.State())
	}
}

// Requirement: a bound key may be supplied again but never replaced.
func TestMatchKey(t *testing.T) {
	tests := []struct {
		name     string
		boundKey string
		email    string
		key      string
		wantErr  error
	}{
		{name: "same bound key", boundKey: testKey, email: testEmail, key: testKey},
		{name: "different bound key", boundKey: testKey, email: testEmail, key: "other", wantErr: core.ErrKeyMismatch},
		{name: "unbound key verifies to account email", email: testEmail, key: testKey},
		{name: "unbound key verifies to other email", email: "someone@example.com", key: testKey, wantErr: core.ErrKeyMismatch},
		{name: "unbound key rejected", email: testEmail, key: "not-a-key", wantErr: core.ErrKeyMismatch},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			env := newTestEnv()
			id := env.directory.AddUser(core.User{Email: test.email, Login: "pro"})
			if test.boundKey != "" {
				env.directory.Seed(id, core.MetaKey, test.boundKey)
			}

			// Act
			_, err := ResolveByAccount(context.Background(), env.deps, id, test.key)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Errorf("error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

// Requirement: connecting an unknown web pro creates an administrator
// account bound to the key.
func TestConnect_ProvisionsAccount(t *testing.T) {
	// Arrange
	env := newTestEnv()

	// Act
	id := env.connect(t)

	// Assert
	users := env.directory.Users()
	if len(users) != 1 {
		t.Fatalf("users = %d, want 1", len(users))
	}
	u := users[0]
	if u.ID != id {
		t.Errorf("Connect() = %q, want %q", id, u.ID)
	}
	if u.Email != testEmail || u.Role != core.RoleAdministrator {
		t.Errorf("user = %+v, want administrator %s", u, testEmail)
	}
	if u.Login != "pro" || u.DisplayName != "Pat Pro" {
		t.Errorf("login = %q, display = %q", u.Login, u.DisplayName)
	}
	if u.PasswordHash == "" {
		t.Error("account should have a placeholder password")
	}

	want := map[string]string{
		core.MetaKey:         testKey,
		core.MetaReferenceID: "42",
		core.MetaLocation:    "Austin, Texas, US",
		core.MetaAddedBy:     "owner",
		core.MetaAddedAt:     testNow.Format(time.RFC3339),
	}
	for key, value := range want {
		if got, _ := env.directory.Meta(id, key); got != value {
			t.Errorf("meta %s = %q, want %q", key, got, value)
		}
	}
	if sealed, _ := env.directory.Meta(id, core.MetaRevokeCredential); sealed == "rvk_from_platform" || sealed == "" {
		t.Errorf("revoke credential stored as %q, want sealed", sealed)
	}
	if !env.isConnected(t, id) {
		t.Error("IsConnected() = false after Connect")
	}
}

func TestConnect_PromotesExistingAccount(t *testing.T) {
	// Arrange
	env := newTestEnv()
	id := env.directory.AddUser(core.User{Email: testEmail, Login: "pat", Role: "editor"})

	// Act
	got := env.connect(t)

	// Assert
	if got != id {
		t.Errorf("Connect() = %q, want existing %q", got, id)
	}
	if env.directory.Creates() != 0 {
		t.Error("Connect() should not create an account when one exists")
	}
	u, _ := env.directory.FindByID(context.Background(), id)
	if u.Role != core.RoleAdministrator {
		t.Errorf("role = %q, want administrator", u.Role)
	}
}

func TestConnect_LoginTakenByOtherEmail(t *testing.T) {
	env := newTestEnv()
	env.directory.AddUser(core.User{Email: "pro@other.example", Login: "pro"})

	id := env.connect(t)

	u, _ := env.directory.FindByID(context.Background(), id)
	if u.Email != testEmail || u.Login == "pro" {
		t.Errorf("user = %+v, want new login for %s", u, testEmail)
	}
}

// Requirement: connect without privilege never mutates stored metadata.
func TestConnect_PermissionDenied(t *testing.T) {
	// Arrange
	env := newTestEnv()
	env.auth.Allowed = false
	m, _ := ResolveByKey(context.Background(), env.deps, testKey)

	// Act
	_, err := m.Connect(context.Background())

	// Assert
	if !errors.Is(err, core.ErrPermissionDenied) {
		t.Fatalf("Connect() error = %v, want ErrPermissionDenied", err)
	}
	if env.directory.Creates() != 0 || len(env.directory.writes) != 0 {
		t.Error("Connect() without privilege must not write anything")
	}
}

func TestConnect_MissingKey(t *testing.T) {
	env := newTestEnv()
	id := env.directory.AddUser(core.User{Email: testEmail, Login: "pro"})
	m, _ := ResolveByAccount(context.Background(), env.deps, id, "")

	_, err := m.Connect(context.Background())

	if !errors.Is(err, core.ErrMissingKey) {
		t.Errorf("Connect() error = %v, want ErrMissingKey", err)
	}
}

func TestConnect_AlreadyConnected(t *testing.T) {
	// Arrange
	env := newTestEnv()
	id := env.connect(t)
	m, _ := ResolveByAccount(context.Background(), env.deps, id, testKey)

	// Act
	got, err := m.Connect(context.Background())

	// Assert
	if err != nil || got != id {
		t.Errorf("Connect() = %q, %v; want %q, nil", got, err, id)
	}
	if env.platform.exchangeCalls != 1 {
		t.Errorf("exchange calls = %d, want 1", env.platform.exchangeCalls)
	}
}

// Requirement: two concurrent connects with the same key create one
// account and write the reference id once.
func TestConnect_Concurrent(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 2)
	errs := make([]error, 2)

	// Act
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := ResolveByKey(ctx, env.deps, testKey)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i], errs[i] = m.Connect(ctx)
		}(i)
	}
	wg.Wait()

	// Assert
	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: error = %v", i, err)
		}
	}
	if ids[0] != ids[1] {
		t.Errorf("callers got different accounts: %q and %q", ids[0], ids[1])
	}
	if n := len(env.directory.Users()); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
	if n := env.directory.Writes(core.MetaReferenceID); n != 1 {
		t.Errorf("reference id written %d times, want 1", n)
	}
	if n := env.directory.Writes(core.MetaAddedAt); n != 1 {
		t.Errorf("added at written %d times, want 1", n)
	}
	if !env.isConnected(t, ids[0]) {
		t.Error("IsConnected() = false after concurrent connect")
	}
}

// Requirement: a failed exchange leaves the account bound and SetKey repairs it.
func TestConnect_ExchangeFailureThenSetKey(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()
	env.platform.SetExchangeErr(errors.New("dial tcp: connection refused"))

	m, _ := ResolveByKey(ctx, env.deps, testKey)

	// Act
	_, err := m.Connect(ctx)

	// Assert
	if !errors.Is(err, core.ErrConnectFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectFailed", err)
	}
	if m.State() != core.StateBound {
		t.Errorf("State() = %v, want bound", m.State())
	}

	id := env.directory.Users()[0].ID
	if key, _ := env.directory.Meta(id, core.MetaKey); key != testKey {
		t.Errorf("key = %q, want %q", key, testKey)
	}
	if ref, _ := env.directory.Meta(id, core.MetaReferenceID); ref != "42" {
		t.Errorf("reference id = %q, want 42", ref)
	}
	if env.isConnected(t, id) {
		t.Fatal("IsConnected() = true after failed exchange")
	}

	// Arrange: platform recovers
	env.platform.SetExchangeErr(nil)
	repair, err := ResolveByAccount(ctx, env.deps, id, "")
	if err != nil {
		t.Fatalf("ResolveByAccount() error = %v", err)
	}

	// Act
	key, err := repair.SetKey(ctx, testKey)

	// Assert
	if err != nil || key != testKey {
		t.Fatalf("SetKey() = %q, %v; want %q, nil", key, err, testKey)
	}
	if !env.isConnected(t, id) {
		t.Error("IsConnected() = false after SetKey")
	}
	if n := env.directory.Creates(); n != 1 {
		t.Errorf("accounts created = %d, want 1", n)
	}
}

// Requirement: a connect that loses the credential write keeps the stored
// credential and revokes the one it was issued.
func TestConnect_CredentialStoredConcurrently(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()
	m, _ := ResolveByKey(ctx, env.deps, testKey)
	env.platform.SetExchangeErr(errors.New("timeout"))
	m.Connect(ctx)
	env.platform.SetExchangeErr(nil)

	id := env.directory.Users()[0].ID
	late, err := ResolveByAccount(ctx, env.deps, id, testKey)
	if err != nil {
		t.Fatalf("ResolveByAccount() error = %v", err)
	}
	winner, _ := (&FakeSecretStore{}).Encrypt("rvk_winner")
	env.platform.SetOnExchange(func() {
		env.directory.Seed(id, core.MetaRevokeCredential, winner)
	})

	// Act
	_, err = late.Connect(ctx)

	// Assert
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if sealed, _ := env.directory.Meta(id, core.MetaRevokeCredential); sealed != winner {
		t.Errorf("stored credential = %q, want the first writer's", sealed)
	}
	if revoked := env.platform.Revoked(); len(revoked) != 1 || revoked[0] != "rvk_from_platform" {
		t.Errorf("revoked = %v, want [rvk_from_platform]", revoked)
	}
	if late.State() != core.StateConnected {
		t.Errorf("State() = %v, want connected", late.State())
	}
}

// Requirement: an unreadable stored credential is replaced on connect.
func TestConnect_ReplacesUndecryptableCredential(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()
	id := env.connect(t)
	env.directory.SetMetadata(ctx, id, core.MetaRevokeCredential, "garbage")
	m, _ := ResolveByAccount(ctx, env.deps, id, testKey)

	// Act
	_, err := m.Connect(ctx)

	// Assert
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !env.isConnected(t, id) {
		t.Error("IsConnected() = false after replacing the credential")
	}
	if len(env.platform.Revoked()) != 0 {
		t.Errorf("revoked = %v, want none", env.platform.Revoked())
	}
}

func TestSetKey_Errors(t *testing.T) {
	tests := []struct {
		name     string
		boundKey string
		email    string
		allowed  bool
		key      string
		wantErr  error
	}{
		{name: "not allowed", email: testEmail, key: testKey, wantErr: core.ErrPermissionDenied},
		{name: "different bound key", boundKey: "old", email: testEmail, allowed: true, key: testKey, wantErr: core.ErrKeyMismatch},
		{name: "rejected key", email: testEmail, allowed: true, key: "not-a-key", wantErr: core.ErrKeyMismatch},
		{name: "email mismatch", email: "someone@example.com", allowed: true, key: testKey, wantErr: core.ErrKeyMismatch},
		{name: "empty key", email: testEmail, allowed: true, key: "", wantErr: core.ErrInvalidArgument},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			env := newTestEnv()
			env.auth.Allowed = test.allowed
			id := env.directory.AddUser(core.User{Email: test.email, Login: "pro"})
			if test.boundKey != "" {
				env.directory.Seed(id, core.MetaKey, test.boundKey)
			}
			m, err := ResolveByAccount(context.Background(), env.deps, id, "")
			if err != nil {
				t.Fatalf("ResolveByAccount() error = %v", err)
			}

			// Act
			key, err := m.SetKey(context.Background(), test.key)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Errorf("SetKey() error = %v, want %v", err, test.wantErr)
			}
			if key != "" {
				t.Errorf("SetKey() = %q, want empty on failure", key)
			}
		})
	}
}

// Requirement: connected iff bound key, non-zero reference id and a
// decryptable revoke credential all exist.
func TestIsConnected_Invariant(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		ref        string
		credential string
		want       bool
	}{
		{name: "all three", key: testKey, ref: "42", credential: fakeSealPrefix + "kvr", want: true},
		{name: "no key", ref: "42", credential: fakeSealPrefix + "kvr"},
		{name: "zero reference", key: testKey, ref: "0", credential: fakeSealPrefix + "kvr"},
		{name: "no reference", key: testKey, credential: fakeSealPrefix + "kvr"},
		{name: "no credential", key: testKey, ref: "42"},
		{name: "undecryptable credential", key: testKey, ref: "42", credential: "garbage"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			env := newTestEnv()
			id := env.directory.AddUser(core.User{Email: testEmail, Login: "pro"})
			for key, value := range map[string]string{
				core.MetaKey:              test.key,
				core.MetaReferenceID:      test.ref,
				core.MetaRevokeCredential: test.credential,
			} {
				if value != "" {
					env.directory.Seed(id, key, value)
				}
			}

			// Act
			got := env.isConnected(t, id)

			// Assert
			if got != test.want {
				t.Errorf("IsConnected() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestIsConnected_RereadsStorage(t *testing.T) {
	// Arrange
	env := newTestEnv()
	id := env.connect(t)
	m, _ := ResolveByAccount(context.Background(), env.deps, id, "")

	// Act: another request removes the credential
	env.directory.DeleteMetadata(context.Background(), id, core.MetaRevokeCredential)
	connected, err := m.IsConnected(context.Background())

	// Assert
	if err != nil || connected {
		t.Errorf("IsConnected() = %v, %v; want false, nil", connected, err)
	}
}

// Requirement: disconnect removes everything, notifies the platform and
// is idempotent.
func TestDisconnect(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()
	id := env.connect(t)
	m, _ := ResolveByAccount(ctx, env.deps, id, "")

	// Act
	err := m.Disconnect(ctx)

	// Assert
	if err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if n := env.directory.MetaCount(id); n != 0 {
		t.Errorf("%d metadata entries left after disconnect", n)
	}
	if revoked := env.platform.Revoked(); len(revoked) != 1 || revoked[0] != "rvk_from_platform" {
		t.Errorf("revoked = %v, want [rvk_from_platform]", revoked)
	}
	if env.platform.revokedRefs[0] != 42 {
		t.Errorf("revoked reference = %d, want 42", env.platform.revokedRefs[0])
	}
	if m.State() != core.StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if env.isConnected(t, id) {
		t.Error("IsConnected() = true after Disconnect")
	}

	// Act: again, on the same and a fresh manager
	if err := m.Disconnect(ctx); err != nil {
		t.Errorf("second Disconnect() error = %v", err)
	}
	again, _ := ResolveByAccount(ctx, env.deps, id, "")
	if err := again.Disconnect(ctx); err != nil {
		t.Errorf("Disconnect() on fresh manager error = %v", err)
	}
	if n := len(env.platform.Revoked()); n != 1 {
		t.Errorf("platform notified %d times, want 1", n)
	}
}

func TestDisconnect_PlatformUnreachable(t *testing.T) {
	// Arrange
	env := newTestEnv()
	id := env.connect(t)
	env.platform.revokeErr = errors.New("context deadline exceeded")
	m, _ := ResolveByAccount(context.Background(), env.deps, id, "")

	// Act
	err := m.Disconnect(context.Background())

	// Assert
	if err != nil {
		t.Errorf("Disconnect() error = %v, want nil", err)
	}
	if _, ok := env.directory.Meta(id, core.MetaRevokeCredential); ok {
		t.Error("revoke credential should be deleted even when notify fails")
	}
}

func TestDisconnect_LocalStorageFailure(t *testing.T) {
	env := newTestEnv()
	id := env.connect(t)
	m, _ := ResolveByAccount(context.Background(), env.deps, id, "")
	env.directory.deleteErr = errors.New("disk full")

	err := m.Disconnect(context.Background())

	if err == nil {
		t.Error("Disconnect() should report local storage failures")
	}
}

func TestRevoke_UndecryptableCredential(t *testing.T) {
	// Arrange
	env := newTestEnv()
	id := env.directory.AddUser(core.User{Email: testEmail, Login: "pro"})
	env.directory.Seed(id, core.MetaRevokeCredential, "garbage")
	m, _ := ResolveByAccount(context.Background(), env.deps, id, "")

	// Act
	err := m.Revoke(context.Background())

	// Assert
	if err != nil {
		t.Errorf("Revoke() error = %v", err)
	}
	if len(env.platform.Revoked()) != 0 {
		t.Error("platform should not be notified without a readable credential")
	}
	if _, ok := env.directory.Meta(id, core.MetaRevokeCredential); ok {
		t.Error("credential should be deleted")
	}
}

func TestLoginFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{email: "pro@example.com", want: "pro"},
		{email: "pat.pro+sites@example.com", want: "pat.prosites"},
		{email: "odd@name@example.com", want: "oddname"},
		{email: "@example.com", want: "webpro"},
		{email: "Zoë_O'Neil@example.com", want: "Zo_ONeil"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.email, func(t *testing.T) {
			if got := loginFromEmail(test.email); got != test.want {
				t.Errorf("loginFromEmail(%q) = %q, want %q", test.email, got, test.want)
			}
		})
	}
}
