package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lborres/webpro/core"
)

// FakeDirectory is a test-only fake implementing core.UserDirectory.
// It keeps users and metadata in maps and exposes error fields for
// behavior injection.
type FakeDirectory struct {
	mu        sync.Mutex
	users     map[string]*core.User
	meta      map[string]map[string]string
	nextID    int
	writes    map[string]int // successful writes per metadata key
	creates   int
	findErr   error
	createErr error
	metaErr   error
	deleteErr error
}

var _ core.UserDirectory = (*FakeDirectory)(nil)

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		users:  make(map[string]*core.User),
		meta:   make(map[string]map[string]string),
		writes: make(map[string]int),
	}
}

// AddUser seeds a user and returns its id
func (f *FakeDirectory) AddUser(u core.User) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user_%d", f.nextID)
	}
	f.users[u.ID] = &u
	return u.ID
}

// Seed writes metadata directly, bypassing write-once and counters
func (f *FakeDirectory) Seed(id, key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meta[id] == nil {
		f.meta[id] = make(map[string]string)
	}
	f.meta[id][key] = value
}

func (f *FakeDirectory) Meta(id, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.meta[id][key]
	return v, ok
}

func (f *FakeDirectory) MetaCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.meta[id])
}

func (f *FakeDirectory) Writes(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[key]
}

func (f *FakeDirectory) Creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *FakeDirectory) Users() []core.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out
}

func (f *FakeDirectory) FindByID(ctx context.Context, id string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *FakeDirectory) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeDirectory) Create(ctx context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.Login == u.Login {
			return core.ErrUserExists
		}
	}
	f.nextID++
	f.creates++
	u.ID = fmt.Sprintf("user_%d", f.nextID)
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *FakeDirectory) SetRole(ctx context.Context, id, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return core.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (f *FakeDirectory) GetMetadata(ctx context.Context, id, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metaErr != nil {
		return "", false, f.metaErr
	}
	v, ok := f.meta[id][key]
	return v, ok, nil
}

func (f *FakeDirectory) SetMetadata(ctx context.Context, id, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metaErr != nil {
		return f.metaErr
	}
	if f.meta[id] == nil {
		f.meta[id] = make(map[string]string)
	}
	f.meta[id][key] = value
	f.writes[key]++
	return nil
}

func (f *FakeDirectory) SetMetadataOnce(ctx context.Context, id, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metaErr != nil {
		return false, f.metaErr
	}
	if f.meta[id] == nil {
		f.meta[id] = make(map[string]string)
	}
	if _, exists := f.meta[id][key]; exists {
		return false, nil
	}
	f.meta[id][key] = value
	f.writes[key]++
	return true, nil
}

func (f *FakeDirectory) DeleteMetadata(ctx context.Context, id, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.meta[id], key)
	return nil
}

// FakePlatform is a test-only fake implementing core.Platform
type FakePlatform struct {
	mu            sync.Mutex
	verifications map[string]*core.Verification
	credential    string
	verifyErr     error
	exchangeErr   error
	revokeErr     error
	onExchange    func()
	verifyCalls   int
	exchangeCalls int
	revoked       []string
	revokedRefs   []int64
}

var _ core.Platform = (*FakePlatform)(nil)

func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		verifications: make(map[string]*core.Verification),
		credential:    "rvk_from_platform",
	}
}

func (f *FakePlatform) AddKey(key string, v core.Verification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifications[key] = &v
}

func (f *FakePlatform) SetExchangeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeErr = err
}

// SetOnExchange runs fn during every successful exchange, before the
// credential is returned
func (f *FakePlatform) SetOnExchange(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onExchange = fn
}

func (f *FakePlatform) Revoked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

func (f *FakePlatform) VerifyKey(ctx context.Context, key string) (*core.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	v, ok := f.verifications[key]
	if !ok {
		return nil, core.ErrInvalidKey
	}
	cp := *v
	return &cp, nil
}

func (f *FakePlatform) ExchangeToken(ctx context.Context, record core.Record, signedToken string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	if signedToken == "" {
		return "", core.ErrNoCredential
	}
	if f.onExchange != nil {
		f.onExchange()
	}
	return f.credential, nil
}

func (f *FakePlatform) NotifyRevoke(ctx context.Context, credential string, referenceID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, credential)
	f.revokedRefs = append(f.revokedRefs, referenceID)
	return f.revokeErr
}

// FakeSecretStore "encrypts" by prefixing and reversing
type FakeSecretStore struct {
	encryptErr error
}

var _ core.SecretStore = (*FakeSecretStore)(nil)

const fakeSealPrefix = "sealed:"

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func (f *FakeSecretStore) Encrypt(plaintext string) (string, error) {
	if f.encryptErr != nil {
		return "", f.encryptErr
	}
	return fakeSealPrefix + reverse(plaintext), nil
}

func (f *FakeSecretStore) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, fakeSealPrefix) {
		return "", fmt.Errorf("%w: not sealed", core.ErrDecryption)
	}
	return reverse(strings.TrimPrefix(ciphertext, fakeSealPrefix)), nil
}

// FakeTokenIssuer returns a readable token
type FakeTokenIssuer struct {
	err error
}

var _ core.TokenIssuer = (*FakeTokenIssuer)(nil)

func (f *FakeTokenIssuer) Generate(record core.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("signed:%s:%d", record.AccountID, record.ReferenceID), nil
}

// FakeAuthorizer answers with fixed values regardless of ctx
type FakeAuthorizer struct {
	Actor   string
	Allowed bool
}

var _ core.Authorizer = (*FakeAuthorizer)(nil)

func (f *FakeAuthorizer) CurrentActor(ctx context.Context) string { return f.Actor }

func (f *FakeAuthorizer) CanManageUsers(ctx context.Context) bool { return f.Allowed }

// FakePasswords skips argon2 to keep tests fast
type FakePasswords struct{}

func (FakePasswords) Hash(password string) (string, error) { return "hash:" + password, nil }

func (FakePasswords) Verify(password, hash string) (bool, error) {
	return hash == "hash:"+password, nil
}
