package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lborres/webpro/core"
	"github.com/lborres/webpro/pkg/crypto"
)

// Directory is an in-process core.UserDirectory for development and tests.
// Nothing survives a restart.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*core.User
	meta  map[string]map[string]string
	ids   *crypto.IDGenerator
	now   func() time.Time
}

var _ core.UserDirectory = (*Directory)(nil)

func NewDirectory() *Directory {
	ids, err := crypto.NewIDGenerator("usr_", "", 0)
	if err != nil {
		// the default alphabet is always valid
		panic(err)
	}
	return &Directory{
		users: make(map[string]*core.User),
		meta:  make(map[string]map[string]string),
		ids:   ids,
		now:   time.Now,
	}
}

func (d *Directory) FindByID(ctx context.Context, id string) (*core.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (d *Directory) Create(ctx context.Context, u *core.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.Login == u.Login {
			return core.ErrUserExists
		}
	}

	id, err := d.ids.New()
	if err != nil {
		return err
	}

	now := d.now()
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now

	cp := *u
	d.users[id] = &cp
	return nil
}

func (d *Directory) SetRole(ctx context.Context, id, role string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return core.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = d.now()
	return nil
}

func (d *Directory) GetMetadata(ctx context.Context, id, key string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.meta[id][key]
	return v, ok, nil
}

func (d *Directory) SetMetadata(ctx context.Context, id, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[id]; !ok {
		return core.ErrUserNotFound
	}
	d.entries(id)[key] = value
	return nil
}

func (d *Directory) SetMetadataOnce(ctx context.Context, id, key, value string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[id]; !ok {
		return false, core.ErrUserNotFound
	}
	entries := d.entries(id)
	if _, exists := entries[key]; exists {
		return false, nil
	}
	entries[key] = value
	return true, nil
}

func (d *Directory) DeleteMetadata(ctx context.Context, id, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.meta[id], key)
	return nil
}

// DeleteUser removes a user and its metadata
func (d *Directory) DeleteUser(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[id]; !ok {
		return core.ErrUserNotFound
	}
	delete(d.users, id)
	delete(d.meta, id)
	return nil
}

// entries must be called with the write lock held
func (d *Directory) entries(id string) map[string]string {
	m, ok := d.meta[id]
	if !ok {
		m = make(map[string]string)
		d.meta[id] = m
	}
	return m
}
