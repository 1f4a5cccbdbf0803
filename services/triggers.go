package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lborres/webpro/core"
)

type accountResolver interface {
	ResolveByAccount(ctx context.Context, accountID, key string) (*ConnectionManager, error)
}

// Triggers revoke access automatically when the site changes an account
// out from under a connected web pro
type Triggers struct {
	resolver accountResolver
	log      *slog.Logger
}

func NewTriggers(resolver accountResolver, logger *slog.Logger) *Triggers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Triggers{resolver: resolver, log: logger}
}

// OnRoleChange disconnects a connected web pro that is no longer an administrator
func (t *Triggers) OnRoleChange(ctx context.Context, accountID, newRole string) error {
	if newRole == core.RoleAdministrator {
		return nil
	}
	return t.disconnectIfConnected(ctx, accountID, "role_change")
}

// OnAccountDeleted disconnects a connected web pro before the account goes away
func (t *Triggers) OnAccountDeleted(ctx context.Context, accountID string) error {
	return t.disconnectIfConnected(ctx, accountID, "account_deleted")
}

func (t *Triggers) disconnectIfConnected(ctx context.Context, accountID, reason string) error {
	if accountID == "" {
		return core.ErrInvalidArgument
	}

	m, err := t.resolver.ResolveByAccount(ctx, accountID, "")
	if err != nil {
		// nothing resolvable means nothing to revoke
		t.log.Debug("trigger skipped", "account_id", accountID, "reason", reason, "error", err)
		return nil
	}

	connected, err := m.IsConnected(ctx)
	if err != nil {
		return fmt.Errorf("failed to check connection: %w", err)
	}
	if !connected {
		return nil
	}

	t.log.Info("revoking web pro access", "account_id", accountID, "reason", reason)
	return m.Disconnect(ctx)
}
