package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lborres/webpro/core"
)

// ConnectionService is the long-lived entry point for HTTP adapters. It
// builds a fresh ConnectionManager for every call.
type ConnectionService struct {
	deps     ConnectionDeps
	triggers *Triggers
}

// Ensure ConnectionService implements ConnectionHandler
var _ core.ConnectionHandler = (*ConnectionService)(nil)

func NewConnectionService(deps ConnectionDeps) (*ConnectionService, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()

	s := &ConnectionService{deps: deps}
	s.triggers = NewTriggers(s, deps.Logger)
	return s, nil
}

func (s *ConnectionService) ResolveByAccount(ctx context.Context, accountID, key string) (*ConnectionManager, error) {
	return ResolveByAccount(ctx, s.deps, accountID, key)
}

func (s *ConnectionService) ResolveByKey(ctx context.Context, key string) (*ConnectionManager, error) {
	return ResolveByKey(ctx, s.deps, key)
}

func (s *ConnectionService) Triggers() *Triggers {
	return s.triggers
}

// CheckKey previews a key without changing anything. Keys that cannot be
// resolved report KeyCheckInvalid rather than an error.
func (s *ConnectionService) CheckKey(ctx context.Context, key string) (*core.KeyCheck, error) {
	if key == "" {
		return nil, core.ErrInvalidArgument
	}

	m, err := s.ResolveByKey(ctx, key)
	switch {
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrKeyMismatch),
		errors.Is(err, core.ErrIdentityConflict):
		return &core.KeyCheck{Status: core.KeyCheckInvalid, Key: key}, nil
	case err != nil:
		return nil, err
	}

	connected, err := m.IsConnected(ctx)
	if err != nil {
		return nil, err
	}

	record := m.Record()
	check := &core.KeyCheck{
		Status:   core.KeyCheckSuccess,
		Name:     record.DisplayName(),
		Email:    record.Email,
		Location: record.Location,
		Key:      key,
	}
	if connected {
		check.Status = core.KeyCheckConnected
	}
	return check, nil
}

// Connect resolves key and connects the web pro it belongs to
func (s *ConnectionService) Connect(ctx context.Context, key string) (*core.ConnectResult, error) {
	m, err := s.ResolveByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	accountID, err := m.Connect(ctx)
	if err != nil {
		return nil, err
	}

	return &core.ConnectResult{
		AccountID: accountID,
		Record:    m.View(),
	}, nil
}

func (s *ConnectionService) Status(ctx context.Context, accountID string) (*core.RecordView, error) {
	if accountID == "" {
		return nil, core.ErrInvalidArgument
	}

	m, err := s.ResolveByAccount(ctx, accountID, "")
	if err != nil {
		return nil, err
	}

	view := m.View()
	return &view, nil
}

func (s *ConnectionService) SetKey(ctx context.Context, accountID, key string) (*core.RecordView, error) {
	if accountID == "" || key == "" {
		return nil, core.ErrInvalidArgument
	}

	m, err := s.ResolveByAccount(ctx, accountID, "")
	if err != nil {
		return nil, err
	}

	if _, err := m.SetKey(ctx, key); err != nil {
		return nil, err
	}

	view := m.View()
	return &view, nil
}

func (s *ConnectionService) Disconnect(ctx context.Context, accountID string) error {
	if accountID == "" {
		return core.ErrInvalidArgument
	}
	if !s.deps.Authorizer.CanManageUsers(ctx) {
		return core.ErrPermissionDenied
	}

	m, err := s.ResolveByAccount(ctx, accountID, "")
	if err != nil {
		return err
	}

	if err := m.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	return nil
}

func (s *ConnectionService) RoleChanged(ctx context.Context, accountID, newRole string) error {
	return s.triggers.OnRoleChange(ctx, accountID, newRole)
}

func (s *ConnectionService) AccountDeleted(ctx context.Context, accountID string) error {
	return s.triggers.OnAccountDeleted(ctx, accountID)
}
