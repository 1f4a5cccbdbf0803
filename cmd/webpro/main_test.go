package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lborres/webpro/core"
	"github.com/lborres/webpro/internal/config"
	"github.com/lborres/webpro/pkg/cache"
	"github.com/lborres/webpro/pkg/crypto"
)

func TestSetupLogger_Levels(t *testing.T) {
	tests := []struct {
		level       string
		format      string
		wantEnabled slog.Level
		wantSkipped slog.Level
	}{
		{level: "debug", wantEnabled: slog.LevelDebug, wantSkipped: slog.LevelDebug - 1},
		{level: "info", format: "json", wantEnabled: slog.LevelInfo, wantSkipped: slog.LevelDebug},
		{level: "warn", wantEnabled: slog.LevelWarn, wantSkipped: slog.LevelInfo},
		{level: "error", format: "json", wantEnabled: slog.LevelError, wantSkipped: slog.LevelWarn},
	}

	for _, test := range tests {
		test := test
		t.Run(test.level+"/"+test.format, func(t *testing.T) {
			logger := setupLogger(config.LoggingConfig{Level: test.level, Format: test.format})

			if !logger.Enabled(context.Background(), test.wantEnabled) {
				t.Errorf("level %v should be enabled", test.wantEnabled)
			}
			if logger.Enabled(context.Background(), test.wantSkipped) {
				t.Errorf("level %v should be skipped", test.wantSkipped)
			}
		})
	}
}

func TestColorHandler_GroupsPrefixAttrs(t *testing.T) {
	h := &colorHandler{state: &colorState{}}

	grouped := h.WithGroup("platform").WithAttrs([]slog.Attr{slog.String("op", "verify")}).(*colorHandler)

	if len(grouped.attrs) != 1 || grouped.attrs[0].Key != "platform.op" {
		t.Errorf("attrs = %v, want platform.op", grouped.attrs)
	}
	if grouped.state != h.state {
		t.Error("derived handlers must share the write lock")
	}
}

func TestAccessLogFormat_OmitsSecrets(t *testing.T) {
	format := accessLogFormat()

	for _, tag := range []string{"${body}", "${reqHeader:Authorization}", "${queryParams}"} {
		if strings.Contains(format, tag) {
			t.Errorf("access log format includes %s", tag)
		}
	}
}

func TestStaticActors_FromConfig(t *testing.T) {
	// Arrange
	denied := false
	admins := []config.AdminConfig{
		{Login: "owner", TokenHash: strings.ToUpper(crypto.HashToken("owner-token"))},
		{Login: "viewer", TokenHash: crypto.HashToken("viewer-token"), CanManageUsers: &denied},
	}

	// Act
	actors := staticActors(admins)

	// Assert
	owner, err := actors.ResolveActor(context.Background(), "owner-token")
	if err != nil || owner.Login != "owner" || !owner.CanManageUsers {
		t.Errorf("ResolveActor(owner) = %+v, %v", owner, err)
	}
	viewer, err := actors.ResolveActor(context.Background(), "viewer-token")
	if err != nil || viewer.CanManageUsers {
		t.Errorf("ResolveActor(viewer) = %+v, %v", viewer, err)
	}
}

func TestOpenCache_FallsBackToMemory(t *testing.T) {
	// Arrange
	cfg := &config.Config{Cache: config.CacheConfig{RedisURL: "redis://127.0.0.1:1/0"}}
	logger := setupLogger(config.LoggingConfig{Level: "error", Format: "json"})

	// Act
	c := openCache(context.Background(), cfg, logger)

	// Assert
	if _, ok := c.(*cache.InMemoryCache[*core.Verification]); !ok {
		t.Errorf("openCache() = %T, want the in-memory cache", c)
	}
}

func TestCheckKeyCmd_RequiresConfig(t *testing.T) {
	// Arrange
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "check-key", "abc123"})

	// Act
	err := cmd.ExecuteContext(context.Background())

	// Assert
	if err == nil {
		t.Error("check-key without a config file should fail")
	}
}

func TestMigrateCmd_RequiresDatabase(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "webpro.yaml")
	content := "site:\n  url: https://site.example\n  secret: 0123456789abcdef0123456789abcdef\nlogging:\n  format: json\n  level: error\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "migrate"})

	// Act
	err := cmd.ExecuteContext(context.Background())

	// Assert
	if err == nil || !strings.Contains(err.Error(), "database.url") {
		t.Errorf("migrate error = %v, want database.url requirement", err)
	}
}

// Requirement: a minted token resolves through the admins entry printed with it.
func TestAdminTokenCmd(t *testing.T) {
	// Arrange
	var out strings.Builder
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"admin-token", "owner"})

	// Act
	err := cmd.ExecuteContext(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("admin-token error = %v", err)
	}
	var token, hash string
	for _, line := range strings.Split(out.String(), "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "token: "); i >= 0 && !strings.HasPrefix(line, "token_hash") {
			token = strings.TrimSpace(line[i+len("token: "):])
		}
		if v, ok := strings.CutPrefix(line, "token_hash: "); ok {
			hash = strings.Trim(v, `"`)
		}
	}
	if token == "" || hash == "" {
		t.Fatalf("output missing token or hash:\n%s", out.String())
	}
	actors := staticActors([]config.AdminConfig{{Login: "owner", TokenHash: hash}})
	if actor, err := actors.ResolveActor(context.Background(), token); err != nil || actor.Login != "owner" {
		t.Errorf("ResolveActor() = %+v, %v", actor, err)
	}
}
