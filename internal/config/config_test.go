package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr = %q", cfg.Addr())
	}
	if cfg.Invites.TTLHours != 120 {
		t.Errorf("invite ttl = %d", cfg.Invites.TTLHours)
	}
	if cfg.InviteTTL() != 120*time.Hour {
		t.Errorf("invite ttl duration = %v", cfg.InviteTTL())
	}
	if cfg.Sessions.DefaultAutoLockMinutes != 5 {
		t.Errorf("auto lock = %d", cfg.Sessions.DefaultAutoLockMinutes)
	}
	if cfg.Auth.LoginRateLimit != 10 || cfg.Auth.LoginRateWindow != time.Minute {
		t.Errorf("login rate = %d/%v", cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow)
	}
	if len(cfg.CORS.AllowedOrigins) != 0 {
		t.Errorf("default origins should be empty, got %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rosterd.yaml")
	data := `
server:
  port: 9090
auth:
  secret: file-secret
invites:
  ttl_hours: 48
cors:
  allowed_origins: ["https://app.example.com"]
  allow_credentials: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Auth.Secret != "file-secret" {
		t.Errorf("secret = %q", cfg.Auth.Secret)
	}
	if cfg.Invites.TTLHours != 48 {
		t.Errorf("ttl = %d", cfg.Invites.TTLHours)
	}
	if !cfg.CORS.AllowCredentials || len(cfg.CORS.AllowedOrigins) != 1 {
		t.Errorf("cors = %+v", cfg.CORS)
	}
	// Untouched fields keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q", cfg.Server.Host)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_ROSTERD_FILE_SECRET", "expanded")

	dir := t.TempDir()
	path := filepath.Join(dir, "rosterd.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  secret: ${TEST_ROSTERD_FILE_SECRET}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.Secret != "expanded" {
		t.Errorf("secret = %q", cfg.Auth.Secret)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROSTERD_PORT", "7070")
	t.Setenv("ROSTERD_SECRET", "env-secret")
	t.Setenv("ROSTERD_INVITE_TTL_HOURS", "24")
	t.Setenv("ROSTERD_EMAIL_ENABLED", "true")
	t.Setenv("ROSTERD_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Auth.Secret != "env-secret" {
		t.Errorf("secret = %q", cfg.Auth.Secret)
	}
	if cfg.Invites.TTLHours != 24 {
		t.Errorf("ttl = %d", cfg.Invites.TTLHours)
	}
	if !cfg.Email.Enabled {
		t.Error("email should be enabled")
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[0] != want[0] || cfg.CORS.AllowedOrigins[1] != want[1] {
		t.Errorf("origins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestDatabaseURLForMigrate(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://u:p@h/db", "postgres://u:p@h/db?sslmode=disable"},
		{"postgres://u:p@h/db?x=1", "postgres://u:p@h/db?x=1&sslmode=disable"},
		{"postgres://u:p@h/db?sslmode=require", "postgres://u:p@h/db?sslmode=require"},
	}
	for _, tt := range tests {
		cfg := &Config{Database: DatabaseConfig{URL: tt.url}}
		if got := cfg.DatabaseURLForMigrate(); got != tt.want {
			t.Errorf("DatabaseURLForMigrate(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
