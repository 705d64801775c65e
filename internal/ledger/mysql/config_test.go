package mysql

import (
	"strings"
	"testing"

	"gorm.io/gorm/logger"
)

func TestConfigDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	dsn := cfg.DSN()

	if !strings.HasPrefix(dsn, "spendwise:secret@tcp(127.0.0.1:3306)/spendwise?") {
		t.Fatalf("unexpected dsn prefix: %s", dsn)
	}
	for _, want := range []string{"parseTime=True", "loc=UTC", "clientFoundRows=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no host", func(c *Config) { c.Host = "" }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"no user", func(c *Config) { c.User = "" }},
		{"no db", func(c *Config) { c.DBName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewLoggerLevels(t *testing.T) {
	// LogMode returns a new logger; only check that every level is accepted.
	for _, level := range []string{"info", "warn", "error", "silent", "bogus"} {
		var l logger.Interface = newLogger(level)
		if l == nil {
			t.Fatalf("nil logger for %q", level)
		}
	}
}
