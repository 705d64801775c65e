package backend

import (
	"context"
	"path/filepath"
	"testing"

	"spendwise/internal/config"
	"spendwise/internal/ledger/memory"
	"spendwise/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil config should fail")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("unknown backend should fail")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/x.db"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"mysql without host", Config{Type: MySQLBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		store, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := store.(*memory.Store); !ok {
			t.Errorf("got %T, want *memory.Store", store)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db", "ledger.db")
		store, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		if _, ok := store.(*storage.SQLiteRepository); !ok {
			t.Errorf("got %T, want *storage.SQLiteRepository", store)
		}
		if err := store.Ping(ctx); err != nil {
			t.Errorf("Ping() = %v", err)
		}
		version, dirty, err := storage.SchemaVersion(path)
		if err != nil || dirty || version == 0 {
			t.Errorf("schema version = %d dirty=%v err=%v, want migrated", version, dirty, err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: "sheets"}); err == nil {
			t.Error("expected an error")
		}
	})
}
