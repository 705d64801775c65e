//go:build integration

package mysql

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"spendwise/internal/ledger"
	"spendwise/internal/ledger/ledgertest"
	"spendwise/internal/log"
)

// Run with a disposable database:
//
//	MYSQL_TEST_HOST=127.0.0.1 MYSQL_TEST_PASSWORD=... go test -tags integration ./internal/ledger/mysql
func TestMySQLStoreConformance(t *testing.T) {
	host := os.Getenv("MYSQL_TEST_HOST")
	if host == "" {
		t.Skip("MYSQL_TEST_HOST not set")
	}
	cfg := DefaultConfig()
	cfg.Host = host
	cfg.Password = os.Getenv("MYSQL_TEST_PASSWORD")
	if v := os.Getenv("MYSQL_TEST_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("MYSQL_TEST_DB"); v != "" {
		cfg.DBName = v
	}
	if v, err := strconv.Atoi(os.Getenv("MYSQL_TEST_PORT")); err == nil {
		cfg.Port = v
	}
	cfg.ConnectRetries = 1
	cfg.LogLevel = "silent"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewClient(ctx, cfg, log.Discard())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	store := NewStore(client)
	if err := store.AutoMigrate(ctx); err != nil {
		t.Fatal(err)
	}

	// Tables are shared between subtests, so every factory call wipes them.
	ledgertest.Run(t, func(t *testing.T) ledger.Store {
		db := client.DB()
		for _, table := range []string{"transactions", "accounts", "users"} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				t.Fatalf("wipe %s: %v", table, err)
			}
		}
		return store
	})
}
