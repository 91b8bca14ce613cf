package db

import (
	"io/fs"
	"strings"
	"testing"
)

// Every up migration needs a matching down so Run can be reverted by hand.
func TestMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name()] = true
	}
	if len(names) == 0 {
		t.Fatal("no migrations embedded")
	}
	for n := range names {
		if strings.HasSuffix(n, ".up.sql") {
			down := strings.TrimSuffix(n, ".up.sql") + ".down.sql"
			if !names[down] {
				t.Errorf("missing %s for %s", down, n)
			}
		}
	}
}

func TestMigrations_UsersEmailUnique(t *testing.T) {
	b, err := fs.ReadFile(migrationsFS, "migrations/000001_create_users.up.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "UNIQUE (email)") {
		t.Error("users table must carry a unique constraint on email")
	}
}
