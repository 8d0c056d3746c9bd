package database

import (
	"context"
	"path/filepath"
	"testing"

	"referralhub/internal/bootstrap/config"
)

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "referralhub.sqlite")

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("Open() expected error for unknown driver")
	}
}

func TestEnsureMySQLParams(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "u:p@tcp(db:3306)/rh", want: "u:p@tcp(db:3306)/rh?charset=utf8mb4&parseTime=true"},
		{in: "u:p@tcp(db:3306)/rh?loc=UTC", want: "u:p@tcp(db:3306)/rh?loc=UTC&charset=utf8mb4&parseTime=true"},
		{in: "u:p@tcp(db:3306)/rh?charset=latin1&parseTime=false", want: "u:p@tcp(db:3306)/rh?charset=latin1&parseTime=false"},
	}
	for _, tc := range cases {
		if got := ensureMySQLParams(tc.in); got != tc.want {
			t.Fatalf("ensureMySQLParams(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
