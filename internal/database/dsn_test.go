package database

import (
	"strings"
	"testing"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User: "lumo",
		Name: "lumo_growth",
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	expected := "host=localhost port=5432 user=lumo dbname=lumo_growth sslmode=disable"
	if dsn != expected {
		t.Fatalf("expected %q, got %q", expected, dsn)
	}
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "pass",
		Options: map[string]string{
			"sslmode":     "require",
			"search_path": "public",
		},
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	if !containsAll(dsn,
		"host=db.example.com",
		"port=6543",
		"password=pass",
		"sslmode=require",
		"search_path=public",
	) {
		t.Fatalf("unexpected dsn: %q", dsn)
	}
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	if _, err := buildPostgresDSN(Config{}); err == nil {
		t.Fatal("expected error for missing user and database name")
	}
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User: "lumo",
		Name: "lumo_growth",
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	if !strings.HasPrefix(dsn, "lumo@tcp(127.0.0.1:3306)/lumo_growth?") {
		t.Fatalf("unexpected dsn prefix: %q", dsn)
	}
	if !containsAll(dsn, "charset=utf8mb4", "parseTime=True", "loc=Local") {
		t.Fatalf("expected default options in dsn: %q", dsn)
	}
}

func TestBuildMySQLDSNWithPassword(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	if !strings.HasPrefix(dsn, "user:secret@tcp(") {
		t.Fatalf("expected credentials in dsn: %q", dsn)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}
