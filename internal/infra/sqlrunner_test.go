package infra

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	query := "--sql 8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7\nselect 1;\n"
	marker, body, err := ExtractMarker(query)
	if err != nil {
		t.Fatalf("ExtractMarker() error: %v", err)
	}
	if marker != "8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7" {
		t.Fatalf("marker = %q", marker)
	}
	if strings.TrimSpace(body) != "select 1;" {
		t.Fatalf("body = %q", body)
	}
}

func TestExtractMarkerRejectsUnmarked(t *testing.T) {
	cases := []string{
		"select 1;",
		"--sql not-a-uuid\nselect 1;",
		"-- sql 8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7\nselect 1;",
	}
	for _, query := range cases {
		if _, _, err := ExtractMarker(query); !errors.Is(err, ErrMissingMarker) {
			t.Fatalf("ExtractMarker(%q) error = %v, want ErrMissingMarker", query, err)
		}
	}
	if _, _, err := ExtractMarker("   "); err == nil {
		t.Fatalf("ExtractMarker(blank) expected error")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(pgx.ErrNoRows) {
		t.Fatalf("IsNoRows(pgx.ErrNoRows) = false")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatalf("IsNoRows(other) = true")
	}
}
