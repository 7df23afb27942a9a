package sqllint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLintRepositoryQueries(t *testing.T) {
	violations, err := Lint([]string{"../../sqlinline"})
	if err != nil {
		t.Fatalf("Lint() error: %v", err)
	}
	for _, v := range violations {
		t.Errorf("violation: %s", v)
	}
}

func TestLintFlagsMissingAndDuplicateMarkers(t *testing.T) {
	dir := t.TempDir()
	src := "package q\n\n" +
		"const A = `--sql 11111111-2222-3333-4444-555555555555\nselect 1;\n`\n\n" +
		"const B = `--sql 11111111-2222-3333-4444-555555555555\nselect 2;\n`\n\n" +
		"const C = `\nselect 3;\n`\n\n" +
		"const Label = \"select a plan\"\n"
	path := filepath.Join(dir, "q.go")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	violations, err := Lint([]string{dir})
	if err != nil {
		t.Fatalf("Lint() error: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %d: %v", len(violations), violations)
	}
	if violations[0].Name != "B" || !strings.Contains(violations[0].Message, "already used by A") {
		t.Fatalf("unexpected first violation: %s", violations[0])
	}
	if violations[1].Name != "C" || !strings.Contains(violations[1].Message, "missing") {
		t.Fatalf("unexpected second violation: %s", violations[1])
	}
}
