package store

import (
	"context"
	"embed"
	"strings"
	"testing"
)

//go:embed testdata/migrations
var testMigrations embed.FS

// fakeExecutor registra los Exec y simula la versión máxima aplicada.
type fakeExecutor struct {
	maxVersion int
	execs      []string
}

func (f *fakeExecutor) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, strings.TrimSpace(sql))
	return nil
}

func (f *fakeExecutor) QueryRowScan(_ context.Context, _ string, dest ...any) error {
	if p, ok := dest[0].(*int); ok {
		*p = f.maxVersion
	}
	return nil
}

func TestParseMigrations(t *testing.T) {
	m := NewMigrator(testMigrations, "testdata/migrations")

	migs, err := m.ParseMigrations()
	if err != nil {
		t.Fatalf("ParseMigrations: %v", err)
	}
	if len(migs) != 2 {
		t.Fatalf("len = %d, want 2 (notes.txt debe ignorarse)", len(migs))
	}
	if migs[0].Version != 1 || migs[0].Name != "create" {
		t.Errorf("migs[0] = %d/%s, want 1/create", migs[0].Version, migs[0].Name)
	}
	if migs[1].Version != 2 || migs[1].Name != "alter" {
		t.Errorf("migs[1] = %d/%s, want 2/alter", migs[1].Version, migs[1].Name)
	}
	if !strings.Contains(migs[0].SQL, "CREATE TABLE demo") {
		t.Errorf("unexpected SQL: %q", migs[0].SQL)
	}
}

func TestRunAppliesPending(t *testing.T) {
	m := NewMigrator(testMigrations, "testdata/migrations")
	exec := &fakeExecutor{}

	res, err := m.Run(context.Background(), exec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Applied) != 2 || res.Applied[0] != 1 || res.Applied[1] != 2 {
		t.Fatalf("Applied = %v, want [1 2]", res.Applied)
	}
	if len(res.Skipped) != 0 {
		t.Fatalf("Skipped = %v, want empty", res.Skipped)
	}
}

func TestRunSkipsApplied(t *testing.T) {
	m := NewMigrator(testMigrations, "testdata/migrations")
	exec := &fakeExecutor{maxVersion: 1}

	res, err := m.Run(context.Background(), exec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Applied) != 1 || res.Applied[0] != 2 {
		t.Fatalf("Applied = %v, want [2]", res.Applied)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != 1 {
		t.Fatalf("Skipped = %v, want [1]", res.Skipped)
	}
}

func TestRunIdempotent(t *testing.T) {
	m := NewMigrator(testMigrations, "testdata/migrations")
	exec := &fakeExecutor{maxVersion: 2}

	res, err := m.Run(context.Background(), exec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Applied) != 0 {
		t.Fatalf("Applied = %v, want empty", res.Applied)
	}
}
