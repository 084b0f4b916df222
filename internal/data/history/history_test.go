package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndRecent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := store.RecordRun(ctx, Run{
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			Duration:   120 * time.Millisecond,
			Kind:       "scan",
			Modules:    4,
			Edges:      7,
			Violations: i,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d", len(runs))
	}
	if runs[0].Violations != 2 || runs[1].Violations != 1 {
		t.Errorf("order wrong: %+v", runs)
	}
	if runs[0].ID == "" {
		t.Error("missing generated run ID")
	}
	if runs[0].Duration != 120*time.Millisecond {
		t.Errorf("duration = %v", runs[0].Duration)
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	store.Close()
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error")
	}
}
