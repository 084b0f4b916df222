package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLinesSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLinesSink(&buf)

	err := s.Publish(context.Background(), "src/api/a.py", []Diagnostic{
		{Range: Range{Line: 3, Column: 1}, Severity: "error", Message: "boom", Rule: "api", Kind: "boundary"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Publish(context.Background(), "src/api/a.py", nil); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}

	var first fileDiagnostics
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first.Path != "src/api/a.py" || len(first.Diagnostics) != 1 {
		t.Errorf("first = %+v", first)
	}
	if first.Diagnostics[0].Range.Line != 3 {
		t.Errorf("range = %+v", first.Diagnostics[0].Range)
	}

	var second fileDiagnostics
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if second.Diagnostics == nil || len(second.Diagnostics) != 0 {
		t.Errorf("retraction should publish an empty array: %s", lines[1])
	}
}

func TestMemorySinkRetraction(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	s.Publish(ctx, "a.py", []Diagnostic{{Message: "x"}})
	s.Publish(ctx, "b.py", []Diagnostic{{Message: "y"}, {Message: "z"}})
	if s.Total() != 3 {
		t.Fatalf("total = %d", s.Total())
	}

	s.Publish(ctx, "a.py", nil)
	if got := s.Get("a.py"); len(got) != 0 {
		t.Errorf("retracted file still has diagnostics: %+v", got)
	}
	if files := s.Files(); len(files) != 1 || files[0] != "b.py" {
		t.Errorf("files = %v", files)
	}
	if s.PublishCount() != 3 {
		t.Errorf("publish count = %d", s.PublishCount())
	}
}

func TestLimitedSinkDelivers(t *testing.T) {
	mem := NewMemorySink()
	s := NewLimitedSink(mem, 1000, 10)

	for i := 0; i < 5; i++ {
		if err := s.Publish(context.Background(), "a.py", []Diagnostic{{Message: "x"}}); err != nil {
			t.Fatal(err)
		}
	}
	if mem.PublishCount() != 5 {
		t.Errorf("publish count = %d", mem.PublishCount())
	}
}
