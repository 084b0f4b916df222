package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestIsCodeMatchesWrappedError(t *testing.T) {
	base := New(CodeConfigNotFound, "no config file in ancestry")
	wrapped := fmt.Errorf("scan failed: %w", base)

	if !IsCode(wrapped, CodeConfigNotFound) {
		t.Fatal("expected wrapped error to match CONFIG_NOT_FOUND")
	}
	if IsCode(wrapped, CodeConfigInvalid) {
		t.Fatal("unexpected match for CONFIG_INVALID")
	}
}

func TestAddContextPreservesCode(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), CodeWorkerTimeout, "extraction exceeded budget")
	err = AddContext(err, CtxPath, "src/api/a.py")

	if !IsCode(err, CodeWorkerTimeout) {
		t.Fatal("expected WORKER_TIMEOUT code to survive AddContext")
	}
	var de *DomainError
	if !stderrors.As(err, &de) {
		t.Fatal("expected DomainError")
	}
	if de.Context[CtxPath] != "src/api/a.py" {
		t.Fatalf("missing path context: %v", de.Context)
	}
}
