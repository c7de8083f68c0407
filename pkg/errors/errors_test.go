package errors

import (
	stderrors "errors"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Newf(CodeNotFound, "order %d not found", 99)
	if !stderrors.Is(err, ErrNotFound) {
		t.Fatalf("expected %v to match ErrNotFound", err)
	}
	if stderrors.Is(err, ErrConflict) {
		t.Fatalf("did not expect %v to match ErrConflict", err)
	}
}

func TestWrapKeepsCode(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(CodeStoreFailure, "insert order", cause)
	if CodeOf(err) != CodeStoreFailure {
		t.Fatalf("expected STORE_FAILURE, got %s", CodeOf(err))
	}
	if err.Error() != "[STORE_FAILURE] insert order: connection refused" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(nil) != CodeOK {
		t.Fatal("expected OK for nil")
	}
	if CodeOf(stderrors.New("boom")) != CodeUnknown {
		t.Fatal("expected UNKNOWN for plain error")
	}
}
