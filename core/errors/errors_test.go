package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestCodeOfWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("stake: %w", ErrLockNotExpired)
	if got := CodeOf(wrapped); got != 6005 {
		t.Fatalf("unexpected code %d", got)
	}
	if got := NameOf(wrapped); got != "LockNotExpired" {
		t.Fatalf("unexpected name %q", got)
	}
	if !stderrors.Is(wrapped, ErrLockNotExpired) {
		t.Fatalf("errors.Is should match wrapped sentinel")
	}
	if stderrors.Is(wrapped, ErrPoolPaused) {
		t.Fatalf("errors.Is matched the wrong sentinel")
	}
}

func TestCodeOfForeignError(t *testing.T) {
	err := stderrors.New("disk full")
	if CodeOf(err) != 0 || NameOf(err) != "Internal" {
		t.Fatalf("foreign error should map to Internal/0")
	}
}

func TestRegistryCodesUnique(t *testing.T) {
	seen := make(map[string]uint32)
	for code, err := range registry {
		if prev, ok := seen[err.Name]; ok {
			t.Fatalf("name %s registered twice (%d, %d)", err.Name, prev, code)
		}
		seen[err.Name] = code
	}
	if got, ok := Lookup(6009); !ok || got != ErrInvalidAmount {
		t.Fatalf("lookup 6009 failed")
	}
}
