package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestResidualCoreErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("build: %w", &ResidualCoreError{Unpeeled: 12, Attempts: 3, Gamma: 1.1})

	if !errors.Is(err, ErrResidualCore) {
		t.Fatalf("errors.Is(%v, ErrResidualCore) = false", err)
	}
	if errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("errors.Is(%v, ErrDuplicateKey) = true", err)
	}

	var rce *ResidualCoreError
	if !errors.As(err, &rce) {
		t.Fatal("errors.As did not find ResidualCoreError")
	}
	if rce.Unpeeled != 12 || rce.Attempts != 3 {
		t.Errorf("got %+v", rce)
	}

	want := "build: peelhash: peeling left a non-empty residual core: 12 keys unpeeled after 3 attempts at gamma 1.100"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
