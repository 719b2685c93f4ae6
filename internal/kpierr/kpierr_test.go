package kpierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsKind(t *testing.T) {
	err := Missing("Energy consumption, total", []string{"energy_by_source"})

	if !errors.Is(err, MissingColumns) {
		t.Errorf("errors.Is(err, MissingColumns) = false, want true")
	}
	if errors.Is(err, Calculation) {
		t.Errorf("errors.Is(err, Calculation) = true, want false")
	}

	wrapped := fmt.Errorf("recompute: %w", err)
	if got := KindOf(wrapped); got != MissingColumns {
		t.Errorf("KindOf() = %q, want %q", got, MissingColumns)
	}
}

func TestErrorMessage(t *testing.T) {
	err := Missing("Total waste in tonnes", []string{"a", "b"})
	want := "missing_columns [Total waste in tonnes]: Missing columns: a, b"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(EmbeddingService, "Narrative KPI", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable through errors.Is")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf(plain error) should be empty")
	}
}
