package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"stagehand/internal/services"
)

type kindedError struct{ kind string }

func (e kindedError) Error() string     { return "kinded" }
func (e kindedError) ErrorKind() string { return e.kind }

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrNotFound, "roster", "add part", "performer missing", base)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"roster", "add part", "performer missing"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", services.Wrap(services.ErrValidation, "frames", "create", "bad", nil), services.KindValidation},
		{"not found", services.Wrap(services.ErrNotFound, "roster", "", "", nil), services.KindNotFound},
		{"conflict", services.Wrap(services.ErrConflict, "roster", "", "dup", nil), services.KindConflict},
		{"domain kind wins", fmt.Errorf("wrapped: %w", kindedError{kind: services.KindOverlap}), services.KindOverlap},
		{"plain", errors.New("disk on fire"), services.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Kind(tc.err); got != tc.want {
				t.Fatalf("Kind = %q, want %q", got, tc.want)
			}
		})
	}
}
