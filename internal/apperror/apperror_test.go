// GO TESTING BASICS:
// Files ending in _test.go are only compiled by "go test". This one is in
// package apperror itself, so it can reach unexported helpers. Run it alone
// with: go test ./internal/apperror/ -run TestErrorsIs -v
package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// Each case is one row in a slice of structs, run as a named subtest. The
// rows below check that errors.Is sees the right kind through the AppError,
// including the refined login kinds that match their parent sentinel too.

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("lesson", 12),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "a@b.co"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated("missing token"),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "EmailNotFound matches its refined kind",
			err:       EmailNotFound("a@b.co"),
			target:    ErrEmailNotFound,
			wantMatch: true,
		},
		{
			name:      "EmailNotFound is also a NotFound",
			err:       EmailNotFound("a@b.co"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "InvalidPassword is also Unauthenticated",
			err:       InvalidPassword(),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "StorageFailure wraps ErrStorage",
			err:       StorageFailure("sqlite: insert", errors.New("disk full")),
			target:    ErrStorage,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("lesson", 12),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "InvalidPassword does NOT match ErrEmailNotFound",
			err:       InvalidPassword(),
			target:    ErrEmailNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("lesson", 12),
			wantMessage: "lesson not found with id 12",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("title", "title is required"),
			wantMessage: "title is required",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("user", "a@b.co"),
			wantMessage: "user conflict with id a@b.co",
		},
		{
			name:        "StorageFailure hides the cause",
			err:         StorageFailure("sqlite: insert", errors.New("disk I/O error at /var/lib/db")),
			wantMessage: "An internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("lesson", 1)
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestStorageFailureKeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := StorageFailure("sqlite: upsert progress", cause)

	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want it to wrap %v", err.Cause, cause)
	}
}

func TestTyped(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if err := Typed("op", nil); err != nil {
			t.Errorf("Typed(nil) = %v, want nil", err)
		}
	})

	t.Run("typed error passes through", func(t *testing.T) {
		in := fmt.Errorf("service: %w", NotFound("quiz", 3))
		if got := Typed("op", in); got != in {
			t.Errorf("Typed() = %v, want the original error", got)
		}
	})

	t.Run("untyped error becomes storage failure", func(t *testing.T) {
		got := Typed("op", errors.New("boom"))
		if !errors.Is(got, ErrStorage) {
			t.Errorf("Typed() = %v, want ErrStorage", got)
		}
	})
}

func TestCauseOf(t *testing.T) {
	dbErr := errors.New("sql: database is closed")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"storage failure deep in a chain", fmt.Errorf("service/auth: checking email: %w", StorageFailure("lookup user", dbErr)), dbErr},
		{"typed kind without cause", NotFound("lesson", 4), nil},
		{"plain error", dbErr, nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CauseOf(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Errorf("CauseOf() = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("CauseOf() = %v, want it to wrap %v", got, tt.want)
			}
		})
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
