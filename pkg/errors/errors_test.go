package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "Without cause",
			err:  New(ErrCodeNotFound, "request not found"),
			want: "NOT_FOUND: request not found",
		},
		{
			name: "With cause",
			err:  Wrap(stderrors.New("connection refused"), ErrCodePersistence, "failed to load request"),
			want: "PERSISTENCE_ERROR: failed to load request (connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIs_ThroughWrapping(t *testing.T) {
	base := New(ErrCodeConflict, "captain already has an active request")
	wrapped := fmt.Errorf("submit: %w", base)

	if !Is(wrapped, ErrCodeConflict) {
		t.Error("Is() = false for wrapped conflict, want true")
	}
	if Is(wrapped, ErrCodeNotFound) {
		t.Error("Is() = true for wrong code, want false")
	}
	if Is(nil, ErrCodeConflict) {
		t.Error("Is(nil) = true, want false")
	}
	if CodeOf(stderrors.New("plain")) != "" {
		t.Error("CodeOf() of plain error should be empty")
	}
}

func TestWrap_Unwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, ErrCodePersistence, "failed to save match")

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is() could not find the wrapped cause")
	}
}
