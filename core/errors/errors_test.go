package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewAppError(ErrOfferExpired, "this offer has expired", cause)

	if !stderrors.Is(err, cause) {
		t.Fatalf("expected AppError to unwrap to cause")
	}
	wrapped := fmt.Errorf("confirm: %w", err)
	if CodeOf(wrapped) != ErrOfferExpired {
		t.Fatalf("expected code %s, got %s", ErrOfferExpired, CodeOf(wrapped))
	}
	if !Is(wrapped, ErrOfferExpired) || Is(wrapped, ErrNotFound) {
		t.Fatalf("Is mismatch for wrapped error")
	}
	if CodeOf(cause) != "" {
		t.Fatalf("plain errors carry no code")
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := NewAppError(ErrNotFound, "entry not found", nil)
	if got := err.Error(); got != "NOT_FOUND: entry not found" {
		t.Fatalf("unexpected message %q", got)
	}
}
