package utils

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return stderrors.New("busy")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success after 3 calls, got err=%v calls=%d", err, calls)
	}
}

func TestRetryPermanent(t *testing.T) {
	cause := stderrors.New("bad sql")
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		return Permanent(cause)
	})
	if !stderrors.Is(err, cause) || calls != 1 {
		t.Fatalf("expected permanent error after one call, got err=%v calls=%d", err, calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, func() error {
		calls++
		return stderrors.New("busy")
	})
	if err == nil || calls != 3 {
		t.Fatalf("expected failure after 3 calls, got err=%v calls=%d", err, calls)
	}
}

func TestOfferTokenRoundTrip(t *testing.T) {
	id := uuid.New()
	token, err := GenerateOfferToken("secret", id, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	got, err := ParseOfferToken("secret", token)
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s err=%v", id, got, err)
	}
	if _, err := ParseOfferToken("other", token); !stderrors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid token with wrong secret, got %v", err)
	}
}

func TestOfferTokenScope(t *testing.T) {
	token, err := GenerateSignedToken("secret", uuid.NewString(), "access", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseOfferToken("secret", token); !stderrors.Is(err, ErrTokenScope) {
		t.Fatalf("expected scope error, got %v", err)
	}
}

func TestOfferTokenPastExpiry(t *testing.T) {
	if _, err := GenerateOfferToken("secret", uuid.New(), time.Now().Add(-time.Minute)); !stderrors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestGenerateReference(t *testing.T) {
	ref := GenerateReference("BK")
	if !strings.HasPrefix(ref, "BK-") || len(ref) != 11 {
		t.Fatalf("unexpected reference %q", ref)
	}
}
