package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/go-cmp/cmp"
)

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("register: %w", New(KindDuplicateRSVP, "waitlist.Register").With("player_id", "p1"))

	if !errors.Is(err, ErrDuplicateRSVP) {
		t.Fatalf("expected DuplicateRSVP to match, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("expected NotFound not to match")
	}
	if got := KindOf(err); got != KindDuplicateRSVP {
		t.Fatalf("KindOf = %s", got)
	}
	if diff := cmp.Diff(map[string]string{"player_id": "p1"}, FieldsOf(err)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	err := Wrap(KindStoreUnavailable, "store.Get", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected cause to be reachable")
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatal("expected kind to match")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindUnknown {
		t.Fatalf("KindOf = %s, want UNKNOWN", got)
	}
	if FieldsOf(errors.New("boom")) != nil {
		t.Fatal("expected nil fields")
	}
}

func TestErrorString(t *testing.T) {
	err := New(KindInvalidTransition, "lifecycle.Transition").With("to", "OPEN").With("from", "PUBLISHED")
	want := "lifecycle.Transition: INVALID_TRANSITION from=PUBLISHED to=OPEN"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestConnectCode(t *testing.T) {
	tests := []struct {
		kind Kind
		want connect.Code
	}{
		{KindInvalidArgument, connect.CodeInvalidArgument},
		{KindInvalidTransition, connect.CodeFailedPrecondition},
		{KindEventClosed, connect.CodeFailedPrecondition},
		{KindInsufficientPlayers, connect.CodeFailedPrecondition},
		{KindInsufficientCourts, connect.CodeFailedPrecondition},
		{KindUnauthorized, connect.CodePermissionDenied},
		{KindDuplicateRSVP, connect.CodeAlreadyExists},
		{KindNotFound, connect.CodeNotFound},
		{KindConcurrentModification, connect.CodeAborted},
		{KindStoreUnavailable, connect.CodeUnavailable},
		{KindUnknown, connect.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.ConnectCode(); got != tt.want {
				t.Fatalf("ConnectCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(fmt.Errorf("x: %w", ErrConcurrentModification)) {
		t.Fatal("expected concurrent modification to be retryable")
	}
	if Retryable(ErrStoreUnavailable) {
		t.Fatal("store unavailable must surface immediately")
	}
}
