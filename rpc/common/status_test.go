package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransientCode(t *testing.T) {
	transient := []StatusCode{
		StatusUnavailable, StatusDeadlineExceeded, StatusAborted, StatusResourceExhausted,
	}
	permanent := []StatusCode{
		StatusOK, StatusCancelled, StatusUnknown, StatusInvalidArgument, StatusNotFound,
		StatusAlreadyExists, StatusPermissionDenied, StatusFailedPrecondition, StatusOutOfRange,
		StatusUnimplemented, StatusInternal, StatusDataLoss, StatusUnauthenticated,
		StatusRetriesExhausted,
	}

	for _, code := range transient {
		if !IsTransientCode(code) {
			t.Errorf("code %s should be transient", code)
		}
	}
	for _, code := range permanent {
		if IsTransientCode(code) {
			t.Errorf("code %s should not be transient", code)
		}
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Errorf("FromError(nil) should be nil")
	}

	// A *Status anywhere in the chain is returned as is
	orig := NewStatus(StatusNotFound, "no such row")
	wrapped := fmt.Errorf("outer: %w", orig)
	if got := FromError(wrapped); got != orig {
		t.Errorf("FromError should unwrap to the original status, got %v", got)
	}

	// Context errors map to their codes
	if got := FromError(context.Canceled); got.Code != StatusCancelled {
		t.Errorf("context.Canceled should map to Cancelled, got %s", got.Code)
	}
	if got := FromError(context.DeadlineExceeded); got.Code != StatusDeadlineExceeded {
		t.Errorf("context.DeadlineExceeded should map to DeadlineExceeded, got %s", got.Code)
	}

	// Unclassified errors become Unknown with the cause preserved
	plain := errors.New("boom")
	got := FromError(plain)
	if got.Code != StatusUnknown {
		t.Errorf("plain error should map to Unknown, got %s", got.Code)
	}
	if !errors.Is(got, plain) {
		t.Errorf("cause should stay reachable via errors.Is")
	}
}

func TestStatusWrapping(t *testing.T) {
	cause := NewStatus(StatusUnavailable, "connection refused")
	wrapped := WrapStatus(StatusRetriesExhausted, "gave up after 5 attempts", cause)

	// The wrapper's own classification wins
	if StatusCodeOf(wrapped) != StatusRetriesExhausted {
		t.Errorf("wrapper code = %s, want RetriesExhausted", StatusCodeOf(wrapped))
	}
	if IsTransient(wrapped) {
		t.Errorf("retries-exhausted must not classify as transient")
	}

	// The cause stays inspectable
	var inner *Status
	if !errors.As(errors.Unwrap(wrapped), &inner) || inner.Code != StatusUnavailable {
		t.Errorf("cause not reachable via Unwrap, got %v", errors.Unwrap(wrapped))
	}
}

func TestStatusErrorMessage(t *testing.T) {
	s := NewStatus(StatusInvalidArgument, "empty row key")
	want := "rpc error (code InvalidArgument): empty row key"
	if s.Error() != want {
		t.Errorf("Error() = %q, want %q", s.Error(), want)
	}

	withCause := WrapStatus(StatusUnknown, "request failed", errors.New("io trouble"))
	if got := withCause.Error(); got != "rpc error (code Unknown): request failed: io trouble" {
		t.Errorf("Error() with cause = %q", got)
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(NewStatus(StatusCancelled, "stopped")) {
		t.Errorf("cancelled status not detected")
	}
	if IsCancelled(NewStatus(StatusAborted, "conflict")) {
		t.Errorf("aborted status wrongly detected as cancelled")
	}
	if IsCancelled(nil) {
		t.Errorf("nil error wrongly detected as cancelled")
	}
}
