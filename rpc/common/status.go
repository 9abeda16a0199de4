package common

import (
	"context"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Status Codes
// --------------------------------------------------------------------------

// StatusCode classifies the outcome of an RPC. The numbering mirrors the
// widely used gRPC code space so that operators can correlate client logs
// with other tooling; StatusRetriesExhausted is client-side only.
type StatusCode uint32

const (
	StatusOK                 StatusCode = iota // 0: Success.
	StatusCancelled                            // 1: The call was cancelled by the caller.
	StatusUnknown                              // 2: Unclassified failure.
	StatusInvalidArgument                      // 3: The request was malformed.
	StatusDeadlineExceeded                     // 4: A deadline or per-chunk timeout elapsed.
	StatusNotFound                             // 5: The addressed table or row does not exist.
	StatusAlreadyExists                        // 6: The entity already exists.
	StatusPermissionDenied                     // 7: The caller lacks permission.
	StatusResourceExhausted                    // 8: The server or a quota is out of capacity.
	StatusFailedPrecondition                   // 9: The system is not in a state required for the operation.
	StatusAborted                              // 10: The operation was aborted, typically a conflict.
	StatusOutOfRange                           // 11: An argument is out of its valid range.
	StatusUnimplemented                        // 12: The server does not implement the operation.
	StatusInternal                             // 13: Invariant broken on the server.
	StatusUnavailable                          // 14: The service is currently unreachable.
	StatusDataLoss                             // 15: Unrecoverable data loss or corruption.
	StatusUnauthenticated                      // 16: The caller is not authenticated.
	StatusRetriesExhausted                     // 17: Client-side, the retry budget is spent.
)

// String returns the string representation of a StatusCode.
func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusCancelled:
		return "Cancelled"
	case StatusUnknown:
		return "Unknown"
	case StatusInvalidArgument:
		return "InvalidArgument"
	case StatusDeadlineExceeded:
		return "DeadlineExceeded"
	case StatusNotFound:
		return "NotFound"
	case StatusAlreadyExists:
		return "AlreadyExists"
	case StatusPermissionDenied:
		return "PermissionDenied"
	case StatusResourceExhausted:
		return "ResourceExhausted"
	case StatusFailedPrecondition:
		return "FailedPrecondition"
	case StatusAborted:
		return "Aborted"
	case StatusOutOfRange:
		return "OutOfRange"
	case StatusUnimplemented:
		return "Unimplemented"
	case StatusInternal:
		return "Internal"
	case StatusUnavailable:
		return "Unavailable"
	case StatusDataLoss:
		return "DataLoss"
	case StatusUnauthenticated:
		return "Unauthenticated"
	case StatusRetriesExhausted:
		return "RetriesExhausted"
	default:
		return fmt.Sprintf("Code(%d)", uint32(c))
	}
}

// IsTransientCode reports whether a code is classified as transient, i.e.
// a retry of the same request has a reasonable chance of succeeding.
func IsTransientCode(code StatusCode) bool {
	switch code {
	case StatusUnavailable, StatusDeadlineExceeded, StatusAborted, StatusResourceExhausted:
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Status Error Type
// --------------------------------------------------------------------------

// Status is the error type produced by every failure path of the rpc
// layer. It wraps a StatusCode, a message, and optionally the underlying
// cause (reachable via errors.Unwrap).
type Status struct {
	Code  StatusCode // The status code
	Msg   string     // The error message
	cause error      // Underlying error, may be nil
}

// Error implements the error interface.
func (s *Status) Error() string {
	if s.cause != nil {
		return fmt.Sprintf("rpc error (code %s): %s: %v", s.Code, s.Msg, s.cause)
	}
	return fmt.Sprintf("rpc error (code %s): %s", s.Code, s.Msg)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (s *Status) Unwrap() error {
	return s.cause
}

// NewStatus creates a new Status with the given code and message.
func NewStatus(code StatusCode, msg string) *Status {
	return &Status{Code: code, Msg: msg}
}

// NewStatusf creates a new Status with a formatted message.
func NewStatusf(code StatusCode, format string, args ...any) *Status {
	return &Status{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WrapStatus creates a new Status wrapping cause. The cause stays reachable
// via errors.Unwrap, so the original classification of a wrapped failure
// can still be inspected.
func WrapStatus(code StatusCode, msg string, cause error) *Status {
	return &Status{Code: code, Msg: msg, cause: cause}
}

// --------------------------------------------------------------------------
// Error Classification Helpers
// --------------------------------------------------------------------------

// FromError coerces an arbitrary error into a *Status. A *Status anywhere
// in the chain is returned as is; context errors map to Cancelled and
// DeadlineExceeded; everything else becomes StatusUnknown with the error
// as cause. FromError(nil) returns nil.
func FromError(err error) *Status {
	if err == nil {
		return nil
	}
	var s *Status
	if errors.As(err, &s) {
		return s
	}
	if errors.Is(err, context.Canceled) {
		return WrapStatus(StatusCancelled, "context cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapStatus(StatusDeadlineExceeded, "context deadline exceeded", err)
	}
	return WrapStatus(StatusUnknown, "unclassified error", err)
}

// StatusCodeOf returns the status code of an error, StatusOK for nil.
func StatusCodeOf(err error) StatusCode {
	if err == nil {
		return StatusOK
	}
	return FromError(err).Code
}

// IsTransient reports whether an error is classified as transient.
func IsTransient(err error) bool {
	return IsTransientCode(StatusCodeOf(err))
}

// IsCancelled reports whether an error represents a cancellation.
func IsCancelled(err error) bool {
	return StatusCodeOf(err) == StatusCancelled
}
