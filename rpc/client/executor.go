package client

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/dRow/lib/obs"
	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/grafana/dskit/backoff"
)

// --------------------------------------------------------------------------
// Retrying Call Executor
// --------------------------------------------------------------------------

// retryExecutor drives one logical call through the retry policy. It is
// stateless apart from its configuration, a single instance is shared by
// all calls of a client.
type retryExecutor struct {
	opts     common.RetryOptions
	observer *obs.Observer
}

func newRetryExecutor(opts common.RetryOptions, observer *obs.Observer) *retryExecutor {
	return &retryExecutor{opts: opts, observer: observer}
}

// runWithRetries executes attempt until it succeeds, fails permanently, or
// the retry budget is spent. retryable is the request's idempotency
// classification, computed once by the caller. The optional token aborts
// the loop and any in-flight attempt when cancelled.
//
// Failure outcomes are classified: non-transient errors and transient
// errors on non-retryable requests surface unchanged, a spent budget
// surfaces as StatusRetriesExhausted wrapping the last error, and
// cancellation always surfaces as StatusCancelled.
func runWithRetries[T any](
	ctx context.Context,
	e *retryExecutor,
	method common.MessageType,
	retryable bool,
	token *CancelToken,
	attempt func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	// Bind the token to a context so both cancellation paths look the same
	// to the attempt
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if token != nil {
		token.AddListener(cancel)
	}

	// The elapsed budget is tracked separately from ctx so that hitting it
	// reports RetriesExhausted instead of a generic deadline error
	var budgetEnd time.Time
	if d := e.opts.MaxElapsedBackoff(); e.opts.Enabled && d > 0 {
		budgetEnd = time.Now().Add(d)
	}

	boff := backoff.New(ctx, backoff.Config{
		MinBackoff: e.opts.InitialBackoff(),
		MaxBackoff: e.opts.MaxBackoff(),
		MaxRetries: e.opts.MaxRetries,
	})

	for {
		// No attempt is started once cancellation has occurred
		if cerr := ctx.Err(); cerr != nil {
			return zero, common.FromError(cerr)
		}

		result, err := attempt(ctx)
		if err == nil {
			return result, nil
		}

		// An attempt that failed because the context died is a cancellation
		// outcome, not a call failure
		if cerr := ctx.Err(); cerr != nil {
			return zero, common.FromError(cerr)
		}

		if !common.IsTransient(err) {
			return zero, err
		}
		if !e.opts.Enabled {
			return zero, err
		}
		if !retryable {
			e.observer.Emit(obs.Event{
				Kind:   obs.KindRetryBlocked,
				Method: method.String(),
				Detail: "transient failure on a non-idempotent request",
				Err:    err,
			})
			return zero, err
		}

		attempts := boff.NumRetries() + 1
		budgetSpent := e.opts.MaxRetries <= 0 || !boff.Ongoing() ||
			(!budgetEnd.IsZero() && !time.Now().Before(budgetEnd))
		if budgetSpent {
			e.observer.Emit(obs.Event{
				Kind:   obs.KindRetriesExhausted,
				Method: method.String(),
				Detail: fmt.Sprintf("giving up after %d attempts", attempts),
				Err:    err,
			})
			return zero, common.WrapStatus(common.StatusRetriesExhausted,
				fmt.Sprintf("%s failed after %d attempts", method, attempts), err)
		}

		e.observer.Emit(obs.Event{
			Kind:   obs.KindRetryScheduled,
			Method: method.String(),
			Detail: fmt.Sprintf("attempt %d failed, backing off", attempts),
			Err:    err,
		})
		boff.Wait()
	}
}
