// Package errors implements a three-class error classification system for
// ToneBridge: Transient (temporary, retryable), Invalid (bad input, do not
// retry), and Fatal (unrecoverable, stop processing).
//
// Classification lets callers make retry decisions without string matching:
//
//	if err := store.Get(ctx, key); err != nil {
//	    if errors.IsTransient(err) {
//	        // retry with backoff
//	    }
//	}
//
// All wrapping follows the format "component.method: action failed: %w" and
// preserves classification through error chains, supporting errors.Is and
// errors.As from the standard library.
package errors
