// Package httputil provides retry helpers for outbound HTTP calls.
//
// The server talks to exactly one upstream, GitHub, during sign-in. Those
// calls are wrapped with [Retry] so a transient failure does not bounce the
// user back to the login page:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// Only errors wrapped with [Retryable] are retried. Anything else, such as a
// 401 from a revoked token, returns immediately.
package httputil
