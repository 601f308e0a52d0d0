package gmail

import (
	"context"
	"errors"

	"google.golang.org/api/googleapi"
)

// isTransient classifies a Gmail API failure. Rate limiting and
// server-side errors are worth retrying; auth, permission, and
// not-found errors are not, and neither is our own cancellation.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 429, 500, 502, 503:
			return true
		case 403:
			// 403 doubles as both "quota exceeded" and "forbidden";
			// only the rate-limit reasons are retryable.
			for _, e := range gerr.Errors {
				switch e.Reason {
				case "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded":
					return true
				}
			}
			return false
		default:
			return false
		}
	}

	// Anything without an HTTP status is a transport-level failure.
	return true
}
