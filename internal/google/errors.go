package google

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Error reasons Google returns with 403 when a quota, not a permission, was hit.
var rateLimitReasons = map[string]struct{}{
	"rateLimitExceeded":        {},
	"userRateLimitExceeded":    {},
	"quotaExceeded":            {},
	"sharingRateLimitExceeded": {},
}

// ClassifyError maps an error returned by a Google API call onto one of
// ErrUnauthorized, ErrPermissionDenied, ErrNotFound or ErrTransport. The
// original error stays in the chain.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, kindOf(err), err)
}

func kindOf(err error) error {
	for _, known := range []error{apperrors.ErrUnauthorized, apperrors.ErrPermissionDenied, apperrors.ErrNotFound, apperrors.ErrTransport} {
		if errors.Is(err, known) {
			return known
		}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized:
			return apperrors.ErrUnauthorized
		case gerr.Code == http.StatusForbidden && !IsRateLimited(gerr):
			return apperrors.ErrPermissionDenied
		case gerr.Code == http.StatusNotFound:
			return apperrors.ErrNotFound
		default:
			return apperrors.ErrTransport
		}
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return apperrors.ErrUnauthorized
	}

	// Network failures, cancelled contexts and anything unrecognised are
	// treated as transient.
	return apperrors.ErrTransport
}

// IsRateLimited returns true if the error indicates rate limiting or an
// exhausted quota.
func IsRateLimited(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	for _, item := range gerr.Errors {
		if _, ok := rateLimitReasons[item.Reason]; ok {
			return true
		}
	}
	return false
}
