package google_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/internal/google"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, apperrors.ErrUnauthorized},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "insufficientFilePermissions"}}}, apperrors.ErrPermissionDenied},
		{"forbidden rate limit", &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}, apperrors.ErrTransport},
		{"too many requests", &googleapi.Error{Code: http.StatusTooManyRequests}, apperrors.ErrTransport},
		{"server error", &googleapi.Error{Code: http.StatusServiceUnavailable}, apperrors.ErrTransport},
		{"parent folder gone", &googleapi.Error{Code: http.StatusNotFound}, apperrors.ErrNotFound},
		{"token endpoint rejected", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, apperrors.ErrUnauthorized},
		{"deadline", context.DeadlineExceeded, apperrors.ErrTransport},
		{"network", errors.New("dial tcp: connection refused"), apperrors.ErrTransport},
		{"already classified", apperrors.ErrPermissionDenied, apperrors.ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := google.ClassifyError("list folders", tt.err)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, tt.err)
			require.Contains(t, err.Error(), "list folders")
		})
	}

	require.NoError(t, google.ClassifyError("noop", nil))
}
