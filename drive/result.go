package drive

import (
	"encoding/json"
	"errors"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
)

type Status string

const (
	StatusCreated       Status = "created"
	StatusAlreadyExists Status = "already-exists"
	StatusFailed        Status = "failed"
)

// Result is the terminal state of one provisioning call. A failed result
// carries no references, even if a folder was created before the failure.
type Result struct {
	Status   Status
	FolderID string
	SheetID  string
	// FolderCreated is set when this call created the folder.
	FolderCreated bool
	// Ambiguous is set when several folders matched and the most recently
	// created one was chosen.
	Ambiguous bool
	Err       error
}

func Created(folderID, sheetID string) Result {
	return Result{Status: StatusCreated, FolderID: folderID, SheetID: sheetID}
}

func AlreadyExists(folderID, sheetID string) Result {
	return Result{Status: StatusAlreadyExists, FolderID: folderID, SheetID: sheetID}
}

func Failed(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

// Kind returns the taxonomy error behind a failed result, or nil.
func (r Result) Kind() error {
	if r.Status != StatusFailed {
		return nil
	}
	for _, kind := range []error{
		apperrors.ErrUnauthorized,
		apperrors.ErrPermissionDenied,
		apperrors.ErrInvalidRequest,
		apperrors.ErrTransport,
	} {
		if errors.Is(r.Err, kind) {
			return kind
		}
	}
	return apperrors.ErrTransport
}

// Retryable reports whether retrying the same call may succeed without user action.
func (r Result) Retryable() bool {
	return r.Status == StatusFailed && errors.Is(r.Kind(), apperrors.ErrTransport)
}

type resultJSON struct {
	Status    Status `json:"status"`
	FolderRef string `json:"folderRef,omitempty"`
	SheetRef  string `json:"sheetRef,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Ambiguous bool   `json:"ambiguous,omitempty"`
}

// MarshalJSON renders the caller-facing tri-state result.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Status: r.Status}
	if r.Status == StatusFailed {
		out.Reason = reasonCode(r.Kind())
		out.Retryable = r.Retryable()
	} else {
		out.FolderRef = r.FolderID
		out.SheetRef = r.SheetID
		out.Ambiguous = r.Ambiguous
	}
	return json.Marshal(out)
}

func reasonCode(kind error) string {
	switch kind {
	case apperrors.ErrUnauthorized:
		return "unauthorized"
	case apperrors.ErrPermissionDenied:
		return "permission-denied"
	case apperrors.ErrInvalidRequest:
		return "invalid-request"
	default:
		return "transport-error"
	}
}
