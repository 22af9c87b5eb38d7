package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/home-logistic/drive"
	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/mail"
	"github.com/jrsteele09/home-logistic/sessions"
	"github.com/rs/zerolog"
)

const maxRequestBody = 1 << 16

type sessionResponse struct {
	sessions.PublicView
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type provisionRequest struct {
	FolderName string `json:"folderName"`
	SheetName  string `json:"sheetName"`
}

type requestFileRequest struct {
	To         string `json:"to"`
	FolderName string `json:"folderName"`
	SheetName  string `json:"sheetName"`
}

type requestFileResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// IndexHandler is the signed-in landing page.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := SessionFromContext(r.Context())
		if err != nil {
			http.Redirect(w, r, RouteAuthLogin, http.StatusSeeOther)
			return
		}

		who := session.Identity.Email
		if who == "" {
			who = session.Identity.Subject
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "%s\n\nSigned in as %s until %s.\n", s.config.GetAppName(), who, session.ExpiresAt.Format(time.RFC1123))
	}
}

// SessionHandler returns the caller-facing view of the current session. The
// refresh token is never part of it.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := SessionFromContext(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "reauthenticate")
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse{
			PublicView: s.sessions.PublicView(session),
			Email:      session.Identity.Email,
			Name:       session.Identity.Name,
		})
	}
}

// ProvisionHandler creates or finds the data folder and sheet in the user's
// Drive. Names default to the configured ones.
func (s *Server) ProvisionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		accessToken, session, ok := s.accessToken(w, r)
		if !ok {
			return
		}

		var req provisionRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request")
			return
		}

		folderName := orDefault(req.FolderName, s.config.GetSetupFolderName())
		sheetName := orDefault(req.SheetName, s.config.GetSetupSheetName())

		result := s.provisioner.Provision(r.Context(), accessToken, folderName, sheetName)
		event := logger.Info()
		if result.Status == drive.StatusFailed {
			event = logger.Warn().Err(result.Err)
		}
		event.Str("session_id", session.ID).
			Str("status", string(result.Status)).
			Str("folder_id", result.FolderID).
			Str("sheet_id", result.SheetID).
			Msg("provision")

		writeJSON(w, provisionStatusCode(result), result)
	}
}

// RequestFileHandler emails another user asking them to share their data
// file, using the caller's mail-send grant.
func (s *Server) RequestFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken, session, ok := s.accessToken(w, r)
		if !ok {
			return
		}

		var req requestFileRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request")
			return
		}

		to := orDefault(req.To, s.config.GetFileRequestRecipient())
		if to == "" {
			writeJSONError(w, http.StatusBadRequest, "missing_recipient")
			return
		}

		msg := mail.FileRequest(to, session.Identity,
			orDefault(req.FolderName, s.config.GetSetupFolderName()),
			orDefault(req.SheetName, s.config.GetSetupSheetName()))

		id, err := s.mailer.Send(r.Context(), accessToken, msg)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("session_id", session.ID).Msg("request file: send failed")
			status, code := errorStatus(err)
			writeJSONError(w, status, code)
			return
		}

		writeJSON(w, http.StatusAccepted, requestFileResponse{Status: "sent", MessageID: id})
	}
}

// accessToken resolves the caller's usable access token, answering 401 when
// the session has expired since the middleware admitted it.
func (s *Server) accessToken(w http.ResponseWriter, r *http.Request) (string, *sessions.Session, bool) {
	session, err := SessionFromContext(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "reauthenticate")
		return "", nil, false
	}
	token, err := s.sessions.CurrentAccessToken(session)
	if err != nil {
		s.clearSessionCookie(w, r)
		writeJSONError(w, http.StatusUnauthorized, "reauthenticate")
		return "", nil, false
	}
	return token, session, true
}

func provisionStatusCode(result drive.Result) int {
	switch result.Status {
	case drive.StatusCreated:
		return http.StatusCreated
	case drive.StatusAlreadyExists:
		return http.StatusOK
	}
	status, _ := errorStatus(result.Kind())
	return status
}

// errorStatus maps the error taxonomy onto an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "reauthenticate"
	case apperrors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	default:
		return http.StatusBadGateway, "upstream_unavailable"
	}
}

// decodeOptionalJSON decodes a JSON body into v. An empty body leaves v
// untouched.
func decodeOptionalJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func orDefault(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}
