package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/home-logistic/drive"
	"github.com/jrsteele09/home-logistic/drive/storefake"
	"github.com/jrsteele09/home-logistic/internal/config"
	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/mail"
	"github.com/jrsteele09/home-logistic/server"
	"github.com/jrsteele09/home-logistic/sessions"
	"github.com/jrsteele09/home-logistic/token"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "0123456789abcdef0123456789abcdef"
	cookieName  = "hl_session"
	validAccess = "access-1"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type exchange struct {
	code, verifier, nonce string
}

type fakeProvider struct {
	mu        sync.Mutex
	grant     sessions.Grant
	err       error
	exchanges []exchange
}

func (p *fakeProvider) AuthCodeURL(state, nonce, codeVerifier string) string {
	v := url.Values{"state": {state}, "nonce": {nonce}, "code_verifier": {codeVerifier}}
	return "https://accounts.example.com/auth?" + v.Encode()
}

func (p *fakeProvider) Exchange(_ context.Context, code, codeVerifier, nonce string) (*sessions.Grant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchanges = append(p.exchanges, exchange{code: code, verifier: codeVerifier, nonce: nonce})
	if p.err != nil {
		return nil, p.err
	}
	g := p.grant
	return &g, nil
}

func (p *fakeProvider) recorded() []exchange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]exchange(nil), p.exchanges...)
}

func (p *fakeProvider) setGrant(g sessions.Grant, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grant, p.err = g, err
}

type fakeMailer struct {
	mu     sync.Mutex
	err    error
	tokens []string
	sent   []mail.Message
}

func (m *fakeMailer) Send(_ context.Context, accessToken string, msg mail.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.tokens = append(m.tokens, accessToken)
	m.sent = append(m.sent, msg)
	return "msg-1", nil
}

func (m *fakeMailer) messages() ([]string, []mail.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens...), append([]mail.Message(nil), m.sent...)
}

func (m *fakeMailer) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

type harness struct {
	t        *testing.T
	clock    *clock
	srv      *httptest.Server
	client   *http.Client
	provider *fakeProvider
	drive    *storefake.FakeDrive
	mailer   *fakeMailer
	sessions *sessions.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, v := range []string{"SESSION_COOKIE", "SETUP_FOLDER_NAME", "SETUP_SHEET_NAME", "CONFIG_FILE"} {
		t.Setenv(v, "")
	}
	t.Setenv("ENV", "TEST")
	t.Setenv("FILE_REQUEST_RECIPIENT", "bob@example.com")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com")

	key, err := token.DeriveSigningKey(testSecret)
	require.NoError(t, err)

	c := &clock{now: time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC)}
	manager := sessions.NewManager(token.NewHMACSigner(key), sessions.WithNowFunc(c.Now))
	fake := storefake.NewFakeDrive(validAccess)

	h := &harness{
		t:        t,
		clock:    c,
		provider: &fakeProvider{grant: fullGrant()},
		drive:    fake,
		mailer:   &fakeMailer{},
		sessions: manager,
	}

	srv, err := server.New(config.New(), server.Dependencies{
		Sessions:    manager,
		Identity:    h.provider,
		Provisioner: drive.NewProvisioner(fake),
		Mailer:      h.mailer,
	}, server.WithNowFunc(c.Now))
	require.NoError(t, err)

	h.srv = httptest.NewServer(srv)
	t.Cleanup(h.srv.Close)
	h.client = &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	return h
}

func fullGrant() sessions.Grant {
	return sessions.Grant{
		AccessToken:  validAccess,
		RefreshToken: "refresh-1",
		IDToken:      "id-1",
		Scopes:       []string{"openid"},
		Identity:     sessions.Identity{Subject: "sub-1", Email: "ana@example.com", Name: "Ana"},
	}
}

func (h *harness) do(method, path, body string, cookie *http.Cookie, headers ...string) *http.Response {
	h.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(h.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// startLogin hits the login route and returns the state the provider was sent.
func (h *harness) startLogin(returnTo string) url.Values {
	h.t.Helper()
	path := server.RouteAuthLogin
	if returnTo != "" {
		path += "?return_to=" + url.QueryEscape(returnTo)
	}
	resp := h.do(http.MethodGet, path, "", nil)
	require.Equal(h.t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(h.t, err)
	return location.Query()
}

// signIn runs the whole login flow and returns the session cookie and the
// callback response.
func (h *harness) signIn(current *http.Cookie) (*http.Cookie, *http.Response) {
	h.t.Helper()
	q := h.startLogin("")
	resp := h.do(http.MethodGet, server.RouteCallback+"?code=code-1&state="+url.QueryEscape(q.Get("state")), "", current)
	require.Equal(h.t, http.StatusSeeOther, resp.StatusCode)
	return sessionCookie(resp), resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestSignIn(t *testing.T) {
	h := newHarness(t)

	q := h.startLogin("/api/session")
	require.NotEmpty(t, q.Get("state"))
	require.NotEmpty(t, q.Get("nonce"))
	require.NotEmpty(t, q.Get("code_verifier"))

	resp := h.do(http.MethodGet, server.RouteCallback+"?code=code-1&state="+url.QueryEscape(q.Get("state")), "", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/api/session", resp.Header.Get("Location"))

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.Equal(t, int(sessions.Lifetime/time.Second), cookie.MaxAge)

	exchanges := h.provider.recorded()
	require.Len(t, exchanges, 1)
	require.Equal(t, exchange{code: "code-1", verifier: q.Get("code_verifier"), nonce: q.Get("nonce")}, exchanges[0])

	t.Run("session view hides the refresh token", func(t *testing.T) {
		resp := h.do(http.MethodGet, server.RouteAPISession, "", cookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NotContains(t, string(raw), "refresh")

		var view struct {
			AccessToken string    `json:"accessToken"`
			IDToken     string    `json:"idToken"`
			ExpiresAt   time.Time `json:"expiresAt"`
			Email       string    `json:"email"`
		}
		require.NoError(t, json.Unmarshal(raw, &view))
		require.Equal(t, validAccess, view.AccessToken)
		require.Equal(t, "id-1", view.IDToken)
		require.Equal(t, "ana@example.com", view.Email)
		require.True(t, h.clock.Now().Add(sessions.Lifetime).Equal(view.ExpiresAt))
	})

	t.Run("state is single use", func(t *testing.T) {
		resp := h.do(http.MethodGet, server.RouteCallback+"?code=code-1&state="+url.QueryEscape(q.Get("state")), "", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Nil(t, sessionCookie(resp))
	})
}

func TestSignIn_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		grant      sessions.Grant
		wantStatus int
	}{
		{"rejected code", apperrors.ErrInvalidGrant, sessions.Grant{}, http.StatusBadRequest},
		{"provider down", apperrors.ErrTransport, sessions.Grant{}, http.StatusBadGateway},
		{"grant without access token", nil, sessions.Grant{RefreshToken: "r"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.provider.setGrant(tt.grant, tt.err)

			q := h.startLogin("")
			resp := h.do(http.MethodGet, server.RouteCallback+"?code=code-1&state="+url.QueryEscape(q.Get("state")), "", nil)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			require.Nil(t, sessionCookie(resp))
		})
	}

	t.Run("unknown state", func(t *testing.T) {
		h := newHarness(t)
		resp := h.do(http.MethodGet, server.RouteCallback+"?code=code-1&state=forged", "", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Empty(t, h.provider.recorded())
	})

	t.Run("expired state", func(t *testing.T) {
		h := newHarness(t)
		q := h.startLogin("")
		h.clock.Advance(10 * time.Minute)
		resp := h.do(http.MethodGet, server.RouteCallback+"?code=code-1&state="+url.QueryEscape(q.Get("state")), "", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("provider error parameter", func(t *testing.T) {
		h := newHarness(t)
		resp := h.do(http.MethodGet, server.RouteCallback+"?error=access_denied", "", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSignIn_ReturnURLIsLocal(t *testing.T) {
	for _, returnTo := range []string{"//evil.example.com", "https://evil.example.com/x", `/\evil.example.com`} {
		t.Run(returnTo, func(t *testing.T) {
			h := newHarness(t)
			q := h.startLogin(returnTo)
			resp := h.do(http.MethodGet, server.RouteCallback+"?code=code-1&state="+url.QueryEscape(q.Get("state")), "", nil)
			require.Equal(t, "/", resp.Header.Get("Location"))
		})
	}
}

func TestSession_Expiry(t *testing.T) {
	h := newHarness(t)
	cookie, _ := h.signIn(nil)

	h.clock.Advance(sessions.Lifetime - time.Nanosecond)
	resp := h.do(http.MethodGet, server.RouteAPISession, "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.clock.Advance(time.Nanosecond)
	resp = h.do(http.MethodGet, server.RouteAPISession, "", cookie)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	require.Equal(t, "reauthenticate", body["error"])

	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	require.Negative(t, cleared.MaxAge)
}

func TestSession_RejectsTamperedCookie(t *testing.T) {
	h := newHarness(t)
	cookie, _ := h.signIn(nil)

	tampered := &http.Cookie{Name: cookieName, Value: cookie.Value + "x"}
	resp := h.do(http.MethodGet, server.RouteAPISession, "", tampered)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.do(http.MethodGet, server.RouteAPISession, "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignIn_ReconsentKeepsRefreshToken(t *testing.T) {
	h := newHarness(t)
	first, _ := h.signIn(nil)

	h.clock.Advance(time.Hour)
	h.provider.setGrant(sessions.Grant{
		AccessToken: "access-2",
		IDToken:     "id-2",
		Identity:    sessions.Identity{Subject: "sub-1", Email: "ana@example.com"},
	}, nil)

	second, _ := h.signIn(first)
	require.NotNil(t, second)

	decoded, err := h.sessions.Decode(second.Value)
	require.NoError(t, err)
	require.Equal(t, "access-2", decoded.AccessToken)
	require.Equal(t, "refresh-1", decoded.RefreshToken)
	require.True(t, h.clock.Now().Add(sessions.Lifetime).Equal(decoded.ExpiresAt))

	resp := h.do(http.MethodGet, server.RouteAPISession, "", first)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "the replaced session is revoked")
}

func TestSignIn_DifferentUserGetsFreshSession(t *testing.T) {
	h := newHarness(t)
	first, _ := h.signIn(nil)

	h.provider.setGrant(sessions.Grant{
		AccessToken: "access-9",
		Identity:    sessions.Identity{Subject: "sub-2"},
	}, nil)
	second, _ := h.signIn(first)

	decoded, err := h.sessions.Decode(second.Value)
	require.NoError(t, err)
	require.Equal(t, "sub-2", decoded.Identity.Subject)
	require.Empty(t, decoded.RefreshToken)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	cookie, _ := h.signIn(nil)

	resp := h.do(http.MethodPost, server.RouteAuthLogout, "", cookie)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	require.Negative(t, cleared.MaxAge)

	resp = h.do(http.MethodGet, server.RouteAPISession, "", cookie)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	t.Run("with return_to", func(t *testing.T) {
		resp := h.do(http.MethodGet, server.RouteAuthLogout+"?return_to=/goodbye", "", nil)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/goodbye", resp.Header.Get("Location"))
	})
}

func TestIndex_RedirectsToLogin(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteAuthLogin+"?return_to=%2F", resp.Header.Get("Location"))

	cookie, _ := h.signIn(nil)
	resp = h.do(http.MethodGet, "/", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "ana@example.com")
}

func TestProvision(t *testing.T) {
	h := newHarness(t)
	cookie, _ := h.signIn(nil)

	resp := h.do(http.MethodPost, server.RouteAPIProvision, "", cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]any
	decodeBody(t, resp, &created)
	require.Equal(t, "created", created["status"])
	require.NotEmpty(t, created["folderRef"])
	require.NotEmpty(t, created["sheetRef"])

	resp = h.do(http.MethodPost, server.RouteAPIProvision, `{}`, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again map[string]any
	decodeBody(t, resp, &again)
	require.Equal(t, "already-exists", again["status"])
	require.Equal(t, created["folderRef"], again["folderRef"])

	require.Len(t, h.drive.Folders("homeLogistic"), 1)

	t.Run("custom names", func(t *testing.T) {
		resp := h.do(http.MethodPost, server.RouteAPIProvision, `{"folderName":"Lists","sheetName":"Data"}`, cookie)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.Len(t, h.drive.Folders("Lists"), 1)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := h.do(http.MethodPost, server.RouteAPIProvision, `{"folder":`, cookie)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestProvision_Failures(t *testing.T) {
	t.Run("no session makes no drive call", func(t *testing.T) {
		h := newHarness(t)
		resp := h.do(http.MethodPost, server.RouteAPIProvision, "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Empty(t, h.drive.Calls())
	})

	t.Run("expired session makes no drive call", func(t *testing.T) {
		h := newHarness(t)
		cookie, _ := h.signIn(nil)
		h.clock.Advance(sessions.Lifetime)

		resp := h.do(http.MethodPost, server.RouteAPIProvision, "", cookie)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Empty(t, h.drive.Calls())
	})

	t.Run("token rejected by drive", func(t *testing.T) {
		h := newHarness(t)
		h.provider.setGrant(sessions.Grant{AccessToken: "revoked-at-google"}, nil)
		cookie, _ := h.signIn(nil)

		resp := h.do(http.MethodPost, server.RouteAPIProvision, "", cookie)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body map[string]any
		decodeBody(t, resp, &body)
		require.Equal(t, "failed", body["status"])
		require.Equal(t, "unauthorized", body["reason"])
		require.Zero(t, h.drive.CreateCalls())
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"permission denied", apperrors.ErrPermissionDenied, http.StatusForbidden, "permission-denied"},
		{"transport", errors.New("connection reset"), http.StatusBadGateway, "transport-error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			cookie, _ := h.signIn(nil)
			h.drive.FailNext(storefake.OpListFolders, tt.err)

			resp := h.do(http.MethodPost, server.RouteAPIProvision, "", cookie)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			var body map[string]any
			decodeBody(t, resp, &body)
			require.Equal(t, tt.wantReason, body["reason"])
		})
	}
}

func TestRequestFile(t *testing.T) {
	h := newHarness(t)
	cookie, _ := h.signIn(nil)

	resp := h.do(http.MethodPost, server.RouteAPIRequestFile, "", cookie)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	tokens, sent := h.mailer.messages()
	require.Len(t, sent, 1)
	require.Equal(t, []string{validAccess}, tokens)
	msg := sent[0]
	require.Equal(t, "bob@example.com", msg.To)
	require.Equal(t, "ana@example.com", msg.ReplyTo)
	require.Contains(t, msg.Body, "homeLogisticSheet")

	t.Run("recipient from body", func(t *testing.T) {
		resp := h.do(http.MethodPost, server.RouteAPIRequestFile, `{"to":"carol@example.com"}`, cookie)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		_, sent := h.mailer.messages()
		require.Equal(t, "carol@example.com", sent[1].To)
	})

	t.Run("missing recipient", func(t *testing.T) {
		t.Setenv("FILE_REQUEST_RECIPIENT", "")
		resp := h.do(http.MethodPost, server.RouteAPIRequestFile, "", cookie)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("mail permission denied", func(t *testing.T) {
		h.mailer.fail(apperrors.ErrPermissionDenied)

		resp := h.do(http.MethodPost, server.RouteAPIRequestFile, "", cookie)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestCors(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodOptions, server.RouteAPISession, "", nil, "Origin", "https://app.example.com")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	resp = h.do(http.MethodOptions, server.RouteAPISession, "", nil, "Origin", "https://evil.example.com")
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodGet, server.RouteHealth, "", nil, "X-Request-ID", "req-42")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := server.New(config.New(), server.Dependencies{})
	require.Error(t, err)
}
