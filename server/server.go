package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/home-logistic/drive"
	"github.com/jrsteele09/home-logistic/identity"
	"github.com/jrsteele09/home-logistic/internal/config"
	"github.com/jrsteele09/home-logistic/mail"
	"github.com/jrsteele09/home-logistic/server/authflowrepo"
	"github.com/jrsteele09/home-logistic/sessions"
	"github.com/rs/zerolog/log"
)

// Provisioner creates or finds the user's data folder and sheet.
type Provisioner interface {
	Provision(ctx context.Context, accessToken, folderName, sheetName string) drive.Result
}

// Dependencies are the collaborators the HTTP layer delegates to.
type Dependencies struct {
	Sessions    *sessions.Manager
	Identity    identity.Provider
	Provisioner Provisioner
	Mailer      mail.Sender
	AuthState   authflowrepo.Repo // Optional; defaults to an in-memory repo
}

type Server struct {
	env         string // Environment (e.g., "DEV", "PROD")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	sessions    *sessions.Manager
	identity    identity.Provider
	provisioner Provisioner
	mailer      mail.Sender
	authState   authflowrepo.Repo
	nowFunc     func() time.Time
}

type ServerOption func(*Server)

func WithNowFunc(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func New(config config.Config, deps Dependencies, options ...ServerOption) (*Server, error) {
	if deps.Sessions == nil || deps.Identity == nil || deps.Provisioner == nil || deps.Mailer == nil {
		return nil, errors.New("[Server New] sessions, identity, provisioner and mailer are required")
	}

	s := &Server{
		env:         config.GetEnv(),
		mux:         http.NewServeMux(),
		config:      config,
		sessions:    deps.Sessions,
		identity:    deps.Identity,
		provisioner: deps.Provisioner,
		mailer:      deps.Mailer,
		authState:   deps.AuthState,
		nowFunc:     time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.authState == nil {
		s.authState = authflowrepo.NewInMemoryRepo(
			authflowrepo.WithTTL(config.GetAuthStateTimeout()),
			authflowrepo.WithNowFunc(s.nowFunc),
		)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
