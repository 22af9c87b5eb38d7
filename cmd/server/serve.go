package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/home-logistic/drive"
	"github.com/jrsteele09/home-logistic/drive/googledrive"
	"github.com/jrsteele09/home-logistic/identity"
	"github.com/jrsteele09/home-logistic/internal/config"
	"github.com/jrsteele09/home-logistic/mail"
	"github.com/jrsteele09/home-logistic/server"
	"github.com/jrsteele09/home-logistic/sessions"
	"github.com/jrsteele09/home-logistic/token"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func serve() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configureLogging(c.GetLogLevel())

	if err := config.Validate(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, err := newServer(ctx, c)
	if err != nil {
		return err
	}

	displayAppname(c.GetAppName())
	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// newServer wires the production collaborators.
func newServer(ctx context.Context, c config.Config) (*server.Server, error) {
	key, err := token.DeriveSigningKey(c.GetSessionSecret())
	if err != nil {
		return nil, fmt.Errorf("session secret: %w", err)
	}

	return server.New(c, server.Dependencies{
		Sessions:    sessions.NewManager(token.NewHMACSigner(key)),
		Identity:    identity.NewGoogleProvider(ctx, c.GetGoogleClientID(), c.GetGoogleClientSecret(), c.GetRedirectURL()),
		Provisioner: drive.NewProvisioner(googledrive.NewFactory(c.GetDriveRequestsPerSecond(), c.GetDriveBurst())),
		Mailer:      mail.NewGmailSender(),
	})
}

// configureLogging sets the global level and switches to human readable
// output when stderr is a terminal.
func configureLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(srv *http.Server) error {
	log.Info().Str("addr", srv.Addr).Msg("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
