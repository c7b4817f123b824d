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
	"github.com/jrsteele09/go-admin-auth/console"
	"github.com/jrsteele09/go-admin-auth/internal/config"
	"github.com/jrsteele09/go-admin-auth/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd(cfg config.Config) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin console",
		Long: `Run the browser admin console on $HOST:$PORT (127.0.0.1 by default).

The console uses the same auth session as the other commands, but a
browser must sign in through the console itself. Only the browser that
signed in last is admitted, and "adminctl logout" signs it out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !quiet {
				displayAppname(cfg.GetAppName())
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Skip the startup banner")
	return cmd
}

func run(ctx context.Context, cfg config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	// The browser follows the guard's redirect to the login page on its next request.
	navigator := session.NavigatorFunc(func(path string) {
		log.Info().Str("redirect", path).Msg("session ended")
	})
	a, err := newApp(ctx, cfg, navigator)
	if err != nil {
		return err
	}
	defer a.Close()

	handler, err := console.New(cfg, a.controller, a.client, console.WithUserLister(a.client))
	if err != nil {
		return err
	}
	defer handler.Close()

	server := &http.Server{Addr: cfg.GetListenAddr(), Handler: handler}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(server)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("console listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("console stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
