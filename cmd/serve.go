package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/floe/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve starts the HTTP API and blocks until the context is canceled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	if err := r.config.Validate(); err != nil {
		return err
	}

	host := r.config.Server.Host
	if flag := cmd.String("host"); flag != "" {
		host = flag
	}
	port := r.config.Server.Port
	if flag := int(cmd.Int("port")); flag != 0 {
		port = flag
	}

	api := server.NewAPI(r.store, r.engine, r.playlists, r.logger)
	if archive, closeDB, err := r.openArchive(); err != nil {
		r.logger.Warn("archive unavailable, stats endpoint disabled", "error", err)
	} else if archive != nil {
		defer closeDB()
		api.WithArchive(archive)
		r.engine.WithArchive(archive)
	}

	router := server.NewBasicRouter()
	router.Use(server.Recoverer(r.logger), server.RequestLogger(r.logger))
	api.Register(router)

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	r.logger.Info("starting HTTP API", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
