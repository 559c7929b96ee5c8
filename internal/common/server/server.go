package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlibekovAA/examination-system/internal/common/constants"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
)

type ShutdownHook func(ctx context.Context) error

// StartWithGracefulShutdown serves until SIGINT/SIGTERM, then runs hooks
// within the drain window and shuts the server down.
func StartWithGracefulShutdown(
	server *http.Server,
	log *logger.Logger,
	serviceName string,
	hooks ...ShutdownHook,
) error {
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("%s service listening on %s", serviceName, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			return err
		}
		return nil
	case <-quit:
	}

	log.Infof("shutting down %s service...", serviceName)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer shutdownCancel()

	server.SetKeepAlivesEnabled(false)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service forced to shutdown: %v", serviceName, err)
	}

	drainCtx, drainCancel := context.WithTimeout(shutdownCtx, constants.DrainTimeout)
	defer drainCancel()

	for i, hook := range hooks {
		if err := hook(drainCtx); err != nil {
			log.Errorf("%s service: shutdown hook %d failed: %v", serviceName, i, err)
		}
	}

	log.Infof("%s service stopped", serviceName)
	return nil
}
