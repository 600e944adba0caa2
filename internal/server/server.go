package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/DocMind/internal/adapter/utils"
	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/middleware"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// RegisterRoutes mounts the API on r. Every route runs through middleware.Wrap.
func RegisterRoutes(r chi.Router) {
	r.Get("/health", middleware.HealthHandler)
	r.Post("/chat", middleware.ChatHandler)
	r.Get("/status/{id}", middleware.GetStatusHandler)

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", middleware.PostDocumentHandler)
		r.Get("/", middleware.ListDocumentsHandler)
		r.Get("/{id}", middleware.GetDocumentHandler)
		r.Delete("/{id}", middleware.DeleteDocumentHandler)
		r.Post("/{id}/reprocess", middleware.ReprocessDocumentHandler)
		r.Post("/{id}/summarize", middleware.SummarizeDocumentHandler)
		r.Post("/{id}/questions", middleware.QuestionsDocumentHandler)
	})
}

func CreateServer(listenAddr string) {
	r := utils.GetRouter()
	RegisterRoutes(r.Router)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err, "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		// in-flight jobs finish before the external clients close
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Graceful shutdown complete")
	case <-ctx.Done():
		_logger.Info("Force shut down")
		os.Exit(1)
	}
}
