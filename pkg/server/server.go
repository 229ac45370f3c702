package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	reporthandler "github.com/fleet-tools/work-ledger/pkg/handlers/report"
	workhandler "github.com/fleet-tools/work-ledger/pkg/handlers/work"
	ledgermiddleware "github.com/fleet-tools/work-ledger/pkg/server/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server

	shutdownTimeout time.Duration
}

type Dependencies struct {
	Reports *reporthandler.Handler
	Work    *workhandler.Handler
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	router := ConfigureRouter(logger, config.Dependencies)

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
		shutdownTimeout: timeout,
	}
}

// ConfigureRouter wires middleware and routes; exposed separately so tests
// can drive the router without a listening server.
func ConfigureRouter(logger zerolog.Logger, deps Dependencies) *chi.Mux {
	router := chi.NewRouter()

	router.Use(ledgermiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/reports", func(r chi.Router) {
			r.Get("/{reportType}/columns", deps.Reports.ListColumns)
			r.Post("/preview", deps.Reports.Preview)
			r.Post("/export", deps.Reports.Export)
			r.Post("/templates", deps.Reports.SaveTemplate)
			r.Get("/templates", deps.Reports.ListTemplates)
			r.Get("/templates/{templateID}", deps.Reports.LoadTemplate)
			r.Delete("/templates/{templateID}", deps.Reports.DeleteTemplate)
		})
		r.Route("/work-records", func(r chi.Router) {
			r.Get("/", deps.Work.List)
			r.Post("/", deps.Work.Create)
			r.Get("/{recordID}", deps.Work.Get)
			r.Put("/{recordID}", deps.Work.Update)
			r.Delete("/{recordID}", deps.Work.Delete)
		})
	})

	return router
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
