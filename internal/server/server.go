// Пакет server — HTTP-сервер Movie Catalog с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bigkaa/moviecatalog/internal/api/handlers"
	"github.com/bigkaa/moviecatalog/internal/api/middleware"
	"github.com/bigkaa/moviecatalog/internal/api/openapi"
	"github.com/bigkaa/moviecatalog/internal/config"
)

// Handlers — набор обработчиков, монтируемых на маршруты.
// WS может быть nil, тогда /ws не регистрируется.
type Handlers struct {
	Health *handlers.HealthHandler
	Movies *handlers.MoviesHandler
	Files  *handlers.FilesHandler
	WS     http.Handler
}

// Server — HTTP-сервер Movie Catalog.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, h Handlers) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(cfg, logger, h),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер. Порядок middleware: request id, recoverer,
// метрики, логирование, CORS, rate limit.
// CORS стоит до маршрутизации, чтобы preflight обрабатывался для любого пути.
// Служебные endpoints (/health/*, /api/health, /metrics) не попадают под rate limit.
func NewRouter(cfg *config.Config, logger *slog.Logger, h Handlers) chi.Router {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigin))

	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)
	router.Get("/api/health", h.Health.APIHealth)
	router.Head("/api/health", h.Health.APIHealth)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPM))

		r.Get("/api/openapi.yaml", openapi.Handler())

		r.Get("/api/main", h.Movies.Search)
		r.Get("/api/movies", h.Movies.List)
		r.Get("/api/movies/filter", h.Movies.Filter)
		r.Get("/api/movies/sort", h.Movies.Sort)
		r.Get("/api/movie/{id}", h.Movies.Get)
		r.Post("/api/add", h.Movies.Create)
		r.Put("/api/update/{id}", h.Movies.Update)
		r.Delete("/api/delete/{id}", h.Movies.Delete)

		r.Post("/api/files/upload", h.Files.Upload)
		r.Get("/api/files/download/{name}", h.Files.Download)
		r.Get("/api/files/list", h.Files.List)

		if h.WS != nil {
			r.Get("/ws", h.WS.ServeHTTP)
		}
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. Затем выполняется graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
