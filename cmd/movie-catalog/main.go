// Точка входа Movie Catalog — каталог фильмов с поиском, загрузкой файлов
// и рассылкой событий. Загружает конфигурацию, применяет миграции,
// подключается к PostgreSQL, заполняет пустой каталог, запускает
// WebSocket-хаб, генератор и очистку загрузок под супервизором, topologymetrics
// и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/moviecatalog/internal/api/handlers"
	"github.com/bigkaa/moviecatalog/internal/api/openapi"
	"github.com/bigkaa/moviecatalog/internal/broadcast"
	"github.com/bigkaa/moviecatalog/internal/config"
	"github.com/bigkaa/moviecatalog/internal/database"
	"github.com/bigkaa/moviecatalog/internal/repository"
	"github.com/bigkaa/moviecatalog/internal/server"
	"github.com/bigkaa/moviecatalog/internal/service"
	"github.com/bigkaa/moviecatalog/internal/storage/filestore"
	"github.com/bigkaa/moviecatalog/internal/supervisor"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Movie Catalog запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Проверка встроенного OpenAPI-контракта
	if _, err := openapi.Load(ctx); err != nil {
		logger.Error("Ошибка OpenAPI-контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 6. Repository и сервис каталога
	movieRepo := repository.NewMovieRepository(pool)
	movieSvc := service.NewMovieService(movieRepo, logger)

	// 7. Демонстрационные записи в пустом каталоге
	if cfg.SeedEnabled {
		if _, err := service.Seed(ctx, movieRepo, logger); err != nil {
			logger.Error("Ошибка заполнения каталога", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 8. Файловое хранилище
	store, err := filestore.New(cfg.UploadDir)
	if err != nil {
		logger.Error("Ошибка инициализации файлового хранилища",
			slog.String("dir", cfg.UploadDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// 9. Рассылка событий: WebSocket-хаб и, опционально, NATS
	hub := broadcast.NewHub(logger)
	var broadcaster broadcast.Broadcaster = hub
	if cfg.NATSURL != "" {
		natsPub, natsErr := broadcast.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, logger)
		if natsErr != nil {
			logger.Error("Ошибка подключения к NATS", slog.String("error", natsErr.Error()))
			os.Exit(1)
		}
		defer natsPub.Close()
		broadcaster = broadcast.Multi{hub, natsPub}
		logger.Info("Публикация в NATS включена",
			slog.String("url", cfg.NATSURL),
			slog.String("prefix", cfg.NATSSubjectPrefix),
		)
	}

	// 10. Фоновые сервисы под супервизором
	tree := supervisor.NewTree(logger, supervisor.TreeConfig{ShutdownTimeout: cfg.ShutdownTimeout})
	tree.AddMessagingService(hub)
	tree.AddTaskService(service.NewUploadJanitor(store, cfg.UploadJanitorInterval, cfg.UploadTmpMaxAge, logger))
	if cfg.GeneratorEnabled {
		tree.AddTaskService(service.NewGenerator(movieRepo, broadcaster, cfg.GeneratorInterval, logger))
	}
	treeDone := tree.ServeBackground(ctx)

	// 11. topologymetrics — мониторинг PostgreSQL и NATS
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "movie-catalog",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PostgresURL:   cfg.DatabaseURL("postgres"),
		NATSURL:       cfg.NATSURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 12. HTTP-сервер
	srv := server.New(cfg, logger, server.Handlers{
		Health: handlers.NewHealthHandler(database.NewReadinessChecker(pool)),
		Movies: handlers.NewMoviesHandler(movieSvc, logger),
		Files:  handlers.NewFilesHandler(store, cfg.UploadMaxSize, logger),
		WS:     handlers.NewWSHandler(hub, cfg.CORSAllowedOrigin, logger),
	})

	// 13. Запуск сервера (блокирующий вызов с graceful shutdown)
	runErr := srv.Run(ctx)

	// 14. Остановка фоновых сервисов
	cancel()
	// suture сам ограничивает остановку каждого сервиса ShutdownTimeout;
	// запас на вложенные супервизоры
	select {
	case <-treeDone:
		tree.LogUnstopped()
	case <-time.After(3 * cfg.ShutdownTimeout):
		logger.Warn("Супервизор не остановился за отведённое время")
	}
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	if runErr != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("Movie Catalog остановлен")
}
