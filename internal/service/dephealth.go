// dephealth.go — мониторинг внешних зависимостей Movie Catalog через topologymetrics.
//
// Список зависимостей строится из конфигурации:
//   - postgresql — всегда, критичная; проверка через *sql.DB поверх pgxpool;
//   - nats — только при заданном MC_NATS_URL, некритичная; TCP-проверка первого
//     адреса из списка серверов.
//
// Метрики app_dependency_* публикуются на /metrics.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/tcpcheck" // регистрация TCP checker factory
	"github.com/prometheus/client_golang/prometheus"
)

// defaultNATSPort — порт клиента NATS, если в URL он не указан.
const defaultNATSPort = "4222"

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (MC_DEPHEALTH_GROUP)
	Group string
	// DB — *sql.DB из stdlib.OpenDBFromPool()
	DB *sql.DB
	// PostgresURL — URL PostgreSQL, только для лейблов host/port
	PostgresURL string
	// NATSURL — список серверов NATS через запятую; пусто — не мониторится
	NATSURL string
	// CheckInterval — интервал проверки (MC_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
	// Registerer — registry для метрик; nil — глобальный
	Registerer prometheus.Registerer
}

// dependencies собирает опции dephealth и имена зависимостей.
func (c DephealthConfig) dependencies() ([]dephealth.Option, []string, error) {
	if c.DB == nil {
		return nil, nil, errors.New("не задан *sql.DB для проверки PostgreSQL")
	}

	opts := []dephealth.Option{
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(c.DB)),
			dephealth.FromURL(c.PostgresURL),
			dephealth.CheckInterval(c.CheckInterval),
			dephealth.Critical(true),
		),
	}
	names := []string{"postgresql"}

	if c.NATSURL != "" {
		host, port, err := natsEndpoint(c.NATSURL)
		if err != nil {
			return nil, nil, fmt.Errorf("MC_NATS_URL: %w", err)
		}
		// Публикация в NATS дополнительна к WebSocket, сбой не критичен
		opts = append(opts, dephealth.TCP("nats",
			dephealth.FromParams(host, port),
			dephealth.CheckInterval(c.CheckInterval),
			dephealth.Critical(false),
		))
		names = append(names, "nats")
	}

	return opts, names, nil
}

// natsEndpoint возвращает host и port первого сервера из списка NATS URL.
// nats://a:4222,nats://b:4222 → a, 4222; nats://a → a, 4222.
func natsEndpoint(raw string) (string, string, error) {
	first := strings.TrimSpace(strings.Split(raw, ",")[0])
	if !strings.Contains(first, "://") {
		first = "nats://" + first
	}
	u, err := url.Parse(first)
	if err != nil {
		return "", "", err
	}
	host, port := u.Hostname(), u.Port()
	if host == "" {
		return "", "", fmt.Errorf("не указан хост в %q", raw)
	}
	if port == "" {
		port = defaultNATSPort
	}
	return host, port, nil
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	names  []string
	logger *slog.Logger
}

// NewDephealthService создаёт сервис по списку зависимостей из cfg.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	deps, names, err := cfg.dependencies()
	if err != nil {
		return nil, err
	}

	opts := append([]dephealth.Option{dephealth.WithLogger(logger)}, deps...)
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		names:  names,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Dependencies возвращает имена отслеживаемых зависимостей.
func (ds *DephealthService) Dependencies() []string {
	return ds.names
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен",
		slog.String("dependencies", strings.Join(ds.names, ",")),
	)
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает состояние зависимостей: ключ "<имя>:<host>:<port>", true — ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
