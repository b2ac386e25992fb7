// Пакет supervisor — дерево suture-супервизоров фоновых сервисов
// Movie Catalog: WebSocket-хаб, генератор фильмов и очистка временных файлов загрузки.
// Упавший сервис перезапускается с backoff, события пишутся в slog через sutureslog.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig — параметры перезапуска сервисов.
type TreeConfig struct {
	// Количество сбоев до перехода в backoff
	FailureThreshold float64
	// Скорость затухания счётчика сбоев, в секундах
	FailureDecay float64
	// Пауза после превышения порога
	FailureBackoff time.Duration
	// Максимальное время остановки сервиса
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig возвращает значения suture по умолчанию.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree — корневой супервизор и два слоя: рассылка событий и фоновые задачи.
type Tree struct {
	root      *suture.Supervisor
	messaging *suture.Supervisor
	tasks     *suture.Supervisor
	config    TreeConfig
	logger    *slog.Logger
}

// NewTree создаёт дерево супервизоров. Нулевые поля cfg заменяются значениями по умолчанию.
func NewTree(logger *slog.Logger, cfg TreeConfig) *Tree {
	def := DefaultTreeConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = def.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = def.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	logger = logger.With(slog.String("component", "supervisor"))
	hook := (&sutureslog.Handler{Logger: logger}).MustHook()

	spec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	rootSpec := spec
	rootSpec.EventHook = hook

	root := suture.New("movie-catalog", rootSpec)
	messaging := suture.New("messaging", spec)
	tasks := suture.New("tasks", spec)
	root.Add(messaging)
	root.Add(tasks)

	return &Tree{
		root:      root,
		messaging: messaging,
		tasks:     tasks,
		config:    cfg,
		logger:    logger,
	}
}

// AddMessagingService добавляет сервис рассылки (WebSocket-хаб).
func (t *Tree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddTaskService добавляет фоновую задачу (генератор, очистка загрузок).
func (t *Tree) AddTaskService(svc suture.Service) suture.ServiceToken {
	return t.tasks.Add(svc)
}

// ServeBackground запускает дерево в отдельной горутине.
// Канал получает результат после отмены ctx.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	t.logger.Info("Супервизор запущен")
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport — сервисы, не остановившиеся за ShutdownTimeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// LogUnstopped пишет в лог сервисы, не остановившиеся за ShutdownTimeout,
// и возвращает их имена. Вызывается после завершения ServeBackground.
func (t *Tree) LogUnstopped() []string {
	report, err := t.UnstoppedServiceReport()
	if err != nil {
		t.logger.Warn("Отчёт о неостановленных сервисах недоступен", slog.String("error", err.Error()))
		return nil
	}
	if len(report) == 0 {
		return nil
	}

	t.logger.Warn("Сервисы не остановились за отведённое время", slog.Int("count", len(report)))
	names := make([]string, 0, len(report))
	for _, svc := range report {
		t.logger.Warn("Сервис не остановился", slog.String("service", svc.Name))
		names = append(names, svc.Name)
	}
	return names
}
