package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики очистки временных файлов.
var (
	janitorRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_janitor_runs_total",
		Help: "Общее количество запусков очистки временных файлов загрузки.",
	})
	janitorTmpRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_janitor_tmp_removed_total",
		Help: "Количество удалённых устаревших временных файлов.",
	})
)

// TmpCleaner — хранилище, умеющее удалять устаревшие временные файлы.
type TmpCleaner interface {
	RemoveStaleTmp(olderThan time.Duration, now time.Time) (int, error)
}

// UploadJanitor периодически удаляет временные файлы незавершённых загрузок.
type UploadJanitor struct {
	store    TmpCleaner
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
	now      func() time.Time
	mu       sync.Mutex
}

// NewUploadJanitor создаёт janitor. maxAge — возраст, после которого
// временный файл считается брошенным.
func NewUploadJanitor(store TmpCleaner, interval, maxAge time.Duration, logger *slog.Logger) *UploadJanitor {
	return &UploadJanitor{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.With(slog.String("component", "upload-janitor")),
		now:      time.Now,
	}
}

// Serve выполняет первую очистку сразу, затем по тикеру.
func (j *UploadJanitor) Serve(ctx context.Context) error {
	j.logger.Info("Очистка временных файлов запущена",
		slog.String("interval", j.interval.String()),
		slog.String("max_age", j.maxAge.String()),
	)

	j.RunOnce()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Очистка временных файлов остановлена")
			return ctx.Err()
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

func (j *UploadJanitor) String() string {
	return "upload-janitor"
}

// RunOnce выполняет один проход очистки и возвращает число удалённых файлов.
func (j *UploadJanitor) RunOnce() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	janitorRunsTotal.Inc()

	removed, err := j.store.RemoveStaleTmp(j.maxAge, j.now())
	janitorTmpRemovedTotal.Add(float64(removed))

	if err != nil {
		j.logger.Warn("Ошибка очистки временных файлов",
			slog.Int("removed", removed),
			slog.String("error", err.Error()),
		)
		return removed
	}
	if removed > 0 {
		j.logger.Info("Удалены устаревшие временные файлы", slog.Int("removed", removed))
	}
	return removed
}
