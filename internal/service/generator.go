// generator.go — фоновая генерация демонстрационных фильмов.
//
// Каждый тик генератор создаёт фильм со случайной оценкой и категорией,
// публикует его в TopicMovies, затем пересчитывает и публикует
// статистику по категориям. Ошибка одного тика логируется и не
// останавливает генератор.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/moviecatalog/internal/broadcast"
	"github.com/bigkaa/moviecatalog/internal/domain/model"
	"github.com/bigkaa/moviecatalog/internal/repository"
)

// Параметры генерируемых фильмов.
const (
	generatedTitlePrefix  = "Auto-Generated Movie "
	generatedDescription  = "This is an auto-generated movie for demonstration purposes."
	generatedMinRating    = 1.0
	generatedRatingSpread = 4.0
)

// GeneratedCategories — категории, из которых выбирает генератор.
var GeneratedCategories = []string{"Action", "Comedy", "Drama", "Sci-Fi", "Horror", "Romance", "Thriller"}

// Prometheus-метрики генератора.
var (
	generatorRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_generator_runs_total",
		Help: "Общее количество запусков генератора.",
	})
	generatorFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_generator_failures_total",
		Help: "Количество неуспешных запусков генератора.",
	})
	generatorDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mc_generator_duration_seconds",
		Help:    "Длительность одного запуска генератора.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// Generator — периодический генератор фильмов.
type Generator struct {
	repo        repository.MovieRepository
	broadcaster broadcast.Broadcaster
	interval    time.Duration
	logger      *slog.Logger

	mu  sync.Mutex // сериализует RunOnce; защищает rng
	rng *rand.Rand
}

// NewGenerator создаёт генератор с периодом interval.
func NewGenerator(
	repo repository.MovieRepository,
	broadcaster broadcast.Broadcaster,
	interval time.Duration,
	logger *slog.Logger,
) *Generator {
	return &Generator{
		repo:        repo,
		broadcaster: broadcaster,
		interval:    interval,
		logger:      logger.With(slog.String("component", "generator")),
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Serve выполняет первый запуск сразу, затем по тикеру до отмены контекста.
func (g *Generator) Serve(ctx context.Context) error {
	g.logger.Info("Генератор запущен", slog.String("interval", g.interval.String()))

	_, _ = g.RunOnce(ctx)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("Генератор остановлен")
			return ctx.Err()
		case <-ticker.C:
			_, _ = g.RunOnce(ctx)
		}
	}
}

func (g *Generator) String() string {
	return "movie-generator"
}

// RunOnce выполняет один запуск: создание, публикация фильма и статистики.
// Ошибки и паника логируются и возвращаются, повторов нет.
func (g *Generator) RunOnce(ctx context.Context) (movie *model.Movie, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := time.Now()
	generatorRunsTotal.Inc()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в генераторе: %v", r)
		}
		generatorDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			generatorFailuresTotal.Inc()
			g.logger.Error("Ошибка генерации фильма", slog.String("error", err.Error()))
		}
	}()

	movie = g.newMovie()
	if err := g.repo.Create(ctx, movie); err != nil {
		return nil, fmt.Errorf("сохранение фильма: %w", err)
	}

	g.logger.Info("Сгенерирован фильм",
		slog.Int64("id", movie.ID),
		slog.String("title", movie.Title),
		slog.String("category", movie.Category),
	)

	return movie, g.publish(ctx, movie)
}

// newMovie создаёт случайный фильм. Вызывается под g.mu.
func (g *Generator) newMovie() *model.Movie {
	return &model.Movie{
		Title:       generatedTitlePrefix + uuid.NewString()[:8],
		Rating:      generatedMinRating + g.rng.Float64()*generatedRatingSpread,
		Description: generatedDescription,
		Category:    GeneratedCategories[g.rng.IntN(len(GeneratedCategories))],
	}
}

// publish рассылает фильм и свежую статистику. Каждый топик публикуется
// независимо, ошибки объединяются.
func (g *Generator) publish(ctx context.Context, movie *model.Movie) error {
	var errs []error

	if err := g.broadcaster.Publish(ctx, broadcast.TopicMovies, movie); err != nil {
		errs = append(errs, fmt.Errorf("публикация фильма: %w", err))
	}

	counts, err := g.repo.CategoryCounts(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("подсчёт по категориям: %w", err))
	} else {
		payload := make(map[string]int64, len(counts))
		for _, c := range counts {
			payload[c.Category] = c.Count
		}
		if err := g.broadcaster.Publish(ctx, broadcast.TopicCategoryCounts, payload); err != nil {
			errs = append(errs, fmt.Errorf("публикация количества по категориям: %w", err))
		}
	}

	ratings, err := g.repo.CategoryAverageRatings(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("средние оценки по категориям: %w", err))
	} else {
		payload := make(map[string]float64, len(ratings))
		for _, r := range ratings {
			payload[r.Category] = r.Average
		}
		if err := g.broadcaster.Publish(ctx, broadcast.TopicCategoryRatings, payload); err != nil {
			errs = append(errs, fmt.Errorf("публикация средних оценок: %w", err))
		}
	}

	return errors.Join(errs...)
}
