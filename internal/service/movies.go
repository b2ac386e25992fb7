// movies.go — сервис каталога фильмов: CRUD, поиск и пагинация.
// Координирует repository, валидацию и Prometheus-метрики.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/moviecatalog/internal/domain/model"
	"github.com/bigkaa/moviecatalog/internal/repository"
)

// Prometheus-метрики каталога.
var (
	searchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_search_total",
		Help: "Общее количество поисковых запросов.",
	})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mc_search_duration_seconds",
		Help:    "Длительность поисковых запросов.",
		Buckets: prometheus.DefBuckets,
	})
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mc_movie_mutations_total",
		Help: "Количество изменений каталога по операциям.",
	}, []string{"operation"})
)

// PageResult — одна страница результатов поиска.
type PageResult struct {
	// Items — фильмы текущей страницы
	Items []*model.Movie
	// Total — общее количество совпадений
	Total int
	// Page — номер страницы, с нуля
	Page int
	// Size — запрошенный размер страницы
	Size int
}

// TotalPages возвращает количество страниц при текущем размере.
func (p *PageResult) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}

// MovieService — сервис каталога фильмов.
type MovieService struct {
	repo      repository.MovieRepository
	validator *MovieValidator
	logger    *slog.Logger
}

// NewMovieService создаёт сервис каталога.
func NewMovieService(repo repository.MovieRepository, logger *slog.Logger) *MovieService {
	return &MovieService{
		repo:      repo,
		validator: NewMovieValidator(),
		logger:    logger.With(slog.String("component", "movie_service")),
	}
}

// Create проверяет и сохраняет новый фильм. Переданный ID игнорируется.
// Возвращает сохранённую запись с назначенным ID.
func (s *MovieService) Create(ctx context.Context, m *model.Movie) (*model.Movie, error) {
	if err := s.validator.Validate(m); err != nil {
		return nil, err
	}

	movie := *m
	movie.ID = 0
	if err := s.repo.Create(ctx, &movie); err != nil {
		return nil, fmt.Errorf("создание фильма: %w", err)
	}
	mutationsTotal.WithLabelValues("create").Inc()

	s.logger.Info("Фильм создан",
		slog.Int64("id", movie.ID),
		slog.String("category", movie.Category),
	)
	return &movie, nil
}

// Get возвращает фильм по ID или ErrNotFound.
func (s *MovieService) Get(ctx context.Context, id int64) (*model.Movie, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение фильма: %w", err)
	}
	return m, nil
}

// Update проверяет данные по тем же правилам, что Create, и перезаписывает
// все изменяемые поля фильма id. ID записи не меняется.
func (s *MovieService) Update(ctx context.Context, id int64, m *model.Movie) (*model.Movie, error) {
	if err := s.validator.Validate(m); err != nil {
		return nil, err
	}

	movie := *m
	movie.ID = id
	if err := s.repo.Update(ctx, &movie); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление фильма: %w", err)
	}
	mutationsTotal.WithLabelValues("update").Inc()

	s.logger.Info("Фильм обновлён", slog.Int64("id", id))
	return &movie, nil
}

// Delete удаляет фильм. Отсутствующий фильм — ErrNotFound.
func (s *MovieService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление фильма: %w", err)
	}
	mutationsTotal.WithLabelValues("delete").Inc()

	s.logger.Info("Фильм удалён", slog.Int64("id", id))
	return nil
}

// Search возвращает одну страницу фильмов по фильтрам и сортировке.
func (s *MovieService) Search(
	ctx context.Context,
	filter repository.MovieFilter,
	sort repository.SortSpec,
	page repository.PageRequest,
) (*PageResult, error) {
	start := time.Now()
	searchTotal.Inc()

	items, total, err := s.repo.Search(ctx, filter, sort, page)
	if err != nil {
		return nil, fmt.Errorf("поиск фильмов: %w", err)
	}

	duration := time.Since(start)
	searchDuration.Observe(duration.Seconds())

	s.logger.Debug("Поиск выполнен",
		slog.Int("total", total),
		slog.Int("returned", len(items)),
		slog.Duration("duration", duration),
	)

	return &PageResult{
		Items: items,
		Total: total,
		Page:  page.Page,
		Size:  page.Size,
	}, nil
}

// List возвращает все фильмы по фильтрам и сортировке, без пагинации.
func (s *MovieService) List(
	ctx context.Context,
	filter repository.MovieFilter,
	sort repository.SortSpec,
) ([]*model.Movie, error) {
	start := time.Now()
	searchTotal.Inc()

	items, err := s.repo.List(ctx, filter, sort)
	if err != nil {
		return nil, fmt.Errorf("список фильмов: %w", err)
	}
	searchDuration.Observe(time.Since(start).Seconds())

	return items, nil
}
