package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/bigkaa/moviecatalog/internal/domain/model"
	"github.com/bigkaa/moviecatalog/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock repository ---

// mockMovieRepo — мок MovieRepository для unit-тестов.
type mockMovieRepo struct {
	createFn         func(ctx context.Context, m *model.Movie) error
	getByIDFn        func(ctx context.Context, id int64) (*model.Movie, error)
	updateFn         func(ctx context.Context, m *model.Movie) error
	deleteFn         func(ctx context.Context, id int64) error
	listFn           func(ctx context.Context, f repository.MovieFilter, s repository.SortSpec) ([]*model.Movie, error)
	searchFn         func(ctx context.Context, f repository.MovieFilter, s repository.SortSpec, p repository.PageRequest) ([]*model.Movie, int, error)
	countFn          func(ctx context.Context) (int, error)
	categoryCountsFn func(ctx context.Context) ([]model.CategoryCount, error)
	categoryRatingFn func(ctx context.Context) ([]model.CategoryRating, error)
}

func (m *mockMovieRepo) Create(ctx context.Context, mv *model.Movie) error {
	if m.createFn != nil {
		return m.createFn(ctx, mv)
	}
	return nil
}

func (m *mockMovieRepo) GetByID(ctx context.Context, id int64) (*model.Movie, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockMovieRepo) Update(ctx context.Context, mv *model.Movie) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, mv)
	}
	return nil
}

func (m *mockMovieRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockMovieRepo) List(ctx context.Context, f repository.MovieFilter, s repository.SortSpec) ([]*model.Movie, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f, s)
	}
	return []*model.Movie{}, nil
}

func (m *mockMovieRepo) Search(
	ctx context.Context, f repository.MovieFilter, s repository.SortSpec, p repository.PageRequest,
) ([]*model.Movie, int, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, f, s, p)
	}
	return []*model.Movie{}, 0, nil
}

func (m *mockMovieRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockMovieRepo) CategoryCounts(ctx context.Context) ([]model.CategoryCount, error) {
	if m.categoryCountsFn != nil {
		return m.categoryCountsFn(ctx)
	}
	return nil, nil
}

func (m *mockMovieRepo) CategoryAverageRatings(ctx context.Context) ([]model.CategoryRating, error) {
	if m.categoryRatingFn != nil {
		return m.categoryRatingFn(ctx)
	}
	return nil, nil
}

// memoryRepo — in-memory репозиторий для генератора и seeder:
// назначает id по порядку и считает агрегаты.
type memoryRepo struct {
	mockMovieRepo
	mu     sync.Mutex
	movies []*model.Movie
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	r := &memoryRepo{}
	r.createFn = func(_ context.Context, mv *model.Movie) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.nextID++
		mv.ID = r.nextID
		cp := *mv
		r.movies = append(r.movies, &cp)
		return nil
	}
	r.countFn = func(context.Context) (int, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.movies), nil
	}
	r.categoryCountsFn = func(context.Context) ([]model.CategoryCount, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		counts := map[string]int64{}
		for _, mv := range r.movies {
			counts[mv.Category]++
		}
		out := make([]model.CategoryCount, 0, len(counts))
		for c, n := range counts {
			out = append(out, model.CategoryCount{Category: c, Count: n})
		}
		return out, nil
	}
	r.categoryRatingFn = func(context.Context) ([]model.CategoryRating, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		sums := map[string]float64{}
		counts := map[string]float64{}
		for _, mv := range r.movies {
			sums[mv.Category] += mv.Rating
			counts[mv.Category]++
		}
		out := make([]model.CategoryRating, 0, len(sums))
		for c, s := range sums {
			out = append(out, model.CategoryRating{Category: c, Average: s / counts[c]})
		}
		return out, nil
	}
	return r
}

// --- Broadcaster ---

type publication struct {
	topic   string
	payload any
}

// recordingBroadcaster запоминает все публикации.
type recordingBroadcaster struct {
	mu    sync.Mutex
	pubs  []publication
	errOn map[string]error
}

func (b *recordingBroadcaster) Publish(_ context.Context, topic string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pubs = append(b.pubs, publication{topic: topic, payload: payload})
	return b.errOn[topic]
}

func (b *recordingBroadcaster) byTopic(topic string) []publication {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publication
	for _, p := range b.pubs {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}
