package handlers

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/moviecatalog/internal/domain/model"
	"github.com/bigkaa/moviecatalog/internal/repository"
	"github.com/bigkaa/moviecatalog/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCatalog — мок MovieCatalog на функциях.
type mockCatalog struct {
	createFn func(ctx context.Context, m *model.Movie) (*model.Movie, error)
	getFn    func(ctx context.Context, id int64) (*model.Movie, error)
	updateFn func(ctx context.Context, id int64, m *model.Movie) (*model.Movie, error)
	deleteFn func(ctx context.Context, id int64) error
	searchFn func(ctx context.Context, f repository.MovieFilter, s repository.SortSpec, p repository.PageRequest) (*service.PageResult, error)
	listFn   func(ctx context.Context, f repository.MovieFilter, s repository.SortSpec) ([]*model.Movie, error)
}

func (m *mockCatalog) Create(ctx context.Context, movie *model.Movie) (*model.Movie, error) {
	return m.createFn(ctx, movie)
}

func (m *mockCatalog) Get(ctx context.Context, id int64) (*model.Movie, error) {
	return m.getFn(ctx, id)
}

func (m *mockCatalog) Update(ctx context.Context, id int64, movie *model.Movie) (*model.Movie, error) {
	return m.updateFn(ctx, id, movie)
}

func (m *mockCatalog) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

func (m *mockCatalog) Search(ctx context.Context, f repository.MovieFilter, s repository.SortSpec, p repository.PageRequest) (*service.PageResult, error) {
	return m.searchFn(ctx, f, s, p)
}

func (m *mockCatalog) List(ctx context.Context, f repository.MovieFilter, s repository.SortSpec) ([]*model.Movie, error) {
	return m.listFn(ctx, f, s)
}

// moviesRouter монтирует обработчик каталога на те же пути, что и сервер.
func moviesRouter(h *MoviesHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/main", h.Search)
	r.Get("/api/movies", h.List)
	r.Get("/api/movies/filter", h.Filter)
	r.Get("/api/movies/sort", h.Sort)
	r.Get("/api/movie/{id}", h.Get)
	r.Post("/api/add", h.Create)
	r.Put("/api/update/{id}", h.Update)
	r.Delete("/api/delete/{id}", h.Delete)
	return r
}
