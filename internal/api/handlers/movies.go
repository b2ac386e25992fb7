// movies.go — HTTP handlers каталога фильмов: поиск, CRUD.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/moviecatalog/internal/api/errors"
	"github.com/bigkaa/moviecatalog/internal/domain/model"
	"github.com/bigkaa/moviecatalog/internal/repository"
	"github.com/bigkaa/moviecatalog/internal/service"
)

// maxMovieBodySize — ограничение тела запроса create/update.
const maxMovieBodySize = 1 << 20

// MovieCatalog — операции каталога, нужные HTTP-слою.
type MovieCatalog interface {
	Create(ctx context.Context, m *model.Movie) (*model.Movie, error)
	Get(ctx context.Context, id int64) (*model.Movie, error)
	Update(ctx context.Context, id int64, m *model.Movie) (*model.Movie, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, filter repository.MovieFilter, sort repository.SortSpec, page repository.PageRequest) (*service.PageResult, error)
	List(ctx context.Context, filter repository.MovieFilter, sort repository.SortSpec) ([]*model.Movie, error)
}

// MoviesHandler — обработчик endpoints каталога.
type MoviesHandler struct {
	catalog MovieCatalog
	logger  *slog.Logger
}

// NewMoviesHandler создаёт обработчик каталога.
func NewMoviesHandler(catalog MovieCatalog, logger *slog.Logger) *MoviesHandler {
	return &MoviesHandler{
		catalog: catalog,
		logger:  logger.With(slog.String("component", "movies_handler")),
	}
}

// moviePage — страница в формате Spring Data Page.
type moviePage struct {
	Content          []*model.Movie `json:"content"`
	TotalElements    int            `json:"totalElements"`
	TotalPages       int            `json:"totalPages"`
	Number           int            `json:"number"`
	Size             int            `json:"size"`
	NumberOfElements int            `json:"numberOfElements"`
	First            bool           `json:"first"`
	Last             bool           `json:"last"`
	Empty            bool           `json:"empty"`
}

func newMoviePage(res *service.PageResult) moviePage {
	items := res.Items
	if items == nil {
		items = []*model.Movie{}
	}
	totalPages := res.TotalPages()
	return moviePage{
		Content:          items,
		TotalElements:    res.Total,
		TotalPages:       totalPages,
		Number:           res.Page,
		Size:             res.Size,
		NumberOfElements: len(items),
		First:            res.Page == 0,
		Last:             res.Page >= totalPages-1,
		Empty:            len(items) == 0,
	}
}

// Search обрабатывает GET /api/main — постраничный поиск.
func (h *MoviesHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := bindMovieQuery(r.URL.Query())
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	sort, err := q.sortSpec()
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	res, err := h.catalog.Search(r.Context(), q.filter(), sort, paginationDefaults(q.Page, q.Size))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMoviePage(res))
}

// List обрабатывает GET /api/movies — поиск без пагинации.
func (h *MoviesHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := bindMovieQuery(r.URL.Query())
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	sort, err := q.sortSpec()
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	h.list(w, r, q.filter(), sort)
}

// Filter обрабатывает GET /api/movies/filter — только фильтры, порядок по id.
func (h *MoviesHandler) Filter(w http.ResponseWriter, r *http.Request) {
	q, err := bindMovieQuery(r.URL.Query())
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	h.list(w, r, q.filter(), repository.SortSpec{})
}

// Sort обрабатывает GET /api/movies/sort?field=rating|title&order=asc|desc.
func (h *MoviesHandler) Sort(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	field := query.Get("field")
	switch field {
	case "":
		field = repository.SortByRating
	case repository.SortByRating, repository.SortByTitle:
	default:
		apierrors.ValidationError(w, "параметр field: допустимые значения rating, title")
		return
	}

	order := repository.SortAsc
	if v := query.Get("order"); v != "" {
		var err error
		if order, err = parseOrder("order", v); err != nil {
			apierrors.ValidationError(w, err.Error())
			return
		}
	}

	h.list(w, r, repository.MovieFilter{}, repository.SortSpec{Field: field, Order: order})
}

func (h *MoviesHandler) list(w http.ResponseWriter, r *http.Request, filter repository.MovieFilter, sort repository.SortSpec) {
	movies, err := h.catalog.List(r.Context(), filter, sort)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if movies == nil {
		movies = []*model.Movie{}
	}
	writeJSON(w, http.StatusOK, movies)
}

// Get обрабатывает GET /api/movie/{id}.
func (h *MoviesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := bindMovieID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	movie, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// Create обрабатывает POST /api/add.
func (h *MoviesHandler) Create(w http.ResponseWriter, r *http.Request) {
	movie, ok := decodeMovie(w, r)
	if !ok {
		return
	}

	created, err := h.catalog.Create(r.Context(), movie)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// Update обрабатывает PUT /api/update/{id}.
func (h *MoviesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := bindMovieID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	movie, ok := decodeMovie(w, r)
	if !ok {
		return
	}

	updated, err := h.catalog.Update(r.Context(), id, movie)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete обрабатывает DELETE /api/delete/{id}. Успех — 200 с пустым телом.
func (h *MoviesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := bindMovieID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// decodeMovie читает фильм из тела запроса. При ошибке ответ уже записан.
func decodeMovie(w http.ResponseWriter, r *http.Request) (*model.Movie, bool) {
	var movie model.Movie
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMovieBodySize))
	if err := dec.Decode(&movie); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return nil, false
	}
	return &movie, true
}

// writeServiceError переводит ошибку сервиса в HTTP-ответ.
func (h *MoviesHandler) writeServiceError(w http.ResponseWriter, err error) {
	var verrs service.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		apierrors.FieldErrors(w, verrs)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Фильм не найден")
	default:
		h.logger.Error("Ошибка хранилища", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
