// Пакет handlers — HTTP-обработчики Movie Catalog.
// Параметры пути и запроса разбираются через oapi-codegen runtime
// по правилам OpenAPI (style form/simple), ошибки — через api/errors.
package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/bigkaa/moviecatalog/internal/repository"
)

// Параметры пагинации по умолчанию.
const (
	defaultPageSize = 10
	maxPageSize     = 1000
)

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// paginationDefaults нормализует параметры пагинации.
// page < 0 → 0; size по умолчанию 10, ограничен диапазоном 1..1000.
// page ограничен сверху так, чтобы page*size не переполнял int:
// такая страница заведомо пуста.
func paginationDefaults(page, size *int) repository.PageRequest {
	p := repository.PageRequest{Page: 0, Size: defaultPageSize}

	if size != nil {
		p.Size = min(max(*size, 1), maxPageSize)
	}
	if page != nil && *page > 0 {
		p.Page = min(*page, math.MaxInt/p.Size)
	}

	return p
}

// movieQuery — параметры поиска фильмов из строки запроса.
type movieQuery struct {
	Search       *string
	Categories   []string
	Rating       *float64
	Sort         *string
	Alphabetical *string
	Page         *int
	Size         *int
}

// bindMovieQuery разбирает параметры поиска. Некорректные числа — ошибка.
func bindMovieQuery(q url.Values) (*movieQuery, error) {
	var params movieQuery

	if err := runtime.BindQueryParameter("form", true, false, "search", q, &params.Search); err != nil {
		return nil, fmt.Errorf("параметр search: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "categories", q, &params.Categories); err != nil {
		return nil, fmt.Errorf("параметр categories: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "rating", q, &params.Rating); err != nil {
		return nil, fmt.Errorf("параметр rating: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "sort", q, &params.Sort); err != nil {
		return nil, fmt.Errorf("параметр sort: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "alphabetical", q, &params.Alphabetical); err != nil {
		return nil, fmt.Errorf("параметр alphabetical: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &params.Page); err != nil {
		return nil, fmt.Errorf("параметр page: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "size", q, &params.Size); err != nil {
		return nil, fmt.Errorf("параметр size: %w", err)
	}

	params.Categories = splitCategories(params.Categories)
	return &params, nil
}

// filter строит фильтр. Пустое название не ограничивает выборку.
func (q *movieQuery) filter() repository.MovieFilter {
	f := repository.MovieFilter{Categories: q.Categories, MinRating: q.Rating}
	if q.Search != nil && *q.Search != "" {
		f.Title = q.Search
	}
	return f
}

// sortSpec выбирает сортировку: alphabetical (по названию) важнее sort (по оценке).
func (q *movieQuery) sortSpec() (repository.SortSpec, error) {
	if q.Alphabetical != nil && *q.Alphabetical != "" {
		order, err := parseOrder("alphabetical", *q.Alphabetical)
		if err != nil {
			return repository.SortSpec{}, err
		}
		return repository.SortSpec{Field: repository.SortByTitle, Order: order}, nil
	}
	if q.Sort != nil && *q.Sort != "" {
		order, err := parseOrder("sort", *q.Sort)
		if err != nil {
			return repository.SortSpec{}, err
		}
		return repository.SortSpec{Field: repository.SortByRating, Order: order}, nil
	}
	return repository.SortSpec{}, nil
}

// parseOrder принимает asc или desc без учёта регистра.
func parseOrder(param, value string) (string, error) {
	switch strings.ToLower(value) {
	case repository.SortAsc:
		return repository.SortAsc, nil
	case repository.SortDesc:
		return repository.SortDesc, nil
	}
	return "", fmt.Errorf("параметр %s: допустимые значения asc, desc, получено %q", param, value)
}

// splitCategories раскладывает значения через запятую, убирает пустые
// и повторы с сохранением порядка.
// ?categories=Drama,Comedy&categories=Horror,Drama → [Drama Comedy Horror]
func splitCategories(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, v := range raw {
		for _, c := range strings.Split(v, ",") {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// bindMovieID разбирает {id} из пути.
func bindMovieID(r *http.Request) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return 0, fmt.Errorf("параметр id: %w", err)
	}
	return id, nil
}
