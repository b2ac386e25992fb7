package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/moviecatalog/internal/domain/model"
)

// movieColumns — список столбцов таблицы movies для SELECT-запросов.
const movieColumns = `id, title, rating, description, category`

// Поля сортировки.
const (
	SortByRating = "rating"
	SortByTitle  = "title"
)

// Направления сортировки.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// MovieFilter — фильтры поиска фильмов.
// nil или пустое значение = фильтр не применяется.
type MovieFilter struct {
	// Title — подстрока названия, без учёта регистра
	Title *string
	// Categories — допустимые категории (точное совпадение, с учётом регистра)
	Categories []string
	// MinRating — минимальная оценка включительно
	MinRating *float64
}

// SortSpec — параметры сортировки.
// Пустое Field — порядок по id.
type SortSpec struct {
	Field string
	Order string
}

// PageRequest — параметры страницы. Page считается с нуля.
type PageRequest struct {
	Page int
	Size int
}

// Offset возвращает смещение первой записи страницы.
// При переполнении возвращается math.MaxInt: такая страница пуста.
func (p PageRequest) Offset() int {
	if p.Page <= 0 || p.Size <= 0 {
		return 0
	}
	if p.Page > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Page * p.Size
}

// MovieRepository — интерфейс доступа к таблице movies.
type MovieRepository interface {
	// Create вставляет фильм и заполняет m.ID назначенным значением.
	Create(ctx context.Context, m *model.Movie) error
	// GetByID возвращает фильм по id или ErrNotFound.
	GetByID(ctx context.Context, id int64) (*model.Movie, error)
	// Update перезаписывает все изменяемые поля фильма m.ID.
	Update(ctx context.Context, m *model.Movie) error
	// Delete удаляет фильм по id.
	Delete(ctx context.Context, id int64) error
	// List возвращает все фильмы, подходящие под фильтр, без пагинации.
	List(ctx context.Context, filter MovieFilter, sort SortSpec) ([]*model.Movie, error)
	// Search возвращает одну страницу и общее количество подходящих фильмов.
	Search(ctx context.Context, filter MovieFilter, sort SortSpec, page PageRequest) ([]*model.Movie, int, error)
	// Count возвращает общее количество фильмов.
	Count(ctx context.Context) (int, error)
	// CategoryCounts возвращает количество фильмов по категориям.
	CategoryCounts(ctx context.Context) ([]model.CategoryCount, error)
	// CategoryAverageRatings возвращает среднюю оценку по категориям.
	CategoryAverageRatings(ctx context.Context) ([]model.CategoryRating, error)
}

// movieRepo — реализация MovieRepository через pgx.
type movieRepo struct {
	db DBTX
}

// NewMovieRepository создаёт репозиторий фильмов.
func NewMovieRepository(db DBTX) MovieRepository {
	return &movieRepo{db: db}
}

func (r *movieRepo) Create(ctx context.Context, m *model.Movie) error {
	query := `
		INSERT INTO movies (title, rating, description, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	if err := r.db.QueryRow(ctx, query, m.Title, m.Rating, m.Description, m.Category).Scan(&m.ID); err != nil {
		return fmt.Errorf("ошибка создания фильма: %w", err)
	}
	return nil
}

func (r *movieRepo) GetByID(ctx context.Context, id int64) (*model.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)

	m := &model.Movie{}
	err := r.db.QueryRow(ctx, query, id).Scan(&m.ID, &m.Title, &m.Rating, &m.Description, &m.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения фильма: %w", err)
	}
	return m, nil
}

func (r *movieRepo) Update(ctx context.Context, m *model.Movie) error {
	query := `
		UPDATE movies
		SET title = $2, rating = $3, description = $4, category = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, m.ID, m.Title, m.Rating, m.Description, m.Category)
	if err != nil {
		return fmt.Errorf("ошибка обновления фильма: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *movieRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления фильма: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *movieRepo) List(ctx context.Context, filter MovieFilter, sort SortSpec) ([]*model.Movie, error) {
	where, args := buildMovieWhere(filter, 1)
	query := fmt.Sprintf(`SELECT %s FROM movies %s %s`, movieColumns, where, buildMovieOrderBy(sort))

	return r.queryMovies(ctx, query, args...)
}

// Search выполняет поиск с фильтрами, сортировкой и пагинацией.
// Возвращает (страница, общее количество, ошибка).
func (r *movieRepo) Search(
	ctx context.Context, filter MovieFilter, sort SortSpec, page PageRequest,
) ([]*model.Movie, int, error) {
	where, args := buildMovieWhere(filter, 1)
	argNum := len(args) + 1

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM movies %s %s LIMIT $%d OFFSET $%d`,
		movieColumns, where, buildMovieOrderBy(sort), argNum, argNum+1,
	)
	dataArgs := append(append([]any{}, args...), page.Size, page.Offset())

	items, err := r.queryMovies(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, 0, err
	}

	// Общее количество с теми же фильтрами, без LIMIT/OFFSET
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM movies %s`, where)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта фильмов: %w", err)
	}

	return items, total, nil
}

func (r *movieRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта фильмов: %w", err)
	}
	return n, nil
}

func (r *movieRepo) CategoryCounts(ctx context.Context) ([]model.CategoryCount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, COUNT(*) FROM movies GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации по категориям: %w", err)
	}
	defer rows.Close()

	var result []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

func (r *movieRepo) CategoryAverageRatings(ctx context.Context) ([]model.CategoryRating, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, AVG(rating) FROM movies GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации оценок по категориям: %w", err)
	}
	defer rows.Close()

	var result []model.CategoryRating
	for rows.Next() {
		var c model.CategoryRating
		if err := rows.Scan(&c.Category, &c.Average); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// queryMovies выполняет SELECT по movieColumns и сканирует все строки.
// Пустой результат — пустой срез, не nil.
func (r *movieRepo) queryMovies(ctx context.Context, query string, args ...any) ([]*model.Movie, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска фильмов: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Movie, 0)
	for rows.Next() {
		m := &model.Movie{}
		if err := rows.Scan(&m.ID, &m.Title, &m.Rating, &m.Description, &m.Category); err != nil {
			return nil, fmt.Errorf("ошибка сканирования фильма: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// buildMovieWhere строит WHERE-условие и аргументы из активных фильтров.
// startArg — номер первого $-параметра.
func buildMovieWhere(filter MovieFilter, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	if filter.Title != nil && *filter.Title != "" {
		conditions = append(conditions, fmt.Sprintf(`title ILIKE $%d ESCAPE '\'`, argNum))
		args = append(args, "%"+escapeLike(*filter.Title)+"%")
		argNum++
	}

	if len(filter.Categories) > 0 {
		conditions = append(conditions, fmt.Sprintf("category = ANY($%d)", argNum))
		args = append(args, filter.Categories)
		argNum++
	}

	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("rating >= $%d", argNum))
		args = append(args, *filter.MinRating)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// buildMovieOrderBy строит ORDER BY по whitelist полей и направлений.
// Равные значения всегда упорядочиваются по id.
func buildMovieOrderBy(sort SortSpec) string {
	var column string
	switch sort.Field {
	case SortByRating:
		column = "rating"
	case SortByTitle:
		column = "title"
	default:
		return "ORDER BY id ASC"
	}

	direction := "ASC"
	if strings.EqualFold(sort.Order, SortDesc) {
		direction = "DESC"
	}

	return fmt.Sprintf("ORDER BY %s %s, id ASC", column, direction)
}

// likeEscaper экранирует спецсимволы шаблона LIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
