// seeder.go — начальное заполнение каталога демонстрационными фильмами.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/moviecatalog/internal/domain/model"
	"github.com/bigkaa/moviecatalog/internal/repository"
)

// SeedMovies — демонстрационные фильмы в порядке вставки.
var SeedMovies = []model.Movie{
	{Title: "Movie1", Rating: 5, Description: "film smeker", Category: "drama"},
	{Title: "Movie2", Rating: 1, Description: "film cacao", Category: "comedie"},
	{Title: "Movie3", Rating: 4.2, Description: "film bun", Category: "horror"},
	{Title: "Movie4", Rating: 3, Description: "film ok", Category: "drama"},
}

// Seed вставляет i-й демонстрационный фильм, только если в таблице ровно i
// записей. В пустую таблицу попадают все четыре, в таблицу с двумя
// записями — только третий и четвёртый.
// Возвращает количество вставленных фильмов.
func Seed(ctx context.Context, repo repository.MovieRepository, logger *slog.Logger) (int, error) {
	logger = logger.With(slog.String("component", "seeder"))

	count, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("подсчёт фильмов: %w", err)
	}

	inserted := 0
	for i := range SeedMovies {
		if count != i {
			continue
		}
		m := SeedMovies[i]
		if err := repo.Create(ctx, &m); err != nil {
			return inserted, fmt.Errorf("вставка %s: %w", m.Title, err)
		}
		count++
		inserted++
	}

	logger.Info("Начальное заполнение завершено",
		slog.Int("inserted", inserted),
		slog.Int("total", count),
	)
	return inserted, nil
}
