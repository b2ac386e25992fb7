package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bigkaa/moviecatalog/internal/domain/model"
)

func TestSeed_EmptyStore(t *testing.T) {
	repo := newMemoryRepo()

	n, err := Seed(context.Background(), repo, discardLogger())
	if err != nil {
		t.Fatalf("Seed() вернул ошибку: %v", err)
	}
	if n != 4 {
		t.Errorf("вставлено %d, ожидалось 4", n)
	}

	for i, m := range repo.movies {
		if m.ID != int64(i+1) {
			t.Errorf("movies[%d].ID = %d, ожидался %d", i, m.ID, i+1)
		}
		if m.Title != SeedMovies[i].Title || m.Rating != SeedMovies[i].Rating {
			t.Errorf("movies[%d] = %+v, ожидался %+v", i, m, SeedMovies[i])
		}
	}

	// Повторный запуск ничего не добавляет
	n, _ = Seed(context.Background(), repo, discardLogger())
	if n != 0 || len(repo.movies) != 4 {
		t.Errorf("повторный Seed(): вставлено %d, всего %d; ожидалось 0 и 4", n, len(repo.movies))
	}
}

func TestSeed_PartiallyFilled(t *testing.T) {
	repo := newMemoryRepo()
	for i := 0; i < 2; i++ {
		_ = repo.Create(context.Background(), &model.Movie{Title: "existing"})
	}

	n, err := Seed(context.Background(), repo, discardLogger())
	if err != nil {
		t.Fatalf("Seed() вернул ошибку: %v", err)
	}
	if n != 2 {
		t.Fatalf("вставлено %d, ожидалось 2", n)
	}
	if repo.movies[2].Title != "Movie3" || repo.movies[3].Title != "Movie4" {
		t.Errorf("вставлены %q и %q, ожидались Movie3 и Movie4", repo.movies[2].Title, repo.movies[3].Title)
	}
}

func TestSeed_FullStoreUntouched(t *testing.T) {
	repo := newMemoryRepo()
	for i := 0; i < 10; i++ {
		_ = repo.Create(context.Background(), &model.Movie{Title: "existing"})
	}

	if n, _ := Seed(context.Background(), repo, discardLogger()); n != 0 {
		t.Errorf("вставлено %d, ожидалось 0", n)
	}
}

func TestSeed_CountFailure(t *testing.T) {
	repo := &mockMovieRepo{countFn: func(context.Context) (int, error) { return 0, errors.New("нет связи") }}
	if _, err := Seed(context.Background(), repo, discardLogger()); err == nil {
		t.Error("Seed() не вернул ошибку при сбое Count")
	}
}
