// Пакет model — доменные модели Movie Catalog.
package model

// Movie — запись каталога фильмов.
// Хранится в таблице movies.
type Movie struct {
	// ID — идентификатор, назначается БД (identity), не изменяется
	ID int64 `json:"id"`
	// Title — название (до 100 символов)
	Title string `json:"title" validate:"notblank,max=100"`
	// Rating — оценка; диапазон [1, 5] проверяется только на уровне API
	Rating float64 `json:"rating" validate:"gte=1,lte=5"`
	// Description — описание (до 500 символов)
	Description string `json:"description" validate:"notblank,max=500"`
	// Category — категория, произвольная строка без нормализации
	Category string `json:"category" validate:"notblank"`
}

// CategoryCount — количество фильмов в категории.
type CategoryCount struct {
	Category string
	Count    int64
}

// CategoryRating — средняя оценка фильмов в категории.
type CategoryRating struct {
	Category string
	Average  float64
}
