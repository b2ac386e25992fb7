// Пакет broadcast — публикация событий каталога подписчикам:
// WebSocket-клиентам (Hub) и, опционально, в NATS.
// Доставка best-effort, без очередей и повторной отправки.
package broadcast

import "context"

// Топики публикации.
const (
	// TopicMovies — новый фильм, созданный генератором.
	TopicMovies = "/topic/movies"
	// TopicCategoryCounts — количество фильмов по категориям.
	TopicCategoryCounts = "/topic/charts/categories"
	// TopicCategoryRatings — средняя оценка по категориям.
	TopicCategoryRatings = "/topic/charts/ratings"
)

// Topics — все известные топики.
var Topics = []string{TopicMovies, TopicCategoryCounts, TopicCategoryRatings}

// IsTopic сообщает, является ли topic одним из известных топиков.
func IsTopic(topic string) bool {
	for _, t := range Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Broadcaster публикует payload в топик. payload сериализуется в JSON.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, payload any) error
}
