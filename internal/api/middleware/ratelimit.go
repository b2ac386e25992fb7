package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	apierrors "github.com/bigkaa/moviecatalog/internal/api/errors"
)

// RateLimit ограничивает число запросов с одного IP в минуту.
// rpm <= 0 — ограничение выключено.
func RateLimit(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		rpm,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			apierrors.RateLimited(w, "Превышен лимит запросов, повторите позже")
		}),
	)
}
