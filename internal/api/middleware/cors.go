package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// openCORSPaths — пути, доступные с любого origin.
var openCORSPaths = map[string]struct{}{
	"/api/health": {},
}

// CORS возвращает middleware с двумя политиками: /api/health открыт для
// любого origin (GET, HEAD, OPTIONS), остальные пути — только для allowedOrigin.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	restricted := cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	open := cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})

	return func(next http.Handler) http.Handler {
		restrictedNext := restricted(next)
		openNext := open(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := openCORSPaths[r.URL.Path]; ok {
				openNext.ServeHTTP(w, r)
				return
			}
			restrictedNext.ServeHTTP(w, r)
		})
	}
}
