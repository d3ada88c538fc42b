package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// NewCORSMiddleware はallowedOriginからの資格情報付きリクエストのみを許可するミドルウェアを返す。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
