package middleware

import "net/http"

// apiSecurityHeaders はJSONとリダイレクトしか返さないAPI向けの固定ヘッダー。
var apiSecurityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Cache-Control":           "no-store",
}

// NewSecurityHeadersMiddleware は全レスポンスにapiSecurityHeadersを付与する。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name, value := range apiSecurityHeaders {
				h.Set(name, value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
