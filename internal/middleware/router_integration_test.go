package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/printpress/internal/model"
)

// TestRouterIntegration_GateOnlyProtectsAPIGroup は
// chi.Routerのグループに適用したセッションゲートが公開ルートに影響しないことを検証する。
func TestRouterIntegration_GateOnlyProtectsAPIGroup(t *testing.T) {
	resolver := resolverFor("router-test-session", &model.User{ID: "user-router"})

	r := chi.NewRouter()
	r.Use(NewSecurityHeadersMiddleware())
	r.Post("/api/contact", func(w http.ResponseWriter, r *http.Request) {
		WriteMessage(w, http.StatusOK, "public")
	})
	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware(resolver))
		r.Get("/api/quotes", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			WriteMessage(w, http.StatusOK, userID)
		})
	})

	tests := []struct {
		name       string
		method     string
		path       string
		cookie     string
		wantStatus int
		wantBody   string
	}{
		{"public route without session", http.MethodPost, "/api/contact", "", http.StatusOK, "public"},
		{"protected route without session", http.MethodGet, "/api/quotes", "", http.StatusUnauthorized, "Unauthorized"},
		{"protected route with foreign token", http.MethodGet, "/api/quotes", "other", http.StatusUnauthorized, "Unauthorized"},
		{"protected route with session", http.MethodGet, "/api/quotes", "router-test-session", http.StatusOK, "user-router"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body := decodeMessage(t, resp); body.Message != tt.wantBody {
				t.Errorf("message = %q, want %q", body.Message, tt.wantBody)
			}
			if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
			}
		})
	}
}
