package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/hitoshi/printpress/internal/middleware"
	"github.com/hitoshi/printpress/internal/repository"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler は依存先の疎通を確認するハンドラー。
type HealthHandler struct {
	checks map[string]repository.Pinger
}

// NewHealthHandler はHealthHandlerを生成する。checksのキーはレスポンスに表示する名前。
func NewHealthHandler(checks map[string]repository.Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health はすべての依存先が応答すれば200、いずれかが失敗すれば503を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name].PingContext(ctx); err != nil {
			slog.Warn("health check failed",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
			resp.Status = "unavailable"
			resp.Checks[name] = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	middleware.WriteJSON(w, status, resp)
}
