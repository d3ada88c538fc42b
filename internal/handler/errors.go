package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/printpress/internal/middleware"
	"github.com/hitoshi/printpress/internal/model"
)

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// failureMessageは500の場合のmessageに使う。
func handleServiceError(w http.ResponseWriter, err error, failureMessage string) {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.MessageBody{
			Message: "Invalid quote request",
			Errors:  validationErr.Fields,
		})
	case errors.Is(err, model.ErrNotFound):
		middleware.WriteMessage(w, http.StatusNotFound, "Quote not found")
	case errors.Is(err, model.ErrUnauthorized):
		middleware.WriteUnauthorized(w)
	default:
		slog.Error("request failed",
			slog.String("message", failureMessage),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w, failureMessage)
	}
}
