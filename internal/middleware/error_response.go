package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/printpress/internal/model"
)

// InternalErrorDetail は500レスポンスのerror項目に入れる固定文字列。
// 詳細な原因はログにのみ記録する。
const InternalErrorDetail = "internal error"

// MessageBody はAPIレスポンスの統一フォーマット。
type MessageBody struct {
	Message string             `json:"message"`
	Error   string             `json:"error,omitempty"`
	Errors  []model.FieldError `json:"errors,omitempty"`
}

// WriteJSON はvをJSONとして書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// WriteMessage は{"message": ...}形式のレスポンスを書き込む。
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, MessageBody{Message: message})
}

// WriteUnauthorized は401レスポンスを書き込む。
func WriteUnauthorized(w http.ResponseWriter) {
	WriteMessage(w, http.StatusUnauthorized, "Unauthorized")
}

// WriteInternalServerError は500レスポンスを書き込む。
func WriteInternalServerError(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusInternalServerError, MessageBody{
		Message: message,
		Error:   InternalErrorDetail,
	})
}
