package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/wishwall/internal/model"
)

// ErrorResponseBody はステータスサーバーのエラーレスポンス形式。
// クライアントが扱うmodel.APIErrorと同じ項目を持つ。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一フォーマットでエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部エラーの統一レスポンスを書き込む。詳細はログにのみ残す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "ログを確認してください。",
	})
}

// WriteNotFound は存在しないパスへの応答を書き込む。
func WriteNotFound(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
		Code:     "NOT_FOUND",
		Message:  "not found",
		Category: "request",
		Action:   "/health /wishes /metrics のいずれかを指定してください。",
	})
}
