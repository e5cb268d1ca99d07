package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/storefront/internal/model"
)

// Envelope はすべてのレスポンスに共通するJSON形式。
// 成功時はDataまたはToken、失敗時はErrorを設定する。
// Errorは文字列、またはフィールド名からメッセージ配列へのマップ。
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Token   string `json:"token,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// WriteJSON はEnvelopeをJSONで書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response",
			slog.String("error", err.Error()),
		)
	}
}

// StatusForKind はAPIErrorの分類をHTTPステータスコードに変換する。
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation, model.KindBadRequest:
		return http.StatusBadRequest
	case model.KindConflict:
		return http.StatusConflict
	case model.KindAuth:
		return http.StatusUnauthorized
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError はエラーを失敗レスポンスとして書き込む。
// APIError以外のエラーは500とし、メッセージをそのまま返す。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, StatusForKind(apiErr.Kind), apiErr)
		return
	}

	slog.Error("unhandled error",
		slog.String("error", err.Error()),
	)
	WriteJSON(w, http.StatusInternalServerError, Envelope{
		Success: false,
		Error:   err.Error(),
	})
}

// WriteErrorResponse は指定ステータスでAPIErrorを書き込む。
// フィールド単位のエラーがある場合はマップ、無い場合はメッセージ文字列を返す。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	var body any = apiErr.Message
	if len(apiErr.Fields) > 0 {
		body = apiErr.Fields
	}
	WriteJSON(w, statusCode, Envelope{
		Success: false,
		Error:   body,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteJSON(w, http.StatusInternalServerError, Envelope{
		Success: false,
		Error:   "internal server error",
	})
}
