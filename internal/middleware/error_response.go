package middleware

import (
	"fmt"
	"net/http"

	"github.com/hitoshi/vtboard/internal/model"
)

// ミドルウェアが返すエラーのコード。
const (
	ErrCodeCSRF        = "CSRF_FAILED"
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

func newCSRFError() *model.APIError {
	return &model.APIError{
		Code:     ErrCodeCSRF,
		Message:  "フォームの有効期限が切れました。",
		Category: "system",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

func newRateLimitedError() *model.APIError {
	return &model.APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// WriteError はページを描画できない段階のエラーをプレーンテキストで書き込む。
// 1行目にメッセージ、2行目に対処方法を出力する。
func WriteError(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Error-Code", apiErr.Code)
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, "%s\n%s\n", apiErr.Message, apiErr.Action)
}

// WriteInternalServerError は内部エラーのレスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, &model.APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
