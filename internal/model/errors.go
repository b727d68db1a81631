// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError はユーザーに通知するエラーを表す。
// 画面に表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, remote
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeLoginRequired    = "LOGIN_REQUIRED"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeRemoteFailure    = "REMOTE_FAILURE"
	ErrCodeLoadFailed       = "LOAD_FAILED"
	ErrCodeLoginFailed      = "LOGIN_FAILED"
	ErrCodeLogoutFailed     = "LOGOUT_FAILED"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// エラーカテゴリ
const (
	CategoryAuth       = "auth"
	CategoryValidation = "validation"
	CategoryRemote     = "remote"
)

// バックエンド層から返されるエラー。
var (
	// ErrPermissionDenied は行ポリシーにより操作が拒否されたことを示す。
	ErrPermissionDenied = errors.New("permission denied by row policy")
	// ErrNoRowsAffected は更新・削除の対象行が存在しなかったことを示す。
	ErrNoRowsAffected = errors.New("no rows affected")
)

// policyAction はポリシー拒否と通信エラーを区別しない共通の対処方法。
const policyAction = "権限またはポリシー(RLS)を確認してください。"

// NewLoginRequiredError はログインが必要な操作を未ログインで行った場合のエラーを生成する。
func NewLoginRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginRequired,
		Message:  "ログインが必要です。",
		Category: CategoryAuth,
		Action:   "Googleでログインしてから再度お試しください。",
	}
}

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewRemoteFailureError はバックエンドへの変更操作が失敗した場合のエラーを生成する。
// 権限エラーとネットワークエラーはユーザー向けには区別しない。
func NewRemoteFailureError(operation string) *APIError {
	return &APIError{
		Code:     ErrCodeRemoteFailure,
		Message:  fmt.Sprintf("%sに失敗しました。", operation),
		Category: CategoryRemote,
		Action:   policyAction,
	}
}

// NewLoadFailedError は一覧の読み込みに失敗した場合の警告を生成する。
func NewLoadFailedError(target string) *APIError {
	return &APIError{
		Code:     ErrCodeLoadFailed,
		Message:  fmt.Sprintf("%sを読み込めませんでした。", target),
		Category: CategoryRemote,
		Action:   "しばらく待ってから再読み込みしてください。",
	}
}

// NewLoginFailedError はログイン開始・完了に失敗した場合のエラーを生成する。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "Googleログインに失敗しました。",
		Category: CategoryAuth,
		Action:   "しばらく待ってから再度ログインしてください。",
	}
}

// NewLogoutFailedError はログアウトに失敗した場合のエラーを生成する。
func NewLogoutFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLogoutFailed,
		Message:  "ログアウトに失敗しました。",
		Category: CategoryRemote,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidOperationError は存在しない操作対象などリクエスト自体が不正な場合のエラーを生成する。
func NewInvalidOperationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOperation,
		Message:  reason,
		Category: CategoryValidation,
		Action:   "ページを再読み込みしてください。",
	}
}
