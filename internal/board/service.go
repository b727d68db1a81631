// Package board は掲示板の状態同期を担う。
//
// すべての変更操作は「ログイン確認 → 入力検証 → バックエンド呼び出し」の順に行い、
// 画面への反映は呼び出し元が一覧を再読み込みして行う。ローカルでの楽観的更新はしない。
package board

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/vtboard/internal/metrics"
	"github.com/hitoshi/vtboard/internal/model"
	"github.com/hitoshi/vtboard/internal/repository"
)

// Service は掲示板の読み込みと変更操作を提供する。
type Service struct {
	backend *repository.Backend
	metrics metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(backend *repository.Backend, collector metrics.MetricsCollector) *Service {
	return &Service{backend: backend, metrics: collector}
}

// requireLogin はログイン中のセッションを返す。未ログインならログイン要求エラー。
func requireLogin(ctx context.Context) (*model.Session, error) {
	s := model.SessionFromContext(ctx)
	if s == nil || s.User.ID == "" {
		return nil, model.NewLoginRequiredError()
	}
	return s, nil
}

// remoteFailure はバックエンドのエラーを記録し、ユーザー向けのエラーに変換する。
// 権限エラーと通信エラーは区別しない。
func remoteFailure(operation string, err error, attrs ...any) error {
	attrs = append(attrs,
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.Bool("permission_denied", errors.Is(err, model.ErrPermissionDenied) || errors.Is(err, model.ErrNoRowsAffected)),
	)
	slog.Warn("backend operation failed", attrs...)
	return model.NewRemoteFailureError(operation)
}
