package repository

import (
	"context"

	"github.com/hitoshi/vtboard/internal/model"
)

// PostgreSQLにはSupabaseの行ポリシーがないため、アダプター側で同等の判定を行う。
//
//	select            : 誰でも可
//	insert            : ログイン済み、かつuser_id（profilesではid）が本人
//	delete(posts/likes): 本人の行のみ
//	insert/delete(vtubers): ログイン済みなら可

// requireCaller はログイン中のユーザーIDを返す。未ログインならErrPermissionDenied。
func requireCaller(ctx context.Context) (string, error) {
	id := model.CallerIDFromContext(ctx)
	if id == "" {
		return "", model.ErrPermissionDenied
	}
	return id, nil
}

// requireSelf は書き込み対象のユーザーIDが呼び出し元本人であることを確認する。
func requireSelf(ctx context.Context, userID string) error {
	caller, err := requireCaller(ctx)
	if err != nil {
		return err
	}
	if caller != userID {
		return model.ErrPermissionDenied
	}
	return nil
}
