package board

import (
	"context"
	"log/slog"

	"github.com/guregu/null"

	"github.com/hitoshi/vtboard/internal/metrics"
	"github.com/hitoshi/vtboard/internal/model"
)

// ResolveProfile はログインユーザーのプロフィールを取得し、なければ作成する。
// 既存のプロフィールをプロバイダーの情報で更新することはない。
// 取得・作成に失敗した場合はログに記録してnilを返し、ページの読み込みは継続する。
func (s *Service) ResolveProfile(ctx context.Context, user *model.AuthUser) *model.Profile {
	if user == nil || user.ID == "" {
		return nil
	}

	profile, err := s.backend.Profiles.FindByID(ctx, user.ID)
	if err != nil {
		// 取得に失敗しても作成は試みる。既に存在すれば作成側が失敗する。
		slog.Warn("profile lookup failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else if profile != nil {
		return profile
	}

	avatar := user.Metadata.AvatarURL
	created, err := s.backend.Profiles.Create(ctx, &model.Profile{
		ID:        user.ID,
		Nickname:  user.DisplayName(),
		AvatarURL: null.NewString(avatar, avatar != ""),
	})
	if err != nil {
		slog.Warn("profile insert failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	s.metrics.RecordBoardEvent(metrics.EventProfileCreated)
	slog.Info("profile created", slog.String("user_id", user.ID))
	return created
}
