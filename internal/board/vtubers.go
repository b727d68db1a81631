package board

import (
	"context"
	"log/slog"

	"github.com/guregu/null"

	"github.com/hitoshi/vtboard/internal/metrics"
	"github.com/hitoshi/vtboard/internal/model"
)

// ListVtubers は配信者を登録日時の新しい順に返す。
func (s *Service) ListVtubers(ctx context.Context) ([]*model.Vtuber, error) {
	vtubers, err := s.backend.Vtubers.List(ctx)
	if err != nil {
		slog.Warn("failed to list vtubers", slog.String("error", err.Error()))
		return nil, err
	}
	return vtubers, nil
}

// AddVtuber は配信者を登録する。チャンネルURLが空ならnullとして登録する。
func (s *Service) AddVtuber(ctx context.Context, in VtuberInput) error {
	sess, err := requireLogin(ctx)
	if err != nil {
		return err
	}

	in.normalize()
	if err := in.Validate(); err != nil {
		return validationError(err, "Name")
	}

	channel := null.NewString(in.ChannelURL, in.ChannelURL != "")
	v, err := s.backend.Vtubers.Create(ctx, in.Name, channel)
	if err != nil {
		return remoteFailure("配信者の追加", err, slog.String("user_id", sess.User.ID))
	}

	s.metrics.RecordBoardEvent(metrics.EventVtuberAdded)
	slog.Info("vtuber added", slog.String("vtuber_id", v.ID), slog.String("user_id", sess.User.ID))
	return nil
}

// DeleteVtuber は配信者を削除する。紐づく投稿は削除されない。
// 削除の確認は呼び出し元で済ませておくこと。
func (s *Service) DeleteVtuber(ctx context.Context, id string) error {
	sess, err := requireLogin(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return model.NewInvalidOperationError("削除する配信者が指定されていません。")
	}

	if err := s.backend.Vtubers.Delete(ctx, id); err != nil {
		return remoteFailure("配信者の削除", err,
			slog.String("vtuber_id", id),
			slog.String("user_id", sess.User.ID),
		)
	}

	s.metrics.RecordBoardEvent(metrics.EventVtuberDeleted)
	slog.Info("vtuber deleted", slog.String("vtuber_id", id), slog.String("user_id", sess.User.ID))
	return nil
}
