package board

import (
	"context"
	"log/slog"

	"github.com/guregu/null"

	"github.com/hitoshi/vtboard/internal/metrics"
	"github.com/hitoshi/vtboard/internal/model"
)

// CreatePost は投稿を作成する。配信者には現在の絞り込みを使い、未選択ならnullにする。
func (s *Service) CreatePost(ctx context.Context, in PostInput) error {
	sess, err := requireLogin(ctx)
	if err != nil {
		return err
	}

	in.normalize()
	if err := in.Validate(); err != nil {
		return validationError(err, "Title", "Body")
	}

	p, err := s.backend.Posts.Create(ctx, model.NewPost{
		VtuberID: null.NewString(in.VtuberID, in.VtuberID != ""),
		Title:    in.Title,
		Body:     in.Body,
		UserID:   sess.User.ID,
	})
	if err != nil {
		return remoteFailure("投稿の作成", err, slog.String("user_id", sess.User.ID))
	}

	s.metrics.RecordBoardEvent(metrics.EventPostCreated)
	slog.Info("post created", slog.String("post_id", p.ID), slog.String("user_id", sess.User.ID))
	return nil
}

// DeletePost は投稿を削除する。作者以外の削除はバックエンドの行ポリシーで拒否される。
func (s *Service) DeletePost(ctx context.Context, id string) error {
	sess, err := requireLogin(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return model.NewInvalidOperationError("削除する投稿が指定されていません。")
	}

	if err := s.backend.Posts.Delete(ctx, id); err != nil {
		return remoteFailure("投稿の削除", err,
			slog.String("post_id", id),
			slog.String("user_id", sess.User.ID),
		)
	}

	s.metrics.RecordBoardEvent(metrics.EventPostDeleted)
	slog.Info("post deleted", slog.String("post_id", id), slog.String("user_id", sess.User.ID))
	return nil
}

// ToggleLike は自分のいいねがあれば取り消し、なければ追加する。
// 追加後のいいね状態を返す。
//
// 確認と変更は別々の呼び出しで、不可分ではない。同時に2回実行されると
// 両方が「いいねなし」と判断して追加を試みるが、(post_id, user_id) の
// 一意制約により2件目の追加は失敗する。
func (s *Service) ToggleLike(ctx context.Context, postID string) (bool, error) {
	sess, err := requireLogin(ctx)
	if err != nil {
		return false, err
	}
	if postID == "" {
		return false, model.NewInvalidOperationError("いいねする投稿が指定されていません。")
	}
	userID := sess.User.ID

	existing, err := s.backend.Likes.FindByPostAndUser(ctx, postID, userID)
	if err != nil {
		// 確認に失敗した場合は「いいねなし」として追加を試みる
		slog.Warn("like lookup failed",
			slog.String("post_id", postID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		existing = nil
	}

	if existing != nil {
		if err := s.backend.Likes.Delete(ctx, existing.ID); err != nil {
			return true, remoteFailure("いいねの取り消し", err, slog.String("post_id", postID), slog.String("user_id", userID))
		}
		s.metrics.RecordBoardEvent(metrics.EventLikeRemoved)
		return false, nil
	}

	if _, err := s.backend.Likes.Create(ctx, postID, userID); err != nil {
		return false, remoteFailure("いいね", err, slog.String("post_id", postID), slog.String("user_id", userID))
	}
	s.metrics.RecordBoardEvent(metrics.EventLikeAdded)
	return true, nil
}

// AddComment は投稿にコメントを追加する。
func (s *Service) AddComment(ctx context.Context, in CommentInput) error {
	sess, err := requireLogin(ctx)
	if err != nil {
		return err
	}
	if in.PostID == "" {
		return model.NewInvalidOperationError("コメントする投稿が指定されていません。")
	}

	in.normalize()
	if err := in.Validate(); err != nil {
		return validationError(err, "Body")
	}

	c, err := s.backend.Comments.Create(ctx, in.PostID, sess.User.ID, in.Body)
	if err != nil {
		return remoteFailure("コメントの投稿", err, slog.String("post_id", in.PostID), slog.String("user_id", sess.User.ID))
	}

	s.metrics.RecordBoardEvent(metrics.EventCommentAdded)
	slog.Info("comment added", slog.String("comment_id", c.ID), slog.String("post_id", in.PostID))
	return nil
}
