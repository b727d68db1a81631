package board

import (
	"context"
	"log/slog"

	"github.com/guregu/null"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/vtboard/internal/model"
)

// LoadFeed は投稿一覧にいいねとコメントを結合したフィードを返す。
// filterが空文字列なら全配信者の投稿を返す。
//
// 投稿の取得に失敗した場合はエラーを返す。
// いいね・コメントの取得失敗はログに記録し、空として扱う。
func (s *Service) LoadFeed(ctx context.Context, filter string) ([]model.FeedPost, error) {
	posts, err := s.backend.Posts.List(ctx, filter)
	if err != nil {
		slog.Warn("failed to list posts",
			slog.String("vtuber_id", filter),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if len(posts) == 0 {
		return []model.FeedPost{}, nil
	}

	ids := lo.Map(posts, func(p *model.Post, _ int) string { return p.ID })

	var (
		likes    []*model.Like
		comments []*model.Comment
		eg       errgroup.Group
	)
	eg.Go(func() error {
		l, err := s.backend.Likes.ListByPostIDs(ctx, ids)
		if err != nil {
			slog.Warn("failed to list likes", slog.Int("post_count", len(ids)), slog.String("error", err.Error()))
			return nil
		}
		likes = l
		return nil
	})
	eg.Go(func() error {
		c, err := s.backend.Comments.ListByPostIDs(ctx, ids)
		if err != nil {
			slog.Warn("failed to list comments", slog.Int("post_count", len(ids)), slog.String("error", err.Error()))
			return nil
		}
		comments = c
		return nil
	})
	_ = eg.Wait()

	return joinFeed(posts, likes, comments, model.CallerIDFromContext(ctx)), nil
}

// joinFeed は投稿ごとにいいねの件数・自分のいいね有無・コメント一覧を結合する。
// いいね数は重複を除いたユーザー数。コメントは入力の順序を保つ。
func joinFeed(posts []*model.Post, likes []*model.Like, comments []*model.Comment, callerID string) []model.FeedPost {
	likers := lo.MapValues(
		lo.GroupBy(likes, func(l *model.Like) string { return l.PostID }),
		func(ls []*model.Like, _ string) []string {
			return lo.Uniq(lo.Map(ls, func(l *model.Like, _ int) string { return l.UserID }))
		},
	)
	commentsByPost := lo.GroupBy(comments, func(c *model.Comment) string { return c.PostID })

	return lo.Map(posts, func(p *model.Post, _ int) model.FeedPost {
		users := likers[p.ID]
		return model.FeedPost{
			Post:       *p,
			AuthorName: authorName(p.AuthorNickname),
			LikeCount:  len(users),
			LikedByMe:  callerID != "" && lo.Contains(users, callerID),
			Comments: lo.Map(commentsByPost[p.ID], func(c *model.Comment, _ int) model.FeedComment {
				return model.FeedComment{Comment: *c, AuthorName: authorName(c.AuthorNickname)}
			}),
		}
	})
}

func authorName(nickname null.String) string {
	if nickname.ValueOrZero() == "" {
		return model.AnonymousName
	}
	return nickname.String
}
