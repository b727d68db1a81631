package board

import (
	"context"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/vtboard/internal/model"
)

// Snapshot は1回の描画に使う掲示板の全状態。
// 変更操作のたびに丸ごと読み込み直し、部分的には更新しない。
type Snapshot struct {
	Session *model.Session
	// Profile はログイン中でもプロフィールの取得・作成に失敗した場合はnil。
	Profile *model.Profile
	Vtubers []*model.Vtuber
	Posts   []model.FeedPost
	// Filter は絞り込み中の配信者ID。空文字列なら「すべて」。
	Filter string
}

// LoggedIn はログイン中かどうかを返す。
func (s *Snapshot) LoggedIn() bool {
	return s.Session != nil
}

// CallerID はログイン中のユーザーID。未ログインなら空文字列。
func (s *Snapshot) CallerID() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.User.ID
}

// Load はプロフィールを解決した上で、配信者一覧とフィードを並行して読み込む。
// 一覧の読み込みに失敗した場合はその一覧を空にし、警告を返す。
// 絞り込み中の配信者が一覧にない場合は「すべて」に戻す。
func (s *Service) Load(ctx context.Context, filter string) (*Snapshot, []*model.APIError) {
	snap := &Snapshot{
		Session: model.SessionFromContext(ctx),
		Filter:  filter,
	}
	if snap.Session != nil {
		snap.Profile = s.ResolveProfile(ctx, &snap.Session.User)
	}

	var (
		eg                 errgroup.Group
		vtuberErr, feedErr error
	)
	eg.Go(func() error {
		snap.Vtubers, vtuberErr = s.ListVtubers(ctx)
		return nil
	})
	eg.Go(func() error {
		snap.Posts, feedErr = s.LoadFeed(ctx, filter)
		return nil
	})
	_ = eg.Wait()

	var notices []*model.APIError
	if vtuberErr != nil {
		snap.Vtubers = []*model.Vtuber{}
		notices = append(notices, model.NewLoadFailedError("配信者一覧"))
	} else if filter != "" && !lo.ContainsBy(snap.Vtubers, func(v *model.Vtuber) bool { return v.ID == filter }) {
		snap.Filter = ""
		snap.Posts, feedErr = s.LoadFeed(ctx, "")
	}
	if feedErr != nil {
		snap.Posts = []model.FeedPost{}
		notices = append(notices, model.NewLoadFailedError("投稿"))
	}
	return snap, notices
}
