package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/guregu/null"

	"github.com/hitoshi/vtboard/internal/model"
	"github.com/hitoshi/vtboard/internal/repository"
)

var errBackendDown = errors.New("backend unavailable")

// fakeStore はテスト用のインメモリバックエンド。
// 投稿・いいねの削除は本人のみ、(post_id, user_id) の一意制約ありという
// 行ポリシーとスキーマの振る舞いを再現する。
type fakeStore struct {
	mu   sync.Mutex
	seq  int
	now  time.Time
	fail map[string]error
	// calls は操作ごとの呼び出し回数。キーは "posts.list" 形式。
	calls map[string]int

	profiles map[string]*model.Profile
	vtubers  []*model.Vtuber
	posts    []*model.Post
	likes    []*model.Like
	comments []*model.Comment

	// likeLookupBarrier が設定されている場合、いいね確認後に全員が揃うまで待つ。
	likeLookupBarrier *sync.WaitGroup
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		fail:     map[string]error{},
		calls:    map[string]int{},
		profiles: map[string]*model.Profile{},
	}
}

func (f *fakeStore) backend() *repository.Backend {
	return &repository.Backend{
		Profiles: fakeProfiles{f},
		Vtubers:  fakeVtubers{f},
		Posts:    fakePosts{f},
		Likes:    fakeLikes{f},
		Comments: fakeComments{f},
	}
}

// hit は呼び出しを記録し、注入されたエラーを返す。ロックを保持した状態で呼ぶこと。
func (f *fakeStore) hit(op string) error {
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fakeStore) likeCount(postID, userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.likes {
		if l.PostID == postID && l.UserID == userID {
			n++
		}
	}
	return n
}

func callerOf(ctx context.Context) string {
	return model.CallerIDFromContext(ctx)
}

type fakeProfiles struct{ f *fakeStore }

func (r fakeProfiles) FindByID(_ context.Context, id string) (*model.Profile, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("profiles.find"); err != nil {
		return nil, err
	}
	if p, ok := r.f.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r fakeProfiles) Create(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("profiles.create"); err != nil {
		return nil, err
	}
	if callerOf(ctx) != p.ID {
		return nil, model.ErrPermissionDenied
	}
	if _, ok := r.f.profiles[p.ID]; ok {
		return nil, errors.New("duplicate key value violates unique constraint \"profiles_pkey\"")
	}
	cp := *p
	r.f.profiles[p.ID] = &cp
	return p, nil
}

type fakeVtubers struct{ f *fakeStore }

func (r fakeVtubers) List(context.Context) ([]*model.Vtuber, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("vtubers.list"); err != nil {
		return nil, err
	}
	out := make([]*model.Vtuber, len(r.f.vtubers))
	copy(out, r.f.vtubers)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r fakeVtubers) Create(ctx context.Context, name string, channelURL null.String) (*model.Vtuber, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("vtubers.create"); err != nil {
		return nil, err
	}
	if callerOf(ctx) == "" {
		return nil, model.ErrPermissionDenied
	}
	v := &model.Vtuber{ID: r.f.nextID("v"), Name: name, ChannelURL: channelURL, CreatedAt: r.f.tick()}
	r.f.vtubers = append(r.f.vtubers, v)
	return v, nil
}

func (r fakeVtubers) Delete(_ context.Context, id string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("vtubers.delete"); err != nil {
		return err
	}
	for i, v := range r.f.vtubers {
		if v.ID == id {
			r.f.vtubers = append(r.f.vtubers[:i], r.f.vtubers[i+1:]...)
			for _, p := range r.f.posts {
				if p.VtuberID.String == id {
					p.VtuberID = null.String{}
				}
			}
			return nil
		}
	}
	return model.ErrNoRowsAffected
}

type fakePosts struct{ f *fakeStore }

func (r fakePosts) List(_ context.Context, vtuberID string) ([]*model.Post, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("posts.list"); err != nil {
		return nil, err
	}
	var out []*model.Post
	for _, p := range r.f.posts {
		if vtuberID != "" && p.VtuberID.String != vtuberID {
			continue
		}
		cp := *p
		for _, v := range r.f.vtubers {
			if v.ID == p.VtuberID.String {
				cp.VtuberName = null.StringFrom(v.Name)
			}
		}
		if pr, ok := r.f.profiles[p.UserID]; ok {
			cp.AuthorNickname = null.StringFrom(pr.Nickname)
			cp.AuthorAvatarURL = pr.AvatarURL
		}
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r fakePosts) Create(ctx context.Context, in model.NewPost) (*model.Post, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("posts.create"); err != nil {
		return nil, err
	}
	if callerOf(ctx) != in.UserID {
		return nil, model.ErrPermissionDenied
	}
	p := &model.Post{
		ID:        r.f.nextID("p"),
		VtuberID:  in.VtuberID,
		Title:     in.Title,
		Body:      in.Body,
		UserID:    in.UserID,
		CreatedAt: r.f.tick(),
	}
	r.f.posts = append(r.f.posts, p)
	return p, nil
}

func (r fakePosts) Delete(ctx context.Context, id string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("posts.delete"); err != nil {
		return err
	}
	for i, p := range r.f.posts {
		if p.ID == id && p.UserID == callerOf(ctx) {
			r.f.posts = append(r.f.posts[:i], r.f.posts[i+1:]...)
			return nil
		}
	}
	return model.ErrNoRowsAffected
}

type fakeLikes struct{ f *fakeStore }

func (r fakeLikes) ListByPostIDs(_ context.Context, ids []string) ([]*model.Like, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("likes.list"); err != nil {
		return nil, err
	}
	var out []*model.Like
	for _, l := range r.f.likes {
		for _, id := range ids {
			if l.PostID == id {
				cp := *l
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (r fakeLikes) FindByPostAndUser(_ context.Context, postID, userID string) (*model.Like, error) {
	r.f.mu.Lock()
	err := r.f.hit("likes.find")
	var found *model.Like
	if err == nil {
		for _, l := range r.f.likes {
			if l.PostID == postID && l.UserID == userID {
				cp := *l
				found = &cp
			}
		}
	}
	barrier := r.f.likeLookupBarrier
	r.f.mu.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	return found, err
}

func (r fakeLikes) Create(ctx context.Context, postID, userID string) (*model.Like, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("likes.create"); err != nil {
		return nil, err
	}
	if callerOf(ctx) != userID {
		return nil, model.ErrPermissionDenied
	}
	for _, l := range r.f.likes {
		if l.PostID == postID && l.UserID == userID {
			return nil, errors.New("duplicate key value violates unique constraint \"uq_likes_post_user\"")
		}
	}
	l := &model.Like{ID: r.f.nextID("l"), PostID: postID, UserID: userID}
	r.f.likes = append(r.f.likes, l)
	return l, nil
}

func (r fakeLikes) Delete(ctx context.Context, id string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("likes.delete"); err != nil {
		return err
	}
	for i, l := range r.f.likes {
		if l.ID == id && l.UserID == callerOf(ctx) {
			r.f.likes = append(r.f.likes[:i], r.f.likes[i+1:]...)
			return nil
		}
	}
	return model.ErrNoRowsAffected
}

type fakeComments struct{ f *fakeStore }

func (r fakeComments) ListByPostIDs(_ context.Context, ids []string) ([]*model.Comment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("comments.list"); err != nil {
		return nil, err
	}
	var out []*model.Comment
	for _, c := range r.f.comments {
		for _, id := range ids {
			if c.PostID == id {
				cp := *c
				if pr, ok := r.f.profiles[c.UserID]; ok {
					cp.AuthorNickname = null.StringFrom(pr.Nickname)
				}
				out = append(out, &cp)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r fakeComments) Create(ctx context.Context, postID, userID, body string) (*model.Comment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.hit("comments.create"); err != nil {
		return nil, err
	}
	if callerOf(ctx) != userID {
		return nil, model.ErrPermissionDenied
	}
	c := &model.Comment{ID: r.f.nextID("c"), PostID: postID, UserID: userID, Body: body, CreatedAt: r.f.tick()}
	r.f.comments = append(r.f.comments, c)
	return c, nil
}
