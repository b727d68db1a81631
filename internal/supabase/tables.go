package supabase

import (
	"context"
	"net/http"
	"time"

	"github.com/guregu/null"

	"github.com/hitoshi/vtboard/internal/model"
	"github.com/hitoshi/vtboard/internal/repository"
)

const returnRepresentation = "return=representation"

// NewBackend はSupabaseを使う全テーブルのリポジトリを生成する。
func NewBackend(c *Client) *repository.Backend {
	return &repository.Backend{
		Profiles: &ProfileTable{c: c},
		Vtubers:  &VtuberTable{c: c},
		Posts:    &PostTable{c: c},
		Likes:    &LikeTable{c: c},
		Comments: &CommentTable{c: c},
	}
}

func (c *Client) selectRows(ctx context.Context, table string, q *query, out any) error {
	return c.do(ctx, call{
		method: http.MethodGet,
		path:   restPrefix + table,
		query:  q.values(),
		label:  table,
	}, out)
}

// insertRow は1行を挿入し、作成された行をoutにデコードする。
func insertRow[T any](ctx context.Context, c *Client, table string, row any) (*T, error) {
	var created []T
	err := c.doChecked(ctx, call{
		method: http.MethodPost,
		path:   restPrefix + table,
		body:   row,
		prefer: returnRepresentation,
		label:  table,
	}, &created, func() error {
		if len(created) == 0 {
			return model.ErrPermissionDenied
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// deleteByID は1行を削除する。RLSで除外された削除はエラーにならず0行になるため、
// 削除された行を返させて0行ならErrNoRowsAffectedとする。
func (c *Client) deleteByID(ctx context.Context, table, id string) error {
	var deleted []struct {
		ID string `json:"id"`
	}
	return c.doChecked(ctx, call{
		method: http.MethodDelete,
		path:   restPrefix + table,
		query:  newQuery().eq("id", id).selectCols("id").values(),
		prefer: returnRepresentation,
		label:  table,
	}, &deleted, func() error {
		if len(deleted) == 0 {
			return model.ErrNoRowsAffected
		}
		return nil
	})
}

// embeddedProfile はリソース埋め込みで取得する作者プロフィール。
type embeddedProfile struct {
	Nickname  null.String `json:"nickname"`
	AvatarURL null.String `json:"avatar_url"`
}

func (p *embeddedProfile) fields() (null.String, null.String) {
	if p == nil {
		return null.String{}, null.String{}
	}
	return p.Nickname, p.AvatarURL
}

// ProfileTable はprofilesテーブルのアダプター。
type ProfileTable struct {
	c *Client
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (t *ProfileTable) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	var rows []model.Profile
	if err := t.c.selectRows(ctx, "profiles", newQuery().selectCols("*").eq("id", id).limit(1), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (t *ProfileTable) Create(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	return insertRow[model.Profile](ctx, t.c, "profiles", profile)
}

// VtuberTable はvtubersテーブルのアダプター。
type VtuberTable struct {
	c *Client
}

func (t *VtuberTable) List(ctx context.Context) ([]*model.Vtuber, error) {
	var rows []*model.Vtuber
	err := t.c.selectRows(ctx, "vtubers", newQuery().selectCols("*").order("created_at", false), &rows)
	return rows, err
}

func (t *VtuberTable) Create(ctx context.Context, name string, channelURL null.String) (*model.Vtuber, error) {
	return insertRow[model.Vtuber](ctx, t.c, "vtubers", map[string]any{
		"name":        name,
		"channel_url": channelURL,
	})
}

func (t *VtuberTable) Delete(ctx context.Context, id string) error {
	return t.c.deleteByID(ctx, "vtubers", id)
}

// PostTable はpostsテーブルのアダプター。
type PostTable struct {
	c *Client
}

type postRow struct {
	ID        string      `json:"id"`
	VtuberID  null.String `json:"vtuber_id"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	UserID    string      `json:"user_id"`
	CreatedAt time.Time   `json:"created_at"`
	Vtuber    *struct {
		Name null.String `json:"name"`
	} `json:"vtubers"`
	Profile *embeddedProfile `json:"profiles"`
}

func (r *postRow) toModel() *model.Post {
	p := &model.Post{
		ID:        r.ID,
		VtuberID:  r.VtuberID,
		Title:     r.Title,
		Body:      r.Body,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
	}
	if r.Vtuber != nil {
		p.VtuberName = r.Vtuber.Name
	}
	p.AuthorNickname, p.AuthorAvatarURL = r.Profile.fields()
	return p
}

// List は投稿をcreated_at降順で、配信者名と作者のプロフィールを埋め込んで返す。
func (t *PostTable) List(ctx context.Context, vtuberID string) ([]*model.Post, error) {
	q := newQuery().
		selectCols("*,vtubers(name),profiles(nickname,avatar_url)").
		order("created_at", false)
	if vtuberID != "" {
		q.eq("vtuber_id", vtuberID)
	}

	var rows []postRow
	if err := t.c.selectRows(ctx, "posts", q, &rows); err != nil {
		return nil, err
	}
	posts := make([]*model.Post, len(rows))
	for i := range rows {
		posts[i] = rows[i].toModel()
	}
	return posts, nil
}

func (t *PostTable) Create(ctx context.Context, in model.NewPost) (*model.Post, error) {
	row, err := insertRow[postRow](ctx, t.c, "posts", map[string]any{
		"vtuber_id": in.VtuberID,
		"title":     in.Title,
		"body":      in.Body,
		"user_id":   in.UserID,
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (t *PostTable) Delete(ctx context.Context, id string) error {
	return t.c.deleteByID(ctx, "posts", id)
}

// LikeTable はlikesテーブルのアダプター。
type LikeTable struct {
	c *Client
}

type likeRow struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
	UserID string `json:"user_id"`
}

func (r likeRow) toModel() *model.Like {
	return &model.Like{ID: r.ID, PostID: r.PostID, UserID: r.UserID}
}

func (t *LikeTable) ListByPostIDs(ctx context.Context, postIDs []string) ([]*model.Like, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var rows []likeRow
	if err := t.c.selectRows(ctx, "likes", newQuery().selectCols("id,post_id,user_id").in("post_id", postIDs), &rows); err != nil {
		return nil, err
	}
	likes := make([]*model.Like, len(rows))
	for i, r := range rows {
		likes[i] = r.toModel()
	}
	return likes, nil
}

// FindByPostAndUser は指定ユーザーのいいねを返す。見つからない場合はnilを返す。
func (t *LikeTable) FindByPostAndUser(ctx context.Context, postID, userID string) (*model.Like, error) {
	var rows []likeRow
	q := newQuery().selectCols("id,post_id,user_id").eq("post_id", postID).eq("user_id", userID).limit(1)
	if err := t.c.selectRows(ctx, "likes", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toModel(), nil
}

func (t *LikeTable) Create(ctx context.Context, postID, userID string) (*model.Like, error) {
	row, err := insertRow[likeRow](ctx, t.c, "likes", map[string]string{
		"post_id": postID,
		"user_id": userID,
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (t *LikeTable) Delete(ctx context.Context, id string) error {
	return t.c.deleteByID(ctx, "likes", id)
}

// CommentTable はcommentsテーブルのアダプター。
type CommentTable struct {
	c *Client
}

type commentRow struct {
	ID        string           `json:"id"`
	PostID    string           `json:"post_id"`
	UserID    string           `json:"user_id"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Profile   *embeddedProfile `json:"profiles"`
}

func (r *commentRow) toModel() *model.Comment {
	c := &model.Comment{
		ID:        r.ID,
		PostID:    r.PostID,
		UserID:    r.UserID,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
	}
	c.AuthorNickname, c.AuthorAvatarURL = r.Profile.fields()
	return c
}

// ListByPostIDs は指定投稿群のコメントをcreated_at昇順で返す。
func (t *CommentTable) ListByPostIDs(ctx context.Context, postIDs []string) ([]*model.Comment, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	q := newQuery().
		selectCols("*,profiles(nickname,avatar_url)").
		in("post_id", postIDs).
		order("created_at", true)

	var rows []commentRow
	if err := t.c.selectRows(ctx, "comments", q, &rows); err != nil {
		return nil, err
	}
	comments := make([]*model.Comment, len(rows))
	for i := range rows {
		comments[i] = rows[i].toModel()
	}
	return comments, nil
}

func (t *CommentTable) Create(ctx context.Context, postID, userID, body string) (*model.Comment, error) {
	row, err := insertRow[commentRow](ctx, t.c, "comments", map[string]string{
		"post_id": postID,
		"user_id": userID,
		"body":    body,
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

var (
	_ repository.ProfileRepository = (*ProfileTable)(nil)
	_ repository.VtuberRepository  = (*VtuberTable)(nil)
	_ repository.PostRepository    = (*PostTable)(nil)
	_ repository.LikeRepository    = (*LikeTable)(nil)
	_ repository.CommentRepository = (*CommentTable)(nil)
)
