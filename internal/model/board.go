package model

import (
	"time"

	"github.com/guregu/null"
)

// Profile はユーザーの表示用プロフィール。IDはユーザーIDと同一。
type Profile struct {
	ID        string      `json:"id"`
	Nickname  string      `json:"nickname"`
	AvatarURL null.String `json:"avatar_url"`
}

// Vtuber は投稿の対象となる配信者。
type Vtuber struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	ChannelURL null.String `json:"channel_url"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Post は掲示板の投稿。VtuberIDがnullの投稿は配信者に紐づかない。
// 配信者が削除された後もVtuberIDは残る（またはnullになる）。
type Post struct {
	ID        string
	VtuberID  null.String
	Title     string
	Body      string
	UserID    string
	CreatedAt time.Time

	// 読み取り専用の結合列
	VtuberName      null.String
	AuthorNickname  null.String
	AuthorAvatarURL null.String
}

// NewPost は投稿作成の入力。
type NewPost struct {
	VtuberID null.String
	Title    string
	Body     string
	UserID   string
}

// Comment は投稿へのコメント。
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	Body      string
	CreatedAt time.Time

	AuthorNickname  null.String
	AuthorAvatarURL null.String
}

// Like は投稿へのいいね。(PostID, UserID) の組は一意。
type Like struct {
	ID     string
	PostID string
	UserID string
}

// AnonymousName は作者のプロフィールが見つからない場合の表示名。
const AnonymousName = "匿名"

// FeedPost は投稿にいいね数・コメントを結合した表示用モデル。
type FeedPost struct {
	Post
	AuthorName string
	LikeCount  int
	LikedByMe  bool
	Comments   []FeedComment
}

// FeedComment はコメントの表示用モデル。
type FeedComment struct {
	Comment
	AuthorName string
}
