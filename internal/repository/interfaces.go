// Package repository はバックエンドのテーブルごとのデータアクセス契約と
// PostgreSQLによる実装を提供する。
//
// 各メソッドの呼び出し元ユーザーはcontextのセッションで表される。
// バックエンドは呼び出し元に応じて行ポリシーを適用する。
package repository

import (
	"context"

	"github.com/guregu/null"

	"github.com/hitoshi/vtboard/internal/model"
)

// ProfileRepository はprofilesテーブルへのアクセス。更新経路は持たない。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	// Create はプロフィールを作成し、作成された行を返す。
	Create(ctx context.Context, profile *model.Profile) (*model.Profile, error)
}

// VtuberRepository はvtubersテーブルへのアクセス。
type VtuberRepository interface {
	// List は配信者をcreated_at降順で返す。
	List(ctx context.Context) ([]*model.Vtuber, error)
	Create(ctx context.Context, name string, channelURL null.String) (*model.Vtuber, error)
	// Delete は配信者を削除する。紐づく投稿は残る。
	Delete(ctx context.Context, id string) error
}

// PostRepository はpostsテーブルへのアクセス。
type PostRepository interface {
	// List は投稿をcreated_at降順で返す。vtuberIDが空文字列なら全件。
	// 配信者名と作者のプロフィールを結合して返す。
	List(ctx context.Context, vtuberID string) ([]*model.Post, error)
	Create(ctx context.Context, post model.NewPost) (*model.Post, error)
	// Delete は投稿を削除する。作者以外による削除はErrNoRowsAffectedになる。
	Delete(ctx context.Context, id string) error
}

// LikeRepository はlikesテーブルへのアクセス。
type LikeRepository interface {
	// ListByPostIDs は指定投稿群に対するいいねを返す。
	ListByPostIDs(ctx context.Context, postIDs []string) ([]*model.Like, error)
	// FindByPostAndUser は指定ユーザーのいいねを返す。見つからない場合はnilを返す。
	FindByPostAndUser(ctx context.Context, postID, userID string) (*model.Like, error)
	Create(ctx context.Context, postID, userID string) (*model.Like, error)
	Delete(ctx context.Context, id string) error
}

// CommentRepository はcommentsテーブルへのアクセス。
type CommentRepository interface {
	// ListByPostIDs は指定投稿群のコメントをcreated_at昇順で、作者のプロフィール付きで返す。
	ListByPostIDs(ctx context.Context, postIDs []string) ([]*model.Comment, error)
	Create(ctx context.Context, postID, userID, body string) (*model.Comment, error)
}

// Backend は掲示板が利用する全テーブルのリポジトリをまとめたもの。
type Backend struct {
	Profiles ProfileRepository
	Vtubers  VtuberRepository
	Posts    PostRepository
	Likes    LikeRepository
	Comments CommentRepository
}

// UserRepository はpostgresバックエンドのログインユーザーの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}
