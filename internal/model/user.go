// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// User はpostgresバックエンドで管理するログインユーザーを表す。
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// UserMetadata はOAuthプロバイダーから渡されるプロフィール情報。
// キー名はSupabase Authのuser_metadataに合わせている。
type UserMetadata struct {
	Name      string `json:"name,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AuthUser は認証済みユーザーを表す。
type AuthUser struct {
	ID       string       `json:"id"`
	Email    string       `json:"email,omitempty"`
	Metadata UserMetadata `json:"user_metadata"`
}

// DisplayName はプロフィール自動作成時に使うニックネームを導出する。
// name, full_name, nickname, メールアドレスのローカル部の順に採用し、
// いずれも空なら "user" を返す。
func (u *AuthUser) DisplayName() string {
	for _, s := range []string{u.Metadata.Name, u.Metadata.FullName, u.Metadata.Nickname} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	if u.Email != "" {
		if local, _, _ := strings.Cut(u.Email, "@"); local != "" {
			return local
		}
	}
	return "user"
}

// Session はブラウザに紐づくログインセッションを表す。
// AccessTokenとRefreshTokenはSupabaseバックエンドでのみ使用する。
type Session struct {
	User         AuthUser
	AccessToken  string
	RefreshToken string
	// ExpiresAt はアクセストークンの有効期限。ゼロ値は期限なし。
	ExpiresAt time.Time
}

// refreshLeeway は期限切れ直前のトークンを先に更新するための猶予。
const refreshLeeway = 30 * time.Second

// NeedsRefresh はアクセストークンの更新が必要かどうかを返す。
func (s *Session) NeedsRefresh(now time.Time) bool {
	if s.RefreshToken == "" || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(refreshLeeway).Before(s.ExpiresAt)
}
