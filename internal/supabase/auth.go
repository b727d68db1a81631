package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/vtboard/internal/model"
)

// AuthProvider はGoTrueのPKCEフローでGoogleログインを行う。
type AuthProvider struct {
	c *Client
	// redirectURL はログイン完了後に戻るアプリケーション自身のコールバックURL。
	redirectURL string
}

// NewAuthProvider はAuthProviderを生成する。
func NewAuthProvider(c *Client, redirectURL string) *AuthProvider {
	return &AuthProvider{c: c, redirectURL: redirectURL}
}

// tokenResponse はGoTrueの/tokenレスポンス。
type tokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"`
	ExpiresAt    int64          `json:"expires_at"`
	User         model.AuthUser `json:"user"`
}

func (r *tokenResponse) session(now time.Time) *model.Session {
	s := &model.Session{
		User:         r.User,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
	switch {
	case r.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return s
}

// LoginURL はGoogleログインを開始するGoTrueのauthorize URLを返す。
// stateはコールバックURLのクエリに載せて戻ってくる。
func (p *AuthProvider) LoginURL(state, verifier string) string {
	redirect := p.redirectURL
	if u, err := url.Parse(p.redirectURL); err == nil {
		q := u.Query()
		q.Set("state", state)
		u.RawQuery = q.Encode()
		redirect = u.String()
	}

	q := url.Values{}
	q.Set("provider", "google")
	q.Set("redirect_to", redirect)
	q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	q.Set("code_challenge_method", "s256")
	return p.c.baseURL + authPrefix + "authorize?" + q.Encode()
}

// Exchange は認可コードとcode_verifierをセッションに交換する。
func (p *AuthProvider) Exchange(ctx context.Context, code, verifier string) (*model.Session, error) {
	return p.token(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
}

// Refresh はリフレッシュトークンで新しいセッションを取得する。
func (p *AuthProvider) Refresh(ctx context.Context, s *model.Session) (*model.Session, error) {
	if s.RefreshToken == "" {
		return nil, errors.New("session has no refresh token")
	}
	return p.token(ctx, "refresh_token", map[string]string{
		"refresh_token": s.RefreshToken,
	})
}

// SignOut はアクセストークンを無効化する。
func (p *AuthProvider) SignOut(ctx context.Context, s *model.Session) error {
	if s.AccessToken == "" {
		return nil
	}
	return p.c.do(ctx, call{
		method: http.MethodPost,
		path:   authPrefix + "logout",
		bearer: s.AccessToken,
		label:  "auth",
	}, nil)
}

func (p *AuthProvider) token(ctx context.Context, grantType string, body map[string]string) (*model.Session, error) {
	var resp tokenResponse
	err := p.c.do(ctx, call{
		method: http.MethodPost,
		path:   authPrefix + "token",
		query:  url.Values{"grant_type": {grantType}},
		body:   body,
		bearer: p.c.anonKey,
		label:  "auth",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.User.ID == "" {
		return nil, errors.New("token response missing access token or user")
	}
	return resp.session(time.Now()), nil
}
