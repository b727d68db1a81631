// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/vtboard/internal/model"
)

// SessionCookieName はセッションを保持するCookieの名前。
const SessionCookieName = "vtboard_session"

// SessionStore はセッションCookieの復号と更新に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type SessionStore interface {
	DecodeSession(value string) (*model.Session, error)
	EncodeSession(session *model.Session) (string, error)
	Refresh(ctx context.Context, session *model.Session) (*model.Session, error)
}

// CookieConfig はセッションCookieの属性。
type CookieConfig struct {
	Secure bool
	Domain string
	MaxAge time.Duration
}

// NewSessionMiddleware はCookieからセッションを読み取り、リクエストコンテキストに注入するミドルウェアを返す。
// 未ログインのリクエストもそのまま通す。ログインが必要かどうかは操作ごとに判断する。
// アクセストークンの期限が近い場合は更新し、Cookieを書き換える。
// 復号できないCookieは削除する。
func NewSessionMiddleware(store SessionStore, cfg CookieConfig) func(next http.Handler) http.Handler {
	return newSessionMiddleware(store, cfg, time.Now)
}

func newSessionMiddleware(store SessionStore, cfg CookieConfig, now func() time.Time) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := store.DecodeSession(cookie.Value)
			if err != nil {
				slog.Info("discarding invalid session cookie", slog.String("error", err.Error()))
				ClearSessionCookie(w, cfg)
				next.ServeHTTP(w, r)
				return
			}

			if session.NeedsRefresh(now()) {
				session = refreshSession(w, r, store, cfg, session, now())
				if session == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			setRequestUser(r.Context(), session.User.ID)
			next.ServeHTTP(w, r.WithContext(model.ContextWithSession(r.Context(), session)))
		})
	}
}

// refreshSession はトークンを更新してCookieを書き換える。
// 更新に失敗した場合、まだ期限内なら古いセッションを使い、期限切れならCookieを削除してnilを返す。
func refreshSession(w http.ResponseWriter, r *http.Request, store SessionStore, cfg CookieConfig, session *model.Session, now time.Time) *model.Session {
	refreshed, err := store.Refresh(r.Context(), session)
	if err == nil {
		var value string
		value, err = store.EncodeSession(refreshed)
		if err == nil {
			SetSessionCookie(w, cfg, value)
			return refreshed
		}
	}

	slog.Warn("session refresh failed",
		slog.String("user_id", session.User.ID),
		slog.String("error", err.Error()),
	)
	if now.Before(session.ExpiresAt) {
		return session
	}
	ClearSessionCookie(w, cfg)
	return nil
}

// SetSessionCookie はセッションCookieを設定する。
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserIDFromContext はリクエストコンテキストからログイン中のユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID := model.CallerIDFromContext(ctx)
	if userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// requestUserKey はアクセスログ用にユーザーIDを外側のミドルウェアへ渡すためのキー。
type requestUserKey struct{}

type requestUserHolder struct {
	id string
}

func withRequestUser(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestUserKey{}, &requestUserHolder{})
}

func setRequestUser(ctx context.Context, userID string) {
	if h, ok := ctx.Value(requestUserKey{}).(*requestUserHolder); ok {
		h.id = userID
	}
}

func requestUser(ctx context.Context) string {
	if h, ok := ctx.Value(requestUserKey{}).(*requestUserHolder); ok {
		return h.id
	}
	return ""
}
