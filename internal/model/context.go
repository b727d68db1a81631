package model

import "context"

type sessionContextKey struct{}

// ContextWithSession はコンテキストにログインセッションを格納する。
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext はコンテキストからログインセッションを取り出す。
// 未ログインの場合はnilを返す。
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}

// CallerIDFromContext はログイン中のユーザーIDを返す。未ログインなら空文字列。
func CallerIDFromContext(ctx context.Context) string {
	if s := SessionFromContext(ctx); s != nil {
		return s.User.ID
	}
	return ""
}
