// Package auth はログインフローとセッションCookieの管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/hitoshi/vtboard/internal/model"
)

// Provider はGoogleログインを実行する認証バックエンドのインターフェース。
// supabaseバックエンドではGoTrue、postgresバックエンドではGoogle OAuthを直接使う。
type Provider interface {
	// LoginURL はログイン開始時のリダイレクト先を返す。verifierはPKCEのcode_verifier。
	LoginURL(state, verifier string) string
	// Exchange はコールバックで受け取った認可コードをセッションに交換する。
	Exchange(ctx context.Context, code, verifier string) (*model.Session, error)
	// Refresh はアクセストークンを更新したセッションを返す。
	Refresh(ctx context.Context, s *model.Session) (*model.Session, error)
	// SignOut はバックエンド側のセッションを破棄する。
	SignOut(ctx context.Context, s *model.Session) error
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	provider Provider
	codec    *SessionCodec
}

// NewService はServiceを生成する。
func NewService(provider Provider, codec *SessionCodec) *Service {
	return &Service{provider: provider, codec: codec}
}

// LoginRequest はログイン開始時に生成し、コールバックまでCookieで保持する値。
type LoginRequest struct {
	State    string
	Verifier string
	URL      string
}

// StartLogin はstateとcode_verifierを生成し、ログインURLを返す。
func (s *Service) StartLogin() *LoginRequest {
	req := &LoginRequest{
		State:    uuid.NewString(),
		Verifier: oauth2.GenerateVerifier(),
	}
	req.URL = s.provider.LoginURL(req.State, req.Verifier)
	return req
}

// HandleCallback は認可コードを交換してセッションを確立する。
func (s *Service) HandleCallback(ctx context.Context, code, verifier string) (*model.Session, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}
	session, err := s.provider.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	slog.Info("user logged in", slog.String("user_id", session.User.ID))
	return session, nil
}

// Refresh はアクセストークンを更新する。失敗した場合、呼び出し元はセッションを破棄する。
func (s *Service) Refresh(ctx context.Context, session *model.Session) (*model.Session, error) {
	refreshed, err := s.provider.Refresh(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	return refreshed, nil
}

// Logout はバックエンドのセッションを破棄する。
// 失敗した場合はエラーを返し、呼び出し元はログイン状態を維持する。
func (s *Service) Logout(ctx context.Context, session *model.Session) error {
	if session == nil {
		return nil
	}
	if err := s.provider.SignOut(ctx, session); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	slog.Info("user logged out", slog.String("user_id", session.User.ID))
	return nil
}

// EncodeSession はセッションをCookie値に変換する。
func (s *Service) EncodeSession(session *model.Session) (string, error) {
	return s.codec.Encode(session)
}

// DecodeSession はCookie値からセッションを復元する。
func (s *Service) DecodeSession(value string) (*model.Session, error) {
	return s.codec.Decode(value)
}
