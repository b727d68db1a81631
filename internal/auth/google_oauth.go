package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hitoshi/vtboard/internal/model"
	"github.com/hitoshi/vtboard/internal/repository"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	providerName  = "google"
)

// GoogleConfig はGoogle OAuthの設定。
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用に差し替え可能
	Endpoint oauth2.Endpoint
	KeySet   oidc.KeySet
	Issuer   string
}

// GoogleProvider はpostgresバックエンドでGoogleログインを行う。
// IDトークンを検証し、identitiesテーブルでローカルユーザーを特定する。
type GoogleProvider struct {
	oa2        oauth2.Config
	verifier   *oidc.IDTokenVerifier
	users      repository.UserRepository
	identities repository.IdentityRepository
}

// NewGoogleProvider はGoogleProviderを生成する。
// 公開鍵は初回の検証時に取得されるため、生成時にネットワークアクセスは発生しない。
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig, users repository.UserRepository, identities repository.IdentityRepository) *GoogleProvider {
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}
	if cfg.Issuer == "" {
		cfg.Issuer = googleIssuer
	}
	if cfg.KeySet == nil {
		cfg.KeySet = oidc.NewRemoteKeySet(ctx, googleJWKSURL)
	}

	return &GoogleProvider{
		oa2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier:   oidc.NewVerifier(cfg.Issuer, cfg.KeySet, &oidc.Config{ClientID: cfg.ClientID}),
		users:      users,
		identities: identities,
	}
}

// LoginURL はGoogleの認可URLを返す。
func (p *GoogleProvider) LoginURL(state, verifier string) string {
	return p.oa2.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

type googleClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Exchange は認可コードを交換し、IDトークンの主体に対応するローカルユーザーでセッションを作る。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に作成する。
func (p *GoogleProvider) Exchange(ctx context.Context, code, verifier string) (*model.Session, error) {
	tok, err := p.oa2.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("missing id_token in token response")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id_token: %w", err)
	}
	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("malformed id_token claims: %w", err)
	}

	userID, err := p.findOrCreateUser(ctx, idToken.Subject, claims)
	if err != nil {
		return nil, err
	}

	return &model.Session{
		User: model.AuthUser{
			ID:    userID,
			Email: claims.Email,
			Metadata: model.UserMetadata{
				Name:      claims.Name,
				FullName:  claims.Name,
				AvatarURL: claims.Picture,
			},
		},
	}, nil
}

func (p *GoogleProvider) findOrCreateUser(ctx context.Context, subject string, claims googleClaims) (string, error) {
	identity, err := p.identities.FindByProviderAndProviderUserID(ctx, providerName, subject)
	if err != nil {
		return "", fmt.Errorf("failed to find identity: %w", err)
	}
	if identity != nil {
		return identity.UserID, nil
	}

	user := &model.User{Email: claims.Email, Name: claims.Name}
	newIdentity := &model.Identity{Provider: providerName, ProviderUserID: subject}
	if err := p.users.CreateWithIdentity(ctx, user, newIdentity); err != nil {
		return "", fmt.Errorf("failed to create user and identity: %w", err)
	}
	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("provider", providerName),
	)
	return user.ID, nil
}

// Refresh はそのままのセッションを返す。
// Googleのトークンは保持せず、セッションの有効期間はCookieで管理する。
func (p *GoogleProvider) Refresh(_ context.Context, s *model.Session) (*model.Session, error) {
	return s, nil
}

// SignOut はCookieの破棄のみで完結するため何もしない。
func (p *GoogleProvider) SignOut(context.Context, *model.Session) error {
	return nil
}

var _ Provider = (*GoogleProvider)(nil)
