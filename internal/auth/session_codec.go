package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/vtboard/internal/model"
)

// ErrInvalidSession はCookieのセッションが改ざん・期限切れ・不正形式のいずれかであることを示す。
var ErrInvalidSession = errors.New("invalid session")

// sessionClaims はセッションCookieに格納するJWTのクレーム。
type sessionClaims struct {
	jwt.RegisteredClaims
	Email        string             `json:"email,omitempty"`
	Metadata     model.UserMetadata `json:"meta"`
	AccessToken  string             `json:"at,omitempty"`
	RefreshToken string             `json:"rt,omitempty"`
	// AccessExpiresAt はバックエンドのアクセストークンの期限（UNIX秒）。
	AccessExpiresAt int64 `json:"aexp,omitempty"`
}

// SessionCodec はセッションをHS256署名付きJWTとしてCookieに格納する。
type SessionCodec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSessionCodec はSessionCodecを生成する。
func NewSessionCodec(secret string, maxAge time.Duration) *SessionCodec {
	return &SessionCodec{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// MaxAge はCookieの有効期間を返す。
func (c *SessionCodec) MaxAge() time.Duration {
	return c.maxAge
}

// Encode はセッションを署名付きトークンに変換する。
func (c *SessionCodec) Encode(s *model.Session) (string, error) {
	now := c.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.User.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
		Email:        s.User.Email,
		Metadata:     s.User.Metadata,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
	if !s.ExpiresAt.IsZero() {
		claims.AccessExpiresAt = s.ExpiresAt.Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Decode は署名と有効期限を検証してセッションを復元する。
func (c *SessionCodec) Decode(value string) (*model.Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(value, &claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}

	s := &model.Session{
		User: model.AuthUser{
			ID:       claims.Subject,
			Email:    claims.Email,
			Metadata: claims.Metadata,
		},
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
	}
	if claims.AccessExpiresAt > 0 {
		s.ExpiresAt = time.Unix(claims.AccessExpiresAt, 0)
	}
	return s, nil
}
