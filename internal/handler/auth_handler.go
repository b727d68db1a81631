package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/vtboard/internal/auth"
	"github.com/hitoshi/vtboard/internal/middleware"
	"github.com/hitoshi/vtboard/internal/model"
)

const (
	oauthStateCookie    = "oauth_state"
	oauthVerifierCookie = "oauth_verifier"
	// oauthCookieMaxAge はログイン開始からコールバックまでの猶予（秒）。
	oauthCookieMaxAge = 600
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	StartLogin() *auth.LoginRequest
	HandleCallback(ctx context.Context, code, verifier string) (*model.Session, error)
	Logout(ctx context.Context, session *model.Session) error
	EncodeSession(session *model.Session) (string, error)
}

var _ AuthServiceInterface = (*auth.Service)(nil)

// AuthHandler はGoogleログインとログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	cookie  middleware.CookieConfig
	pages   *pageWriter
}

// NewAuthHandler はAuthHandlerを生成する。
// ログイン・ログアウトの失敗は掲示板ページに通知として表示する。
func NewAuthHandler(service AuthServiceInterface, cookie middleware.CookieConfig, board BoardServiceInterface, renderer PageRenderer) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookie:  cookie,
		pages:   &pageWriter{board: board, renderer: renderer},
	}
}

// Login はGoogleログインを開始する。
// GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req := h.service.StartLogin()
	if req == nil || req.URL == "" {
		slog.Error("failed to build login url")
		h.pages.fail(w, r, model.NewLoginFailedError(), pageState{})
		return
	}

	h.setTempCookie(w, oauthStateCookie, req.State, oauthCookieMaxAge)
	h.setTempCookie(w, oauthVerifierCookie, req.Verifier, oauthCookieMaxAge)
	http.Redirect(w, r, req.URL, http.StatusFound)
}

// Callback は認可コードをセッションに交換し、セッションCookieを設定する。
// GET /auth/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != q.Get("state") {
		slog.Warn("oauth state mismatch", slog.String("query_state", q.Get("state")))
		h.pages.fail(w, r, model.NewLoginFailedError(), pageState{})
		return
	}
	verifierCookie, err := r.Cookie(oauthVerifierCookie)
	if err != nil || verifierCookie.Value == "" {
		slog.Warn("oauth verifier cookie missing")
		h.pages.fail(w, r, model.NewLoginFailedError(), pageState{})
		return
	}
	h.setTempCookie(w, oauthStateCookie, "", -1)
	h.setTempCookie(w, oauthVerifierCookie, "", -1)

	if e := q.Get("error"); e != "" {
		slog.Warn("oauth provider returned error",
			slog.String("error", e),
			slog.String("error_description", q.Get("error_description")),
		)
		h.pages.fail(w, r, model.NewLoginFailedError(), pageState{})
		return
	}

	session, err := h.service.HandleCallback(r.Context(), q.Get("code"), verifierCookie.Value)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.pages.fail(w, r, model.NewLoginFailedError(), pageState{})
		return
	}

	value, err := h.service.EncodeSession(session)
	if err != nil {
		slog.Error("failed to encode session", slog.String("error", err.Error()))
		h.pages.fail(w, r, model.NewLoginFailedError(), pageState{})
		return
	}
	middleware.SetSessionCookie(w, h.cookie, value)

	slog.Info("user logged in", slog.String("user_id", session.User.ID))
	backToBoard(w, r, "")
}

// Logout はセッションを破棄する。
// バックエンドでのサインアウトに失敗した場合はセッションを残し、通知を表示する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	filter := r.PostFormValue(filterParam)
	if err := h.service.Logout(r.Context(), model.SessionFromContext(r.Context())); err != nil {
		slog.Error("failed to logout", slog.String("error", err.Error()))
		h.pages.fail(w, r, model.NewLogoutFailedError(), pageState{filter: filter})
		return
	}

	middleware.ClearSessionCookie(w, h.cookie)
	backToBoard(w, r, filter)
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
