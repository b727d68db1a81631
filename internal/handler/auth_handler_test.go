package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/vtboard/internal/auth"
	"github.com/hitoshi/vtboard/internal/middleware"
	"github.com/hitoshi/vtboard/internal/model"
)

func newTestAuthHandler(svc *mockAuthService) (*AuthHandler, *recordingRenderer) {
	renderer := &recordingRenderer{}
	return NewAuthHandler(svc, middleware.CookieConfig{}, &mockBoardService{}, renderer), renderer
}

func callbackRequest(query string, state, verifier string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query, nil)
	if state != "" {
		req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: state})
	}
	if verifier != "" {
		req.AddCookie(&http.Cookie{Name: oauthVerifierCookie, Value: verifier})
	}
	return req
}

func TestAuthHandler_Login(t *testing.T) {
	h, _ := newTestAuthHandler(&mockAuthService{})
	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://accounts.example.com/authorize?state=state-1" {
		t.Errorf("Location = %q", loc)
	}
	if c := findCookie(w, oauthStateCookie); c == nil || c.Value != "state-1" || !c.HttpOnly {
		t.Errorf("state cookie = %+v", c)
	}
	if c := findCookie(w, oauthVerifierCookie); c == nil || c.Value != "verifier-1" {
		t.Errorf("verifier cookie = %+v", c)
	}
}

func TestAuthHandler_LoginStartFailure(t *testing.T) {
	h, renderer := newTestAuthHandler(&mockAuthService{
		startLoginFn: func() *auth.LoginRequest { return &auth.LoginRequest{} },
	})
	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if n := renderer.last().Notices; len(n) == 0 || n[0].Code != model.ErrCodeLoginFailed {
		t.Errorf("notices = %+v", n)
	}
}

func TestAuthHandler_Callback(t *testing.T) {
	var gotCode, gotVerifier string
	h, _ := newTestAuthHandler(&mockAuthService{
		handleCallbackFn: func(_ context.Context, code, verifier string) (*model.Session, error) {
			gotCode, gotVerifier = code, verifier
			return &model.Session{User: model.AuthUser{ID: "user-1"}}, nil
		},
	})

	w := httptest.NewRecorder()
	h.Callback(w, callbackRequest("code=abc&state=s1", "s1", "v1"))

	assertRedirect(t, w, "/")
	if gotCode != "abc" || gotVerifier != "v1" {
		t.Errorf("code/verifier = %q/%q", gotCode, gotVerifier)
	}
	if c := findCookie(w, middleware.SessionCookieName); c == nil || c.Value != "encoded-user-1" {
		t.Errorf("session cookie = %+v", c)
	}
	if c := findCookie(w, oauthStateCookie); c == nil || c.MaxAge >= 0 {
		t.Errorf("state cookie should be cleared: %+v", c)
	}
}

func TestAuthHandler_CallbackFailures(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		state    string
		verifier string
		exchange error
	}{
		{"stateなし", "code=abc&state=s1", "", "v1", nil},
		{"state不一致", "code=abc&state=s2", "s1", "v1", nil},
		{"verifierなし", "code=abc&state=s1", "s1", "", nil},
		{"プロバイダーのエラー", "error=access_denied&state=s1", "s1", "v1", nil},
		{"交換失敗", "code=abc&state=s1", "s1", "v1", errors.New("invalid_grant")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exchanged := false
			h, renderer := newTestAuthHandler(&mockAuthService{
				handleCallbackFn: func(context.Context, string, string) (*model.Session, error) {
					exchanged = true
					if tt.exchange != nil {
						return nil, tt.exchange
					}
					return &model.Session{User: model.AuthUser{ID: "user-1"}}, nil
				},
			})

			w := httptest.NewRecorder()
			h.Callback(w, callbackRequest(tt.query, tt.state, tt.verifier))

			if w.Code != http.StatusBadGateway {
				t.Fatalf("status = %d, want 502", w.Code)
			}
			if c := findCookie(w, middleware.SessionCookieName); c != nil {
				t.Errorf("session cookie must not be set: %+v", c)
			}
			if tt.exchange == nil && exchanged {
				t.Error("HandleCallback should not be called")
			}
			if n := renderer.last().Notices; len(n) == 0 || n[0].Message != "Googleログインに失敗しました。" {
				t.Errorf("notices = %+v", n)
			}
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var got *model.Session
	h, _ := newTestAuthHandler(&mockAuthService{
		logoutFn: func(_ context.Context, s *model.Session) error {
			got = s
			return nil
		},
	})

	w := httptest.NewRecorder()
	h.Logout(w, withLogin(formRequest("/auth/logout", nil), "user-1"))

	assertRedirect(t, w, "/")
	if got == nil || got.User.ID != "user-1" {
		t.Errorf("logout session = %+v", got)
	}
	if c := findCookie(w, middleware.SessionCookieName); c == nil || c.MaxAge >= 0 {
		t.Errorf("session cookie should be cleared: %+v", c)
	}
}

func TestAuthHandler_LogoutFailureKeepsSession(t *testing.T) {
	h, renderer := newTestAuthHandler(&mockAuthService{
		logoutFn: func(context.Context, *model.Session) error { return errors.New("network down") },
	})

	w := httptest.NewRecorder()
	h.Logout(w, withLogin(formRequest("/auth/logout", nil), "user-1"))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if c := findCookie(w, middleware.SessionCookieName); c != nil {
		t.Errorf("session cookie must be kept: %+v", c)
	}
	if n := renderer.last().Notices; len(n) == 0 || n[0].Code != model.ErrCodeLogoutFailed {
		t.Errorf("notices = %+v", n)
	}
}
