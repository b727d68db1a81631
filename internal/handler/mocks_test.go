package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/hitoshi/vtboard/internal/auth"
	"github.com/hitoshi/vtboard/internal/board"
	"github.com/hitoshi/vtboard/internal/model"
	"github.com/hitoshi/vtboard/internal/view"
)

// --- モック定義 ---

type mockBoardService struct {
	mu    sync.Mutex
	calls []string

	loadFn         func(ctx context.Context, filter string) (*board.Snapshot, []*model.APIError)
	addVtuberFn    func(ctx context.Context, in board.VtuberInput) error
	deleteVtuberFn func(ctx context.Context, id string) error
	createPostFn   func(ctx context.Context, in board.PostInput) error
	deletePostFn   func(ctx context.Context, id string) error
	toggleLikeFn   func(ctx context.Context, postID string) (bool, error)
	addCommentFn   func(ctx context.Context, in board.CommentInput) error
}

func (m *mockBoardService) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockBoardService) called(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (m *mockBoardService) Load(ctx context.Context, filter string) (*board.Snapshot, []*model.APIError) {
	m.record("Load")
	if m.loadFn != nil {
		return m.loadFn(ctx, filter)
	}
	return &board.Snapshot{Session: model.SessionFromContext(ctx), Filter: filter}, nil
}

func (m *mockBoardService) AddVtuber(ctx context.Context, in board.VtuberInput) error {
	m.record("AddVtuber")
	if m.addVtuberFn != nil {
		return m.addVtuberFn(ctx, in)
	}
	return nil
}

func (m *mockBoardService) DeleteVtuber(ctx context.Context, id string) error {
	m.record("DeleteVtuber")
	if m.deleteVtuberFn != nil {
		return m.deleteVtuberFn(ctx, id)
	}
	return nil
}

func (m *mockBoardService) CreatePost(ctx context.Context, in board.PostInput) error {
	m.record("CreatePost")
	if m.createPostFn != nil {
		return m.createPostFn(ctx, in)
	}
	return nil
}

func (m *mockBoardService) DeletePost(ctx context.Context, id string) error {
	m.record("DeletePost")
	if m.deletePostFn != nil {
		return m.deletePostFn(ctx, id)
	}
	return nil
}

func (m *mockBoardService) ToggleLike(ctx context.Context, postID string) (bool, error) {
	m.record("ToggleLike")
	if m.toggleLikeFn != nil {
		return m.toggleLikeFn(ctx, postID)
	}
	return true, nil
}

func (m *mockBoardService) AddComment(ctx context.Context, in board.CommentInput) error {
	m.record("AddComment")
	if m.addCommentFn != nil {
		return m.addCommentFn(ctx, in)
	}
	return nil
}

// recordingRenderer は描画に渡されたPageDataを記録する。
type recordingRenderer struct {
	pages []view.PageData
	err   error
}

func (r *recordingRenderer) Render(w io.Writer, data view.PageData) error {
	if r.err != nil {
		return r.err
	}
	r.pages = append(r.pages, data)
	_, err := io.WriteString(w, "<html>rendered</html>")
	return err
}

func (r *recordingRenderer) last() view.PageData {
	if len(r.pages) == 0 {
		return view.PageData{}
	}
	return r.pages[len(r.pages)-1]
}

type mockAuthService struct {
	startLoginFn     func() *auth.LoginRequest
	handleCallbackFn func(ctx context.Context, code, verifier string) (*model.Session, error)
	logoutFn         func(ctx context.Context, s *model.Session) error
	encodeFn         func(s *model.Session) (string, error)
}

func (m *mockAuthService) StartLogin() *auth.LoginRequest {
	if m.startLoginFn != nil {
		return m.startLoginFn()
	}
	return &auth.LoginRequest{State: "state-1", Verifier: "verifier-1", URL: "https://accounts.example.com/authorize?state=state-1"}
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code, verifier string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code, verifier)
	}
	return &model.Session{User: model.AuthUser{ID: "user-1"}}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, s *model.Session) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, s)
	}
	return nil
}

func (m *mockAuthService) EncodeSession(s *model.Session) (string, error) {
	if m.encodeFn != nil {
		return m.encodeFn(s)
	}
	return "encoded-" + s.User.ID, nil
}

// --- ヘルパー ---

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func withLogin(req *http.Request, userID string) *http.Request {
	return req.WithContext(model.ContextWithSession(req.Context(), &model.Session{
		User: model.AuthUser{ID: userID, Email: userID + "@example.com"},
	}))
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
