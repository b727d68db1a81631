package board

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hitoshi/vtboard/internal/model"
)

// eventRecorder はmetrics.MetricsCollectorのテスト用実装。
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) RecordBackendRequest(string, string, string, time.Duration) {}
func (r *eventRecorder) RecordHTTPStatus(int)                                       {}
func (r *eventRecorder) RecordBoardEvent(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newTestService() (*Service, *fakeStore, *eventRecorder) {
	store := newFakeStore()
	rec := &eventRecorder{}
	return NewService(store.backend(), rec), store, rec
}

func loggedIn(userID, name string) context.Context {
	return model.ContextWithSession(context.Background(), &model.Session{
		User: model.AuthUser{
			ID:       userID,
			Email:    userID + "@example.com",
			Metadata: model.UserMetadata{Name: name},
		},
		AccessToken: "token-" + userID,
	})
}

// requireAPIError はerrがcodeのAPIErrorであることを確認し、それを返す。
func requireAPIError(t *testing.T, err error, code string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

// seedVtuber は配信者を登録し、IDを返す。
func seedVtuber(t *testing.T, svc *Service, store *fakeStore, ctx context.Context, name string) string {
	t.Helper()
	require.NoError(t, svc.AddVtuber(ctx, VtuberInput{Name: name}))
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.vtubers[len(store.vtubers)-1].ID
}

// seedPost は投稿を作成し、IDを返す。
func seedPost(t *testing.T, svc *Service, store *fakeStore, ctx context.Context, vtuberID, title string) string {
	t.Helper()
	require.NoError(t, svc.CreatePost(ctx, PostInput{VtuberID: vtuberID, Title: title, Body: title + "の本文"}))
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.posts[len(store.posts)-1].ID
}
