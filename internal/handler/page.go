// Package handler はHTTPハンドラーを提供する。
//
// 各変更操作は1回のフォーム送信に対応する。成功したら303で一覧に戻し、
// ブラウザに全体を読み込み直させる。失敗したら入力値を残したまま同じページを描画し直す。
package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/vtboard/internal/board"
	"github.com/hitoshi/vtboard/internal/middleware"
	"github.com/hitoshi/vtboard/internal/model"
	"github.com/hitoshi/vtboard/internal/view"
)

// filterParam は絞り込み中の配信者IDを受け渡すパラメータ名。
const filterParam = "vtuber"

// BoardServiceInterface はハンドラーが必要とする掲示板サービスのインターフェース。
type BoardServiceInterface interface {
	Load(ctx context.Context, filter string) (*board.Snapshot, []*model.APIError)
	AddVtuber(ctx context.Context, in board.VtuberInput) error
	DeleteVtuber(ctx context.Context, id string) error
	CreatePost(ctx context.Context, in board.PostInput) error
	DeletePost(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, postID string) (bool, error)
	AddComment(ctx context.Context, in board.CommentInput) error
}

// PageRenderer はページを描画するインターフェース。
type PageRenderer interface {
	Render(w io.Writer, data view.PageData) error
}

var (
	_ BoardServiceInterface = (*board.Service)(nil)
	_ PageRenderer          = (*view.Renderer)(nil)
)

// pageWriter は掲示板を読み込み直してページを描画する。
type pageWriter struct {
	board    BoardServiceInterface
	renderer PageRenderer
}

// pageState は描画時に上乗せする状態。
type pageState struct {
	filter  string
	notice  *model.APIError
	form    view.FormState
	confirm *view.Confirmation
}

// render は最新のスナップショットを読み込み、statusでページを返す。
// 操作の通知は読み込み時の警告より先に表示する。
func (p *pageWriter) render(w http.ResponseWriter, r *http.Request, status int, st pageState) {
	snap, notices := p.board.Load(r.Context(), st.filter)
	if st.notice != nil {
		notices = append([]*model.APIError{st.notice}, notices...)
	}

	var buf bytes.Buffer
	err := p.renderer.Render(&buf, view.PageData{
		Snapshot:  snap,
		Notices:   notices,
		Form:      st.form,
		Confirm:   st.confirm,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("failed to render page", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fail は操作のエラーを通知としてページを描画し直す。
func (p *pageWriter) fail(w http.ResponseWriter, r *http.Request, err error, st pageState) {
	apiErr := toAPIError(err)
	st.notice = apiErr
	p.render(w, r, statusFor(apiErr), st)
}

// toAPIError はエラーをユーザー向けのエラーに変換する。
func toAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	slog.Error("unexpected error", slog.String("error", err.Error()))
	return &model.APIError{
		Code:     middleware.ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// statusFor はエラーカテゴリに対応するHTTPステータスを返す。
func statusFor(apiErr *model.APIError) int {
	switch apiErr.Category {
	case model.CategoryAuth:
		if apiErr.Code == model.ErrCodeLoginFailed {
			return http.StatusBadGateway
		}
		return http.StatusUnauthorized
	case model.CategoryValidation:
		return http.StatusBadRequest
	case model.CategoryRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// boardURL は絞り込みを保ったトップページのURLを返す。
func boardURL(filter string) string {
	if filter == "" {
		return "/"
	}
	return "/?" + url.Values{filterParam: {filter}}.Encode()
}

// backToBoard は303で一覧に戻す。
func backToBoard(w http.ResponseWriter, r *http.Request, filter string) {
	http.Redirect(w, r, boardURL(filter), http.StatusSeeOther)
}
