package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/vtboard/internal/board"
	"github.com/hitoshi/vtboard/internal/model"
	"github.com/hitoshi/vtboard/internal/view"
)

// 削除の確認パネルに表示する文言。
const (
	confirmDeleteVtuber = "本当に削除しますか？（紐づく投稿は残ります）"
	confirmDeletePost   = "本当に投稿を削除しますか？"
)

// BoardHandler は掲示板の表示と変更操作のHTTPハンドラー。
type BoardHandler struct {
	pages *pageWriter
}

// NewBoardHandler はBoardHandlerを生成する。
func NewBoardHandler(service BoardServiceInterface, renderer PageRenderer) *BoardHandler {
	return &BoardHandler{pages: &pageWriter{board: service, renderer: renderer}}
}

// Index は掲示板を表示する。
// GET /?vtuber={id}
func (h *BoardHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, pageState{filter: r.URL.Query().Get(filterParam)})
}

// AddVtuber は配信者を登録する。
// POST /vtubers
func (h *BoardHandler) AddVtuber(w http.ResponseWriter, r *http.Request) {
	filter := r.PostFormValue(filterParam)
	in := board.VtuberInput{
		Name:       r.PostFormValue("name"),
		ChannelURL: r.PostFormValue("channel_url"),
	}

	if err := h.pages.board.AddVtuber(r.Context(), in); err != nil {
		h.pages.fail(w, r, err, pageState{
			filter: filter,
			form:   view.FormState{VtuberName: in.Name, ChannelURL: in.ChannelURL},
		})
		return
	}
	backToBoard(w, r, filter)
}

// DeleteVtuber は確認のうえ配信者を削除する。
// POST /vtubers/{id}/delete
func (h *BoardHandler) DeleteVtuber(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.confirmedDelete(w, r, confirmDeleteVtuber, "/vtubers/"+url.PathEscape(id)+"/delete", func() error {
		return h.pages.board.DeleteVtuber(r.Context(), id)
	})
}

// CreatePost は絞り込み中の配信者への投稿を作成する。
// POST /posts
func (h *BoardHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	filter := r.PostFormValue(filterParam)
	in := board.PostInput{
		VtuberID: filter,
		Title:    r.PostFormValue("title"),
		Body:     r.PostFormValue("body"),
	}

	if err := h.pages.board.CreatePost(r.Context(), in); err != nil {
		h.pages.fail(w, r, err, pageState{
			filter: filter,
			form:   view.FormState{PostTitle: in.Title, PostBody: in.Body},
		})
		return
	}
	backToBoard(w, r, filter)
}

// DeletePost は確認のうえ投稿を削除する。
// POST /posts/{id}/delete
func (h *BoardHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.confirmedDelete(w, r, confirmDeletePost, "/posts/"+url.PathEscape(id)+"/delete", func() error {
		return h.pages.board.DeletePost(r.Context(), id)
	})
}

// ToggleLike はいいねを切り替える。
// POST /posts/{id}/like
func (h *BoardHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	filter := r.PostFormValue(filterParam)
	if _, err := h.pages.board.ToggleLike(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.pages.fail(w, r, err, pageState{filter: filter})
		return
	}
	backToBoard(w, r, filter)
}

// AddComment は投稿にコメントする。
// POST /posts/{id}/comments
func (h *BoardHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	filter := r.PostFormValue(filterParam)
	in := board.CommentInput{
		PostID: chi.URLParam(r, "id"),
		Body:   r.PostFormValue("body"),
	}

	if err := h.pages.board.AddComment(r.Context(), in); err != nil {
		h.pages.fail(w, r, err, pageState{
			filter: filter,
			form:   view.FormState{CommentPostID: in.PostID, CommentBody: in.Body},
		})
		return
	}
	backToBoard(w, r, filter)
}

// confirmedDelete はログインを確認し、confirm=yesが送られていれば削除を実行する。
// 未確認なら確認パネルを表示し、バックエンドは呼ばない。
func (h *BoardHandler) confirmedDelete(w http.ResponseWriter, r *http.Request, message, action string, del func() error) {
	filter := r.PostFormValue(filterParam)

	if model.SessionFromContext(r.Context()) == nil {
		h.pages.fail(w, r, model.NewLoginRequiredError(), pageState{filter: filter})
		return
	}

	if r.PostFormValue("confirm") != "yes" {
		h.pages.render(w, r, http.StatusOK, pageState{
			filter:  filter,
			confirm: &view.Confirmation{Message: message, Action: action},
		})
		return
	}

	if err := del(); err != nil {
		h.pages.fail(w, r, err, pageState{filter: filter})
		return
	}
	backToBoard(w, r, filter)
}
