// Package view は掲示板のスナップショットをHTMLページに描画する。
//
// 描画は受け取ったデータだけから決まる純粋な射影で、バックエンドへの問い合わせは行わない。
// ユーザーが入力した文字列はすべてhtml/templateの文脈依存エスケープを通す。
// 複数行の本文とコメントはContentSanitizerでHTML化したものだけを安全なHTMLとして扱う。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/hitoshi/vtboard/internal/board"
	"github.com/hitoshi/vtboard/internal/model"
	"github.com/hitoshi/vtboard/internal/security"
)

//go:embed templates/*.html
var templateFS embed.FS

// TimeLayout は画面に表示する日時の書式。
const TimeLayout = "2006/1/2 15:04:05"

// PageData は1ページの描画に必要なすべての入力。
type PageData struct {
	Snapshot *board.Snapshot
	// Notices は画面上部に表示する通知。読み込み警告と操作の失敗を含む。
	Notices []*model.APIError
	// Form は失敗した操作の入力値。再送できるようにフォームに戻す。
	Form FormState
	// Confirm が設定されている場合は削除の確認パネルを表示する。
	Confirm   *Confirmation
	CSRFToken string
}

// FormState はフォームに復元する入力値。
type FormState struct {
	VtuberName    string
	ChannelURL    string
	PostTitle     string
	PostBody      string
	CommentPostID string
	CommentBody   string
}

// CommentFor は指定した投稿のコメント欄に復元する入力値を返す。
func (f FormState) CommentFor(postID string) string {
	if f.CommentPostID != postID {
		return ""
	}
	return f.CommentBody
}

// Confirmation は削除前の確認パネル。
type Confirmation struct {
	Message string
	// Action は確認後に送信するフォームの送信先。
	Action string
}

// Renderer はページ全体を描画する。
type Renderer struct {
	tmpl      *template.Template
	loc       *time.Location
	sanitizer security.ContentSanitizerService
}

// NewRenderer は埋め込みテンプレートを解析してRendererを生成する。
// locがnilの場合はUTCで日時を表示する。
func NewRenderer(loc *time.Location, sanitizer security.ContentSanitizerService) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	r := &Renderer{loc: loc, sanitizer: sanitizer}

	tmpl, err := template.New("page.html").Funcs(template.FuncMap{
		"formatTime": r.formatTime,
		"richText":   r.richText,
		"nickname":   nickname,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Render はページを描画してwに書き出す。
// 描画に失敗した場合は何も書き出さない。
func (r *Renderer) Render(w io.Writer, data PageData) error {
	if data.Snapshot == nil {
		data.Snapshot = &board.Snapshot{}
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page.html", data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(r.loc).Format(TimeLayout)
}

// richText はサニタイズ済みのHTMLを返す。エスケープはsanitizer側で済んでいる。
func (r *Renderer) richText(s string) template.HTML {
	return template.HTML(r.sanitizer.RenderText(s))
}

// nickname は認証表示に使う名前を返す。プロフィールがなければ「ログイン中」。
func nickname(p *model.Profile) string {
	if p == nil || p.Nickname == "" {
		return "ログイン中"
	}
	return p.Nickname
}
