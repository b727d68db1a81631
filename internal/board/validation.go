package board

import (
	"errors"
	"strings"

	vd "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hitoshi/vtboard/internal/model"
)

// VtuberInput は配信者登録フォームの入力。
type VtuberInput struct {
	Name       string
	ChannelURL string
}

func (in *VtuberInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.ChannelURL = strings.TrimSpace(in.ChannelURL)
}

func (in VtuberInput) Validate() error {
	return vd.ValidateStruct(&in,
		vd.Field(&in.Name, vd.Required.Error("配信者名を入力してください。")),
	)
}

// PostInput は投稿フォームの入力。VtuberIDは現在の絞り込み（空なら配信者なし）。
type PostInput struct {
	VtuberID string
	Title    string
	Body     string
}

func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
}

func (in PostInput) Validate() error {
	return vd.ValidateStruct(&in,
		vd.Field(&in.Title, vd.Required.Error("タイトルを入力してください。")),
		vd.Field(&in.Body, vd.Required.Error("本文を入力してください。")),
	)
}

// CommentInput はコメントフォームの入力。
type CommentInput struct {
	PostID string
	Body   string
}

func (in *CommentInput) normalize() {
	in.Body = strings.TrimSpace(in.Body)
}

func (in CommentInput) Validate() error {
	return vd.ValidateStruct(&in,
		vd.Field(&in.Body, vd.Required.Error("コメントを入力してください。")),
	)
}

// validationError はozzo-validationのエラーをユーザー向けのエラーに変換する。
// 複数の項目が不正な場合は、フォーム上の並び順で最初の項目のメッセージを返す。
func validationError(err error, fieldOrder ...string) error {
	var errs vd.Errors
	if !errors.As(err, &errs) {
		return model.NewValidationError(err.Error())
	}
	for _, name := range fieldOrder {
		if fe, ok := errs[name]; ok {
			return model.NewValidationError(fe.Error())
		}
	}
	return model.NewValidationError(errs.Error())
}
