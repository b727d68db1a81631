package supabase

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/hitoshi/vtboard/internal/model"
)

// Error はPostgRESTまたはGoTrueが返したエラーレスポンス。
type Error struct {
	Status  int       `json:"-"`
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details"`
	Hint    string    `json:"hint"`

	// GoTrueのエラー形式
	ErrorCode        string `json:"error_code"`
	ErrorName        string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

func (e *Error) Error() string {
	msg := e.Message
	for _, s := range []string{e.ErrorDescription, e.Msg, e.ErrorName} {
		if msg != "" {
			break
		}
		msg = s
	}
	// GoTrueのcodeはHTTPステータスの数値なのでerror_codeを優先する
	code := e.ErrorCode
	if code == "" {
		code = string(e.Code)
	}
	if code != "" {
		return fmt.Sprintf("supabase: status %d (%s): %s", e.Status, code, msg)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.Status, msg)
}

// errorCode はPostgRESTの文字列コード("42501")とGoTrueの数値コード(400)の両方を受け付ける。
type errorCode string

func (c *errorCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*c = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = errorCode(s)
	default:
		*c = errorCode(b)
	}
	return nil
}

// Is は認可エラーをmodel.ErrPermissionDeniedとして扱う。
// 42501はPostgreSQLのinsufficient_privilege（RLS違反）。
func (e *Error) Is(target error) bool {
	if target != model.ErrPermissionDenied {
		return false
	}
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden || e.Code == "42501"
}

// decodeError はエラーレスポンスを*Errorに変換する。ボディがJSONでなくてもステータスは保持する。
func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(b, e); err != nil {
		e.Message = string(b)
	}
	return e
}
