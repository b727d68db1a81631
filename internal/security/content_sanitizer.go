// Package security はユーザー入力を表示する際のサニタイズ機能を提供する。
package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はユーザーが入力した文字列を安全なHTMLに変換する。
type ContentSanitizerService interface {
	// RenderText はプレーンテキストをエスケープし、改行を<br>に、
	// http(s)のURLをリンクに変換したHTMLを返す。
	// 出力は許可リストで再検査済みで、そのまま埋め込んでよい。
	RenderText(text string) string
}

// urlPattern はエスケープ済みテキスト中のhttp(s) URLに一致する。
// 全角文字は含めないため「https://example.com。」の句点はリンクにならない。
var urlPattern = regexp.MustCompile(`https?://[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+`)

// trailingPunct はURL末尾から除外する記号。閉じ括弧は対応が取れていない場合のみ除外する。
const trailingPunct = ".,;:!?'"

type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceを生成する。
// 許可するのはbrと、http/httpsのhrefを持つaのみ。
// リンクにはtarget="_blank"とrel="nofollow noreferrer noopener"を付与する。
func NewContentSanitizer() ContentSanitizerService {
	p := bluemonday.NewPolicy()
	p.AllowElements("br")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{policy: p}
}

func (s *contentSanitizer) RenderText(text string) string {
	if text == "" {
		return ""
	}
	escaped := html.EscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	linked := urlPattern.ReplaceAllStringFunc(escaped, linkify)
	withBreaks := strings.ReplaceAll(linked, "\n", "<br>")
	return s.policy.Sanitize(withBreaks)
}

// linkify はエスケープ済みのURLをaタグに変換する。末尾の句読点はリンク外に残す。
func linkify(escapedURL string) string {
	u := trimURLSuffix(escapedURL)
	rest := escapedURL[len(u):]
	// エスケープ済み文字列の末尾が実体参照の途中で切れないようにする
	if i := strings.LastIndexByte(u, '&'); i >= 0 && !strings.Contains(u[i:], ";") {
		rest = u[i:] + rest
		u = u[:i]
	}
	if len(u) <= len("https://") {
		return escapedURL
	}
	return `<a href="` + u + `">` + u + `</a>` + rest
}

// trimURLSuffix はURL末尾の句読点を取り除く。
// 「https://en.wikipedia.org/wiki/X_(Y)」のように括弧が対応していれば ) は残す。
func trimURLSuffix(u string) string {
	for u != "" {
		last := u[len(u)-1]
		switch {
		case strings.IndexByte(trailingPunct, last) >= 0:
		case last == ')' && strings.Count(u, ")") > strings.Count(u, "("):
		default:
			return u
		}
		u = u[:len(u)-1]
	}
	return u
}
