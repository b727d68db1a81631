package middleware

import (
	"compress/gzip"
	"net/http"

	"github.com/NYTimes/gziphandler"
)

// NewGzipMiddleware はHTMLとテキストのレスポンスをgzip圧縮するミドルウェアを返す。
func NewGzipMiddleware() (func(next http.Handler) http.Handler, error) {
	return gziphandler.GzipHandlerWithOpts(
		gziphandler.ContentTypes([]string{
			"text/html",
			"text/plain",
		}),
		gziphandler.CompressionLevel(gzip.BestSpeed),
	)
}
