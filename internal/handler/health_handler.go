package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker はバックエンドへの疎通を確認する。
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckerFunc は関数をHealthCheckerとして扱うアダプター。
type HealthCheckerFunc func(ctx context.Context) error

// Health はHealthCheckerを実装する。
func (f HealthCheckerFunc) Health(ctx context.Context) error {
	return f(ctx)
}

// healthTimeout はヘルスチェック1回あたりの上限。
const healthTimeout = 3 * time.Second

// NewHealthHandler はバックエンドに疎通できれば200、できなければ503を返すハンドラーを生成する。
// GET /health
func NewHealthHandler(checker HealthChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := checker.Health(ctx); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
}
