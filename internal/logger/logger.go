// Package logger は構造化ログとエラー通知の初期化を提供する。
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// wがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}

// SetupErrorReporting はDSNが指定されている場合にSentryを初期化する。
// 戻り値のflushはプロセス終了前に呼び出す。DSNが空なら何もしないflushを返す。
func SetupErrorReporting(dsn, environment string) (flush func(), err error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return func() {}, fmt.Errorf("failed to init sentry: %w", err)
	}
	slog.Info("error reporting enabled", slog.String("environment", environment))
	return func() { sentry.Flush(2 * time.Second) }, nil
}
