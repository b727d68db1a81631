package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	// distrolessイメージでも表示用タイムゾーンを読み込めるようにする
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/vtboard/internal/auth"
	"github.com/hitoshi/vtboard/internal/board"
	"github.com/hitoshi/vtboard/internal/config"
	"github.com/hitoshi/vtboard/internal/database"
	"github.com/hitoshi/vtboard/internal/handler"
	"github.com/hitoshi/vtboard/internal/logger"
	"github.com/hitoshi/vtboard/internal/metrics"
	"github.com/hitoshi/vtboard/internal/middleware"
	"github.com/hitoshi/vtboard/internal/repository"
	"github.com/hitoshi/vtboard/internal/security"
	"github.com/hitoshi/vtboard/internal/supabase"
	"github.com/hitoshi/vtboard/internal/view"
)

// dotEnvPath は起動時に読み込む.envファイルのパス。
const dotEnvPath = ".env"

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envがあれば環境変数に取り込む
	if err := config.LoadDotEnv(dotEnvPath); err != nil {
		return nil, err
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("backend", string(cfg.Backend)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// services はバックエンドごとに組み立てる依存関係。
type services struct {
	backend  *repository.Backend
	provider auth.Provider
	health   handler.HealthChecker
	close    func() error
}

// newSupabaseServices はSupabase（PostgREST + GoTrue）を使う依存関係を組み立てる。
// ネットワークアクセスは発生しない。
func newSupabaseServices(cfg *config.Config, collector metrics.MetricsCollector) *services {
	client := supabase.NewClient(
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		&http.Client{Timeout: cfg.BackendTimeout},
		collector,
	)
	return &services{
		backend:  supabase.NewBackend(client),
		provider: supabase.NewAuthProvider(client, cfg.BaseURL+"/auth/callback"),
		health:   client,
		close:    func() error { return nil },
	}
}

// newPostgresServices はPostgreSQLとGoogle OAuthを使う依存関係を組み立てる。
// DBに接続できない場合はエラーを返す。
func newPostgresServices(ctx context.Context, cfg *config.Config) (*services, error) {
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.Ping(ctx, db, cfg.BackendTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	provider := auth.NewGoogleProvider(ctx, auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, repository.NewPostgresUserRepo(db), repository.NewPostgresIdentityRepo(db))

	return &services{
		backend:  repository.NewPostgresBackend(db),
		provider: provider,
		health: handler.HealthCheckerFunc(func(ctx context.Context) error {
			return database.Ping(ctx, db, cfg.BackendTimeout)
		}),
		close: db.Close,
	}, nil
}

// newServices はcfg.Backendに応じた依存関係を組み立てる。
func newServices(ctx context.Context, cfg *config.Config, collector metrics.MetricsCollector) (*services, error) {
	switch cfg.Backend {
	case config.BackendSupabase:
		return newSupabaseServices(cfg, collector), nil
	case config.BackendPostgres:
		return newPostgresServices(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

// newHandler は全依存関係をワイヤリングしたHTTPハンドラーを返す。
// 戻り値のstopでレートリミッターのクリーンアップを停止する。
func newHandler(cfg *config.Config, svc *services, reg *prometheus.Registry, collector metrics.MetricsCollector) (http.Handler, func(), error) {
	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load timezone %q: %w", cfg.DisplayTimezone, err)
	}

	renderer, err := view.NewRenderer(loc, security.NewContentSanitizer())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build renderer: %w", err)
	}

	maxAge := time.Duration(cfg.SessionMaxAge) * time.Second
	authService := auth.NewService(svc.provider, auth.NewSessionCodec(cfg.SessionSecret, maxAge))
	boardService := board.NewService(svc.backend, collector)

	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitMutation),
	)

	router, err := handler.NewRouter(&handler.RouterDeps{
		Logger:  slog.Default(),
		Metrics: collector,
		// auth.ServiceがCookieのエンコードとトークン更新を担う
		Sessions: authService,
		Cookie: middleware.CookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
			MaxAge: maxAge,
		},
		RateLimiter: rateLimiter,

		Board:    boardService,
		Renderer: renderer,

		Auth: authService,

		Health:         svc.health,
		MetricsHandler: metrics.Handler(reg),
	})
	if err != nil {
		rateLimiter.Stop()
		return nil, nil, err
	}

	return router, rateLimiter.Stop, nil
}

// runServe はWebサーバーモードで起動する。
// バックエンドを組み立て、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	flush, err := logger.SetupErrorReporting(cfg.SentryDSN, cfg.AppEnv)
	if err != nil {
		// エラー通知が使えなくても掲示板は動かす
		slog.Warn("error reporting disabled", slog.String("error", err.Error()))
	}
	defer flush()

	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 2. バックエンド
	svc, err := newServices(context.Background(), cfg, collector)
	if err != nil {
		return err
	}
	defer svc.close()

	// 3. ルーター
	router, stopLimiter, err := newHandler(cfg, svc, reg, collector)
	if err != nil {
		return err
	}
	defer stopLimiter()

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// スキーマを自前で持つのはpostgresバックエンドのみ。
func runMigrate(cfg *config.Config) error {
	if cfg.Backend != config.BackendPostgres {
		return fmt.Errorf("migrate is only available for the %q backend (current: %q)", config.BackendPostgres, cfg.Backend)
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
