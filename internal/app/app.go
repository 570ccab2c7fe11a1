// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newsline/internal/article"
	"github.com/hitoshi/newsline/internal/auth"
	"github.com/hitoshi/newsline/internal/backend"
	"github.com/hitoshi/newsline/internal/config"
	"github.com/hitoshi/newsline/internal/database"
	"github.com/hitoshi/newsline/internal/handler"
	"github.com/hitoshi/newsline/internal/ingest"
	"github.com/hitoshi/newsline/internal/logger"
	"github.com/hitoshi/newsline/internal/metrics"
	"github.com/hitoshi/newsline/internal/middleware"
	"github.com/hitoshi/newsline/internal/repository"
	"github.com/hitoshi/newsline/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
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
		slog.String("port", cfg.ServerPort),
		slog.String("backend_url", cfg.BackendURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandImport:
		return runImport(cfg, args[1:])
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// バックエンドクライアントとゲートウェイをワイヤリングし、HTTPサーバーを起動する。
// メトリクスサーバーは別ポートで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. バックエンドクライアントの初期化
	httpClient := &http.Client{Timeout: cfg.BackendTimeout}
	client := backend.NewClient(cfg.BackendURL, cfg.BackendAnonKey, httpClient, slog.Default())
	client.SetStatusRecorder(collector.RecordBackendStatus)

	// 3. ゲートウェイの初期化
	authGateway := auth.NewGateway(client, slog.Default())
	articleGateway := article.NewGateway(client, slog.Default())

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		AuthGateway:       metricsAuthGateway{gateway: authGateway, collector: collector},
		ArticleGateway:    metricsArticleGateway{gateway: articleGateway, collector: collector},
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// メトリクスサーバーは内部向けに別ポートで公開する
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runImport はフィードから記事を取り込む。
// 引数で渡されたフィードURLを順に処理し、配信バックエンドのDBへ保存する。
func runImport(cfg *config.Config, feedURLs []string) error {
	if len(feedURLs) == 0 {
		return fmt.Errorf("import: at least one feed URL is required")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("import: DATABASE_URL is not set")
	}

	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. インポーターの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	repo := repository.NewPostgresArticleRepo(db)
	importer := ingest.NewImporter(
		repo,
		security.NewSSRFGuard(),
		security.NewSummarySanitizer(),
		collector,
		slog.Default(),
		cfg.ImportTimeout,
		cfg.ImportMaxSize,
		cfg.SummaryMaxLength,
	)

	// 3. フィードを順に取り込む。1件の失敗で全体を止めない。
	ctx := context.Background()
	var failed int
	for _, feedURL := range feedURLs {
		stats, err := importer.ImportFeed(ctx, feedURL)
		if err != nil {
			slog.Error("feed import failed",
				slog.String("feed_url", feedURL),
				slog.String("error", err.Error()),
			)
			failed++
			continue
		}
		slog.Info("feed import finished",
			slog.String("feed_url", feedURL),
			slog.Int("imported", stats.Imported),
			slog.Int("skipped", stats.Skipped),
		)
	}

	if failed > 0 {
		return fmt.Errorf("import finished with %d failed feed(s)", failed)
	}
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("migrate: DATABASE_URL is not set")
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
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
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
