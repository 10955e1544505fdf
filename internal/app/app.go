package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/config"
	"github.com/hitoshi/storefront/internal/database"
	"github.com/hitoshi/storefront/internal/handler"
	"github.com/hitoshi/storefront/internal/logger"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/repository"
	"github.com/hitoshi/storefront/internal/saved"
	"github.com/hitoshi/storefront/internal/security"
	"github.com/hitoshi/storefront/internal/user"
	"github.com/hitoshi/storefront/internal/worker/cleanup"
)

// imageProbeTimeout は画像URLの到達確認のタイムアウト。
const imageProbeTimeout = 5 * time.Second

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

	// 3. LOG_LEVELを反映
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)
	if cmd == CommandHelp {
		return WriteUsage(w)
	}

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
		slog.String("base_url", cfg.BaseURL),
		slog.String("saved_store_backend", cfg.SavedStoreBackend),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(w, cfg, args[1:])
	case CommandSeed:
		return runSeed(cfg)
	case CommandSession:
		return runSession(w, cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// openDatabase はPostgreSQLに接続し、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// newCatalogService はカタログサービスを組み立てる。
func newCatalogService(cfg *config.Config, db *sql.DB, collector metrics.MetricsCollector) *catalog.Service {
	ssrfGuard := security.NewSSRFGuard()

	var prober catalog.ImageProber
	if cfg.ImageProbe {
		prober = security.NewImageProbe(ssrfGuard.NewSafeClient(imageProbeTimeout))
	}

	return catalog.NewService(
		repository.NewPostgresDesignRepo(db),
		repository.NewPostgresGarmentRepo(db),
		security.NewContentSanitizer(),
		ssrfGuard,
		prober,
		collector,
		slog.Default(),
	)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. 保存済みデザインの保存先
	backend, closeBackend, err := openSavedBackend(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeBackend()

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 4. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	// 5. ドメインサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()
	catalogService := newCatalogService(cfg, db, collector)
	savedService := saved.NewService(backend, sanitizer, ssrfGuard, collector, slog.Default())
	userService := user.NewService(userRepo, sessionRepo, backend, cfg.SessionMaxAgeDuration())

	// 6. ルーターの構築
	// configのレート制限はreq/min単位
	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSave),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,
		Metrics:     collector,
		Gatherer:    registry,

		DB: db,

		CatalogService: catalogService,
		UserFinder:     userRepo,

		SavedService: savedService,

		UserService: userService,
		CookieConfig: handler.CookieConfig{
			Domain: cfg.CookieDomain,
			Secure: cfg.CookieSecure,
		},
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
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

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除を日次で、保存済みデザインの重複解消をRECONCILE_INTERVALごとに実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. ジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), nil)
	cleanupJob.Retention = cfg.SessionRetention

	var dedupeJob *cleanup.DedupeJob
	if cfg.SavedStoreBackend == config.BackendPostgres {
		dedupeJob = cleanup.NewDedupeJob(db, slog.Default(), nil)
	} else {
		slog.Info("dedupe job disabled: saved designs are not stored in postgres",
			slog.String("saved_store_backend", cfg.SavedStoreBackend),
		)
	}

	slog.Info("worker starting",
		slog.Duration("session_retention", cfg.SessionRetention),
		slog.Duration("reconcile_interval", cfg.ReconcileInterval),
	)

	// 3. クリーンアップジョブを日次でバックグラウンド実行
	done := make(chan struct{})
	go func() {
		defer close(done)
		runPeriodically(ctx, 24*time.Hour, func(ctx context.Context) {
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		})
	}()

	// 4. 重複解消ジョブをメインgoroutineで実行（ブロッキング）
	if dedupeJob != nil {
		runPeriodically(ctx, cfg.ReconcileInterval, func(ctx context.Context) {
			if _, err := dedupeJob.Run(ctx); err != nil {
				slog.Error("dedupe job failed", slog.String("error", err.Error()))
			}
		})
	} else {
		<-ctx.Done()
	}

	<-done
	slog.Info("worker stopped gracefully")
	return nil
}

// runPeriodically は起動直後に1回、その後intervalごとにjobを実行する。ctxの終了で戻る。
func runPeriodically(ctx context.Context, interval time.Duration, job func(ctx context.Context)) {
	job(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

const (
	migrateUsage = "usage: storefront migrate [up|down|version]"
	sessionUsage = "usage: storefront session [revoke] <email>"
)

// runMigrate はデータベースマイグレーションを操作する。
// up（省略時）は未適用分をすべて適用し、downは1つ戻し、versionは現在のバージョンを表示する。
func runMigrate(w io.Writer, cfg *config.Config, args []string) error {
	mode := "up"
	if len(args) > 0 {
		mode = args[0]
	}
	if len(args) > 1 {
		return errors.New(migrateUsage)
	}

	slog.Info("running database migrations",
		slog.String("mode", mode),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch mode {
	case "up":
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case "down":
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
	case "version":
		status, err := database.CurrentMigration(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		if !status.Applied {
			fmt.Fprintln(w, "no migrations applied")
			return nil
		}
		fmt.Fprintf(w, "version %d (dirty=%t)\n", status.Version, status.Dirty)
		return nil
	default:
		return errors.New(migrateUsage)
	}

	slog.Info("database migrations completed successfully", slog.String("mode", mode))
	return nil
}

// runSeed はカタログに初期デザインを投入する。既存のデザインは変更しない。
func runSeed(cfg *config.Config) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := newCatalogService(cfg, db, nil).Seed(ctx); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	return nil
}

// runSession はメールアドレスのユーザーにセッションを発行し、トークンをwに出力する。
// savedctlのSTOREFRONT_TOKENとして使う。revokeを付けるとそのユーザーの全セッションを削除する。
func runSession(w io.Writer, cfg *config.Config, args []string) error {
	revoke := len(args) == 2 && args[0] == "revoke"
	if len(args) != 1 && !revoke {
		return errors.New(sessionUsage)
	}
	email := args[len(args)-1]
	ctx := context.Background()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	userService := user.NewService(
		repository.NewPostgresUserRepo(db),
		repository.NewPostgresSessionRepo(db),
		nil,
		cfg.SessionMaxAgeDuration(),
	)

	if w == nil {
		w = os.Stdout
	}
	if revoke {
		if err := userService.RevokeSessions(ctx, email); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		_, err = fmt.Fprintf(w, "revoked sessions of %s\n", email)
		return err
	}

	session, err := userService.IssueSession(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to issue session: %w", err)
	}
	_, err = fmt.Fprintln(w, session.ID)
	return err
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
