package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/hitoshi/printpress/internal/auth"
	"github.com/hitoshi/printpress/internal/config"
	"github.com/hitoshi/printpress/internal/contact"
	"github.com/hitoshi/printpress/internal/database"
	"github.com/hitoshi/printpress/internal/events"
	"github.com/hitoshi/printpress/internal/handler"
	"github.com/hitoshi/printpress/internal/logger"
	"github.com/hitoshi/printpress/internal/metrics"
	"github.com/hitoshi/printpress/internal/quote"
	"github.com/hitoshi/printpress/internal/repository"
	"github.com/hitoshi/printpress/internal/security"
	"github.com/hitoshi/printpress/internal/session"
	"github.com/hitoshi/printpress/internal/user"
	"github.com/hitoshi/printpress/internal/worker/cleanup"
)

// connectTimeout は起動時の外部接続の上限。
const connectTimeout = 10 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.Execute()
}

func runWithConfig(cmd *cobra.Command, w io.Writer, command Command) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(command)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("storage_backend", cfg.StorageBackend),
		slog.String("session_backend", cfg.SessionBackend),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// backends は設定に応じて選択した永続化層。
type backends struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	quotes   repository.QuoteRepository
	health   map[string]repository.Pinger
	closers  []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends はSTORAGE_BACKEND・SESSION_BACKENDに従って接続を確立する。
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	b := &backends{health: make(map[string]repository.Pinger)}
	var pg *sqlx.DB

	if cfg.StorageBackend == config.BackendPostgres || cfg.SessionBackend == config.BackendPostgres {
		db, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		pg = db
		b.closers = append(b.closers, func() { db.Close() })
		b.health["postgres"] = db
	}

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		b.users = repository.NewPostgresUserRepo(pg)
		b.quotes = repository.NewPostgresQuoteRepo(pg)
	case config.BackendMongo:
		mdb, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		client := mdb.Client()
		b.closers = append(b.closers, func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		})
		if err := database.EnsureMongoIndexes(ctx, mdb); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to ensure mongodb indexes: %w", err)
		}
		b.users = repository.NewMongoUserRepo(mdb)
		b.quotes = repository.NewMongoQuoteRepo(mdb)
		b.health["mongodb"] = database.MongoPinger{Client: client}
		slog.Info("mongodb connection established", slog.String("database", cfg.MongoDatabase))
	default:
		slog.Warn("using in-memory storage; data is lost on restart")
		b.users = repository.NewMemoryUserRepo()
		b.quotes = repository.NewMemoryQuoteRepo()
	}

	switch cfg.SessionBackend {
	case config.BackendPostgres:
		b.sessions = repository.NewPostgresSessionRepo(pg)
	case config.BackendRedis:
		client, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		b.closers = append(b.closers, func() { client.Close() })
		repo := repository.NewRedisSessionRepo(client)
		b.sessions = repo
		b.health["redis"] = repo
		slog.Info("redis connection established")
	default:
		b.sessions = repository.NewMemorySessionRepo()
	}

	return b, nil
}

func openPostgres(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("database connection established")
	return db, nil
}

// openPublisher はNATS_URLが設定されていればNATSへ接続する。未設定の場合はイベントを破棄する。
func openPublisher(cfg *config.Config) (events.Publisher, func(), error) {
	if cfg.NATSURL == "" {
		return events.NopPublisher{}, func() {}, nil
	}
	conn, err := events.Connect(cfg.NATSURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	slog.Info("nats connection established")
	return events.NewNATSPublisher(conn), func() {
		if err := conn.Drain(); err != nil {
			slog.Warn("failed to drain nats connection", slog.String("error", err.Error()))
		}
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. 永続化層・イベント
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	publisher, closePublisher, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 3. ドメインサービス
	guard := security.NewSSRFGuard()
	markup := security.NewMarkupDetector()

	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		HTTPClient:   guard.NewSafeClient(cfg.OAuthTimeout),
	})
	directory := user.NewDirectory(b.users, cfg.StoreTimeout)
	sessions := session.NewStore(b.sessions, time.Duration(cfg.SessionMaxAge)*time.Second, cfg.StoreTimeout)
	states := auth.NewStateIssuer(cfg.SessionSecret, auth.DefaultStateTTL)
	authService := auth.NewService(oauthProvider, directory, sessions, states, guard, collector)

	quoteService := quote.NewService(b.quotes, markup, publisher, collector, cfg.StoreTimeout)
	contactService := contact.NewService(markup, publisher, collector)

	// 4. ルーター
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		MetricsGatherer:   registry,
		UserResolver:      authService,
		CORSAllowedOrigin: cfg.UIOrigin,
		HealthChecks:      b.health,
		AuthService:       authService,
		AuthConfig: handler.AuthHandlerConfig{
			UIOrigin:      cfg.UIOrigin,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		QuoteService:   quoteService,
		ContactService: contactService,
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
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

// runWorker は期限切れセッションのクリーンアップを定期実行する。
// sessionsテーブルを持つpostgresセッションでのみ意味を持つ。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.SessionBackend != config.BackendPostgres {
		return fmt.Errorf("worker requires SESSION_BACKEND=postgres, got %q", cfg.SessionBackend)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	db, err := openPostgres(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()

	collector := metrics.NewCollector(prometheus.NewRegistry())
	job := cleanup.NewCleanupJob(db, slog.Default(), collector)

	slog.Info("worker starting", slog.Duration("cleanup_interval", cfg.SessionCleanupInterval))
	job.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
