package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"estimate-api/backend/internal/audit"
	"estimate-api/backend/internal/auth"
	authhandler "estimate-api/backend/internal/auth/handler"
	"estimate-api/backend/internal/config"
	"estimate-api/backend/internal/cookies"
	"estimate-api/backend/internal/csrf"
	"estimate-api/backend/internal/db"
	"estimate-api/backend/internal/dev"
	"estimate-api/backend/internal/idp"
	"estimate-api/backend/internal/security"
	"estimate-api/backend/internal/server"
	sessionstore "estimate-api/backend/internal/session/store"
	"estimate-api/backend/internal/storage"
	tel "estimate-api/backend/internal/telemetry/otel"
	"estimate-api/backend/internal/websession"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := tel.NewProviders(ctx, cfg.OTLPEndpoint, "estimate-api", false)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		if err := providers.Shutdown(ctx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	metrics, err := tel.NewAuthMetrics(providers.MeterProvider.Meter("estimate-api/auth"))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	var sessions sessionstore.Store
	var webStore websession.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		sessions = sessionstore.NewRedisStore(client, cfg.SessionTTLDuration())
		webStore = websession.NewRedisStore(client, cfg.SessionTTLDuration())
	} else {
		if cfg.Env != "local" {
			log.Fatalf("REDIS_ADDR must be set outside the local environment")
		}
		sessions = sessionstore.NewMemoryStore(cfg.SessionTTLDuration())
		webStore = websession.NewMemoryStore(cfg.SessionTTLDuration())
	}

	var auditLogger *audit.Logger
	var auditDB *sql.DB
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()
		auditLogger = audit.NewLogger(audit.NewPostgresRepository(conn), logger)
		auditDB = conn
	}

	var authorizer idp.Authorizer
	if cfg.IdPTokenURL != "" {
		authorizer = idp.NewClient(cfg.IdPTokenURL, cfg.IdPClientID, cfg.IdPClientSecret, cfg.IdPTimeoutDuration())
	} else {
		if cfg.Env != "local" && !cfg.DevEndpoints() {
			log.Fatalf("IDP_TOKEN_URL must be set outside dev environments")
		}
		authorizer = idp.StaticAuthorizer{}
	}

	codec := security.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	cookieMgr := cookies.NewManager(cfg.SecureCookies())
	webMgr := websession.NewManager(webStore, cfg.SessionTTLDuration(), cfg.SecureCookies())

	deps := server.Deps{
		Auth: &authhandler.Handler{
			Tokens:      codec,
			Sessions:    sessions,
			Cookies:     cookieMgr,
			WebSessions: webMgr,
			Refresher: &auth.RefreshCoordinator{
				Tokens:      codec,
				Sessions:    sessions,
				Cookies:     cookieMgr,
				WebSessions: webMgr,
				IdP:         authorizer,
				Audit:       auditLogger,
				Metrics:     metrics,
				AccessTTL:   cfg.AccessTTL(),
			},
			Audit:   auditLogger,
			Metrics: metrics,
			Log:     logger,
		},
		Middleware: &auth.Middleware{
			Tokens:      codec,
			Sessions:    sessions,
			Cookies:     cookieMgr,
			Audit:       auditLogger,
			Metrics:     metrics,
			IdleTimeout: cfg.IdleTimeoutDuration(),
			Log:         logger,
		},
		Csrf:    csrf.NewProtector(cfg.SecureCookies()),
		AuditDB: auditDB,
		Log:     logger,
	}

	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}
		deps.CsvURL = &storage.CsvURLHandler{
			Source: storage.NewPresigner(s3.NewFromConfig(awsCfg)),
			Bucket: cfg.S3Bucket,
			Key:    cfg.CSVObjectKey,
			Expiry: cfg.S3URLExpiryDuration(),
			Log:    logger,
		}
	}

	if cfg.DevEndpoints() {
		deps.DevSleep = &dev.SleepHandler{Log: logger}
		if cfg.DevLoginEnabled {
			deps.DevLogin = &authhandler.DevLoginHandler{
				Username:     cfg.DevUsername,
				PasswordHash: cfg.DevPasswordHash,
				Hasher:       security.NewHasher(0),
				Finalizer: &auth.LoginFinalizer{
					Tokens:      codec,
					Sessions:    sessions,
					Cookies:     cookieMgr,
					WebSessions: webMgr,
					Audit:       auditLogger,
					Metrics:     metrics,
					AccessTTL:   cfg.AccessTTL(),
				},
				Log: logger,
			}
		}
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.New(deps),
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeoutDuration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
