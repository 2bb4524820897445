package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skyspots/backend/internal/api"
	"github.com/skyspots/backend/internal/archive"
	"github.com/skyspots/backend/internal/config"
	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/pkg/httpretry"
	"github.com/skyspots/backend/internal/pkg/logger"
	"github.com/skyspots/backend/internal/repository/memory"
	"github.com/skyspots/backend/internal/repository/postgres"
	"github.com/skyspots/backend/internal/service/ingest"
	"github.com/skyspots/backend/internal/service/suppression"
	"github.com/skyspots/backend/internal/ses"
	"github.com/skyspots/backend/internal/sns"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

type stores struct {
	bounces      ingest.BounceRepository
	complaints   ingest.ComplaintRepository
	suppressions suppression.Repository
	users        ingest.UserResolver
}

func openStores(cfg *config.Config, log *logger.Logger) (*sql.DB, stores) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory ledger (state is lost on restart)")
		return nil, stores{
			bounces:      memory.NewBounceRepo(),
			complaints:   memory.NewComplaintRepo(),
			suppressions: memory.NewSuppressionRepo(),
		}
	}

	db, err := postgres.Open(cfg.Database)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Error("cannot reach database", "host", extractHost(cfg.Database.URL), "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL", "host", extractHost(cfg.Database.URL))

	return db, stores{
		bounces:      postgres.NewBounceRepo(db),
		complaints:   postgres.NewComplaintRepo(db),
		suppressions: postgres.NewSuppressionRepo(db),
		users:        postgres.NewUserRepo(db),
	}
}

func openRedis(cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if cfg.URL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, certificates will be fetched on every request", "error", err)
	} else {
		log.Info("redis certificate cache enabled", "ttl", cfg.CertCacheTTL())
	}
	return client
}

func main() {
	configPath := "config/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.New(logger.ParseLevel(cfg.Logging.Level), !cfg.Logging.DisableRedaction)
	logger.SetDefault(appLog)

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	db, st := openStores(cfg, appLog)
	if db != nil {
		defer db.Close()
	}

	redisClient := openRedis(cfg.Redis, appLog)
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Suppression list, optionally mirrored to the SES account list.
	suppressions := suppression.NewService(st.suppressions, appLog.With("component", "suppression"))
	if cfg.SES.MirrorSuppressions {
		sesClient, err := ses.NewClient(ctx, cfg.SES, appLog.With("component", "ses"))
		if err != nil {
			appLog.Error("SES client unavailable, suppressions stay local", "error", err)
		} else {
			suppressions.SetMirror(sesClient)
			appLog.Info("mirroring suppressions to SES account list", "region", cfg.SES.Region)
		}
	}

	ingestSvc := ingest.NewService(st.bounces, st.complaints, suppressions, appLog.With("component", "ingest")).
		WithPolicy(domain.SuppressionPolicy{
			SoftBounceThreshold:      cfg.Webhooks.SoftBounceThreshold,
			TransientBounceThreshold: cfg.Webhooks.TransientBounceThreshold,
		})
	if st.users != nil {
		ingestSvc.WithUserResolver(st.users)
	}

	// SNS signature verification and subscription handshake.
	snsLog := appLog.With("component", "sns")
	httpClient := httpretry.NewTimeoutClient(cfg.Webhooks.HTTPTimeout())
	certs := sns.NewCertFetcher(httpClient, cfg.Webhooks.HTTPTimeout())
	if redisClient != nil {
		certs.WithCache(sns.NewRedisCertCache(redisClient, cfg.Redis.CertCacheTTL(), snsLog))
	}
	verifier := sns.NewVerifier(certs, snsLog)
	confirmClient := httpretry.NewRetryClient(httpClient, cfg.Webhooks.ConfirmRetryCount()).WithLogger(snsLog)
	confirmer := sns.NewConfirmer(confirmClient, cfg.Webhooks.HTTPTimeout(), true, snsLog)

	webhooks := api.NewWebhookHandler(verifier, confirmer, ingestSvc, appLog.With("component", "webhook")).
		WithSubscriptionVerification(cfg.Webhooks.VerifySubscriptionsEnabled()).
		WithMaxBodyBytes(cfg.Webhooks.MaxBodyBytes)

	var pinger api.BucketPinger
	if cfg.Archive.Bucket != "" {
		archiver, err := archive.New(ctx, cfg.Archive, appLog.With("component", "archive"))
		if err != nil {
			appLog.Error("payload archive unavailable", "bucket", cfg.Archive.Bucket, "error", err)
		} else {
			webhooks.WithArchiver(archiver)
			pinger = archiver
			appLog.Info("archiving notifications to S3", "bucket", cfg.Archive.Bucket, "prefix", cfg.Archive.Prefix)
		}
	}

	if !cfg.Webhooks.VerifySubscriptionsEnabled() {
		appLog.Warn("subscription confirmations are accepted without signature verification")
	}

	server := api.NewServer(cfg.Server, &api.Handlers{
		Webhooks:     webhooks,
		Suppressions: api.NewSuppressionHandler(suppressions, appLog.With("component", "api")),
		Health:       api.NewHealthChecker(db, redisClient, pinger),
	}, api.RouteOptions{
		APIToken:       cfg.API.Token,
		AllowedOrigins: cfg.API.AllowedOrigins,
	})
	if cfg.API.Token == "" {
		appLog.Warn("API_TOKEN not set, suppression API is unauthenticated")
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		appLog.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	appLog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("server shutdown error", "error", err)
	}
	appLog.Info("server stopped")
}
