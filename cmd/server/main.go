package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/optin-mailer/internal/api"
	"github.com/ignite/optin-mailer/internal/config"
	"github.com/ignite/optin-mailer/internal/content"
	"github.com/ignite/optin-mailer/internal/domain"
	"github.com/ignite/optin-mailer/internal/events"
	"github.com/ignite/optin-mailer/internal/metrics"
	"github.com/ignite/optin-mailer/internal/pkg/logger"
	"github.com/ignite/optin-mailer/internal/relay"
	"github.com/ignite/optin-mailer/internal/repository/cache"
	"github.com/ignite/optin-mailer/internal/repository/postgres"
	"github.com/ignite/optin-mailer/internal/service/messages"
	"github.com/ignite/optin-mailer/internal/service/subscription"
)

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.RedactEnabled())

	if cfg.Database.URL == "" {
		log.Fatal("database.url (or DATABASE_URL) is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("[db] %v", err)
	}
	defer db.Close()
	log.Printf("[db] Connected: ...@%s/...", extractHost(cfg.Database.URL))

	redisClient := openRedis(ctx, cfg.Redis.URL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Message pipeline
	merge := content.NewMergeService(cfg.Confirmation.ConfirmURL)
	tpl, err := cfg.Confirmation.ConfirmationTemplate()
	if err != nil {
		log.Fatalf("[content] read confirmation template: %v", err)
	}
	if err := merge.Register(domain.OriginConfirmation, tpl); err != nil {
		log.Fatalf("[content] %v", err)
	}

	emailServices := cache.NewEmailServiceRepo(postgres.NewEmailServiceRepo(db), cfg.Cache.EmailServiceTTL())
	resolver := messages.NewResolver(
		postgres.NewCampaignRepo(db),
		postgres.NewAutomationScheduleRepo(db),
		emailServices,
	)

	mailRelay := relay.New(relay.Options{
		Timeout:          cfg.Relay.Timeout(),
		SparkPostBaseURL: cfg.Relay.SparkPostBaseURL,
		MailgunBaseURL:   cfg.Relay.MailgunBaseURL,
		SendGridBaseURL:  cfg.Relay.SendGridBaseURL,
		SESRegion:        cfg.Relay.SESRegion,
	})

	openTracking, clickTracking := cfg.Confirmation.TrackingEnabled()
	dispatcher := messages.NewConfirmationDispatcher(merge, resolver, mailRelay, messages.ConfirmationSettings{
		Subject:    cfg.Confirmation.Subject,
		FromName:   cfg.Confirmation.FromName,
		FromEmail:  cfg.Confirmation.FromEmail,
		HashPolicy: messages.HashPolicy(cfg.Confirmation.HashPolicy),
		Tracking:   domain.TrackingOptions{Open: openTracking, Click: clickTracking},
	})
	log.Printf("[messages] Confirmation dispatcher ready (hash_policy=%s)", cfg.Confirmation.HashPolicy)

	var observer subscription.ConfirmationObserver
	var healthRedis redis.Cmdable
	if redisClient != nil {
		observer = events.NewRedisPublisher(redisClient, cfg.Redis.Stream, 100000)
		healthRedis = redisClient
		log.Printf("[events] Publishing confirmations to stream %q", cfg.Redis.Stream)
	} else {
		log.Println("[events] Redis not configured, confirmation events disabled")
	}

	subscriptions := subscription.NewService(postgres.NewSubscriberRepo(db), dispatcher, observer)

	metricsHandler, err := metrics.Register(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("[metrics] %v", err)
	}

	router := api.SetupRoutes(api.NewHandlers(subscriptions, time.Now), api.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Health:         api.NewHealthChecker(db, healthRedis),
		Metrics:        metricsHandler,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Relay.Timeout() + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

func openDB(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", c.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(c.ConnMaxLifetimeDuration())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// openRedis returns nil when Redis is not configured or unreachable;
// the service runs without confirmation events in that case.
func openRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("[redis] Warning: connection failed: %v, confirmation events disabled", err)
		client.Close()
		return nil
	}
	log.Println("[redis] Connected")
	return client
}
