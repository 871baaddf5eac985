package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/optin-mailer/internal/config"
	"github.com/ignite/optin-mailer/internal/pkg/distlock"
	"github.com/ignite/optin-mailer/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	dir := flag.String("dir", "migrations", "directory holding *.sql migrations")
	listOnly := flag.Bool("list", false, "list applied migrations and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	migrator := postgres.NewMigrator(db, os.DirFS(*dir))

	if *listOnly {
		applied, err := migrator.Applied(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, name := range applied {
			fmt.Println(" ", name)
		}
		fmt.Printf("Total: %d migrations\n", len(applied))
		return
	}

	// Several replicas may start at once; only one applies migrations.
	var redisClient redis.Cmdable
	if cfg.Redis.URL != "" {
		if opts, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			c := redis.NewClient(opts)
			defer c.Close()
			redisClient = c
		} else {
			log.Printf("[migrate] Ignoring invalid REDIS_URL: %v", err)
		}
	}
	lock := distlock.NewLock(redisClient, db, "optin-mailer:migrate", 10*time.Minute)

	err = distlock.Run(ctx, lock, func(ctx context.Context) error {
		n, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		log.Printf("Done: %d applied", n)
		return nil
	})
	if errors.Is(err, distlock.ErrNotAcquired) {
		log.Println("Another instance is migrating, skipping")
		return
	}
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("Migrations complete")
}
