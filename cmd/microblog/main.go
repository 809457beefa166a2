package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	adapthttp "microblog/internal/adapter/http"
	"microblog/internal/adapter/jsonfile"
	"microblog/internal/adapter/memory"
	"microblog/internal/adapter/postgres"
	"microblog/internal/adapter/sqlite"
	"microblog/internal/app"
	"microblog/internal/config"
	"microblog/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	var (
		users    domain.UserRepository
		posts    domain.PostRepository
		sessions domain.SessionRepository
	)

	switch cfg.StoreBackend {
	case "json":
		store, err := jsonfile.Open(cfg.JSONPath)
		if err != nil {
			log.Fatalf("failed to open json store %s: %v", cfg.JSONPath, err)
		}
		users, posts = store, store
		// Sessions are not part of the on-disk document; they live for
		// the lifetime of the process.
		sessions = memory.New().NewSessionRepo()
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite database %s: %v", cfg.SQLitePath, err)
		}
		defer db.Close()
		users, posts = db, db
		sessions = sqlite.NewSessionRepo(db)
	case "postgres":
		if cfg.DatabaseURL == "" {
			log.Fatal("DATABASE_URL is required for the postgres backend")
		}
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()
		users, posts = db, db
		sessions = postgres.NewSessionRepo(db)
	case "memory":
		db := memory.New()
		users, posts = db, db
		sessions = db.NewSessionRepo()
	default:
		log.Fatalf("unknown store backend %q (want json, sqlite, postgres or memory)", cfg.StoreBackend)
	}

	oidcConfig, err := adapthttp.NewOIDCConfig(context.Background(),
		cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
	if err != nil {
		log.Fatalf("failed to configure sso: %v", err)
	}
	if oidcConfig.Enabled {
		log.Printf("sso enabled via %s", cfg.OIDC.Issuer)
	}

	authSvc := app.NewAuthService(users, sessions)
	feedSvc := app.NewFeedService(posts)
	statsSvc := app.NewStatsService(posts)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			if err := authSvc.PurgeExpiredSessions(context.Background()); err != nil {
				log.Printf("session cleanup: %v", err)
			}
			<-ticker.C
		}
	}()

	server := adapthttp.New(authSvc, feedSvc, statsSvc, oidcConfig, cfg.WebDir)

	log.Printf("listening on %s (backend %s)", cfg.Addr, cfg.StoreBackend)
	if err := http.ListenAndServe(cfg.Addr, server.Handler()); !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
