package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"asset-inventory-api/internal"
	"asset-inventory-api/internal/config"
	"asset-inventory-api/internal/store"
)

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	db, err := store.Open(context.Background(), cfg.DSN)
	if err != nil {
		sugar.Fatalw("database connection failed", "error", err)
	}

	srv, err := internal.NewServer(db, cfg, sugar)
	if err != nil {
		sugar.Fatalw("server init failed", "error", err)
	}

	sugar.Infow("starting asset inventory API",
		"addr", cfg.ListenAddr,
		"jwt_issuer", cfg.JWTIssuer,
		"jwt_expiry", cfg.JWTExpiry,
		"metrics", cfg.EnableMetrics,
	)

	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router); err != nil {
		sugar.Fatalw("server stopped", "error", err)
	}
}
