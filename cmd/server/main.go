package main

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/shai-hub/brokai/internal/config"
	"github.com/shai-hub/brokai/internal/database"
	"github.com/shai-hub/brokai/internal/logger"
	"github.com/shai-hub/brokai/internal/pricing"
	"github.com/shai-hub/brokai/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	st := store.NewStore(db)

	// Quote API client doubles as the engine's price source
	quotes := pricing.NewClient(&cfg.Quotes, log)

	// Setup HTTP server
	mux := http.NewServeMux()

	apiHandler := NewAPIHandler(log, st, quotes)

	// API endpoints
	mux.HandleFunc("/api/trades", apiHandler.TradesHandler)
	mux.HandleFunc("/api/positions", apiHandler.PositionsHandler)
	mux.HandleFunc("/api/holdings", apiHandler.HoldingsHandler)
	mux.HandleFunc("/api/realized", apiHandler.RealizedHandler)
	mux.HandleFunc("/api/snapshot", apiHandler.SnapshotHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting portfolio API server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("API server failed", zap.Error(err))
	}
}
