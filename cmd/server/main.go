package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vigil-ai/vigil-backend/api"
	"github.com/vigil-ai/vigil-backend/config"
	"github.com/vigil-ai/vigil-backend/internal/bus"
	"github.com/vigil-ai/vigil-backend/internal/logger"
	"github.com/vigil-ai/vigil-backend/internal/media"
	"github.com/vigil-ai/vigil-backend/internal/storage"
	"github.com/vigil-ai/vigil-backend/internal/vision"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting Vigil backend server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// 2. Initialize Database Connection
	metaDB, err := storage.ConnectMetadataDB(cfg)
	if err != nil {
		customLog.Fatalf("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer func() {
		customLog.Println("Closing database connection...")
		if err := metaDB.Close(); err != nil {
			customLog.Printf("Error closing database: %v", err)
		}
	}()

	// 3. Media store for uploaded image pairs
	mediaStore, err := media.NewStore(cfg.MediaDir)
	if err != nil {
		customLog.Fatalf("Failed to initialize media store: %v", err)
		os.Exit(1)
	}

	// 4. Broadcast bus: Redis when configured, in-process otherwise
	var logBus bus.Bus
	if cfg.RedisAddr != "" {
		logBus, err = bus.NewRedisBus(context.Background(), cfg.RedisAddr)
		if err != nil {
			customLog.Fatalf("Failed to connect broadcast bus: %v", err)
			os.Exit(1)
		}
	} else {
		logBus = bus.NewMemoryBus()
	}
	defer logBus.Close()

	// 5. External description service client
	visionClient := vision.NewClient(cfg.LLMAPIKey, cfg.LLMAPIURL, cfg.LLMTimeout)

	// 6. Setup Router (passing dependencies)
	router := api.SetupRouter(metaDB, cfg, mediaStore, visionClient, logBus)

	// 7. Start Server
	customLog.Printf("Server listening on port %s", cfg.ServerPort)
	if err := router.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		customLog.Fatalf("Failed to start server: %v", err)
	}
}
