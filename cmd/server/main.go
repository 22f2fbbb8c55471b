package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/songwars/backend/internal/directory"
	"github.com/songwars/backend/internal/httpapi"
	"github.com/songwars/backend/internal/hub"
	"github.com/songwars/backend/internal/monitor"
	"github.com/songwars/backend/internal/songlookup"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	apiKey := os.Getenv("YOUTUBE_API_KEY")
	if apiKey == "" {
		sugar.Warn("YOUTUBE_API_KEY not set, song lookups disabled")
	}

	ctx := context.Background()
	metrics := monitor.New("songwars", prometheus.DefaultRegisterer)
	dir := directory.New()
	yt := songlookup.New(apiKey, sugar)
	h := hub.NewHub(ctx, yt.Lookup, sugar, metrics)

	handler := httpapi.SetupRoutes(h, dir, sugar, metrics)

	sugar.Infow("song wars server listening", "port", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		sugar.Fatal(err)
	}
}
