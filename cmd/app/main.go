package main

import (
	"flag"
	"log"
	"os"

	"PairPulse/internal/di"
	"PairPulse/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s pair=%s/%s interval=%s window=%d threshold=%.2f archive=%s",
		cfg.Environment, cfg.Pair.SymbolA, cfg.Pair.SymbolB,
		cfg.Pair.Interval, cfg.Pair.Window, cfg.Pair.ZscoreThreshold, cfg.Archive.Type)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Blocks until SIGINT/SIGTERM
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
