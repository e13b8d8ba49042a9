package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dapur-pos/api/internal/config"
	"github.com/dapur-pos/api/internal/offline"
)

func main() {
	cfg := config.LoadSync()
	if cfg.OutletID == "" || cfg.Token == "" {
		log.Fatal("POS_OUTLET_ID and POS_TOKEN are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := offline.NewQueue(cfg.SpoolDir)
	if err != nil {
		log.Fatalf("open spool: %v", err)
	}

	syncer := offline.NewSyncer(queue, offline.NewHTTPSubmitter(cfg))
	go syncer.Run(ctx)

	if n, err := queue.Len(); err == nil && n > 0 {
		log.Printf("%d sale(s) waiting in %s", n, cfg.SpoolDir)
	}

	// Try right away, then keep probing. A drain against an unreachable
	// server fails fast and leaves the spool intact for the next tick.
	syncer.Trigger()

	ticker := time.NewTicker(cfg.ProbeInterval)
	defer ticker.Stop()

	log.Printf("Sync daemon watching %s, probing %s every %s", cfg.SpoolDir, cfg.ServerURL, cfg.ProbeInterval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Shutting down")
			return
		case <-ticker.C:
			syncer.Trigger()
		}
	}
}
