package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/MikhailRaia/media-proxy/internal/app"
	"github.com/MikhailRaia/media-proxy/internal/config"
	"github.com/MikhailRaia/media-proxy/internal/logger"
)

func writeHeapProfile(path string) {
	f, err := os.Create(path)
	if err == nil {
		runtime.GC()
		_ = pprof.WriteHeapProfile(f)
		_ = f.Close()
	}
}

func main() {
	cfg := config.NewConfig()
	logger.InitLogger(cfg.LogLevel)

	memprofile := os.Getenv("MEMPROFILE")

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("Error creating application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx)
	if memprofile != "" {
		writeHeapProfile(memprofile)
	}
	if runErr != nil {
		log.Fatalf("Error running application: %v", runErr)
	}
}
