package forbiddencalls

import (
	"errors"
	"log"
	"os"
	"time"
)

type config struct {
	ServerAddress string
	FetchTimeout  time.Duration
}

func loadConfig(path string) *config {
	if path == "" {
		log.Fatal("config path is empty") // want "log.Fatal is forbidden outside main function"
	}
	return &config{ServerAddress: ":8080", FetchTimeout: 30 * time.Second}
}

func mustTimeout(cfg *config) time.Duration {
	if cfg.FetchTimeout <= 0 {
		panic("fetch timeout must be positive") // want "panic is forbidden"
	}
	return cfg.FetchTimeout
}

func stopOnSignal(done <-chan struct{}) {
	go func() {
		<-done
		os.Exit(0) // want "os.Exit is forbidden outside main function"
	}()
}

type app struct{}

// A method named main is not the program entry point.
func (a *app) main() {
	os.Exit(2) // want "os.Exit is forbidden outside main function"
}

func (a *app) Run() error {
	return errors.New("server failed")
}
