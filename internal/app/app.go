package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/MikhailRaia/media-proxy/internal/auth"
	"github.com/MikhailRaia/media-proxy/internal/config"
	"github.com/MikhailRaia/media-proxy/internal/fetcher"
	"github.com/MikhailRaia/media-proxy/internal/handler"
	"github.com/MikhailRaia/media-proxy/internal/handoff"
	"github.com/MikhailRaia/media-proxy/internal/limiter"
	"github.com/MikhailRaia/media-proxy/internal/middleware"
	"github.com/MikhailRaia/media-proxy/internal/proto"
	"github.com/MikhailRaia/media-proxy/internal/service"
	"github.com/MikhailRaia/media-proxy/internal/storage"
	"github.com/MikhailRaia/media-proxy/internal/storage/file"
	"github.com/MikhailRaia/media-proxy/internal/storage/memory"
	"github.com/MikhailRaia/media-proxy/internal/storage/postgres"
	"github.com/MikhailRaia/media-proxy/internal/transcode"
	"github.com/MikhailRaia/media-proxy/internal/worker"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
)

type App struct {
	config      *config.Config
	handler     http.Handler
	httpServer  *http.Server
	grpcServer  *grpc.Server
	storage     storage.RecordStorage
	auditWriter *worker.AuditWriter
	engine      *transcode.ExecEngine
}

func NewApp(cfg *config.Config) (*App, error) {
	return newApp(cfg, nil)
}

// newApp builds the application; transport replaces the outbound HTTP transport when set.
func newApp(cfg *config.Config, transport http.RoundTripper) (*App, error) {
	var trustedSubnet netip.Prefix
	if cfg.TrustedSubnet != "" {
		prefix, err := netip.ParsePrefix(cfg.TrustedSubnet)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted subnet: %w", err)
		}
		trustedSubnet = prefix.Masked()
	}

	recordStorage, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	auditWriter := worker.NewAuditWriter(recordStorage, worker.DefaultConfig())
	auditWriter.Start()

	fetchClient := fetcher.NewClient(fetcher.Options{
		UserAgent:        cfg.UserAgent,
		Timeout:          cfg.FetchTimeout,
		MaxContentLength: cfg.MaxContentLength,
		StrictGuard:      cfg.StrictGuard,
		Transport:        transport,
	})

	admission := limiter.New(limiter.Config{
		MaxConcurrent: cfg.MaxConcurrentFetches,
		Rate:          cfg.RateLimit,
		Burst:         cfg.RateBurst,
	})

	fetchService := service.NewFetchService(fetchClient, admission, auditWriter, recordStorage)

	jwtService := auth.NewJWTService(cfg.SecretKey)

	opts := handler.Options{
		Handoff:       handoff.NewStore(handoff.DefaultTTL, 4*transcode.MaxUploadSize),
		TrustedSubnet: trustedSubnet,
		HistoryLimit:  cfg.HistoryLimit,
	}

	a := &App{
		config:      cfg,
		storage:     recordStorage,
		auditWriter: auditWriter,
	}

	engine, err := transcode.NewExecEngine(cfg.FFmpegPath)
	if err != nil {
		log.Warn().Err(err).Msg("Media processing disabled")
	} else {
		a.engine = engine
		opts.Processor = transcode.NewProcessor(engine)
	}

	httpHandler := handler.NewHandler(fetchService, middleware.NewAuthMiddleware(jwtService), opts)
	a.handler = httpHandler.RegisterRoutes()
	a.httpServer = &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.GRPCAddress != "" {
		a.grpcServer = grpc.NewServer(
			grpc.UnaryInterceptor(middleware.NewGRPCAuthMiddleware(jwtService).UnaryInterceptor),
		)
		proto.RegisterMediaProxyServer(a.grpcServer, handler.NewMediaProxyGRPCServer(fetchService))
	}

	return a, nil
}

// newStorage picks postgres when a DSN is set, else the file when a path is
// set, else memory.
func newStorage(cfg *config.Config) (storage.RecordStorage, error) {
	switch {
	case cfg.DatabaseDSN != "":
		log.Info().Msg("Using PostgreSQL fetch audit storage")
		s, err := postgres.NewStorage(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL storage: %w", err)
		}
		return s, nil
	case cfg.FileStoragePath != "":
		log.Info().Str("path", cfg.FileStoragePath).Msg("Using file fetch audit storage")
		s, err := file.NewStorage(cfg.FileStoragePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		return s, nil
	default:
		log.Info().Msg("Using in-memory fetch audit storage")
		return memory.NewStorage(), nil
	}
}

// Run serves HTTP and gRPC until ctx is done or a server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		log.Info().Str("address", a.config.ServerAddress).Msg("Starting HTTP server")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.grpcServer != nil {
		lis, err := net.Listen("tcp", a.config.GRPCAddress)
		if err != nil {
			return errors.Join(fmt.Errorf("grpc listen: %w", err), a.Shutdown())
		}

		go func() {
			log.Info().Str("address", a.config.GRPCAddress).Msg("Starting gRPC server")
			if err := a.grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown requested")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("Server failed")
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown stops the servers, drains the audit queue and releases storage.
func (a *App) Shutdown() error {
	timeout := a.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	if a.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			a.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			a.grpcServer.Stop()
		}
	}

	if err := a.auditWriter.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("audit writer shutdown: %w", err))
	}

	if err := a.storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage close: %w", err))
	}

	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("engine close: %w", err))
		}
	}

	log.Info().Msg("Shutdown complete")
	return errors.Join(errs...)
}
