package handler

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/MikhailRaia/media-proxy/internal/logger"
	"github.com/MikhailRaia/media-proxy/internal/middleware"
	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/MikhailRaia/media-proxy/internal/transcode"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// FetchService proxies downloads and exposes their audit trail.
type FetchService interface {
	Download(ctx context.Context, clientID, rawURL string) (*model.FetchResult, error)
	History(ctx context.Context, clientID string, limit int) ([]model.ClientFetch, error)
	Stats(ctx context.Context) (model.Stats, error)
	Ping(ctx context.Context) error
}

// MediaProcessor trims media and extracts audio tracks.
type MediaProcessor interface {
	Trim(ctx context.Context, in model.MediaFile, start, end float64) (*model.MediaFile, error)
	ExtractAudio(ctx context.Context, in model.MediaFile, format transcode.AudioFormat) (*model.MediaFile, error)
}

// FileHandoff passes one file per client from one tool to the next.
type FileHandoff interface {
	Put(clientID string, file model.MediaFile) error
	Take(clientID string) (model.MediaFile, error)
}

// Options holds the optional collaborators of a Handler.
type Options struct {
	// Processor serves trim and extract; nil answers those routes with 503.
	Processor MediaProcessor
	Handoff   FileHandoff
	// TrustedSubnet gates the stats endpoint; the zero prefix denies everyone.
	TrustedSubnet netip.Prefix
	// HistoryLimit caps the fetch history returned per client, 0 means all.
	HistoryLimit int
}

type Handler struct {
	fetchService   FetchService
	authMiddleware *middleware.AuthMiddleware
	opts           Options
}

func NewHandler(fetchService FetchService, authMiddleware *middleware.AuthMiddleware, opts Options) *Handler {
	return &Handler{
		fetchService:   fetchService,
		authMiddleware: authMiddleware,
		opts:           opts,
	}
}

func (h *Handler) RegisterRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Use(logger.RequestLogger)

	r.Get("/ping", h.handlePing)

	r.Group(func(r chi.Router) {
		r.Use(middleware.GzipMiddleware)
		r.Get("/api/internal/stats", h.handleStats)
	})

	r.Group(func(r chi.Router) {
		if h.authMiddleware != nil {
			r.Use(h.authMiddleware.AuthenticateClient)
		}

		r.With(middleware.GzipReader).Post("/api/download", h.handleDownload)
		r.Post("/api/handoff", h.handleHandoff)
		r.Post("/api/trim", h.handleTrim)
		r.Post("/api/extract", h.handleExtract)
	})

	if h.authMiddleware != nil {
		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.RequireAuth)
			r.Use(middleware.GzipMiddleware)
			r.Get("/api/user/fetches", h.handleUserFetches)
		})
	}

	return r
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	if h.fetchService == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := h.fetchService.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// clientID returns the identity attached by the auth middleware, if any.
func clientID(r *http.Request) string {
	id, _ := middleware.GetClientIDFromContext(r.Context())
	return id
}
