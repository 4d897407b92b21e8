package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/MikhailRaia/media-proxy/internal/fetcher"
	"github.com/MikhailRaia/media-proxy/internal/limiter"
	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AnonymousClient keys requests that carry no client identity.
const AnonymousClient = "anonymous"

// Fetcher validates and downloads remote URLs.
type Fetcher interface {
	Validate(raw string) (*url.URL, error)
	Fetch(ctx context.Context, target *url.URL) (*model.FetchResult, error)
}

// Admission decides whether a download may start now.
type Admission interface {
	Acquire(ctx context.Context, clientID string) (func(), error)
}

// Recorder accepts audit records for asynchronous persistence.
type Recorder interface {
	Submit(rec model.FetchRecord) error
}

// RecordReader is the read side of the audit storage.
type RecordReader interface {
	ListByClient(ctx context.Context, clientID string, limit int) ([]model.FetchRecord, error)
	Stats(ctx context.Context) (model.Stats, error)
	Ping(ctx context.Context) error
}

// FetchService proxies remote media downloads and keeps their audit trail.
type FetchService struct {
	fetcher   Fetcher
	admission Admission
	recorder  Recorder
	records   RecordReader
	now       func() time.Time
}

// NewFetchService constructs a FetchService. recorder may be nil to disable auditing.
func NewFetchService(fetcher Fetcher, admission Admission, recorder Recorder, records RecordReader) *FetchService {
	return &FetchService{
		fetcher:   fetcher,
		admission: admission,
		recorder:  recorder,
		records:   records,
		now:       time.Now,
	}
}

// Download validates rawURL, waits for admission and fetches the resource.
// Every attempt is recorded, failed ones included.
func (s *FetchService) Download(ctx context.Context, clientID, rawURL string) (*model.FetchResult, error) {
	if clientID == "" {
		clientID = AnonymousClient
	}
	start := s.now()

	target, err := s.fetcher.Validate(rawURL)
	if err != nil {
		log.Info().
			Str("clientID", clientID).
			Str("url", rawURL).
			Err(err).
			Msg("Rejected download URL")
		s.record(clientID, rawURL, nil, nil, err, start)
		return nil, err
	}

	release, err := s.admission.Acquire(ctx, clientID)
	if err != nil {
		log.Warn().
			Str("clientID", clientID).
			Str("host", target.Host).
			Err(err).
			Msg("Download not admitted")
		s.record(clientID, rawURL, target, nil, err, start)
		return nil, err
	}
	defer release()

	result, err := s.fetcher.Fetch(ctx, target)
	s.record(clientID, rawURL, target, result, err, start)
	if err != nil {
		log.Error().
			Str("clientID", clientID).
			Str("host", target.Host).
			Str("kind", fetcher.KindOf(err).String()).
			Err(err).
			Msg("Download failed")
		return nil, err
	}

	log.Info().
		Str("clientID", clientID).
		Str("host", target.Host).
		Str("contentType", result.ContentType).
		Int("bytes", len(result.Data)).
		Dur("duration", s.now().Sub(start)).
		Msg("Download completed")

	return result, nil
}

func (s *FetchService) record(clientID, rawURL string, target *url.URL, result *model.FetchResult, err error, start time.Time) {
	if s.recorder == nil {
		return
	}

	rec := model.FetchRecord{
		ID:            newRecordID(),
		ClientID:      clientID,
		URL:           rawURL,
		StatusCode:    http.StatusOK,
		ContentLength: -1,
		Duration:      s.now().Sub(start),
		CreatedAt:     start.UTC(),
	}
	if target != nil {
		rec.Host = target.Host
	}
	if result != nil {
		rec.ContentType = result.ContentType
		rec.ContentLength = int64(len(result.Data))
	}
	if err != nil {
		rec.StatusCode, rec.Error = ErrorStatus(err)
	}

	if subErr := s.recorder.Submit(rec); subErr != nil {
		log.Debug().Err(subErr).Str("recordID", rec.ID).Msg("Fetch record not queued")
	}
}

// History returns the newest fetches of clientID.
func (s *FetchService) History(ctx context.Context, clientID string, limit int) ([]model.ClientFetch, error) {
	records, err := s.records.ListByClient(ctx, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing client fetches: %w", err)
	}

	result := make([]model.ClientFetch, len(records))
	for i, r := range records {
		result[i] = model.ClientFetch{
			URL:           r.URL,
			StatusCode:    r.StatusCode,
			ContentType:   r.ContentType,
			ContentLength: r.ContentLength,
			Error:         r.Error,
			DurationMS:    r.Duration.Milliseconds(),
			FetchedAt:     r.CreatedAt,
		}
	}

	return result, nil
}

// Stats summarizes the audit trail.
func (s *FetchService) Stats(ctx context.Context) (model.Stats, error) {
	return s.records.Stats(ctx)
}

// Ping checks that the audit storage is reachable.
func (s *FetchService) Ping(ctx context.Context) error {
	return s.records.Ping(ctx)
}

// ErrorStatus maps a Download error to the HTTP status and client-facing message.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, limiter.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, limiter.ErrBusy):
		return http.StatusServiceUnavailable, "Too many concurrent downloads"
	}

	fe := fetcher.AsError(err)
	return fe.Status, fe.Message
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
