package storage

import (
	"context"

	"github.com/MikhailRaia/media-proxy/internal/model"
)

// RecordStorage persists the fetch audit trail. Saving a record whose ID is
// already stored is a no-op.
type RecordStorage interface {
	SaveBatch(ctx context.Context, records []model.FetchRecord) error
	// ListByClient returns the newest records first, at most limit of them.
	ListByClient(ctx context.Context, clientID string, limit int) ([]model.FetchRecord, error)
	Stats(ctx context.Context) (model.Stats, error)
	Ping(ctx context.Context) error
	Close() error
}
