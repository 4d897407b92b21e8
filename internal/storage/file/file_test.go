package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_PersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fetches.jsonl")
	ctx := context.Background()

	s, err := NewStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	records := []model.FetchRecord{
		{ID: "a", ClientID: "alice", URL: "https://example.com/a.mp3", StatusCode: 200, ContentLength: 10, Duration: time.Second, CreatedAt: time.Unix(1700000000, 0).UTC()},
		{ID: "b", ClientID: "alice", URL: "https://example.com/b.mp3", StatusCode: 404, ContentLength: -1, Error: "Failed to fetch: 404 Not Found", CreatedAt: time.Unix(1700000001, 0).UTC()},
	}
	require.NoError(t, s.SaveBatch(ctx, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	reopened, err := NewStorage(path)
	require.NoError(t, err)

	got, err := reopened.ListByClient(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[1], got[0])
	assert.Equal(t, records[0], got[1])

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Fetches: 2, Clients: 1, Bytes: 10}, stats)
}

func TestStorage_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetches.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0644))

	_, err := NewStorage(path)
	assert.Error(t, err)
}

func TestStorage_EmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetches.jsonl")
	s, err := NewStorage(path)
	require.NoError(t, err)

	require.NoError(t, s.SaveBatch(context.Background(), nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}
