package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/MikhailRaia/media-proxy/internal/storage/memory"
)

// Storage implements RecordStorage backed by an append-only JSONL file.
// Reads are served from an in-memory index rebuilt on startup.
type Storage struct {
	*memory.Storage
	filePath    string
	fileWriteMu sync.Mutex
}

// NewStorage creates a file-backed storage at the provided path.
func NewStorage(filePath string) (*Storage, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s := &Storage{
		Storage:  memory.NewStorage(),
		filePath: filePath,
	}

	if err := s.loadFromFile(); err != nil {
		return nil, err
	}

	return s, nil
}

// SaveBatch appends records to the file, then indexes them.
func (s *Storage) SaveBatch(ctx context.Context, records []model.FetchRecord) error {
	if len(records) == 0 {
		return nil
	}

	if err := s.appendRecords(records); err != nil {
		return err
	}

	return s.Storage.SaveBatch(ctx, records)
}

func (s *Storage) Ping(_ context.Context) error {
	_, err := os.Stat(s.filePath)
	return err
}

func (s *Storage) loadFromFile() error {
	file, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var records []model.FetchRecord

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record model.FetchRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	return s.Storage.SaveBatch(context.Background(), records)
}

func (s *Storage) appendRecords(records []model.FetchRecord) error {
	s.fileWriteMu.Lock()
	defer s.fileWriteMu.Unlock()

	file, err := os.OpenFile(s.filePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file for writing: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return nil
}
