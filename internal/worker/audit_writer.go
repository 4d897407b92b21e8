package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/rs/zerolog/log"
)

var (
	ErrQueueFull = errors.New("audit queue is full")
	ErrClosed    = errors.New("audit writer is shut down")
)

// RecordSaver is the storage side of the writer.
type RecordSaver interface {
	SaveBatch(ctx context.Context, records []model.FetchRecord) error
}

// AuditWriter persists fetch records asynchronously in batches.
type AuditWriter struct {
	saver        RecordSaver
	recordChan   chan model.FetchRecord
	batchSize    int
	batchTimeout time.Duration
	saveTimeout  time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup

	mu           sync.RWMutex
	closed       bool
	shutdownOnce sync.Once
}

type Config struct {
	WorkerCount  int           // number of writer goroutines
	BufferSize   int           // capacity of the record queue
	BatchSize    int           // records per storage call
	BatchTimeout time.Duration // max time a partial batch waits
	SaveTimeout  time.Duration // deadline for one storage call
}

func DefaultConfig() Config {
	return Config{
		WorkerCount:  2,
		BufferSize:   1000,
		BatchSize:    50,
		BatchTimeout: 2 * time.Second,
		SaveTimeout:  5 * time.Second,
	}
}

func NewAuditWriter(saver RecordSaver, config Config) *AuditWriter {
	ctx, cancel := context.WithCancel(context.Background())

	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1
	}
	if config.SaveTimeout <= 0 {
		config.SaveTimeout = 5 * time.Second
	}

	return &AuditWriter{
		saver:        saver,
		recordChan:   make(chan model.FetchRecord, config.BufferSize),
		batchSize:    config.BatchSize,
		batchTimeout: config.BatchTimeout,
		saveTimeout:  config.SaveTimeout,
		workerCount:  config.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (w *AuditWriter) Start() {
	log.Info().
		Int("workers", w.workerCount).
		Int("batchSize", w.batchSize).
		Dur("batchTimeout", w.batchTimeout).
		Msg("Starting audit writer")

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}
}

func (w *AuditWriter) worker(id int) {
	defer w.wg.Done()

	log.Debug().Int("workerID", id).Msg("Audit worker started")

	batch := make([]model.FetchRecord, 0, w.batchSize)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.saveTimeout)
		err := w.saver.SaveBatch(ctx, batch)
		cancel()

		if err != nil {
			log.Error().
				Err(err).
				Int("workerID", id).
				Int("records", len(batch)).
				Msg("Failed to save fetch records")
		} else {
			log.Debug().
				Int("workerID", id).
				Int("records", len(batch)).
				Msg("Saved fetch records")
		}

		batch = make([]model.FetchRecord, 0, w.batchSize)
	}

	stopTimer := func() {
		if timer == nil {
			return
		}
		timer.Stop()
		timerC = nil
	}

	startTimer := func() {
		if w.batchTimeout <= 0 {
			return
		}
		if timer == nil {
			timer = time.NewTimer(w.batchTimeout)
		} else {
			timer.Reset(w.batchTimeout)
		}
		timerC = timer.C
	}

	for {
		select {
		case <-w.ctx.Done():
			log.Debug().Int("workerID", id).Msg("Audit worker shutting down")
			flush()
			stopTimer()
			return

		case rec, ok := <-w.recordChan:
			if !ok {
				log.Debug().Int("workerID", id).Msg("Record channel closed, flushing remaining batch")
				flush()
				stopTimer()
				return
			}

			batch = append(batch, rec)

			if len(batch) >= w.batchSize {
				flush()
				stopTimer()
			} else if len(batch) == 1 {
				startTimer()
			}

		case <-timerC:
			flush()
			stopTimer()
		}
	}
}

// Submit enqueues rec without blocking. A full queue drops the record.
func (w *AuditWriter) Submit(rec model.FetchRecord) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrClosed
	}

	select {
	case w.recordChan <- rec:
		return nil
	default:
		log.Warn().
			Str("recordID", rec.ID).
			Str("clientID", rec.ClientID).
			Msg("Audit queue is full, dropping record")
		return ErrQueueFull
	}
}

// Shutdown stops accepting records and waits for queued ones to be saved.
func (w *AuditWriter) Shutdown(timeout time.Duration) error {
	var shutdownErr error

	w.shutdownOnce.Do(func() {
		log.Info().Msg("Shutting down audit writer")

		w.mu.Lock()
		w.closed = true
		close(w.recordChan)
		w.mu.Unlock()

		done := make(chan struct{})
		go func() {
			w.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Info().Msg("Audit writer shut down gracefully")
		case <-time.After(timeout):
			log.Warn().Msg("Audit writer shutdown timeout, forcing shutdown")
			w.cancel()
			<-done
			shutdownErr = context.DeadlineExceeded
		}
		w.cancel()
	})

	return shutdownErr
}

func (w *AuditWriter) Stats() WriterStats {
	return WriterStats{
		QueueSize:   len(w.recordChan),
		QueueCap:    cap(w.recordChan),
		WorkerCount: w.workerCount,
	}
}

type WriterStats struct {
	QueueSize   int
	QueueCap    int
	WorkerCount int
}
