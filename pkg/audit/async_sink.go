package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Storage persists audit entries. Implementations should tolerate bursts;
// the async sink batches writes to reduce storage round trips.
type Storage interface {
	Store(ctx context.Context, entries []Entry) error
}

// AsyncOptions configures buffering for the async sink.
type AsyncOptions struct {
	BufferSize     int           // Max entries queued in memory before new entries are dropped.
	BatchSize      int           // Target entries per storage write.
	BatchTimeout   time.Duration // Max time to hold a partial batch.
	StorageTimeout time.Duration // Per-batch storage timeout.
}

// AsyncSink buffers entries in memory and writes them to storage in batches
// from a background goroutine. When the buffer is full new entries are
// dropped and counted, never blocking the webhook pipeline.
type AsyncSink struct {
	storage Storage
	log     *slog.Logger
	entries chan Entry
	done    chan struct{}
	wg      sync.WaitGroup
	opts    AsyncOptions

	mu      sync.Mutex
	dropped int64
}

// NewAsyncSink starts the background writer and returns the sink together
// with a close function that flushes remaining entries.
func NewAsyncSink(storage Storage, log *slog.Logger, opts AsyncOptions) (*AsyncSink, func(context.Context) error) {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if opts.BufferSize == 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout == 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout == 0 {
		opts.StorageTimeout = 5 * time.Second
	}

	s := &AsyncSink{
		storage: storage,
		log:     log,
		entries: make(chan Entry, opts.BufferSize),
		done:    make(chan struct{}),
		opts:    opts,
	}

	s.wg.Add(1)
	go s.worker()

	return s, s.Close
}

// Record queues an entry for asynchronous storage. Never blocks: when the
// buffer is full the entry is dropped and counted.
func (s *AsyncSink) Record(_ context.Context, entry Entry) {
	select {
	case s.entries <- entry:
	case <-s.done:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Dropped returns the number of entries discarded due to a full buffer.
func (s *AsyncSink) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops the worker and flushes buffered entries, bounded by ctx.
func (s *AsyncSink) Close(ctx context.Context) error {
	close(s.done)

	flushed := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(flushed)
	}()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncSink) worker() {
	defer s.wg.Done()

	batch := make([]Entry, 0, s.opts.BatchSize)
	ticker := time.NewTicker(s.opts.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.StorageTimeout)
		if err := s.storage.Store(ctx, batch); err != nil {
			s.log.Error("failed to store audit batch", slog.Any("error", err), slog.Int("entries", len(batch)))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-s.entries:
			batch = append(batch, entry)
			if len(batch) >= s.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			// Drain whatever is already buffered, then exit.
			for {
				select {
				case entry := <-s.entries:
					batch = append(batch, entry)
					if len(batch) >= s.opts.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
