package analytics

import (
	"context"
	"sync"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/dkschrei/ai-research-agent/internal/models"
)

// AsyncSink wraps a Sink and moves chat-path appends off the request
// goroutine. Records that belong to a research job are written through
// synchronously because their ID must exist before the job later completes
// them in place.
type AsyncSink struct {
	sink     Sink
	tasks    chan *models.ExecutionRecord
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewAsyncSink starts poolSize workers draining a buffer of bufferSize
// pending appends.
func NewAsyncSink(sink Sink, poolSize, bufferSize int) *AsyncSink {
	if poolSize <= 0 {
		poolSize = 2
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}

	a := &AsyncSink{
		sink:    sink,
		tasks:   make(chan *models.ExecutionRecord, bufferSize),
		stopped: make(chan struct{}),
	}

	for range poolSize {
		a.wg.Add(1)
		go a.run()
	}

	return a
}

func (a *AsyncSink) Append(ctx context.Context, record *models.ExecutionRecord) error {
	if record.JobID != "" {
		return a.sink.Append(ctx, record)
	}

	select {
	case <-a.stopped:
		return a.sink.Append(ctx, record)
	case a.tasks <- record:
		return nil
	default:
		// Buffer full: write through rather than drop, every dispatch must
		// leave a record.
		fiberlog.Warnf("Analytics: append buffer full, writing record for model %s synchronously", record.Model)
		return a.sink.Append(ctx, record)
	}
}

func (a *AsyncSink) Complete(ctx context.Context, record *models.ExecutionRecord) error {
	return a.sink.Complete(ctx, record)
}

func (a *AsyncSink) Stats(ctx context.Context) (*models.AnalyticsStats, error) {
	return a.sink.Stats(ctx)
}

func (a *AsyncSink) UsageByModel(ctx context.Context) ([]models.ModelUsage, error) {
	return a.sink.UsageByModel(ctx)
}

func (a *AsyncSink) Recent(ctx context.Context, limit int) ([]models.ExecutionRecord, error) {
	return a.sink.Recent(ctx, limit)
}

func (a *AsyncSink) run() {
	defer a.wg.Done()

	for {
		select {
		case <-a.stopped:
			// Drain what is already buffered before exiting.
			for {
				select {
				case record := <-a.tasks:
					a.write(record)
				default:
					return
				}
			}
		case record := <-a.tasks:
			a.write(record)
		}
	}
}

func (a *AsyncSink) write(record *models.ExecutionRecord) {
	if err := a.sink.Append(context.Background(), record); err != nil {
		fiberlog.Errorf("Analytics: failed to append record for model %s: %v", record.Model, err)
	}
}

// Stop flushes buffered appends and stops the workers.
func (a *AsyncSink) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopped)
		a.wg.Wait()
	})
}
