// Package worker runs report file generation in the background: explicit
// enqueues from the API layer plus a periodic sweep for reports that still
// have no generated documents.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/nurpe/delivery-reports/internal/service"
)

// Generator produces the document pair for one report.
type Generator interface {
	GenerateReportFiles(ctx context.Context, reportID uint) error
}

// Lister finds reports whose document generation never completed.
type Lister interface {
	ListUndocumented(ctx context.Context, olderThan time.Time, limit int) ([]uint, error)
}

const (
	queueCapacity = 64
	sweepLimit    = 100
)

// Pool consumes report IDs with a bounded set of workers. Transient failures
// are retried with exponential backoff; after the retry budget is exhausted
// the report keeps its empty file fields and is picked up again by the next
// sweep.
type Pool struct {
	generator    Generator
	lister       Lister
	count        int
	maxRetries   int
	pollInterval time.Duration
	queue        chan uint
	log          zerolog.Logger
}

func New(generator Generator, lister Lister, count, maxRetries int, pollInterval time.Duration, log zerolog.Logger) *Pool {
	if count <= 0 {
		count = 2
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	return &Pool{
		generator:    generator,
		lister:       lister,
		count:        count,
		maxRetries:   maxRetries,
		pollInterval: pollInterval,
		queue:        make(chan uint, queueCapacity),
		log:          log,
	}
}

// Enqueue submits a report for generation, blocking while the queue is full.
func (p *Pool) Enqueue(ctx context.Context, reportID uint) error {
	select {
	case p.queue <- reportID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the workers and the sweep loop and blocks until ctx is
// cancelled and all in-flight work has finished.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.sweep(ctx)
	}()

	wg.Wait()
}

func (p *Pool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reportID := <-p.queue:
			p.process(ctx, reportID)
		}
	}
}

func (p *Pool) process(ctx context.Context, reportID uint) {
	operation := func() error {
		err := p.generator.GenerateReportFiles(ctx, reportID)
		if err != nil && errors.Is(err, service.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.maxRetries)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		p.log.Error().Err(err).Uint("report_id", reportID).
			Msg("report file generation abandoned")
	}
}

// sweep re-enqueues reports that are old enough to have been generated by now
// but still carry no file keys. The age cutoff keeps freshly enqueued reports
// from being processed twice.
func (p *Pool) sweep(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-p.pollInterval)
			ids, err := p.lister.ListUndocumented(ctx, cutoff, sweepLimit)
			if err != nil {
				p.log.Error().Err(err).Msg("undocumented report sweep failed")
				continue
			}
			for _, id := range ids {
				select {
				case p.queue <- id:
				default:
					p.log.Warn().Uint("report_id", id).Msg("queue full, deferring to next sweep")
				}
			}
		}
	}
}
