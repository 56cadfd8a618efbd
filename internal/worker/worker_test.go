package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/delivery-reports/internal/service"
)

type countingGenerator struct {
	mu       sync.Mutex
	attempts map[uint]int
	err      error
}

func (g *countingGenerator) GenerateReportFiles(_ context.Context, reportID uint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.attempts == nil {
		g.attempts = map[uint]int{}
	}
	g.attempts[reportID]++
	return g.err
}

func (g *countingGenerator) count(reportID uint) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts[reportID]
}

type staticLister struct {
	ids []uint
}

func (l *staticLister) ListUndocumented(_ context.Context, _ time.Time, _ int) ([]uint, error) {
	return l.ids, nil
}

func TestProcessRetriesUntilExhausted(t *testing.T) {
	gen := &countingGenerator{err: errors.New("transient storage error")}
	pool := New(gen, &staticLister{}, 1, 2, time.Minute, zerolog.Nop())

	pool.process(context.Background(), 7)

	assert.Equal(t, 3, gen.count(7), "initial attempt plus two retries")
}

func TestProcessDoesNotRetryMissingReport(t *testing.T) {
	gen := &countingGenerator{err: fmt.Errorf("%w: report 9", service.ErrNotFound)}
	pool := New(gen, &staticLister{}, 1, 3, time.Minute, zerolog.Nop())

	pool.process(context.Background(), 9)

	assert.Equal(t, 1, gen.count(9), "a missing report is permanent")
}

func TestRunProcessesEnqueuedReports(t *testing.T) {
	gen := &countingGenerator{}
	pool := New(gen, &staticLister{}, 2, 1, time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	require.NoError(t, pool.Enqueue(ctx, 1))
	require.NoError(t, pool.Enqueue(ctx, 2))

	assert.Eventually(t, func() bool {
		return gen.count(1) == 1 && gen.count(2) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop after cancellation")
	}
}

func TestSweepEnqueuesUndocumented(t *testing.T) {
	gen := &countingGenerator{}
	pool := New(gen, &staticLister{ids: []uint{5}}, 1, 1, 20*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return gen.count(5) >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestEnqueueRespectsCancelledContext(t *testing.T) {
	pool := New(&countingGenerator{}, &staticLister{}, 1, 1, time.Minute, zerolog.Nop())
	for i := 0; i < queueCapacity; i++ {
		require.NoError(t, pool.Enqueue(context.Background(), uint(i)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pool.Enqueue(ctx, 999), context.Canceled)
}
