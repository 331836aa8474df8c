package worker

import (
	"context"
	"sync"
	"time"

	"github.com/TedCassirer/sidequest/log"
	"github.com/TedCassirer/sidequest/quest"
	"github.com/TedCassirer/sidequest/queue"
	"github.com/TedCassirer/sidequest/store"
)

// Pool runs several Workers concurrently against the same queue and store,
// so independent tasks can execute in parallel while the dependency gate
// still serializes anything that depends on another task's result.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates size Workers, each reading from q and writing to st
// using reg to look up quests.
func NewPool(q queue.Queue, st store.Store, reg *quest.Registry, size int) *Pool {
	p := &Pool{}
	for i := 0; i < size; i++ {
		p.workers = append(p.workers, New(q, st, reg))
	}
	return p
}

// SetPollTimeout overrides every worker's receive timeout. Useful in tests
// that want a pool to notice an empty queue quickly.
func (p *Pool) SetPollTimeout(d time.Duration) {
	for _, w := range p.workers {
		w.PollTimeout = d
	}
}

// Start launches every worker in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	log.WithField("size", len(p.workers)).Info("starting worker pool")
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			if err := w.RunForever(ctx); err != nil {
				log.WithField("error", err).Warn("worker exited")
			}
		}(w)
	}
}

// Stop signals every worker to stop and waits for them to drain.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.Stop()
	}
	p.wg.Wait()
}
