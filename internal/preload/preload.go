// Package preload implements the background sound loader: a priority queue
// of load tasks drained by a fixed number of workers, with per-task timeout,
// capped retry with front-of-queue requeue, and progress reporting.
package preload

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sonora-audio/sonora-go/internal/models"
)

// LoadFunc performs one load attempt for a sound definition. It must honor
// ctx cancellation; the preloader bounds each attempt with its timeout.
type LoadFunc func(ctx context.Context, cfg models.SoundConfig) error

// Progress is a snapshot of a preload batch. Percentage counts completed
// tasks (loaded plus terminally failed) against the total, so a finished
// batch always reads 100 even when some sounds failed.
type Progress struct {
	Loaded     int      `json:"loaded"`
	Total      int      `json:"total"`
	Percentage float64  `json:"percentage"`
	Failed     []string `json:"failed"`
}

// Stats summarizes the preloader's bookkeeping.
type Stats struct {
	Queued  int  `json:"queued"`
	Loaded  int  `json:"loaded"`
	Failed  int  `json:"failed"`
	Running bool `json:"running"`
}

// task is one queued load. Tasks are discarded on success or terminal
// failure and pushed back onto the front of the queue on retryable failure.
type task struct {
	cfg     models.SoundConfig
	retries int
}

// Preloader loads batches of sound definitions ahead of use.
type Preloader struct {
	mu      sync.Mutex
	cond    *sync.Cond
	cfg     models.PreloaderConfig
	load    LoadFunc
	limiter *rate.Limiter

	queue    []*task
	queued   map[string]struct{} // in queue or in flight
	loaded   map[string]struct{}
	failed   map[string]error
	inflight int
	pending  int // retry requeues waiting on their delay
	running  bool

	subs map[string]func(Progress)
}

// New creates a preloader. Zero-valued config fields fall back to defaults.
func New(cfg models.PreloaderConfig, load LoadFunc) *Preloader {
	def := models.DefaultPreloaderConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	p := &Preloader{
		cfg:    cfg,
		load:   load,
		queued: make(map[string]struct{}),
		loaded: make(map[string]struct{}),
		failed: make(map[string]error),
		subs:   make(map[string]func(Progress)),
	}
	p.cond = sync.NewCond(&p.mu)
	if cfg.DispatchRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.DispatchRate), cfg.Concurrency)
	}
	return p
}

// Add queues every config that is neither loaded nor already queued, then
// re-sorts the queue by descending priority with lower retry counts first so
// fresh work is not starved behind a repeatedly-failing item. Re-adding a
// previously failed sound clears its failure record.
func (p *Preloader) Add(configs []models.SoundConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	added := 0
	for _, cfg := range configs {
		if _, ok := p.loaded[cfg.ID]; ok {
			continue
		}
		if _, ok := p.queued[cfg.ID]; ok {
			continue
		}
		delete(p.failed, cfg.ID)
		p.queue = append(p.queue, &task{cfg: cfg})
		p.queued[cfg.ID] = struct{}{}
		added++
	}
	if added == 0 {
		return
	}
	sort.SliceStable(p.queue, func(i, j int) bool {
		if p.queue[i].cfg.Priority != p.queue[j].cfg.Priority {
			return p.queue[i].cfg.Priority > p.queue[j].cfg.Priority
		}
		return p.queue[i].retries < p.queue[j].retries
	})
	p.cond.Broadcast()
}

// Preload drains the queue with the configured number of workers and blocks
// until every task has succeeded or terminally failed, returning the final
// snapshot. If a preload is already running it returns the live snapshot
// without spawning more workers.
func (p *Preloader) Preload(ctx context.Context) Progress {
	p.mu.Lock()
	if p.running {
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap
	}
	p.running = true
	workers := p.cfg.Concurrency
	p.mu.Unlock()

	// Wake waiting workers when the context is torn down.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			p.cond.Broadcast()
		case <-stop:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.worker(ctx, n)
		}(i)
	}
	wg.Wait()

	p.mu.Lock()
	p.running = false
	snap := p.snapshotLocked()
	p.mu.Unlock()
	slog.Info("preload: batch complete",
		"loaded", snap.Loaded, "total", snap.Total, "failed", len(snap.Failed))
	return snap
}

// worker loops: pop the highest-priority task, attempt it, record the
// outcome. It exits when the queue is drained and nothing is in flight or
// waiting on a retry delay.
func (p *Preloader) worker(ctx context.Context, n int) {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && (p.inflight > 0 || p.pending > 0) && ctx.Err() == nil {
			p.cond.Wait()
		}
		if ctx.Err() != nil || len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.inflight++
		p.mu.Unlock()

		if p.limiter != nil {
			_ = p.limiter.Wait(ctx)
		}
		err := p.attempt(ctx, t.cfg)

		p.mu.Lock()
		p.inflight--
		var snap Progress
		var fns []func(Progress)
		switch {
		case err == nil:
			delete(p.queued, t.cfg.ID)
			p.loaded[t.cfg.ID] = struct{}{}
			snap, fns = p.progressLocked()
		case ctx.Err() != nil:
			// The caller cancelled the batch. Not a load failure; put the
			// task back so a later batch can pick it up.
			p.queue = append([]*task{t}, p.queue...)
		case p.cfg.RetryOnError && t.retries < p.cfg.MaxRetries:
			t.retries++
			p.pending++
			p.scheduleRequeue(t)
			if p.cfg.Debug {
				slog.Debug("preload: retrying", "id", t.cfg.ID, "attempt", t.retries, "worker", n, "err", err)
			}
		default:
			delete(p.queued, t.cfg.ID)
			p.failed[t.cfg.ID] = err
			snap, fns = p.progressLocked()
			slog.Warn("preload: load failed", "id", t.cfg.ID, "retries", t.retries, "err", err)
		}
		p.cond.Broadcast()
		p.mu.Unlock()

		for _, fn := range fns {
			fn(snap)
		}
	}
}

// attempt runs one timeout-bounded load.
func (p *Preloader) attempt(ctx context.Context, cfg models.SoundConfig) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	return p.load(ctx, cfg)
}

// scheduleRequeue pushes t back onto the front of the queue after the retry
// delay. Caller holds the lock.
func (p *Preloader) scheduleRequeue(t *task) {
	time.AfterFunc(p.cfg.RetryDelay, func() {
		p.mu.Lock()
		p.pending--
		p.queue = append([]*task{t}, p.queue...)
		p.cond.Broadcast()
		p.mu.Unlock()
	})
}

// OnProgress registers a listener invoked after every task completion
// (success or terminal failure) with a live snapshot. The returned handle
// unsubscribes the listener.
func (p *Preloader) OnProgress(fn func(Progress)) (unsubscribe func()) {
	id := uuid.NewString()
	p.mu.Lock()
	p.subs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// IsLoaded reports whether id has been loaded by this preloader.
func (p *Preloader) IsLoaded(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.loaded[id]
	return ok
}

// HasFailed reports whether id failed terminally.
func (p *Preloader) HasFailed(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.failed[id]
	return ok
}

// Err returns the terminal failure recorded for id, if any.
func (p *Preloader) Err(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed[id]
}

// Stats returns queue/loaded/failed counts and the running flag.
func (p *Preloader) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Queued:  len(p.queued),
		Loaded:  len(p.loaded),
		Failed:  len(p.failed),
		Running: p.running,
	}
}

// Snapshot returns the current progress snapshot.
func (p *Preloader) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Clear drops queued, not-yet-dispatched tasks. In-flight tasks and tasks
// waiting on a retry delay run to completion.
func (p *Preloader) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.queue {
		delete(p.queued, t.cfg.ID)
	}
	p.queue = nil
	p.cond.Broadcast()
}

// Reset clears the queue, the loaded set, and the failure set.
func (p *Preloader) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = nil
	p.queued = make(map[string]struct{})
	p.loaded = make(map[string]struct{})
	p.failed = make(map[string]error)
	p.cond.Broadcast()
}

// progressLocked pairs a snapshot with the listeners to notify.
func (p *Preloader) progressLocked() (Progress, []func(Progress)) {
	snap := p.snapshotLocked()
	fns := make([]func(Progress), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	return snap, fns
}

func (p *Preloader) snapshotLocked() Progress {
	total := len(p.loaded) + len(p.failed) + len(p.queued)
	failed := make([]string, 0, len(p.failed))
	for id := range p.failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	snap := Progress{
		Loaded: len(p.loaded),
		Total:  total,
		Failed: failed,
	}
	if total > 0 {
		snap.Percentage = float64(len(p.loaded)+len(p.failed)) / float64(total) * 100
	} else {
		snap.Percentage = 100
	}
	return snap
}
