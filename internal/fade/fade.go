// Package fade drives volume interpolation for sound instances. A single
// ticker advances every active tween at a nominal 60 Hz; each sound has at
// most one fade at a time and a new fade replaces any in-flight one.
package fade

import (
	"sync"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// tickInterval approximates a 60 Hz frame callback.
const tickInterval = 16 * time.Millisecond

// state is one in-flight fade.
type state struct {
	tween     *gween.Tween
	last      time.Time
	target    float64
	apply     func(float64)
	done      func(completed bool)
	doneOnce  sync.Once
	cancelled bool
}

// finish fires the done callback at most once, guarding against the race
// between a finishing tick and a concurrent replacing Begin.
func (s *state) finish(completed bool) {
	s.doneOnce.Do(func() {
		if s.done != nil {
			s.done(completed)
		}
	})
}

// Runner owns all active fades and the ticker goroutine advancing them.
type Runner struct {
	mu      sync.Mutex
	active  map[string]*state
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewRunner creates a stopped runner. Call Start before scheduling fades.
func NewRunner() *Runner {
	return &Runner{active: make(map[string]*state)}
}

// Start launches the ticker goroutine. Safe to call twice.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.loop(r.stopCh, r.doneCh)
}

// Stop halts the ticker and discards all active fades; their done callbacks
// fire with completed=false. Blocks until the goroutine exits.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stopCh, doneCh := r.stopCh, r.doneCh
	discarded := r.active
	r.active = make(map[string]*state)
	r.mu.Unlock()

	close(stopCh)
	<-doneCh
	// Waiters on a discarded fade still get their callback.
	for _, s := range discarded {
		s.finish(false)
	}
}

// Begin schedules a fade for id from one volume to another over d. Any fade
// already in flight for id is cancelled without completing; its done
// callback receives completed=false. apply is invoked on every tick with
// the interpolated volume; done fires exactly once when the fade finishes
// or is cancelled. A non-positive duration applies the target immediately.
func (r *Runner) Begin(id string, from, to float64, d time.Duration, apply func(float64), done func(completed bool)) {
	if d <= 0 {
		r.Cancel(id)
		apply(to)
		if done != nil {
			done(true)
		}
		return
	}

	r.mu.Lock()
	prev := r.active[id]
	r.active[id] = &state{
		tween:  gween.New(float32(from), float32(to), float32(d.Seconds()), ease.InOutQuad),
		last:   time.Now(),
		target: to,
		apply:  apply,
		done:   done,
	}
	r.mu.Unlock()

	if prev != nil {
		prev.finish(false)
	}
}

// Cancel marks the fade for id cancelled. The flag is honored on the next
// tick, so cancellation has a bounded one-tick latency.
func (r *Runner) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.active[id]
	if !ok {
		return false
	}
	s.cancelled = true
	return true
}

// Active reports whether id has a fade in flight.
func (r *Runner) Active(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	return ok
}

func (r *Runner) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			r.step(now)
		}
	}
}

// step advances every active fade by the elapsed wall time. Callbacks run
// outside the lock so they may call back into the runner or the manager.
func (r *Runner) step(now time.Time) {
	type pending struct {
		st        *state
		value     float64
		applies   bool
		completed bool
		fire      bool
	}
	var out []pending

	r.mu.Lock()
	for id, s := range r.active {
		if s.cancelled {
			delete(r.active, id)
			out = append(out, pending{st: s, fire: true})
			continue
		}
		dt := float32(now.Sub(s.last).Seconds())
		s.last = now
		v, finished := s.tween.Update(dt)
		value := float64(v)
		if finished {
			// Snap exactly to the target to avoid floating-point residue.
			value = s.target
			delete(r.active, id)
		}
		out = append(out, pending{st: s, value: value, applies: true, completed: true, fire: finished})
	}
	r.mu.Unlock()

	for _, p := range out {
		if p.applies && p.st.apply != nil {
			p.st.apply(p.value)
		}
		if p.fire {
			p.st.finish(p.completed)
		}
	}
}
