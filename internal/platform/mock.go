package platform

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is a scriptable in-memory playback handle for tests. Load behavior
// (latency, fail-N-times-then-succeed) is configurable, and lifecycle
// signals can be injected manually.
type Mock struct {
	mu      sync.Mutex
	locator string
	data    []byte
	loaded  bool
	closed  bool

	volume float64
	loop   bool
	rate   float64

	playing  bool
	position time.Duration
	duration time.Duration

	loadDelay time.Duration
	failLoads int // remaining loads to fail
	loadErr   error
	loads     int // total Load attempts observed

	signals chan Signal
}

// NewMock creates a mock handle with 10 seconds of fake media and no load
// latency or failures configured.
func NewMock() *Mock {
	return &Mock{
		volume:   1.0,
		rate:     1.0,
		data:     make([]byte, 64),
		duration: 10 * time.Second,
		signals:  make(chan Signal, signalBuffer),
	}
}

// NewMockFactory returns a Factory producing fresh mocks, recording each one
// in handles so tests can reach them after the manager creates them.
func NewMockFactory(handles *sync.Map) Factory {
	return func() Handle {
		m := NewMock()
		return &recordedMock{Mock: m, handles: handles}
	}
}

// recordedMock registers itself under its locator on SetSource.
type recordedMock struct {
	*Mock
	handles *sync.Map
}

func (r *recordedMock) SetSource(locator string) {
	r.Mock.SetSource(locator)
	r.handles.Store(locator, r.Mock)
}

// SetLoadDelay makes every Load sleep for d before completing.
func (m *Mock) SetLoadDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadDelay = d
}

// FailNextLoads makes the next n Load calls fail with the given error.
func (m *Mock) FailNextLoads(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLoads = n
	m.loadErr = err
}

// SetDuration overrides the fake media duration.
func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// SetData overrides the fake media bytes returned by Load.
func (m *Mock) SetData(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// Loads returns how many Load attempts the mock has observed.
func (m *Mock) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// IsPlaying reports the mock's playback flag.
func (m *Mock) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// EmitEnded injects a natural-end signal, clearing the playing flag.
func (m *Mock) EmitEnded() {
	m.mu.Lock()
	m.playing = false
	m.position = 0
	m.mu.Unlock()
	m.emit(Signal{Kind: SignalEnded})
}

// EmitError injects a runtime error signal.
func (m *Mock) EmitError(err error) {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
	m.emit(Signal{Kind: SignalError, Err: err})
}

// EmitProgress injects a progress signal.
func (m *Mock) EmitProgress(frac float64) {
	m.emit(Signal{Kind: SignalProgress, Progress: frac})
}

func (m *Mock) SetSource(locator string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locator = locator
}

func (m *Mock) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	m.loads++
	delay := m.loadDelay
	fail := m.failLoads > 0
	if fail {
		m.failLoads--
	}
	err := m.loadErr
	data := m.data
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		if err == nil {
			err = fmt.Errorf("mock: load failure configured")
		}
		m.emit(Signal{Kind: SignalError, Err: err})
		return nil, err
	}
	return data, m.LoadFrom(data)
}

func (m *Mock) LoadFrom(data []byte) error {
	m.mu.Lock()
	m.data = data
	m.loaded = true
	m.mu.Unlock()
	m.emit(Signal{Kind: SignalReady})
	return nil
}

func (m *Mock) Play() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("play: handle closed")
	}
	if !m.loaded {
		m.mu.Unlock()
		return fmt.Errorf("play: media not loaded")
	}
	m.playing = true
	m.mu.Unlock()
	m.emit(Signal{Kind: SignalPlaying})
	return nil
}

func (m *Mock) Pause() error {
	m.mu.Lock()
	if !m.playing {
		m.mu.Unlock()
		return nil
	}
	m.playing = false
	m.mu.Unlock()
	m.emit(Signal{Kind: SignalPaused})
	return nil
}

func (m *Mock) Seek(pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	m.position = pos
	return nil
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	m.volume = v
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *Mock) SetLoop(loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loop = loop
}

func (m *Mock) Loop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loop
}

func (m *Mock) SetRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rate <= 0 {
		rate = 1.0
	}
	m.rate = rate
}

func (m *Mock) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

func (m *Mock) Signals() <-chan Signal { return m.signals }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.playing = false
	close(m.signals)
	return nil
}

func (m *Mock) emit(sig Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.signals <- sig:
	default:
	}
}
