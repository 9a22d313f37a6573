package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Assumed sample format for duration estimates: 44.1 kHz, 16-bit, stereo.
const bytesPerSecond = 44100 * 2 * 2

const (
	signalBuffer     = 16
	progressInterval = 500 * time.Millisecond
)

// FileHandle is a playback handle backed by a local media file. Loading
// reads the file's bytes; playback is simulated against a wall clock,
// honoring loop mode and the rate multiplier, so the orchestration layer
// above behaves exactly as it would against a real audio backend.
type FileHandle struct {
	mu      sync.Mutex
	locator string
	data    []byte
	loaded  bool
	closed  bool

	volume float64
	loop   bool
	rate   float64

	playing   bool
	offset    time.Duration // position when not playing
	startedAt time.Time     // wall time of the last Play
	gen       int           // invalidates timer callbacks after pause/seek

	signals chan Signal
}

// NewFileHandle creates an unbound file handle.
func NewFileHandle() *FileHandle {
	return &FileHandle{
		volume:  1.0,
		rate:    1.0,
		signals: make(chan Signal, signalBuffer),
	}
}

// NewFileFactory returns a Factory producing FileHandles.
func NewFileFactory() Factory {
	return func() Handle { return NewFileHandle() }
}

func (h *FileHandle) SetSource(locator string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.locator = locator
}

func (h *FileHandle) Load(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	if h.loaded {
		data := h.data
		h.mu.Unlock()
		return data, nil
	}
	locator := h.locator
	h.mu.Unlock()

	if locator == "" {
		return nil, fmt.Errorf("load: no source set")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := os.ReadFile(locator)
		ch <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			h.emit(Signal{Kind: SignalError, Err: res.err})
			return nil, fmt.Errorf("load %s: %w", locator, res.err)
		}
		return res.data, h.LoadFrom(res.data)
	}
}

func (h *FileHandle) LoadFrom(data []byte) error {
	h.mu.Lock()
	h.data = data
	h.loaded = true
	h.mu.Unlock()
	h.emit(Signal{Kind: SignalReady})
	return nil
}

func (h *FileHandle) Play() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return fmt.Errorf("play: handle closed")
	}
	if !h.loaded {
		h.mu.Unlock()
		return fmt.Errorf("play: media not loaded")
	}
	if h.playing {
		h.mu.Unlock()
		return nil
	}
	h.playing = true
	h.startedAt = time.Now()
	h.gen++
	gen := h.gen
	remaining := h.remainingLocked()
	h.mu.Unlock()

	h.emit(Signal{Kind: SignalPlaying})
	h.scheduleEnd(gen, remaining)
	go h.progressLoop(gen)
	return nil
}

func (h *FileHandle) Pause() error {
	h.mu.Lock()
	if !h.playing {
		h.mu.Unlock()
		return nil
	}
	h.offset = h.positionLocked()
	h.playing = false
	h.gen++
	h.mu.Unlock()
	h.emit(Signal{Kind: SignalPaused})
	return nil
}

func (h *FileHandle) Seek(pos time.Duration) error {
	h.mu.Lock()
	if pos < 0 {
		pos = 0
	}
	if d := h.durationLocked(); pos > d {
		pos = d
	}
	h.offset = pos
	h.gen++
	gen := h.gen
	playing := h.playing
	if playing {
		h.startedAt = time.Now()
	}
	remaining := h.remainingLocked()
	h.mu.Unlock()

	if playing {
		h.scheduleEnd(gen, remaining)
	}
	return nil
}

func (h *FileHandle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.positionLocked()
}

func (h *FileHandle) Duration() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.durationLocked()
}

func (h *FileHandle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	h.volume = v
}

func (h *FileHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *FileHandle) SetLoop(loop bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loop = loop
}

func (h *FileHandle) Loop() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loop
}

func (h *FileHandle) SetRate(rate float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rate <= 0 {
		rate = 1.0
	}
	h.rate = rate
}

func (h *FileHandle) Rate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rate
}

func (h *FileHandle) Signals() <-chan Signal { return h.signals }

func (h *FileHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.playing = false
	h.gen++
	h.data = nil
	h.loaded = false
	close(h.signals)
	h.mu.Unlock()
	return nil
}

// positionLocked computes the current playback position. Rate scales how
// fast media time advances relative to the wall clock.
func (h *FileHandle) positionLocked() time.Duration {
	if !h.playing {
		return h.offset
	}
	elapsed := time.Duration(float64(time.Since(h.startedAt)) * h.rate)
	pos := h.offset + elapsed
	if d := h.durationLocked(); pos > d {
		pos = d
	}
	return pos
}

func (h *FileHandle) durationLocked() time.Duration {
	return time.Duration(float64(len(h.data)) / bytesPerSecond * float64(time.Second))
}

func (h *FileHandle) remainingLocked() time.Duration {
	remaining := h.durationLocked() - h.offset
	if remaining < 0 {
		remaining = 0
	}
	if h.rate > 0 {
		remaining = time.Duration(float64(remaining) / h.rate)
	}
	return remaining
}

// scheduleEnd arms the natural-end timer for the current play generation.
func (h *FileHandle) scheduleEnd(gen int, in time.Duration) {
	time.AfterFunc(in, func() {
		h.mu.Lock()
		if h.gen != gen || !h.playing {
			h.mu.Unlock()
			return
		}
		if h.loop {
			h.offset = 0
			h.startedAt = time.Now()
			h.gen++
			next := h.gen
			remaining := h.remainingLocked()
			h.mu.Unlock()
			h.emit(Signal{Kind: SignalProgress, Progress: 0})
			h.scheduleEnd(next, remaining)
			go h.progressLoop(next)
			return
		}
		h.playing = false
		h.offset = 0
		h.mu.Unlock()
		h.emit(Signal{Kind: SignalEnded})
	})
}

// progressLoop emits coarse progress signals while the generation is live.
func (h *FileHandle) progressLoop(gen int) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for range ticker.C {
		h.mu.Lock()
		if h.gen != gen || !h.playing {
			h.mu.Unlock()
			return
		}
		d := h.durationLocked()
		var frac float64
		if d > 0 {
			frac = float64(h.positionLocked()) / float64(d)
		}
		h.mu.Unlock()
		h.emit(Signal{Kind: SignalProgress, Progress: frac})
	}
}

// emit delivers a signal without blocking; a slow consumer drops signals
// rather than stalling playback timers. The lock is held across the send so
// Close cannot close the channel mid-emit.
func (h *FileHandle) emit(sig Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.signals <- sig:
	default:
		slog.Debug("platform: signal dropped", "kind", sig.Kind)
	}
}
