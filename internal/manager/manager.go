// Package manager implements the sound manager — the single source of truth
// for sound instances, groups, and volume state, and the sole mutator of
// instance playback state.
package manager

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"sync"
	"time"

	"github.com/sonora-audio/sonora-go/internal/cache"
	"github.com/sonora-audio/sonora-go/internal/config"
	"github.com/sonora-audio/sonora-go/internal/events"
	"github.com/sonora-audio/sonora-go/internal/fade"
	"github.com/sonora-audio/sonora-go/internal/models"
	"github.com/sonora-audio/sonora-go/internal/platform"
	"github.com/sonora-audio/sonora-go/internal/preload"
)

// sound is the manager-internal record for one registered definition: the
// immutable config, its playback handle, and the mutable runtime state.
type sound struct {
	cfg      models.SoundConfig
	handle   platform.Handle
	state    models.PlayState
	volume   float64
	muted    bool
	progress float64
	created  time.Time
	played   time.Time
	onEnd    func()
	onError  func(*models.AppError)
}

// Manager orchestrates load → play → fade → stop transitions for every
// registered sound. All state mutations happen under one mutex so
// transitions for a single instance are always applied in order.
type Manager struct {
	mu       sync.Mutex
	cfg      models.ManagerConfig
	settings models.Settings

	globalVolume float64
	globalMuted  bool

	sounds   map[string]*sound
	order    []string // registration order, for stable snapshots
	groups   map[string]*models.SoundGroup
	groupOf  map[string]string // sound id → owning group id
	playing  map[string]struct{}
	reserved map[string]struct{}      // ceiling slots held by plays not yet started
	loading  map[string]chan struct{} // in-flight load trackers

	factory platform.Factory
	cache   *cache.Cache
	pre     *preload.Preloader
	fades   *fade.Runner
	bus     *events.Bus
	store   config.Store

	initialized bool
	destroyed   bool
	wg          sync.WaitGroup // signal-watch goroutines
}

// New creates a Manager. store may be nil to disable settings persistence.
// The fade driver starts immediately; call Destroy to release everything.
func New(cfg models.ManagerConfig, pcfg models.PreloaderConfig, factory platform.Factory, store config.Store, bus *events.Bus) (*Manager, error) {
	def := models.DefaultManagerConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CacheStrategy == "" {
		cfg.CacheStrategy = def.CacheStrategy
	}

	m := &Manager{
		cfg:          cfg,
		settings:     models.DefaultSettings(),
		globalVolume: models.Clamp01(cfg.GlobalVolume),
		globalMuted:  cfg.GlobalMuted,
		sounds:       make(map[string]*sound),
		groups:       make(map[string]*models.SoundGroup),
		groupOf:      make(map[string]string),
		playing:      make(map[string]struct{}),
		reserved:     make(map[string]struct{}),
		loading:      make(map[string]chan struct{}),
		factory:      factory,
		cache:        cache.New(cfg.CacheSize),
		fades:        fade.NewRunner(),
		bus:          bus,
		store:        store,
	}

	if store != nil {
		settings, err := store.Load()
		if err != nil {
			return nil, err
		}
		m.settings = *settings
		if m.settings.Sounds == nil {
			m.settings.Sounds = make(map[string]models.SoundSettings)
		}
		if m.settings.Groups == nil {
			m.settings.Groups = make(map[string]models.GroupSettings)
		}
		m.globalVolume = models.Clamp01(settings.GlobalVolume)
		m.globalMuted = settings.GlobalMuted
	}

	m.pre = preload.New(pcfg, m.preloadLoad)
	m.pre.OnProgress(func(p preload.Progress) {
		evt := events.Event{
			Kind:      events.LoadProgress,
			Timestamp: time.Now(),
			Loaded:    p.Loaded,
			Total:     p.Total,
			Failed:    p.Failed,
		}
		bus.Publish(evt)
	})

	m.fades.Start()
	return m, nil
}

// Initialize registers every config exactly once. A second call is a no-op.
// With the preload cache strategy it hands every preload-flagged definition
// to the preloader and waits for the batch to finish before returning.
func (m *Manager) Initialize(ctx context.Context, configs []models.SoundConfig) *models.AppError {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return models.ErrInitFailed("manager has been destroyed")
	}
	if m.initialized {
		m.mu.Unlock()
		slog.Warn("manager: already initialized, ignoring")
		return nil
	}
	for _, cfg := range configs {
		m.registerLocked(cfg)
	}
	m.initialized = true
	strategy := m.cfg.CacheStrategy
	var toPreload []models.SoundConfig
	if strategy == models.StrategyPreload {
		for _, id := range m.order {
			if s := m.sounds[id]; s.cfg.Preload {
				toPreload = append(toPreload, s.cfg)
			}
		}
	}
	m.mu.Unlock()

	slog.Info("manager: initialized", "sounds", len(configs), "strategy", strategy)
	if len(toPreload) > 0 {
		m.pre.Add(toPreload)
		snap := m.pre.Preload(ctx)
		m.publishLoadComplete(snap)
	}
	return nil
}

// Register adds definitions after initialization, e.g. when the library
// file is hot-reloaded. Already-registered ids are skipped.
func (m *Manager) Register(configs []models.SoundConfig) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return 0
	}
	added := 0
	for _, cfg := range configs {
		if m.registerLocked(cfg) {
			added++
		}
	}
	return added
}

// registerLocked creates the instance record and playback handle for one
// definition. Registration is idempotent per id.
func (m *Manager) registerLocked(cfg models.SoundConfig) bool {
	if _, exists := m.sounds[cfg.ID]; exists {
		slog.Warn("manager: sound already registered, skipping", "id", cfg.ID)
		return false
	}

	h := m.factory()
	h.SetSource(m.resolvePath(cfg.Path))

	s := &sound{
		cfg:     cfg,
		handle:  h,
		state:   models.StateUnloaded,
		volume:  models.Clamp01(cfg.Volume),
		created: time.Now(),
	}
	if saved, ok := m.settings.Sounds[cfg.ID]; ok {
		s.volume = models.Clamp01(saved.Volume)
		s.muted = saved.Muted
	}

	m.sounds[cfg.ID] = s
	m.order = append(m.order, cfg.ID)

	m.wg.Add(1)
	go m.watch(s)
	return true
}

// Unregister removes one definition and releases its handle.
func (m *Manager) Unregister(id string) *models.AppError {
	m.mu.Lock()
	s, ok := m.sounds[id]
	if !ok {
		m.mu.Unlock()
		return models.ErrSoundNotFound(id)
	}
	delete(m.sounds, id)
	delete(m.playing, id)
	delete(m.groupOf, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.fades.Cancel(id)
	m.cache.Delete(id)
	_ = s.handle.Pause()
	_ = s.handle.Close()
	return nil
}

// resolvePath joins a relative sound path onto the configured base path.
func (m *Manager) resolvePath(path string) string {
	if m.cfg.BasePath == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.cfg.BasePath, path)
}

// LoadSound loads one sound's media, transitioning UNLOADED → LOADING →
// LOADED (or ERROR). Concurrent loads of the same id share one attempt.
func (m *Manager) LoadSound(ctx context.Context, id string) *models.AppError {
	m.mu.Lock()
	s, ok := m.sounds[id]
	if !ok {
		m.mu.Unlock()
		return models.ErrSoundNotFound(id)
	}
	m.mu.Unlock()
	return m.load(ctx, s)
}

func (m *Manager) load(ctx context.Context, s *sound) *models.AppError {
	id := s.cfg.ID

	m.mu.Lock()
	if ch, inflight := m.loading[id]; inflight {
		m.mu.Unlock()
		<-ch
		m.mu.Lock()
		defer m.mu.Unlock()
		if s.state == models.StateError {
			return models.ErrLoadFailed(id, "load failed")
		}
		return nil
	}
	switch s.state {
	case models.StateUnloaded, models.StateError:
		// proceed
	default:
		m.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	m.loading[id] = ch
	s.state = models.StateLoading
	m.mu.Unlock()

	var err error
	if cached, ok := m.cache.Get(id); ok {
		err = s.handle.LoadFrom(cached)
	} else {
		var data []byte
		data, err = s.handle.Load(ctx)
		if err == nil && len(data) > 0 {
			m.cache.Set(id, data)
		}
	}

	m.mu.Lock()
	delete(m.loading, id)
	close(ch)
	if err != nil {
		s.state = models.StateError
		m.mu.Unlock()
		evt := events.New(events.SoundError, id)
		evt.Error = err.Error()
		m.bus.Publish(evt)
		return models.ErrLoadFailed(id, err.Error())
	}
	s.state = models.StateLoaded
	m.mu.Unlock()

	m.bus.Publish(events.New(events.SoundLoaded, id))
	return nil
}

// preloadLoad adapts the manager's load path for the preloader.
func (m *Manager) preloadLoad(ctx context.Context, cfg models.SoundConfig) error {
	if err := m.LoadSound(ctx, cfg.ID); err != nil {
		return err
	}
	return nil
}

// PreloadAll queues the given ids (or every preload-flagged definition when
// ids is empty) and blocks until the batch completes.
func (m *Manager) PreloadAll(ctx context.Context, ids []string) (preload.Progress, *models.AppError) {
	m.mu.Lock()
	var configs []models.SoundConfig
	if len(ids) == 0 {
		for _, id := range m.order {
			if s := m.sounds[id]; s.cfg.Preload {
				configs = append(configs, s.cfg)
			}
		}
	} else {
		for _, id := range ids {
			s, ok := m.sounds[id]
			if !ok {
				m.mu.Unlock()
				return preload.Progress{}, models.ErrSoundNotFound(id)
			}
			configs = append(configs, s.cfg)
		}
	}
	m.mu.Unlock()

	m.pre.Add(configs)
	snap := m.pre.Preload(ctx)
	m.publishLoadComplete(snap)
	return snap, nil
}

func (m *Manager) publishLoadComplete(snap preload.Progress) {
	evt := events.Event{
		Kind:      events.LoadComplete,
		Timestamp: time.Now(),
		Loaded:    snap.Loaded,
		Total:     snap.Total,
		Failed:    snap.Failed,
	}
	m.bus.Publish(evt)
}

// Preloader exposes the preloader for status queries.
func (m *Manager) Preloader() *preload.Preloader { return m.pre }

// Cache exposes the sound cache for status queries.
func (m *Manager) Cache() *cache.Cache { return m.cache }

// persistLocked schedules a settings save with a deep copy, so the store's
// debounced writer never shares maps with the live settings.
func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	cp := models.Settings{
		GlobalVolume: m.settings.GlobalVolume,
		GlobalMuted:  m.settings.GlobalMuted,
		Sounds:       make(map[string]models.SoundSettings, len(m.settings.Sounds)),
		Groups:       make(map[string]models.GroupSettings, len(m.settings.Groups)),
	}
	maps.Copy(cp.Sounds, m.settings.Sounds)
	maps.Copy(cp.Groups, m.settings.Groups)
	if err := m.store.Save(&cp); err != nil {
		slog.Error("manager: failed to persist settings", "err", err)
	}
}

// Destroy stops all playing sounds, releases every playback handle, and
// clears every internal registry. The manager cannot be reused afterwards.
func (m *Manager) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	all := make([]*sound, 0, len(m.sounds))
	for _, s := range m.sounds {
		all = append(all, s)
	}
	m.mu.Unlock()

	m.fades.Stop()
	for _, s := range all {
		_ = s.handle.Pause()
		_ = s.handle.Close()
	}
	m.wg.Wait()

	m.mu.Lock()
	m.sounds = make(map[string]*sound)
	m.order = nil
	m.groups = make(map[string]*models.SoundGroup)
	m.groupOf = make(map[string]string)
	m.playing = make(map[string]struct{})
	m.reserved = make(map[string]struct{})
	m.loading = make(map[string]chan struct{})
	m.mu.Unlock()

	m.pre.Reset()
	m.cache.Clear()
	m.bus.Reset()
	if m.store != nil {
		if err := m.store.Flush(); err != nil {
			slog.Warn("manager: failed to flush settings", "err", err)
		}
	}
	slog.Info("manager: destroyed")
}
