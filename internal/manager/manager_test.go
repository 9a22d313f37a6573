package manager_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sonora-audio/sonora-go/internal/config"
	"github.com/sonora-audio/sonora-go/internal/events"
	"github.com/sonora-audio/sonora-go/internal/manager"
	"github.com/sonora-audio/sonora-go/internal/models"
	"github.com/sonora-audio/sonora-go/internal/platform"
)

type fixture struct {
	mgr     *manager.Manager
	handles *sync.Map
	bus     *events.Bus
	store   *config.MemStore
}

// handle returns the mock created for a sound path, failing the test if the
// manager never registered it.
func (f *fixture) handle(t *testing.T, path string) *platform.Mock {
	t.Helper()
	v, ok := f.handles.Load(path)
	if !ok {
		t.Fatalf("no handle registered for %q", path)
	}
	return v.(*platform.Mock)
}

func newFixture(t *testing.T, mcfg models.ManagerConfig) *fixture {
	t.Helper()
	handles := &sync.Map{}
	bus := events.NewBus()
	store := config.NewMemStore()
	pcfg := models.DefaultPreloaderConfig()
	pcfg.RetryDelay = 10 * time.Millisecond

	mgr, err := manager.New(mcfg, pcfg, platform.NewMockFactory(handles), store, bus)
	if err != nil {
		t.Fatalf("manager.New: %v", err)
	}
	t.Cleanup(mgr.Destroy)
	return &fixture{mgr: mgr, handles: handles, bus: bus, store: store}
}

func defaultFixture(t *testing.T, configs ...models.SoundConfig) *fixture {
	t.Helper()
	f := newFixture(t, models.DefaultManagerConfig())
	if appErr := f.mgr.Initialize(context.Background(), configs); appErr != nil {
		t.Fatalf("Initialize: %v", appErr)
	}
	return f
}

func soundDef(id string) models.SoundConfig {
	return models.SoundConfig{ID: id, Path: id + ".ogg", Volume: 1.0}
}

func waitEvent(t *testing.T, ch <-chan events.Event, kind events.Kind) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Kind == kind {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", kind)
		}
	}
}

func waitState(t *testing.T, f *fixture, id string, want models.PlayState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		inst, appErr := f.mgr.Sound(id)
		if appErr != nil {
			t.Fatalf("Sound(%q): %v", id, appErr)
		}
		if inst.State == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("sound %q state = %q, want %q", id, inst.State, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInitializeIdempotent(t *testing.T) {
	f := defaultFixture(t, soundDef("a"), soundDef("b"))
	// A second Initialize must not duplicate or reset anything.
	if appErr := f.mgr.Initialize(context.Background(), []models.SoundConfig{soundDef("c")}); appErr != nil {
		t.Fatalf("second Initialize: %v", appErr)
	}
	if n := len(f.mgr.Sounds()); n != 2 {
		t.Errorf("registered sounds = %d, want 2", n)
	}
}

func TestInitializeSkipsDuplicateIDs(t *testing.T) {
	f := defaultFixture(t, soundDef("a"), soundDef("a"))
	if n := len(f.mgr.Sounds()); n != 1 {
		t.Errorf("registered sounds = %d, want 1", n)
	}
}

func TestPlayLifecycle(t *testing.T) {
	f := defaultFixture(t, soundDef("door"))
	ch := f.bus.Subscribe("test")
	defer f.bus.Unsubscribe("test")

	ended := make(chan struct{})
	appErr := f.mgr.Play(context.Background(), "door", &manager.PlayOptions{
		OnEnd: func() { close(ended) },
	})
	if appErr != nil {
		t.Fatalf("Play: %v", appErr)
	}

	waitEvent(t, ch, events.SoundLoaded)
	waitEvent(t, ch, events.SoundPlay)
	waitState(t, f, "door", models.StatePlaying)
	if !f.handle(t, "door.ogg").IsPlaying() {
		t.Error("handle not playing after Play")
	}

	f.handle(t, "door.ogg").EmitEnded()
	waitEvent(t, ch, events.SoundEnd)
	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("OnEnd callback never fired")
	}
	waitState(t, f, "door", models.StateStopped)
	if f.mgr.State().Playing != 0 {
		t.Errorf("Playing = %d after natural end, want 0", f.mgr.State().Playing)
	}
}

func TestLazyLoadSharesOneAttempt(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	if appErr := f.mgr.LoadSound(context.Background(), "s"); appErr != nil {
		t.Fatalf("LoadSound: %v", appErr)
	}
	if appErr := f.mgr.LoadSound(context.Background(), "s"); appErr != nil {
		t.Fatalf("second LoadSound: %v", appErr)
	}
	if n := f.handle(t, "s.ogg").Loads(); n != 1 {
		t.Errorf("Load attempts = %d, want 1", n)
	}
	if !f.mgr.Cache().Has("s") {
		t.Error("cache not populated after load")
	}
}

func TestPlayUnknownSound(t *testing.T) {
	f := defaultFixture(t)
	appErr := f.mgr.Play(context.Background(), "ghost", nil)
	if appErr == nil {
		t.Fatal("Play of unknown sound succeeded")
	}
	if appErr.Code != "SOUND_NOT_FOUND" {
		t.Errorf("Code = %q, want SOUND_NOT_FOUND", appErr.Code)
	}
}

func TestLoadFailure(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	f.handle(t, "s.ogg").FailNextLoads(1, errors.New("disk gone"))

	appErr := f.mgr.Play(context.Background(), "s", nil)
	if appErr == nil {
		t.Fatal("Play succeeded despite load failure")
	}
	if appErr.Code != "LOAD_FAILED" {
		t.Errorf("Code = %q, want LOAD_FAILED", appErr.Code)
	}
	waitState(t, f, "s", models.StateError)
}

func TestOnErrorDeliversInsteadOfReturn(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	f.handle(t, "s.ogg").FailNextLoads(1, errors.New("disk gone"))

	got := make(chan *models.AppError, 1)
	appErr := f.mgr.Play(context.Background(), "s", &manager.PlayOptions{
		OnError: func(e *models.AppError) { got <- e },
	})
	if appErr != nil {
		t.Fatalf("Play returned %v despite OnError callback", appErr)
	}
	select {
	case e := <-got:
		if e.Code != "LOAD_FAILED" {
			t.Errorf("callback Code = %q, want LOAD_FAILED", e.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnError callback never fired")
	}
}

func TestRuntimeErrorCallback(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	got := make(chan *models.AppError, 1)
	if appErr := f.mgr.Play(context.Background(), "s", &manager.PlayOptions{
		OnError: func(e *models.AppError) { got <- e },
	}); appErr != nil {
		t.Fatalf("Play: %v", appErr)
	}
	waitState(t, f, "s", models.StatePlaying)

	f.handle(t, "s.ogg").EmitError(errors.New("decoder crashed"))
	select {
	case e := <-got:
		if e.Code != "AUDIO_ERROR" {
			t.Errorf("callback Code = %q, want AUDIO_ERROR", e.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnError callback never fired")
	}
	waitState(t, f, "s", models.StateError)
}

func TestMaxConcurrentDropsSilently(t *testing.T) {
	mcfg := models.DefaultManagerConfig()
	mcfg.MaxConcurrent = 2
	f := newFixture(t, mcfg)
	defs := []models.SoundConfig{soundDef("a"), soundDef("b"), soundDef("c")}
	if appErr := f.mgr.Initialize(context.Background(), defs); appErr != nil {
		t.Fatalf("Initialize: %v", appErr)
	}

	for _, id := range []string{"a", "b"} {
		if appErr := f.mgr.Play(context.Background(), id, nil); appErr != nil {
			t.Fatalf("Play(%q): %v", id, appErr)
		}
	}
	// Over the ceiling: no error, no playback.
	if appErr := f.mgr.Play(context.Background(), "c", nil); appErr != nil {
		t.Fatalf("over-ceiling Play returned error: %v", appErr)
	}
	if f.handle(t, "c.ogg").IsPlaying() {
		t.Error("third sound playing despite ceiling of 2")
	}
	if got := f.mgr.State().Playing; got != 2 {
		t.Errorf("Playing = %d, want 2", got)
	}

	// Restarting an already-playing sound is always admitted.
	if appErr := f.mgr.Play(context.Background(), "a", nil); appErr != nil {
		t.Fatalf("restart Play: %v", appErr)
	}
	if got := f.mgr.State().Playing; got != 2 {
		t.Errorf("Playing = %d after restart, want 2", got)
	}
}

func TestMaxConcurrentHoldsUnderRacingPlays(t *testing.T) {
	mcfg := models.DefaultManagerConfig()
	mcfg.MaxConcurrent = 1
	f := newFixture(t, mcfg)

	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	defs := make([]models.SoundConfig, len(ids))
	for i, id := range ids {
		defs[i] = soundDef(id)
	}
	if appErr := f.mgr.Initialize(context.Background(), defs); appErr != nil {
		t.Fatalf("Initialize: %v", appErr)
	}
	for _, id := range ids {
		if appErr := f.mgr.LoadSound(context.Background(), id); appErr != nil {
			t.Fatalf("LoadSound(%q): %v", id, appErr)
		}
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if appErr := f.mgr.Play(context.Background(), id, nil); appErr != nil {
				t.Errorf("Play(%q): %v", id, appErr)
			}
		}(id)
	}
	wg.Wait()

	if got := f.mgr.State().Playing; got > 1 {
		t.Errorf("Playing = %d with ceiling 1", got)
	}
	active := 0
	for _, id := range ids {
		if f.handle(t, id+".ogg").IsPlaying() {
			active++
		}
	}
	if active > 1 {
		t.Errorf("%d handles playing with ceiling 1", active)
	}
}

func TestVolumeComposition(t *testing.T) {
	f := newFixture(t, models.DefaultManagerConfig())
	def := soundDef("s")
	def.Volume = 0.5
	if appErr := f.mgr.Initialize(context.Background(), []models.SoundConfig{def}); appErr != nil {
		t.Fatalf("Initialize: %v", appErr)
	}
	if appErr := f.mgr.RegisterGroup(models.SoundGroup{ID: "sfx", SoundIDs: []string{"s"}, Volume: 0.8}); appErr != nil {
		t.Fatalf("RegisterGroup: %v", appErr)
	}
	f.mgr.SetGlobalVolume(0.6)

	if appErr := f.mgr.Play(context.Background(), "s", nil); appErr != nil {
		t.Fatalf("Play: %v", appErr)
	}
	// 0.5 instance x 0.8 group x 0.6 global = 0.24
	if got := f.handle(t, "s.ogg").Volume(); math.Abs(got-0.24) > 1e-9 {
		t.Errorf("handle volume = %v, want 0.24", got)
	}
	eff, appErr := f.mgr.EffectiveVolume("s")
	if appErr != nil {
		t.Fatalf("EffectiveVolume: %v", appErr)
	}
	if math.Abs(eff-0.24) > 1e-9 {
		t.Errorf("EffectiveVolume = %v, want 0.24", eff)
	}
}

func TestMuteSilencesAtEveryLevel(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	if appErr := f.mgr.RegisterGroup(models.SoundGroup{ID: "g", SoundIDs: []string{"s"}}); appErr != nil {
		t.Fatalf("RegisterGroup: %v", appErr)
	}
	if appErr := f.mgr.Play(context.Background(), "s", nil); appErr != nil {
		t.Fatalf("Play: %v", appErr)
	}
	h := f.handle(t, "s.ogg")

	mutes := []struct {
		name string
		set  func(bool)
	}{
		{"global", f.mgr.SetGlobalMuted},
		{"group", func(m bool) { _ = f.mgr.SetGroupMuted("g", m) }},
		{"sound", func(m bool) { _ = f.mgr.SetSoundMuted("s", m) }},
	}
	for _, mu := range mutes {
		mu.set(true)
		if got := h.Volume(); got != 0 {
			t.Errorf("%s mute: handle volume = %v, want 0", mu.name, got)
		}
		mu.set(false)
		if got := h.Volume(); got != 1.0 {
			t.Errorf("%s unmute: handle volume = %v, want 1.0", mu.name, got)
		}
	}
}

func TestStopWithFadeOut(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	if appErr := f.mgr.Play(context.Background(), "s", nil); appErr != nil {
		t.Fatalf("Play: %v", appErr)
	}
	h := f.handle(t, "s.ogg")

	fadeOut := 100 * time.Millisecond
	start := time.Now()
	if appErr := f.mgr.Stop(context.Background(), "s", &manager.StopOptions{FadeOut: &fadeOut}); appErr != nil {
		t.Fatalf("Stop: %v", appErr)
	}
	if elapsed := time.Since(start); elapsed < fadeOut {
		t.Errorf("Stop returned after %v, should block for the %v fade", elapsed, fadeOut)
	}
	waitState(t, f, "s", models.StateStopped)
	if h.IsPlaying() {
		t.Error("handle still playing after faded stop")
	}
	if h.Position() != 0 {
		t.Errorf("position = %v after stop, want 0", h.Position())
	}
}

func TestStopContextCancelCutsFadeShort(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	if appErr := f.mgr.Play(context.Background(), "s", nil); appErr != nil {
		t.Fatalf("Play: %v", appErr)
	}
	h := f.handle(t, "s.ogg")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	fadeOut := 2 * time.Second
	start := time.Now()
	if appErr := f.mgr.Stop(ctx, "s", &manager.StopOptions{FadeOut: &fadeOut}); appErr != nil {
		t.Fatalf("Stop: %v", appErr)
	}
	if elapsed := time.Since(start); elapsed >= fadeOut {
		t.Errorf("Stop blocked %v despite cancelled context", elapsed)
	}

	// Cutting the fade short must still land the sound in STOPPED.
	waitState(t, f, "s", models.StateStopped)
	if h.IsPlaying() {
		t.Error("handle still playing after cancelled stop")
	}
	if got := f.mgr.State().Playing; got != 0 {
		t.Errorf("Playing = %d after cancelled stop, want 0", got)
	}
}

func TestStopIdleSoundIsNoop(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	if appErr := f.mgr.Stop(context.Background(), "s", nil); appErr != nil {
		t.Errorf("Stop of idle sound returned %v", appErr)
	}
}

func TestPauseResume(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	if appErr := f.mgr.Play(context.Background(), "s", nil); appErr != nil {
		t.Fatalf("Play: %v", appErr)
	}
	h := f.handle(t, "s.ogg")

	if appErr := f.mgr.Pause("s"); appErr != nil {
		t.Fatalf("Pause: %v", appErr)
	}
	waitState(t, f, "s", models.StatePaused)
	if h.IsPlaying() {
		t.Error("handle playing after Pause")
	}
	// Pausing again is a state-gated no-op.
	if appErr := f.mgr.Pause("s"); appErr != nil {
		t.Errorf("double Pause returned %v", appErr)
	}

	if appErr := f.mgr.Resume("s"); appErr != nil {
		t.Fatalf("Resume: %v", appErr)
	}
	waitState(t, f, "s", models.StatePlaying)
	if !h.IsPlaying() {
		t.Error("handle not playing after Resume")
	}
}

func TestResumeNotPausedIsNoop(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	if appErr := f.mgr.Resume("s"); appErr != nil {
		t.Errorf("Resume of unloaded sound returned %v", appErr)
	}
	waitState(t, f, "s", models.StateUnloaded)
}

func TestStopAll(t *testing.T) {
	f := defaultFixture(t, soundDef("a"), soundDef("b"), soundDef("c"))
	for _, id := range []string{"a", "b"} {
		if appErr := f.mgr.Play(context.Background(), id, nil); appErr != nil {
			t.Fatalf("Play(%q): %v", id, appErr)
		}
	}

	f.mgr.StopAll(context.Background(), nil)
	waitState(t, f, "a", models.StateStopped)
	waitState(t, f, "b", models.StateStopped)
	if got := f.mgr.State().Playing; got != 0 {
		t.Errorf("Playing = %d after StopAll, want 0", got)
	}
	// Never-played sound untouched.
	waitState(t, f, "c", models.StateUnloaded)
}

func TestFadeInReachesEffectiveVolume(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	fadeIn := 60 * time.Millisecond
	if appErr := f.mgr.Play(context.Background(), "s", &manager.PlayOptions{FadeIn: &fadeIn}); appErr != nil {
		t.Fatalf("Play: %v", appErr)
	}
	h := f.handle(t, "s.ogg")

	deadline := time.Now().Add(2 * time.Second)
	for h.Volume() != 1.0 {
		if time.Now().After(deadline) {
			t.Fatalf("handle volume = %v after fade-in, want 1.0", h.Volume())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPreloadStrategyLoadsAtInitialize(t *testing.T) {
	mcfg := models.DefaultManagerConfig()
	mcfg.CacheStrategy = models.StrategyPreload
	f := newFixture(t, mcfg)

	eager := soundDef("eager")
	eager.Preload = true
	lazy := soundDef("lazy")
	if appErr := f.mgr.Initialize(context.Background(), []models.SoundConfig{eager, lazy}); appErr != nil {
		t.Fatalf("Initialize: %v", appErr)
	}

	waitState(t, f, "eager", models.StateLoaded)
	waitState(t, f, "lazy", models.StateUnloaded)
	if n := f.handle(t, "eager.ogg").Loads(); n != 1 {
		t.Errorf("eager load attempts = %d, want 1", n)
	}
}

func TestPreloadAllReportsFailures(t *testing.T) {
	f := defaultFixture(t, soundDef("ok"), soundDef("bad"))
	// More failures than the retry budget (1 initial + 2 retries).
	f.handle(t, "bad.ogg").FailNextLoads(5, errors.New("corrupt"))

	snap, appErr := f.mgr.PreloadAll(context.Background(), []string{"ok", "bad"})
	if appErr != nil {
		t.Fatalf("PreloadAll: %v", appErr)
	}
	if snap.Loaded != 1 {
		t.Errorf("Loaded = %d, want 1", snap.Loaded)
	}
	if len(snap.Failed) != 1 || snap.Failed[0] != "bad" {
		t.Errorf("Failed = %v, want [bad]", snap.Failed)
	}
	if snap.Percentage != 100 {
		t.Errorf("Percentage = %v, want 100", snap.Percentage)
	}
}

func TestGroupRejectsUnknownMember(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	appErr := f.mgr.RegisterGroup(models.SoundGroup{ID: "g", SoundIDs: []string{"s", "ghost"}})
	if appErr == nil {
		t.Fatal("RegisterGroup accepted an unknown member")
	}
	if appErr.Code != "BAD_REQUEST" {
		t.Errorf("Code = %q, want BAD_REQUEST", appErr.Code)
	}
}

func TestGroupReassignmentLatestWins(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	if appErr := f.mgr.RegisterGroup(models.SoundGroup{ID: "g1", SoundIDs: []string{"s"}, Volume: 0.5}); appErr != nil {
		t.Fatalf("RegisterGroup g1: %v", appErr)
	}
	if appErr := f.mgr.RegisterGroup(models.SoundGroup{ID: "g2", SoundIDs: []string{"s"}, Volume: 0.25}); appErr != nil {
		t.Fatalf("RegisterGroup g2: %v", appErr)
	}
	eff, appErr := f.mgr.EffectiveVolume("s")
	if appErr != nil {
		t.Fatalf("EffectiveVolume: %v", appErr)
	}
	if math.Abs(eff-0.25) > 1e-9 {
		t.Errorf("EffectiveVolume = %v, want 0.25 (latest group wins)", eff)
	}
}

func TestSettingsPersistAcrossManagers(t *testing.T) {
	handles := &sync.Map{}
	bus := events.NewBus()
	store := config.NewMemStore()
	pcfg := models.DefaultPreloaderConfig()

	mgr, err := manager.New(models.DefaultManagerConfig(), pcfg, platform.NewMockFactory(handles), store, bus)
	if err != nil {
		t.Fatalf("manager.New: %v", err)
	}
	mgr.SetGlobalVolume(0.3)
	mgr.SetGlobalMuted(true)
	mgr.Destroy()
	if store.Saves() == 0 {
		t.Fatal("settings never saved")
	}

	mgr2, err := manager.New(models.DefaultManagerConfig(), pcfg, platform.NewMockFactory(&sync.Map{}), store, events.NewBus())
	if err != nil {
		t.Fatalf("second manager.New: %v", err)
	}
	defer mgr2.Destroy()
	if got := mgr2.GlobalVolume(); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("restored GlobalVolume = %v, want 0.3", got)
	}
	if !mgr2.GlobalMuted() {
		t.Error("restored GlobalMuted = false, want true")
	}
}

func TestVolumeEvents(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	ch := f.bus.Subscribe("test")
	defer f.bus.Unsubscribe("test")

	f.mgr.SetGlobalVolume(0.4)
	evt := waitEvent(t, ch, events.VolumeChanged)
	if evt.Volume == nil || *evt.Volume != 0.4 {
		t.Errorf("volume event payload = %v, want 0.4", evt.Volume)
	}

	_ = f.mgr.SetSoundMuted("s", true)
	evt = waitEvent(t, ch, events.MuteChanged)
	if evt.SoundID != "s" || evt.Muted == nil || !*evt.Muted {
		t.Errorf("mute event payload = %+v, want sound s muted", evt)
	}
}

func TestStats(t *testing.T) {
	f := defaultFixture(t, soundDef("a"), soundDef("b"))
	if appErr := f.mgr.Play(context.Background(), "a", nil); appErr != nil {
		t.Fatalf("Play: %v", appErr)
	}

	st := f.mgr.Stats()
	if st.Total != 2 || st.Loaded != 1 || st.Playing != 1 {
		t.Errorf("Stats = %+v, want total 2, loaded 1, playing 1", st)
	}
	// Mock media is 10s: 10 x 44100 x 2 x 2 bytes at the assumed format.
	if want := uint64(10 * 44100 * 2 * 2); st.EstimatedBytes != want {
		t.Errorf("EstimatedBytes = %d, want %d", st.EstimatedBytes, want)
	}
	if st.EstimatedHuman == "" {
		t.Error("EstimatedHuman empty")
	}
}

func TestWarmCache(t *testing.T) {
	f := defaultFixture(t, soundDef("a"), soundDef("b"), soundDef("c"))
	if appErr := f.mgr.LoadSound(context.Background(), "a"); appErr != nil {
		t.Fatalf("LoadSound: %v", appErr)
	}

	if loaded := f.mgr.WarmCache(context.Background()); loaded != 2 {
		t.Errorf("WarmCache loaded %d, want 2", loaded)
	}
	waitState(t, f, "b", models.StateLoaded)
	waitState(t, f, "c", models.StateLoaded)
	// Nothing left to warm.
	if loaded := f.mgr.WarmCache(context.Background()); loaded != 0 {
		t.Errorf("second WarmCache loaded %d, want 0", loaded)
	}
}

func TestDestroyRejectsFurtherUse(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	f.mgr.Destroy()

	appErr := f.mgr.Play(context.Background(), "s", nil)
	if appErr == nil {
		t.Fatal("Play succeeded after Destroy")
	}
	if len(f.mgr.Sounds()) != 0 {
		t.Error("sounds survive Destroy")
	}
	// A second Destroy must not panic.
	f.mgr.Destroy()
}

func TestUnregister(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	if appErr := f.mgr.LoadSound(context.Background(), "s"); appErr != nil {
		t.Fatalf("LoadSound: %v", appErr)
	}
	if appErr := f.mgr.Unregister("s"); appErr != nil {
		t.Fatalf("Unregister: %v", appErr)
	}
	if f.mgr.Cache().Has("s") {
		t.Error("cache entry survives Unregister")
	}
	if _, appErr := f.mgr.Sound("s"); appErr == nil {
		t.Error("Sound still resolvable after Unregister")
	}
}

func TestProgressUpdates(t *testing.T) {
	f := defaultFixture(t, soundDef("s"))
	if appErr := f.mgr.Play(context.Background(), "s", nil); appErr != nil {
		t.Fatalf("Play: %v", appErr)
	}
	f.handle(t, "s.ogg").EmitProgress(0.42)

	deadline := time.Now().Add(2 * time.Second)
	for {
		inst, appErr := f.mgr.Sound("s")
		if appErr != nil {
			t.Fatalf("Sound: %v", appErr)
		}
		if inst.Progress == 0.42 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Progress = %v, want 0.42", inst.Progress)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
