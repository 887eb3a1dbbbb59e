package syncer_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/glyphkey/kbcompanion/internal/bridge"
	"github.com/glyphkey/kbcompanion/internal/events"
	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/prefs"
	"github.com/glyphkey/kbcompanion/internal/settings"
	"github.com/glyphkey/kbcompanion/internal/syncer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testDelay  = 40 * time.Millisecond
	testNotify = 20 * time.Millisecond
)

func soundPush(v settings.Values) models.Payload {
	return models.SoundSettings{
		SoundEnabled:     v.Bool(settings.SoundEnabled),
		SoundVolume:      models.VolumeToFraction(v.Float(settings.SoundVolume)),
		SoundType:        v.String(settings.SoundType),
		VibrationEnabled: v.Bool(settings.VibrationEnabled),
		VibrationMs:      v.Int(settings.VibrationMs),
		UseHaptic:        v.Bool(settings.UseHaptic),
	}
}

func gesturePush(v settings.Values) models.Payload {
	actions := make(map[string]string)
	for _, slot := range settings.GestureSlots {
		actions[slot.Key] = v.String(slot.Key)
	}
	return models.GestureSettings{
		GlideTyping:      v.Bool(settings.GlideTyping),
		ShowGlideTrail:   v.Bool(settings.ShowGlideTrail),
		GlideTrailFadeMs: v.Int(settings.GlideTrailFadeMs),
		SwipeVelocity:    v.Float(settings.SwipeVelocity),
		SwipeDistance:    v.Float(settings.SwipeDistance),
		Actions:          actions,
	}
}

type fakeMirror struct {
	mu    sync.Mutex
	err   error
	calls []map[string]any
}

func (f *fakeMirror) Upsert(_ context.Context, _ string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fields)
	return f.err
}

func (f *fakeMirror) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	store  *prefs.MemStore
	bridge *bridge.Mock
	mirror *fakeMirror
	bus    *events.Bus
	engine *syncer.Engine
}

func newSounds(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, &settings.Sounds, syncer.Push{Channel: bridge.ConfigChannel, Build: soundPush})
}

func newFixture(t *testing.T, schema *settings.Schema, pushes ...syncer.Push) *fixture {
	t.Helper()
	f := &fixture{
		store:  prefs.NewMemStore(),
		bridge: bridge.NewMock(),
		mirror: &fakeMirror{},
		bus:    events.NewBus(),
	}
	e, err := syncer.New(context.Background(), syncer.Config{
		Schema:        schema,
		Store:         f.store,
		Bridge:        f.bridge,
		Pushes:        pushes,
		Mirror:        f.mirror,
		DocID:         "device-1",
		Cloud:         func(v settings.Values) map[string]any { return map[string]any(v.Clone()) },
		Bus:           f.bus,
		Delay:         testDelay,
		NotifyDelay:   testNotify,
		BridgeTimeout: time.Second,
		CloudTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.engine = e
	t.Cleanup(e.Dispose)
	return f
}

// eventually polls cond until it holds or the timeout expires.
func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func countWrites(s *prefs.MemStore, key string) int {
	n := 0
	for _, k := range s.Writes() {
		if k == key {
			n++
		}
	}
	return n
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := syncer.New(context.Background(), syncer.Config{Schema: &settings.Sounds}); err == nil {
		t.Error("New() without store and bridge: error = nil")
	}
}

func TestNew_LoadsFromStore(t *testing.T) {
	store := prefs.NewMemStore()
	_ = store.Set("flutter.sound_volume", 65.0)
	e, err := syncer.New(context.Background(), syncer.Config{Schema: &settings.Sounds, Store: store, Bridge: bridge.NewMock()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Dispose()
	if got := e.Values().Int(settings.SoundVolume); got != 65 {
		t.Errorf("volume = %d, want 65", got)
	}
}

func TestSchedule_OptimisticUI(t *testing.T) {
	f := newSounds(t)
	if err := f.engine.Set(context.Background(), settings.SoundVolume, 72, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := f.engine.Values().Int(settings.SoundVolume); got != 72 {
		t.Errorf("volume right after Set = %d, want 72", got)
	}
	if n := len(f.store.Writes()); n != 0 {
		t.Errorf("store writes before timer = %d, want 0", n)
	}
	if n := len(f.bridge.Calls()); n != 0 {
		t.Errorf("bridge calls before timer = %d, want 0", n)
	}
	if got := f.engine.Pending(); len(got) != 1 || got[0] != settings.SoundVolume {
		t.Errorf("Pending() = %v", got)
	}
}

func TestDebounce_CoalescesSliderDrag(t *testing.T) {
	f := newSounds(t)
	ctx := context.Background()
	for _, v := range []int{60, 70, 80} {
		if err := f.engine.Set(ctx, settings.SoundVolume, v, false); err != nil {
			t.Fatalf("Set(%d): %v", v, err)
		}
		time.Sleep(testDelay / 4)
	}

	eventually(t, time.Second, func() bool {
		return len(f.bridge.CallsTo(bridge.MethodUpdateSettings)) > 0
	})
	time.Sleep(2 * testDelay)

	calls := f.bridge.CallsTo(bridge.MethodUpdateSettings)
	if len(calls) != 1 {
		t.Fatalf("updateSettings calls = %d, want 1", len(calls))
	}
	if got := calls[0].Args["soundVolume"]; got != 0.8 {
		t.Errorf("pushed soundVolume = %v, want 0.8", got)
	}
	if n := countWrites(f.store, "flutter.sound_volume"); n != 1 {
		t.Errorf("writes of flutter.sound_volume = %d, want 1", n)
	}
	if v, _ := f.store.Get("flutter.sound_volume"); v != 80.0 {
		t.Errorf("flutter.sound_volume = %v, want 80", v)
	}
	if got := f.engine.Pending(); len(got) != 0 {
		t.Errorf("Pending() after flush = %v", got)
	}
}

func TestFlush_AliasConsistency(t *testing.T) {
	f := newSounds(t)
	if err := f.engine.Set(context.Background(), settings.SoundVolume, 37, true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	field, _ := settings.Sounds.Field(settings.SoundVolume)
	for _, a := range field.Aliases {
		v, ok := prefs.ReadFirst(f.store, []prefs.Alias{a}, nil)
		if !ok {
			t.Errorf("alias %s missing", a.Key)
			continue
		}
		if n, _ := v.(float64); math.Round(n) != 37 {
			t.Errorf("alias %s = %v, want 37", a.Key, v)
		}
	}
	if raw, _ := f.store.Get("sound_volume"); math.Abs(raw.(float64)-0.37) > 1e-9 {
		t.Errorf("legacy fraction alias = %v, want 0.37", raw)
	}
	if got := settings.Load(f.store, &settings.Sounds).Int(settings.SoundVolume); got != 37 {
		t.Errorf("reload volume = %d, want 37", got)
	}
}

func TestFlush_GlideOffTurnsTrailOff(t *testing.T) {
	f := newFixture(t, &settings.Gestures, syncer.Push{Channel: bridge.ConfigChannel, Build: gesturePush})
	if !f.engine.Values().Bool(settings.ShowGlideTrail) {
		t.Fatal("precondition: trail should default on")
	}
	if err := f.engine.Set(context.Background(), settings.GlideTyping, false, true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	for _, key := range []string{"flutter.glide_typing", "flutter.show_glide_trail", "show_glide_trail"} {
		if v, _ := f.store.Get(key); v != false {
			t.Errorf("%s = %v, want false", key, v)
		}
	}
	calls := f.bridge.CallsTo(bridge.MethodUpdateGestureSettings)
	if len(calls) != 1 {
		t.Fatalf("updateGestureSettings calls = %d, want 1", len(calls))
	}
	if calls[0].Args["showGlideTrail"] != false {
		t.Errorf("pushed showGlideTrail = %v", calls[0].Args["showGlideTrail"])
	}
}

func TestFlush_InvalidEnumFallsBack(t *testing.T) {
	f := newFixture(t, &settings.Gestures, syncer.Push{Channel: bridge.ConfigChannel, Build: gesturePush})
	if err := f.engine.Set(context.Background(), "gesture_swipe_up", "launch_rockets", true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := f.engine.Values().String("gesture_swipe_up"); got != models.ActionShift {
		t.Errorf("gesture_swipe_up = %q, want %q", got, models.ActionShift)
	}
	if n := len(f.store.Writes()); n != 0 {
		t.Errorf("store writes = %d, want 0 for a rejected value", n)
	}
}

func TestFlush_CloudFailureIsolated(t *testing.T) {
	f := newSounds(t)
	f.mirror.err = errors.New("offline")

	if err := f.engine.Set(context.Background(), settings.SoundEnabled, false, true); err != nil {
		t.Fatalf("Flush returned cloud error: %v", err)
	}
	if v, _ := f.store.Get("flutter.sound_enabled"); v != false {
		t.Errorf("flutter.sound_enabled = %v, want false", v)
	}
	if n := len(f.bridge.CallsTo(bridge.MethodUpdateSettings)); n != 1 {
		t.Errorf("updateSettings calls = %d, want 1", n)
	}
	if n := f.mirror.count(); n != 1 {
		t.Errorf("mirror upserts = %d, want 1", n)
	}
}

func TestFlush_StoreFailureKeepsOptimisticState(t *testing.T) {
	f := newSounds(t)
	f.store.SetFailWrite(true)

	err := f.engine.Set(context.Background(), settings.VibrationMs, 40, true)
	if !errors.Is(err, prefs.ErrWriteFailed) {
		t.Fatalf("Set() error = %v, want ErrWriteFailed", err)
	}
	if got := f.engine.Values().Int(settings.VibrationMs); got != 40 {
		t.Errorf("vibration_ms = %d, want 40 (no rollback)", got)
	}
	if n := len(f.bridge.CallsTo(bridge.MethodUpdateSettings)); n != 1 {
		t.Errorf("updateSettings calls = %d, want 1", n)
	}
	if got := f.engine.Pending(); len(got) != 1 || got[0] != settings.VibrationMs {
		t.Errorf("Pending() = %v, want [vibration_ms]", got)
	}

	f.store.SetFailWrite(false)
	if err := f.engine.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if v, _ := f.store.Get("flutter.vibration_ms"); v != 40.0 {
		t.Errorf("flutter.vibration_ms = %v, want 40", v)
	}
}

func TestFlush_BridgeFailureReturned(t *testing.T) {
	f := newSounds(t)
	f.bridge.Fail(bridge.ConfigChannel, bridge.MethodUpdateSettings, errors.New("channel closed"))

	if err := f.engine.Set(context.Background(), settings.SoundType, "click", true); err == nil {
		t.Error("Set() error = nil, want bridge failure")
	}
	if got := f.engine.Values().String(settings.SoundType); got != "click" {
		t.Errorf("sound_type = %q, want click", got)
	}
	if v, _ := f.store.Get("flutter.sound_type"); v != "click" {
		t.Errorf("flutter.sound_type = %v, want click", v)
	}
}

func TestFlush_BridgeTimeout(t *testing.T) {
	store := prefs.NewMemStore()
	mock := bridge.NewMock()
	mock.Block()
	defer mock.Unblock()

	e, err := syncer.New(context.Background(), syncer.Config{
		Schema:        &settings.Sounds,
		Store:         store,
		Bridge:        mock,
		Pushes:        []syncer.Push{{Channel: bridge.ConfigChannel, Build: soundPush}},
		BridgeTimeout: 30 * time.Millisecond,
		NotifyDelay:   time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Dispose()

	start := time.Now()
	err = e.Set(context.Background(), settings.SoundVolume, 10, true)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Set() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("hung bridge call was not bounded by the timeout")
	}
}

func TestNetZeroToggle_SingleFlush(t *testing.T) {
	f := newSounds(t)
	ctx := context.Background()
	_ = f.engine.Set(ctx, settings.SoundEnabled, false, false)
	_ = f.engine.Set(ctx, settings.SoundEnabled, true, false)

	eventually(t, time.Second, func() bool {
		return len(f.bridge.CallsTo(bridge.MethodUpdateSettings)) > 0
	})
	time.Sleep(2 * testDelay)

	calls := f.bridge.CallsTo(bridge.MethodUpdateSettings)
	if len(calls) != 1 {
		t.Fatalf("updateSettings calls = %d, want 1", len(calls))
	}
	if calls[0].Args["soundEnabled"] != true {
		t.Errorf("pushed soundEnabled = %v, want true", calls[0].Args["soundEnabled"])
	}
	if v, _ := f.store.Get("flutter.sound_enabled"); v != true {
		t.Errorf("flutter.sound_enabled = %v, want true", v)
	}
}

func TestNotify_PairIsDebounced(t *testing.T) {
	f := newSounds(t)
	ctx := context.Background()
	_ = f.engine.Set(ctx, settings.SoundVolume, 20, true)
	_ = f.engine.Set(ctx, settings.SoundVolume, 30, true)

	eventually(t, time.Second, func() bool {
		return len(f.bridge.CallsTo(bridge.MethodBroadcastSettings)) > 0
	})
	time.Sleep(2 * testNotify)

	if n := len(f.bridge.CallsTo(bridge.MethodNotifyConfigChange)); n != 1 {
		t.Errorf("notifyConfigChange calls = %d, want 1", n)
	}
	if n := len(f.bridge.CallsTo(bridge.MethodBroadcastSettings)); n != 1 {
		t.Errorf("broadcastSettingsChanged calls = %d, want 1", n)
	}
}

func TestDispose_CancelsPendingTimer(t *testing.T) {
	f := newSounds(t)
	_ = f.engine.Set(context.Background(), settings.SoundVolume, 90, false)
	f.engine.Dispose()

	time.Sleep(3 * testDelay)
	if n := len(f.store.Writes()); n != 0 {
		t.Errorf("store writes after dispose = %d, want 0", n)
	}
	if n := len(f.bridge.Calls()); n != 0 {
		t.Errorf("bridge calls after dispose = %d, want 0", n)
	}
	if err := f.engine.Set(context.Background(), settings.SoundVolume, 10, false); !errors.Is(err, syncer.ErrDisposed) {
		t.Errorf("Set() after dispose = %v, want ErrDisposed", err)
	}
	if err := f.engine.Flush(context.Background()); !errors.Is(err, syncer.ErrDisposed) {
		t.Errorf("Flush() after dispose = %v, want ErrDisposed", err)
	}
}

func TestDispose_CancelsPendingNotify(t *testing.T) {
	f := newSounds(t)
	_ = f.engine.Set(context.Background(), settings.SoundVolume, 90, true)
	f.engine.Dispose()

	time.Sleep(3 * testNotify)
	if n := len(f.bridge.CallsTo(bridge.MethodNotifyConfigChange)); n != 0 {
		t.Errorf("notifyConfigChange after dispose = %d, want 0", n)
	}
}

func TestDispose_ParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e, err := syncer.New(ctx, syncer.Config{Schema: &settings.Sounds, Store: prefs.NewMemStore(), Bridge: bridge.NewMock()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cancel()
	eventually(t, time.Second, e.Disposed)
}

func TestDispose_AbortsInFlightFlush(t *testing.T) {
	f := newSounds(t)
	f.bridge.Block()
	defer f.bridge.Unblock()

	done := make(chan error, 1)
	go func() {
		done <- f.engine.Set(context.Background(), settings.SoundVolume, 55, true)
	}()
	eventually(t, time.Second, func() bool { return len(f.bridge.Calls()) > 0 })
	f.engine.Dispose()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("flush error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("flush did not return after dispose")
	}
}

func TestApply_UnknownKey(t *testing.T) {
	f := newSounds(t)
	err := f.engine.Apply(context.Background(), map[string]any{"nope": 1}, false)
	if !errors.Is(err, syncer.ErrUnknownSetting) {
		t.Errorf("Apply() error = %v, want ErrUnknownSetting", err)
	}
}

func TestResetDefaults(t *testing.T) {
	f := newSounds(t)
	ctx := context.Background()
	_ = f.engine.Apply(ctx, map[string]any{settings.SoundVolume: 5, settings.SoundType: "soft"}, true)
	if err := f.engine.ResetDefaults(ctx, true); err != nil {
		t.Fatalf("ResetDefaults: %v", err)
	}
	v := f.engine.Values()
	if v.Int(settings.SoundVolume) != 50 || v.String(settings.SoundType) != "default" {
		t.Errorf("values after reset = %v", v)
	}
	if got, _ := f.store.Get("flutter.sound_type"); got != "default" {
		t.Errorf("flutter.sound_type = %v, want default", got)
	}
}

func TestFlush_PublishesEvent(t *testing.T) {
	f := newSounds(t)
	ch := f.bus.Subscribe("t")
	defer f.bus.Unsubscribe("t")

	_ = f.engine.Set(context.Background(), settings.SoundVolume, 44, true)
	select {
	case ev := <-ch:
		if ev.Kind != events.KindSettings || ev.Area != settings.AreaSounds {
			t.Errorf("event = %+v", ev)
		}
		if len(ev.Changed) != 1 || ev.Changed[0] != settings.SoundVolume {
			t.Errorf("changed = %v", ev.Changed)
		}
	case <-time.After(time.Second):
		t.Fatal("no event after flush")
	}
}

func TestReload_ExternalChange(t *testing.T) {
	f := newSounds(t)
	_ = f.store.Set("flutter.sound_type", "bubble")

	changed := f.engine.Reload()
	if len(changed) != 1 || changed[0] != settings.SoundType {
		t.Errorf("Reload() = %v, want [sound_type]", changed)
	}
	if got := f.engine.Values().String(settings.SoundType); got != "bubble" {
		t.Errorf("sound_type = %q, want bubble", got)
	}
}

func TestReload_SkippedWhilePending(t *testing.T) {
	f := newSounds(t)
	_ = f.engine.Set(context.Background(), settings.SoundType, "click", false)
	_ = f.store.Set("flutter.sound_type", "bubble")

	if changed := f.engine.Reload(); changed != nil {
		t.Errorf("Reload() = %v, want nil while pending", changed)
	}
	if got := f.engine.Values().String(settings.SoundType); got != "click" {
		t.Errorf("sound_type = %q, want click", got)
	}
}

func TestClose_FlushesAndSignals(t *testing.T) {
	f := newSounds(t)
	_ = f.engine.Set(context.Background(), settings.SoundVolume, 12, false)

	if err := f.engine.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if v, _ := f.store.Get("flutter.sound_volume"); v != 12.0 {
		t.Errorf("flutter.sound_volume = %v, want 12", v)
	}
	if n := len(f.bridge.CallsTo(bridge.MethodNotifyConfigChange)); n != 1 {
		t.Errorf("notifyConfigChange calls = %d, want 1", n)
	}
	if !f.engine.Disposed() {
		t.Error("engine not disposed after Close")
	}
}

func TestConcurrentEngines_ShareStore(t *testing.T) {
	store := prefs.NewMemStore()
	mock := bridge.NewMock()
	var engines []*syncer.Engine
	for _, s := range []*settings.Schema{&settings.Sounds, &settings.Dictionary, &settings.Clipboard} {
		e, err := syncer.New(context.Background(), syncer.Config{Schema: s, Store: store, Bridge: mock, Delay: testDelay})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer e.Dispose()
		engines = append(engines, e)
	}

	var wg sync.WaitGroup
	for _, e := range engines {
		wg.Add(1)
		go func(e *syncer.Engine) {
			defer wg.Done()
			_ = e.ResetDefaults(context.Background(), true)
		}(e)
	}
	wg.Wait()

	if _, ok := store.Get("flutter.sound_volume"); ok {
		t.Error("reset to unchanged defaults should not write")
	}
	_ = engines[0].Set(context.Background(), settings.SoundVolume, 99, true)
	_ = engines[1].Set(context.Background(), settings.AutoCorrect, false, true)
	if v, _ := store.Get("flutter.sound_volume"); v != 99.0 {
		t.Errorf("flutter.sound_volume = %v", v)
	}
	if v, _ := store.Get("flutter.auto_correct"); v != false {
		t.Errorf("flutter.auto_correct = %v", v)
	}
}
