// Package syncer implements the debounced settings sync engine. An Engine owns
// the in-memory values of one feature area; edits are applied to memory at
// once and flushed to the preference store, the keyboard and the cloud mirror
// after a quiet period.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/glyphkey/kbcompanion/internal/bridge"
	"github.com/glyphkey/kbcompanion/internal/cloud"
	"github.com/glyphkey/kbcompanion/internal/events"
	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/prefs"
	"github.com/glyphkey/kbcompanion/internal/settings"
)

const (
	DefaultDelay         = 400 * time.Millisecond
	DefaultNotifyDelay   = 150 * time.Millisecond
	DefaultBridgeTimeout = 5 * time.Second
	DefaultCloudTimeout  = 10 * time.Second
)

var (
	// ErrDisposed is returned by operations on a disposed engine.
	ErrDisposed = errors.New("syncer: engine disposed")
	// ErrUnknownSetting is returned when a key is not part of the area.
	ErrUnknownSetting = errors.New("syncer: unknown setting")
	// ErrPersist marks flush errors from the preference store.
	ErrPersist = errors.New("syncer: preference write failed")
	// ErrPush marks flush errors from the keyboard bridge.
	ErrPush = errors.New("syncer: keyboard push failed")
)

// Push builds one keyboard payload from a full snapshot of the area.
type Push struct {
	Channel bridge.Channel
	Build   func(settings.Values) models.Payload
}

// Config wires an Engine to its collaborators.
type Config struct {
	Schema *settings.Schema
	Store  prefs.Store
	Bridge bridge.Bridge
	Pushes []Push

	// Mirror, DocID and Cloud enable the cloud path; any of them unset
	// disables it.
	Mirror cloud.Mirror
	DocID  string
	Cloud  func(settings.Values) map[string]any

	Bus *events.Bus

	Delay         time.Duration
	NotifyDelay   time.Duration
	BridgeTimeout time.Duration
	CloudTimeout  time.Duration

	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.NotifyDelay <= 0 {
		c.NotifyDelay = DefaultNotifyDelay
	}
	if c.BridgeTimeout <= 0 {
		c.BridgeTimeout = DefaultBridgeTimeout
	}
	if c.CloudTimeout <= 0 {
		c.CloudTimeout = DefaultCloudTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine is the debounced sync engine of one feature area.
type Engine struct {
	cfg    Config
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	// unhook detaches Dispose from the parent context.
	unhook func() bool

	// flushMu serializes flushes of this engine.
	flushMu sync.Mutex

	mu          sync.Mutex
	values      settings.Values
	pending     map[string]bool
	timer       *time.Timer
	gen         uint64
	notifyTimer *time.Timer
	notifyGen   uint64
	disposed    bool

	// wg tracks timer callbacks that are running.
	wg sync.WaitGroup
}

// New loads the area's values from the store and returns a ready engine.
// The engine is disposed when ctx is cancelled.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Schema == nil || cfg.Store == nil || cfg.Bridge == nil {
		return nil, fmt.Errorf("syncer: schema, store and bridge are required")
	}
	cfg.setDefaults()
	ectx, cancel := context.WithCancel(ctx)
	e := &Engine{
		cfg:     cfg,
		log:     cfg.Logger.With("area", cfg.Schema.Area),
		ctx:     ectx,
		cancel:  cancel,
		values:  settings.Load(cfg.Store, cfg.Schema),
		pending: make(map[string]bool),
	}
	e.unhook = context.AfterFunc(ectx, e.Dispose)
	return e, nil
}

// Area returns the feature area of the engine.
func (e *Engine) Area() string { return e.cfg.Schema.Area }

// Values returns a copy of the current in-memory values.
func (e *Engine) Values() settings.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values.Clone()
}

// Pending returns the keys changed since the last flush, sorted.
func (e *Engine) Pending() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return pendingKeys(e.pending)
}

// Disposed reports whether the engine has been disposed.
func (e *Engine) Disposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

// Schedule applies mutation to the in-memory values, validates them and
// records the changed keys. With immediate set the batch is flushed before
// Schedule returns; otherwise the sync timer is re-armed.
func (e *Engine) Schedule(ctx context.Context, mutation func(settings.Values), immediate bool) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	prev := e.values
	next := prev.Clone()
	mutation(next)
	next = e.cfg.Schema.Validate(next, prev)
	changed := settings.Diff(prev, next)
	e.values = next
	for _, k := range changed {
		e.pending[k] = true
	}
	if !immediate && len(e.pending) > 0 {
		e.armLocked()
	}
	e.mu.Unlock()

	if len(changed) > 0 {
		e.log.Debug("syncer: scheduled", "changed", changed, "immediate", immediate)
	}
	if immediate {
		return e.Flush(ctx)
	}
	return nil
}

// Set schedules a single setting change.
func (e *Engine) Set(ctx context.Context, key string, value any, immediate bool) error {
	return e.Apply(ctx, map[string]any{key: value}, immediate)
}

// Apply schedules several setting changes as one mutation.
func (e *Engine) Apply(ctx context.Context, changes map[string]any, immediate bool) error {
	for k := range changes {
		if _, ok := e.cfg.Schema.Field(k); !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownSetting, e.Area(), k)
		}
	}
	return e.Schedule(ctx, func(v settings.Values) {
		for k, val := range changes {
			v[k] = val
		}
	}, immediate)
}

// ResetDefaults schedules every setting back to its default.
func (e *Engine) ResetDefaults(ctx context.Context, immediate bool) error {
	defaults := e.cfg.Schema.Defaults()
	return e.Schedule(ctx, func(v settings.Values) {
		for k, d := range defaults {
			v[k] = d
		}
	}, immediate)
}

// armLocked cancels any live sync timer and starts a new one.
func (e *Engine) armLocked() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(e.cfg.Delay, func() { e.fire(gen) })
}

// fire runs when the sync timer expires. Stale or disposed timers do nothing.
func (e *Engine) fire(gen uint64) {
	e.mu.Lock()
	if e.disposed || gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()
	defer e.wg.Done()

	// Failures are logged inside flush.
	_ = e.flush(e.ctx)
}

// Flush flushes the pending batch now. The full payload is pushed to the
// keyboard even when nothing is pending. Preference store and keyboard
// failures are returned; cloud failures are only logged.
func (e *Engine) Flush(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()
	return e.flush(ctx)
}

func (e *Engine) flush(ctx context.Context) error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	keys := pendingKeys(e.pending)
	e.pending = make(map[string]bool)

	// (a) validate
	snapshot := e.cfg.Schema.Validate(e.values, e.values)
	e.values = snapshot.Clone()
	e.mu.Unlock()

	var errs []error

	// (b) persist every alias of every changed key
	if err := e.persist(keys, snapshot); err != nil {
		e.log.Error("syncer: preference write failed", "err", err)
		errs = append(errs, err)
	}

	// (c) push the full payload
	for _, p := range e.cfg.Pushes {
		payload := p.Build(snapshot)
		cctx, cancel := context.WithTimeout(ctx, e.cfg.BridgeTimeout)
		err := bridge.Push(cctx, e.cfg.Bridge, p.Channel, payload)
		cancel()
		if err != nil {
			e.log.Error("syncer: keyboard push failed", "channel", p.Channel, "method", payload.Method(), "err", err)
			errs = append(errs, fmt.Errorf("%w: %s/%s: %w", ErrPush, p.Channel, payload.Method(), err))
		}
	}

	// (d) mirror to the cloud, best effort
	e.mirror(ctx, snapshot)

	// (e) debounce the change signal
	e.mu.Lock()
	if !e.disposed {
		e.armNotifyLocked()
	}
	e.mu.Unlock()

	e.cfg.Bus.Publish(events.Event{
		Kind:    events.KindSettings,
		Area:    e.Area(),
		Changed: keys,
		Values:  map[string]any(snapshot.Clone()),
	})
	e.log.Debug("syncer: flushed", "changed", keys, "errors", len(errs))
	return errors.Join(errs...)
}

// persist writes keys in order. Keys not written stay pending so the next
// flush carries them.
func (e *Engine) persist(keys []string, snapshot settings.Values) error {
	for i, k := range keys {
		f, ok := e.cfg.Schema.Field(k)
		if !ok {
			continue
		}
		if err := prefs.WriteAll(e.cfg.Store, f.Aliases, f.StoredValue(snapshot[k])); err != nil {
			e.mu.Lock()
			for _, rest := range keys[i:] {
				e.pending[rest] = true
			}
			e.mu.Unlock()
			return fmt.Errorf("%w: %s.%s: %w", ErrPersist, e.Area(), k, err)
		}
	}
	return nil
}

func (e *Engine) mirror(ctx context.Context, snapshot settings.Values) {
	if e.cfg.Mirror == nil || e.cfg.Cloud == nil || e.cfg.DocID == "" {
		return
	}
	fields := e.cfg.Cloud(snapshot)
	if len(fields) == 0 {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, e.cfg.CloudTimeout)
	defer cancel()
	if err := e.cfg.Mirror.Upsert(cctx, e.cfg.DocID, fields); err != nil {
		e.log.Warn("syncer: cloud mirror failed", "doc", e.cfg.DocID, "err", err)
	}
}

func (e *Engine) armNotifyLocked() {
	if e.notifyTimer != nil {
		e.notifyTimer.Stop()
	}
	e.notifyGen++
	gen := e.notifyGen
	e.notifyTimer = time.AfterFunc(e.cfg.NotifyDelay, func() { e.notify(gen) })
}

func (e *Engine) notify(gen uint64) {
	e.mu.Lock()
	if e.disposed || gen != e.notifyGen {
		e.mu.Unlock()
		return
	}
	e.notifyTimer = nil
	e.wg.Add(1)
	e.mu.Unlock()
	defer e.wg.Done()

	e.sendNotify(e.ctx)
}

func (e *Engine) sendNotify(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.BridgeTimeout)
	defer cancel()
	if err := bridge.NotifyConfigChanged(ctx, e.cfg.Bridge); err != nil {
		e.log.Warn("syncer: config change signal failed", "err", err)
	}
}

// Reload re-reads the area from the store after an external change. It is
// skipped while edits are pending so local edits are not lost. It reports
// the keys whose values changed.
func (e *Engine) Reload() []string {
	e.mu.Lock()
	if e.disposed || len(e.pending) > 0 {
		e.mu.Unlock()
		return nil
	}
	next := settings.Load(e.cfg.Store, e.cfg.Schema)
	changed := settings.Diff(e.values, next)
	if len(changed) > 0 {
		e.values = next
	}
	e.mu.Unlock()

	if len(changed) > 0 {
		e.log.Info("syncer: reloaded from store", "changed", changed)
		e.cfg.Bus.Publish(events.Event{
			Kind:    events.KindSettings,
			Area:    e.Area(),
			Changed: changed,
			Values:  map[string]any(next.Clone()),
		})
	}
	return changed
}

// Close flushes pending edits, sends an outstanding change signal at once and
// disposes the engine.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return nil
	}
	dirty := len(e.pending) > 0
	e.mu.Unlock()

	var err error
	if dirty {
		err = e.Flush(ctx)
	}

	e.mu.Lock()
	signal := e.notifyTimer != nil && !e.disposed
	if signal {
		e.notifyTimer.Stop()
		e.notifyTimer = nil
		e.notifyGen++
	}
	e.mu.Unlock()
	if signal {
		e.sendNotify(ctx)
	}

	e.Dispose()
	return err
}

// Dispose cancels both timers and the engine context. Timer callbacks that
// fire afterwards do nothing. Dispose waits for running callbacks to return
// and is safe to call more than once.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.notifyTimer != nil {
		e.notifyTimer.Stop()
		e.notifyTimer = nil
	}
	e.gen++
	e.notifyGen++
	e.mu.Unlock()

	e.unhook()
	e.cancel()
	e.wg.Wait()
}

func pendingKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
