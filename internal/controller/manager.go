package controller

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
	"github.com/glyphkey/kbcompanion/internal/syncer"
)

// Options configures a Manager.
type Options struct {
	Store  prefs.Store
	Bridge bridge.Bridge
	Mirror cloud.Mirror
	// DocID is the cloud document of this device; empty disables mirroring.
	DocID string
	Bus   *events.Bus

	Delay         time.Duration
	NotifyDelay   time.Duration
	BridgeTimeout time.Duration
	CloudTimeout  time.Duration

	Logger *slog.Logger
}

// Manager owns the open settings controllers and the record screens.
type Manager struct {
	ctx  context.Context
	opts Options
	log  *slog.Logger

	mu   sync.Mutex
	open map[string]*Controller

	Prompts    *Prompts
	Dictionary *Dictionary
	Clipboard  *Clipboard
	Status     *Status
}

// NewManager returns a Manager. Controllers opened through it live until
// closed or until ctx is cancelled.
func NewManager(ctx context.Context, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Mirror == nil {
		opts.Mirror = cloud.Nop{}
	}
	if opts.BridgeTimeout <= 0 {
		opts.BridgeTimeout = syncer.DefaultBridgeTimeout
	}
	m := &Manager{
		ctx:  ctx,
		opts: opts,
		log:  opts.Logger,
		open: make(map[string]*Controller),
	}
	rec := recordDeps{bridge: opts.Bridge, store: opts.Store, bus: opts.Bus, timeout: opts.BridgeTimeout, log: opts.Logger}
	m.Prompts = &Prompts{recordDeps: rec}
	m.Dictionary = &Dictionary{recordDeps: rec}
	m.Clipboard = &Clipboard{recordDeps: rec}
	m.Status = &Status{recordDeps: rec}
	return m
}

// Areas returns the known feature areas, sorted.
func Areas() []string {
	areas := make([]string, 0, len(areaDefs))
	for a := range areaDefs {
		areas = append(areas, a)
	}
	sort.Strings(areas)
	return areas
}

// Open returns the controller for area, loading it from the store when the
// screen is not open yet.
func (m *Manager) Open(area string) (*Controller, error) {
	def, ok := areaDefs[area]
	if !ok {
		return nil, models.ErrNotFound(fmt.Sprintf("unknown settings area %q", area))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.open[area]; ok && !c.engine.Disposed() {
		return c, nil
	}

	cfg := syncer.Config{
		Schema:        def.schema,
		Store:         m.opts.Store,
		Bridge:        m.opts.Bridge,
		Pushes:        def.pushes,
		Mirror:        m.opts.Mirror,
		DocID:         m.opts.DocID,
		Cloud:         def.cloud,
		Bus:           m.opts.Bus,
		Delay:         m.opts.Delay,
		NotifyDelay:   m.opts.NotifyDelay,
		BridgeTimeout: m.opts.BridgeTimeout,
		CloudTimeout:  m.opts.CloudTimeout,
		Logger:        m.log,
	}
	e, err := syncer.New(m.ctx, cfg)
	if err != nil {
		return nil, models.ErrInternal(err.Error())
	}
	c := &Controller{engine: e}
	m.open[area] = c
	m.log.Debug("controller: opened", "area", area)
	return c, nil
}

// Get returns the open controller for area.
func (m *Manager) Get(area string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.open[area]
	if !ok || c.engine.Disposed() {
		return nil, false
	}
	return c, true
}

// Close disposes the controller for area. Pending edits that have not been
// flushed are dropped, as when a screen is left before its timer fires.
func (m *Manager) Close(area string) error {
	m.mu.Lock()
	c, ok := m.open[area]
	delete(m.open, area)
	m.mu.Unlock()
	if !ok {
		return models.ErrNotFound(fmt.Sprintf("settings area %q is not open", area))
	}
	c.Dispose()
	m.log.Debug("controller: closed", "area", area)
	return nil
}

// CloseAll flushes and disposes every open controller, then flushes the
// preference store. Used on shutdown.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	open := m.open
	m.open = make(map[string]*Controller)
	m.mu.Unlock()

	var errs []error
	for area, c := range open {
		if err := c.engine.Close(ctx); err != nil {
			m.log.Warn("controller: flush on close failed", "area", area, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", area, err))
		}
	}
	if err := m.opts.Store.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush preferences: %w", err))
	}
	return errors.Join(errs...)
}

// Reload refreshes open controllers after the preference file changed
// outside this process. Controllers with pending edits keep their values.
func (m *Manager) Reload() {
	m.mu.Lock()
	open := make([]*Controller, 0, len(m.open))
	for _, c := range m.open {
		open = append(open, c)
	}
	m.mu.Unlock()

	for _, c := range open {
		c.engine.Reload()
	}
}

// Snapshot returns the current values of every area: open controllers report
// their in-memory values, closed areas are read from the store.
func (m *Manager) Snapshot() map[string]settings.Values {
	out := make(map[string]settings.Values, len(areaDefs))
	for area, def := range areaDefs {
		if c, ok := m.Get(area); ok {
			out[area] = c.Values()
			continue
		}
		out[area] = settings.Load(m.opts.Store, def.schema)
	}
	return out
}

// OpenAreas returns the areas with an open controller, sorted.
func (m *Manager) OpenAreas() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	areas := make([]string, 0, len(m.open))
	for a, c := range m.open {
		if !c.engine.Disposed() {
			areas = append(areas, a)
		}
	}
	sort.Strings(areas)
	return areas
}
