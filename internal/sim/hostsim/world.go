// Package hostsim is an in-process host: it owns entities, containers, players and
// timers, and calls plugin hooks from a single loop goroutine.
package hostsim

import (
	"io"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/sim/catalogs"
	"scrapworks.ai/internal/sim/inventory"
)

// Hooks are the lifecycle callbacks a plugin registers with the host.
type Hooks interface {
	OnServerInitialized()
	OnFrame()
	OnEntitySpawned(e host.Entity)
	OnEntityKill(e host.Entity)
	OnServerSave()
	CanAcceptItem(c *inventory.Container, it *inventory.Item, slot int) host.Verdict
}

type Config struct {
	FrameRateHz int
	// FridgeSlots is the container capacity of deployed fridges.
	FridgeSlots int
	PlayerSlots int
}

func (c Config) withDefaults() Config {
	if c.FrameRateHz <= 0 {
		c.FrameRateHz = 10
	}
	if c.FridgeSlots <= 0 {
		c.FridgeSlots = 48
	}
	if c.PlayerSlots <= 0 {
		c.PlayerSlots = 30
	}
	return c
}

type spawnReq struct {
	e    host.Entity
	done chan struct{}
}

// World is the simulation state. Everything except the request methods (Submit,
// RequestSpawn, RequestKill, RequestSave, Stop) must be used from the loop goroutine,
// or before Run starts.
type World struct {
	cfg Config

	catalog catalogs.ItemCatalog
	perms   *PermissionStore

	entities map[host.EntityID]host.Entity
	players  map[uint64]*Player
	hooks    []Hooks

	timers []*timer
	now    time.Time
	frame  uint64

	initialized bool

	nextEntity atomic.Uint64

	// inbound requests from other goroutines
	spawn chan spawnReq
	kill  chan host.EntityID
	exec  chan func()
	save  chan struct{}
	stop  chan struct{}

	log *log.Logger
}

func New(cfg Config, cat catalogs.ItemCatalog, logger *log.Logger) *World {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &World{
		cfg:      cfg.withDefaults(),
		catalog:  cat,
		perms:    NewPermissionStore(),
		entities: map[host.EntityID]host.Entity{},
		players:  map[uint64]*Player{},
		now:      time.Unix(0, 0).UTC(),
		spawn:    make(chan spawnReq, 64),
		kill:     make(chan host.EntityID, 64),
		exec:     make(chan func(), 64),
		save:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		log:      logger,
	}
}

func (w *World) Config() Config                { return w.cfg }
func (w *World) Permissions() *PermissionStore { return w.perms }
func (w *World) Catalog() catalogs.ItemCatalog { return w.catalog }
func (w *World) Now() time.Time                { return w.now }
func (w *World) Frame() uint64                 { return w.frame }
func (w *World) FrameInterval() time.Duration  { return time.Second / time.Duration(w.cfg.FrameRateHz) }
func (w *World) NewEntityID() host.EntityID    { return host.EntityID(w.nextEntity.Add(1)) }

func (w *World) Player(id uint64) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// Attach registers plugin hooks. Plugins attached after initialization are not
// initialized retroactively.
func (w *World) Attach(h Hooks) { w.hooks = append(w.hooks, h) }

// Initialize runs OnServerInitialized once.
func (w *World) Initialize() {
	if w.initialized {
		return
	}
	w.initialized = true
	for _, h := range w.hooks {
		h.OnServerInitialized()
	}
}

// Entities lists live entities in id order.
func (w *World) Entities() []host.Entity {
	out := make([]host.Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (w *World) Entity(id host.EntityID) (host.Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Spawn adds e to the world and notifies plugins.
func (w *World) Spawn(e host.Entity) {
	if e == nil {
		return
	}
	w.entities[e.ID()] = e
	for _, h := range w.hooks {
		h.OnEntitySpawned(e)
	}
}

// Kill notifies plugins, then destroys the entity and closes its storage.
func (w *World) Kill(id host.EntityID) bool {
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	for _, h := range w.hooks {
		h.OnEntityKill(e)
	}
	delete(w.entities, id)
	if d, ok := e.(interface{ destroy() }); ok {
		d.destroy()
	}
	return true
}

// Save runs the OnServerSave hooks.
func (w *World) Save() {
	for _, h := range w.hooks {
		h.OnServerSave()
	}
}

// canAccept dispatches the container acceptance hook; the first plugin with an
// opinion wins.
func (w *World) canAccept(c *inventory.Container, it *inventory.Item, slot int) host.Verdict {
	for _, h := range w.hooks {
		if v := h.CanAcceptItem(c, it, slot); v != host.VerdictNoOpinion {
			return v
		}
	}
	return host.VerdictNoOpinion
}
