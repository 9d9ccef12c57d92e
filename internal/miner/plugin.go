package miner

import (
	"io"
	"log"
	"time"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/sim/inventory"
	"scrapworks.ai/internal/sim/tuning"
)

// ResourceItem is the one item producers make.
const ResourceItem = "scrap"

// Host is what the plugin needs from the simulation.
type Host interface {
	host.Timers
	host.ItemFactory
	// Entities lists every live world object.
	Entities() []host.Entity
}

// Flusher persists state on save and shutdown.
type Flusher interface {
	Flush() error
}

type Options struct {
	Logger *log.Logger
	// ConfigPath is re-read by Reload. Empty disables reloading from disk.
	ConfigPath string
	Sink       ProductionSink
	Flushers   []Flusher
}

type Stats struct {
	Tracked   int
	Pending   int
	Scheduler SchedulerStats
	Resolver  ResolverStats
}

// Plugin wires the production engine to host lifecycle hooks. Every method must be
// called from the host loop.
type Plugin struct {
	host Host
	cfg  tuning.Tuning
	opts Options

	resolver  *Resolver
	registry  *Registry
	gate      *PowerGate
	inserter  *Inserter
	filter    *AcceptanceFilter
	scheduler *Scheduler

	log *log.Logger
}

func New(h Host, cfg tuning.Tuning, opts Options) *Plugin {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	p := &Plugin{host: h, cfg: cfg, opts: opts, log: logger}

	p.resolver = NewResolver(logger)
	p.registry = NewRegistry(signatureOf(cfg), p.resolver, logger)
	p.gate = NewPowerGate(cfg.InputCompensationWatts, logger)
	p.inserter = NewInserter(cfg.MaxFridgeSlotsToUse, logger)
	p.filter = NewAcceptanceFilter(ResourceItem, p.resolver, logger)
	p.scheduler = NewScheduler(SchedulerDeps{
		Timers:   h,
		Registry: p.registry,
		Resolver: p.resolver,
		Gate:     p.gate,
		Inserter: p.inserter,
		Sink:     opts.Sink,
		Logger:   logger,
	}, settingsOf(cfg), p.resourceDef())
	p.apply(cfg)
	return p
}

func signatureOf(cfg tuning.Tuning) Signature {
	return Signature{ShortPrefabName: cfg.FridgePrefabShortname, SkinID: cfg.TargetSkinID}
}

func settingsOf(cfg tuning.Tuning) Settings {
	return Settings{RequiredPower: cfg.RequiredPower, Amount: cfg.ScrapPerTick}
}

func (p *Plugin) resourceDef() *inventory.ItemDef {
	def, ok := p.host.FindItemDefinition(ResourceItem)
	if !ok {
		return nil
	}
	return def
}

func (p *Plugin) apply(cfg tuning.Tuning) {
	p.cfg = cfg
	p.registry.SetSignature(signatureOf(cfg))
	p.registry.SetLabel(cfg.Craft.ItemDisplayName)
	p.gate.SetCompensation(cfg.InputCompensationWatts)
	p.inserter.SetMaxSlots(cfg.MaxFridgeSlotsToUse)
	p.scheduler.Configure(settingsOf(cfg), p.resourceDef())

	debug := cfg.LogDebug
	p.resolver.SetDebug(debug)
	p.registry.SetDebug(debug)
	p.gate.SetDebug(debug)
	p.inserter.SetDebug(debug)
	p.filter.SetDebug(debug)
	p.scheduler.SetDebug(debug)
}

// Config returns the active configuration.
func (p *Plugin) Config() tuning.Tuning { return p.cfg }

func (p *Plugin) Registry() *Registry   { return p.registry }
func (p *Plugin) Resolver() *Resolver   { return p.resolver }
func (p *Plugin) Scheduler() *Scheduler { return p.scheduler }

// OnServerInitialized scans the world and starts production.
func (p *Plugin) OnServerInitialized() {
	found := p.registry.ScanAll(p.host.Entities())
	if p.cfg.LogDebug {
		p.log.Printf("initialized. found %d target fridges", found)
	}
	p.scheduler.Start(p.cfg.Interval())
}

// OnFrame runs deferred spawn inspections.
func (p *Plugin) OnFrame() { p.registry.DrainPending() }

func (p *Plugin) OnEntitySpawned(e host.Entity) { p.registry.OnSpawned(e) }

func (p *Plugin) OnEntityKill(e host.Entity) { p.registry.OnDespawned(e) }

func (p *Plugin) OnServerSave() { p.flush() }

func (p *Plugin) CanAcceptItem(c *inventory.Container, it *inventory.Item, slot int) host.Verdict {
	return p.filter.CanAcceptItem(c, it, slot)
}

// Unload stops production, drops all tracked state and flushes persisted state.
func (p *Plugin) Unload() {
	p.scheduler.Stop()
	p.registry.Clear()
	p.flush()
}

// Reload re-reads the configuration file (falling back to defaults), persists it and
// restarts the production timer. Tracked entities are kept.
func (p *Plugin) Reload() tuning.Tuning {
	if p.opts.ConfigPath != "" {
		cfg, _ := tuning.LoadOrDefault(p.opts.ConfigPath, p.log)
		if err := tuning.Save(p.opts.ConfigPath, cfg); err != nil {
			p.log.Printf("save tuning: %v", err)
		}
		p.apply(cfg)
	}
	p.scheduler.Start(p.cfg.Interval())
	return p.cfg
}

// CountMatching counts live world objects matching the producer signature, tracked
// or not.
func (p *Plugin) CountMatching() int {
	n := 0
	for _, e := range p.host.Entities() {
		if e != nil && !e.IsDestroyed() && p.registry.Matches(e) {
			n++
		}
	}
	return n
}

func (p *Plugin) Stats() Stats {
	return Stats{
		Tracked:   p.registry.Len(),
		Pending:   p.registry.Pending(),
		Scheduler: p.scheduler.Stats(),
		Resolver:  p.resolver.Stats(),
	}
}

// Interval is the active production period.
func (p *Plugin) Interval() time.Duration { return p.cfg.Interval() }

func (p *Plugin) flush() {
	for _, f := range p.opts.Flushers {
		if f == nil {
			continue
		}
		if err := f.Flush(); err != nil {
			p.log.Printf("failed to save data: %v", err)
		}
	}
}
