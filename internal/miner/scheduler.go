package miner

import (
	"log"
	"time"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/sim/inventory"
)

// Skip reasons recorded in a TickReport.
const (
	SkipNotIO        = "not_io"
	SkipUnderpowered = "underpowered"
)

// Settings are the per-pass production parameters.
type Settings struct {
	RequiredPower int
	Amount        int
}

type EntityFailure struct {
	EntityID host.EntityID
	Stage    string // "resolve" | "insert"
	Outcome  Outcome
	Err      error
}

type TickReport struct {
	Tracked  int
	Produced int
	Inserted int
	Skipped  map[string]int
	Removed  int
	Failures []EntityFailure
	Duration time.Duration
}

type SchedulerStats struct {
	Running  bool
	Interval time.Duration

	Ticks         uint64
	InsertedTotal uint64
	FailuresTotal uint64
	Last          TickReport
}

// ProductionEntry is written to the production sink for every producing entity.
type ProductionEntry struct {
	Time      time.Time `json:"time"`
	EntityID  uint64    `json:"entity_id"`
	Watts     int       `json:"watts"`
	Source    string    `json:"source"`
	Requested int       `json:"requested"`
	Inserted  int       `json:"inserted"`
	Forced    int       `json:"forced,omitempty"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
}

type ProductionSink interface {
	WriteProduction(ProductionEntry) error
}

// Scheduler runs the production pass on a recurring host timer. It is idle until Start
// and holds at most one armed timer.
type Scheduler struct {
	timers host.Timers
	timer  host.Timer

	interval time.Duration
	settings Settings
	resource *inventory.ItemDef

	registry *Registry
	resolver *Resolver
	gate     *PowerGate
	inserter *Inserter
	sink     ProductionSink

	stats SchedulerStats

	now   func() time.Time
	log   *log.Logger
	debug bool
}

type SchedulerDeps struct {
	Timers   host.Timers
	Registry *Registry
	Resolver *Resolver
	Gate     *PowerGate
	Inserter *Inserter
	Sink     ProductionSink
	Logger   *log.Logger
}

func NewScheduler(deps SchedulerDeps, settings Settings, resource *inventory.ItemDef) *Scheduler {
	return &Scheduler{
		timers:   deps.Timers,
		registry: deps.Registry,
		resolver: deps.Resolver,
		gate:     deps.Gate,
		inserter: deps.Inserter,
		sink:     deps.Sink,
		settings: settings,
		resource: resource,
		now:      time.Now,
		log:      deps.Logger,
	}
}

func (s *Scheduler) SetDebug(on bool) { s.debug = on }

// Configure replaces the production parameters used by the next pass.
func (s *Scheduler) Configure(settings Settings, resource *inventory.ItemDef) {
	s.settings = settings
	s.resource = resource
}

// Start arms the timer, cancelling any previously armed one first.
func (s *Scheduler) Start(interval time.Duration) {
	s.Stop()
	if interval < time.Second {
		interval = time.Second
	}
	s.interval = interval
	s.timer = s.timers.Every(interval, func() { s.Tick() })
}

// Stop cancels the timer. It is safe to call when idle.
func (s *Scheduler) Stop() {
	if s.timer != nil {
		s.timer.Destroy()
		s.timer = nil
	}
}

func (s *Scheduler) Running() bool { return s.timer != nil && !s.timer.Destroyed() }

func (s *Scheduler) Interval() time.Duration { return s.interval }

// Tick runs one production pass. One entity failing never stops the pass.
func (s *Scheduler) Tick() TickReport {
	start := s.now()
	s.registry.DrainPending()

	rep := TickReport{Skipped: map[string]int{}}
	defer func() {
		rep.Duration = s.now().Sub(start)
		s.stats.Ticks++
		s.stats.InsertedTotal += uint64(rep.Inserted)
		s.stats.FailuresTotal += uint64(len(rep.Failures))
		s.stats.Last = rep
	}()

	rep.Tracked = s.registry.Len()
	if rep.Tracked == 0 {
		return rep
	}

	var dead []host.EntityID
	var live []host.Entity
	for _, e := range s.registry.Snapshot() {
		if e.IsDestroyed() {
			dead = append(dead, e.ID())
			continue
		}
		live = append(live, e)
	}
	s.registry.Remove(dead...)
	rep.Removed = len(dead)

	if s.resource == nil {
		s.log.Printf("could not find item definition for %q", ResourceItem)
		return rep
	}
	if s.settings.Amount <= 0 {
		if s.debug {
			s.log.Printf("[debug] production amount %d; nothing to produce", s.settings.Amount)
		}
		return rep
	}

	for _, e := range live {
		if !HasPowerInput(e) {
			rep.Skipped[SkipNotIO]++
			if s.debug {
				s.log.Printf("[debug] %d has no power input", e.ID())
			}
			continue
		}

		p := s.gate.ReadAdjustedPower(e)
		if p.Watts < s.settings.RequiredPower {
			rep.Skipped[SkipUnderpowered]++
			if s.debug {
				s.log.Printf("[debug] fridge %d insufficient power %d/%d; skipping", e.ID(), p.Watts, s.settings.RequiredPower)
			}
			continue
		}

		s.produce(e, p, &rep)
	}
	return rep
}

func (s *Scheduler) produce(e host.Entity, p PowerReading, rep *TickReport) {
	id := e.ID()
	c, out := s.resolver.Resolve(e)
	if c == nil {
		rep.Failures = append(rep.Failures, EntityFailure{EntityID: id, Stage: "resolve", Outcome: out, Err: ErrNoContainer})
		return
	}

	res := s.inserter.Insert(c, s.resource, s.settings.Amount)
	rep.Inserted += res.Inserted
	if res.Inserted > 0 {
		rep.Produced++
	}
	if res.Err != nil {
		rep.Failures = append(rep.Failures, EntityFailure{EntityID: id, Stage: "insert", Outcome: res.Outcome, Err: res.Err})
		s.log.Printf("fridge %d: insert %s: %v (%s)", id, s.resource.ID, res.Err, res.Outcome)
	}
	if s.debug {
		s.log.Printf("[debug] fridge %d produced %d %s (requested %d)", id, res.Inserted, s.resource.ID, res.Requested)
	}

	if s.sink != nil {
		entry := ProductionEntry{
			Time:      s.now().UTC(),
			EntityID:  uint64(id),
			Watts:     p.Watts,
			Source:    p.Source.String(),
			Requested: res.Requested,
			Inserted:  res.Inserted,
			Forced:    res.Forced,
			Outcome:   res.Outcome.String(),
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		if err := s.sink.WriteProduction(entry); err != nil && s.debug {
			s.log.Printf("[debug] production sink: %v", err)
		}
	}
}

func (s *Scheduler) Stats() SchedulerStats {
	st := s.stats
	st.Running = s.Running()
	st.Interval = s.interval
	return st
}
