package miner

import (
	"log"
	"strings"

	"scrapworks.ai/internal/host"
)

// Signature identifies producer entities. Both fields must match exactly.
type Signature struct {
	ShortPrefabName string
	SkinID          uint64
}

func (s Signature) Matches(e host.Entity) bool {
	if e == nil {
		return false
	}
	return e.ShortPrefabName() == s.ShortPrefabName && e.SkinID() == s.SkinID
}

// Registry is the live set of tracked producer entities.
//
// Spawn notifications are not inspected when they arrive: the host may still be
// constructing the object. They are queued and examined by DrainPending at the start
// of the next scheduling cycle. Despawns are applied immediately.
type Registry struct {
	sig   Signature
	label string

	tracked map[host.EntityID]host.Entity
	pending []host.Entity

	resolver *Resolver

	log   *log.Logger
	debug bool
}

func NewRegistry(sig Signature, resolver *Resolver, logger *log.Logger) *Registry {
	return &Registry{
		sig:      sig,
		tracked:  map[host.EntityID]host.Entity{},
		resolver: resolver,
		log:      logger,
	}
}

func (r *Registry) SetDebug(on bool) { r.debug = on }

// SetSignature changes the producer signature for entities examined from now on.
// Already tracked entities are kept.
func (r *Registry) SetSignature(sig Signature) { r.sig = sig }

func (r *Registry) Signature() Signature { return r.sig }

// SetLabel sets the presentation name applied to newly tracked entities.
func (r *Registry) SetLabel(label string) { r.label = label }

func (r *Registry) Matches(e host.Entity) bool { return r.sig.Matches(e) }

// ScanAll tracks every live matching entity and returns how many matched.
func (r *Registry) ScanAll(entities []host.Entity) int {
	found := 0
	for _, e := range entities {
		if e == nil || e.IsDestroyed() || !r.sig.Matches(e) {
			continue
		}
		found++
		r.track(e)
	}
	return found
}

// OnSpawned queues e for inspection on the next scheduling cycle.
func (r *Registry) OnSpawned(e host.Entity) {
	if e == nil {
		return
	}
	r.pending = append(r.pending, e)
}

// DrainPending runs the deferred spawn inspections and returns how many entities
// became tracked.
func (r *Registry) DrainPending() int {
	if len(r.pending) == 0 {
		return 0
	}
	queued := r.pending
	r.pending = nil
	n := 0
	for _, e := range queued {
		if e.IsDestroyed() || !r.sig.Matches(e) {
			continue
		}
		r.track(e)
		n++
	}
	return n
}

// Pending returns the number of queued spawn inspections.
func (r *Registry) Pending() int { return len(r.pending) }

// OnDespawned removes e and purges its cached container.
func (r *Registry) OnDespawned(e host.Entity) {
	if e == nil {
		return
	}
	id := e.ID()
	delete(r.tracked, id)
	r.resolver.Purge(id)
	if len(r.pending) == 0 {
		return
	}
	kept := r.pending[:0]
	for _, p := range r.pending {
		if p != e {
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(r.pending); i++ {
		r.pending[i] = nil
	}
	r.pending = kept
}

func (r *Registry) track(e host.Entity) {
	id := e.ID()
	r.tracked[id] = e
	if r.debug {
		r.log.Printf("[debug] tracking fridge %d (skin %d)", id, e.SkinID())
	}

	// Warm the container cache so the acceptance filter knows this container.
	r.resolver.Resolve(e)

	if out := setDisplayName(e, r.label); out.Failed() && r.debug {
		r.log.Printf("[debug] set display name on %d: %s", id, out)
	}
}

func (r *Registry) Len() int { return len(r.tracked) }

func (r *Registry) Contains(id host.EntityID) bool {
	_, ok := r.tracked[id]
	return ok
}

func (r *Registry) Get(id host.EntityID) (host.Entity, bool) {
	e, ok := r.tracked[id]
	return e, ok
}

// Snapshot copies the tracked set. Order is unspecified.
func (r *Registry) Snapshot() []host.Entity {
	out := make([]host.Entity, 0, len(r.tracked))
	for _, e := range r.tracked {
		out = append(out, e)
	}
	return out
}

// Remove untracks entities in one batch, purging their cache entries.
func (r *Registry) Remove(ids ...host.EntityID) {
	for _, id := range ids {
		delete(r.tracked, id)
		r.resolver.Purge(id)
	}
}

// Clear drops every tracked entity, queued spawn and cache entry.
func (r *Registry) Clear() {
	r.tracked = map[host.EntityID]host.Entity{}
	r.pending = nil
	r.resolver.Reset()
}

func setDisplayName(e host.Entity, name string) Outcome {
	if strings.TrimSpace(name) == "" || e.IsDestroyed() {
		return OutcomeOK
	}
	l, ok := e.(host.Labeler)
	if !ok {
		return OutcomeUnsupported
	}
	if err := l.SetDisplayName(name); err != nil {
		return OutcomeFatal
	}
	return OutcomeOK
}
