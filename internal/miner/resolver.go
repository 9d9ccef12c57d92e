package miner

import (
	"log"
	"reflect"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/sim/inventory"
)

// Strategy names the lookup that found an entity's container.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyDirect
	StrategyComponent
	StrategyChildComponent
	StrategyIntrospectSelf
	StrategyIntrospectChildren
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyComponent:
		return "component"
	case StrategyChildComponent:
		return "child_component"
	case StrategyIntrospectSelf:
		return "introspect_self"
	case StrategyIntrospectChildren:
		return "introspect_children"
	default:
		return "none"
	}
}

// maxHierarchyDepth bounds the descendant walk.
const maxHierarchyDepth = 16

type ResolverStats struct {
	Hits   uint64
	Misses uint64
	// Probes counts full strategy-chain lookups. A cache hit never probes.
	Probes uint64
	Cached int
}

// Resolver finds and caches the item container of producer entities.
//
// The membership set holds exactly the containers resolved from tracked entities; the
// acceptance filter answers from it.
type Resolver struct {
	cache   map[host.EntityID]*inventory.Container
	// members maps a container to every tracked entity that resolved to it.
	members map[*inventory.Container]map[host.EntityID]struct{}

	stats ResolverStats

	log   *log.Logger
	debug bool
}

func NewResolver(logger *log.Logger) *Resolver {
	return &Resolver{
		cache:   map[host.EntityID]*inventory.Container{},
		members: map[*inventory.Container]map[host.EntityID]struct{}{},
		log:     logger,
	}
}

func (r *Resolver) SetDebug(on bool) { r.debug = on }

// Resolve returns the entity's container, from cache when possible.
func (r *Resolver) Resolve(e host.Entity) (*inventory.Container, Outcome) {
	if e == nil || e.IsDestroyed() {
		return nil, OutcomeFatal
	}
	id := e.ID()
	if c := r.cache[id]; c != nil {
		r.stats.Hits++
		return c, OutcomeOK
	}
	r.stats.Misses++

	c, strategy := r.find(e)
	if c == nil {
		r.log.Printf("inventory not found for %d (type %T, prefab %q, short %q)", id, e, e.PrefabName(), e.ShortPrefabName())
		return nil, OutcomeRetryable
	}
	if r.debug {
		r.log.Printf("[debug] inventory for %d resolved via %s", id, strategy)
	}
	r.cache[id] = c
	owners := r.members[c]
	if owners == nil {
		owners = map[host.EntityID]struct{}{}
		r.members[c] = owners
	}
	owners[id] = struct{}{}
	return c, OutcomeOK
}

// Lookup reads the cache without probing.
func (r *Resolver) Lookup(id host.EntityID) (*inventory.Container, bool) {
	c, ok := r.cache[id]
	return c, ok && c != nil
}

// Contains reports whether c was resolved from a currently tracked entity.
func (r *Resolver) Contains(c *inventory.Container) bool {
	if c == nil {
		return false
	}
	return len(r.members[c]) > 0
}

// Purge drops the cache entry of one entity. Its container leaves the membership set
// only when no other tracked entity resolved to it.
func (r *Resolver) Purge(id host.EntityID) {
	c, ok := r.cache[id]
	if !ok {
		return
	}
	delete(r.cache, id)
	if owners := r.members[c]; owners != nil {
		delete(owners, id)
		if len(owners) == 0 {
			delete(r.members, c)
		}
	}
}

func (r *Resolver) Reset() {
	r.cache = map[host.EntityID]*inventory.Container{}
	r.members = map[*inventory.Container]map[host.EntityID]struct{}{}
}

func (r *Resolver) Stats() ResolverStats {
	s := r.stats
	s.Cached = len(r.cache)
	return s
}

func (r *Resolver) find(e host.Entity) (*inventory.Container, Strategy) {
	r.stats.Probes++

	// 1) built-in storage
	if c := storageOf(e); c != nil {
		return c, StrategyDirect
	}

	// 2) storage component on the entity itself
	comps := componentsOf(e)
	for _, comp := range comps {
		if c := storageOf(comp); c != nil {
			return c, StrategyComponent
		}
	}

	// 3) storage on descendants, shallow first
	desc := descendants(e)
	for _, n := range desc {
		if c := storageOf(n); c != nil {
			return c, StrategyChildComponent
		}
		for _, comp := range componentsOf(n) {
			if c := storageOf(comp); c != nil {
				return c, StrategyChildComponent
			}
		}
	}

	// 4) container-typed members of the entity
	if c := introspectContainer(e); c != nil {
		return c, StrategyIntrospectSelf
	}

	// 5) container-typed members of every component and descendant
	for _, comp := range comps {
		if c := introspectContainer(comp); c != nil {
			return c, StrategyIntrospectChildren
		}
	}
	for _, n := range desc {
		if c := introspectContainer(n); c != nil {
			return c, StrategyIntrospectChildren
		}
		for _, comp := range componentsOf(n) {
			if c := introspectContainer(comp); c != nil {
				return c, StrategyIntrospectChildren
			}
		}
	}
	return nil, StrategyNone
}

func storageOf(v any) (c *inventory.Container) {
	defer func() {
		if recover() != nil {
			c = nil
		}
	}()
	if s, ok := v.(host.StorageEntity); ok && !isNilValue(v) {
		return s.Inventory()
	}
	return nil
}

func componentsOf(v any) (out []any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	if h, ok := v.(host.ComponentHolder); ok && !isNilValue(v) {
		return h.Components()
	}
	return nil
}

func childrenOf(v any) (out []any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	if p, ok := v.(host.Parent); ok && !isNilValue(v) {
		return p.Children()
	}
	return nil
}

// descendants lists every node below root, breadth first.
func descendants(root any) []any {
	var out []any
	seen := map[any]bool{}
	mark := func(n any) bool {
		if n == nil || reflect.TypeOf(n).Kind() != reflect.Pointer {
			return true
		}
		if seen[n] {
			return false
		}
		seen[n] = true
		return true
	}
	mark(root)

	level := childrenOf(root)
	for depth := 0; depth < maxHierarchyDepth && len(level) > 0; depth++ {
		var next []any
		for _, n := range level {
			if n == nil || !mark(n) {
				continue
			}
			out = append(out, n)
			next = append(next, childrenOf(n)...)
		}
		level = next
	}
	return out
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
