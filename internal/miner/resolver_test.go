package miner

import (
	"testing"

	"scrapworks.ai/internal/sim/inventory"
)

func TestResolver_Strategies(t *testing.T) {
	inv := func() *inventory.Container { return inventory.NewContainer(4) }

	direct := newFridge(1, 0)

	compInv := inv()
	viaComponent := &componentEntity{bareEntity: bareEntity{id: 2}, comps: []any{"noise", &storageComponent{inv: compInv}}}

	childInv := inv()
	deep := &childNode{comps: []any{&storageComponent{inv: childInv}}}
	viaChild := &parentEntity{bareEntity: bareEntity{id: 3}, children: []any{&childNode{children: []any{deep}}}}

	fieldInv := inv()
	viaField := &fieldEntity{bareEntity: bareEntity{id: 4}, Storage: fieldInv}

	getInv := inv()
	viaGetter := &getterEntity{bareEntity: bareEntity{id: 5}, inv: getInv}

	holderInv := inv()
	viaHolder := &introspectChildEntity{bareEntity: bareEntity{id: 6}, comps: []any{&holderComponent{Inner: holderInv}}}

	r := NewResolver(quietLogger())
	checks := []struct {
		name string
		got  func() (*inventory.Container, Strategy)
		want *inventory.Container
		st   Strategy
	}{
		{"direct", func() (*inventory.Container, Strategy) { return r.find(direct) }, direct.inv, StrategyDirect},
		{"component", func() (*inventory.Container, Strategy) { return r.find(viaComponent) }, compInv, StrategyComponent},
		{"child", func() (*inventory.Container, Strategy) { return r.find(viaChild) }, childInv, StrategyChildComponent},
		{"field", func() (*inventory.Container, Strategy) { return r.find(viaField) }, fieldInv, StrategyIntrospectSelf},
		{"getter", func() (*inventory.Container, Strategy) { return r.find(viaGetter) }, getInv, StrategyIntrospectSelf},
		{"holder", func() (*inventory.Container, Strategy) { return r.find(viaHolder) }, holderInv, StrategyIntrospectChildren},
	}
	for _, tc := range checks {
		c, st := tc.got()
		if c != tc.want {
			t.Fatalf("%s: wrong container %p want %p", tc.name, c, tc.want)
		}
		if st != tc.st {
			t.Fatalf("%s: strategy=%s want %s", tc.name, st, tc.st)
		}
	}
}

func TestResolver_NotFoundIsRetryable(t *testing.T) {
	r := NewResolver(quietLogger())
	e := &panickyGetter{bareEntity: bareEntity{id: 9, short: "fridge.deployed"}}
	c, out := r.Resolve(e)
	if c != nil || out != OutcomeRetryable {
		t.Fatalf("got %v %s, want nil retryable", c, out)
	}
	if _, ok := r.Lookup(9); ok {
		t.Fatalf("miss must not be cached")
	}
}

func TestResolver_DestroyedIsFatal(t *testing.T) {
	r := NewResolver(quietLogger())
	f := newFridge(1, 0)
	f.destroyed = true
	if c, out := r.Resolve(f); c != nil || out != OutcomeFatal {
		t.Fatalf("got %v %s", c, out)
	}
}

func TestResolver_CachedResolveDoesNotProbe(t *testing.T) {
	r := NewResolver(quietLogger())
	f := newFridge(1, 0)
	c1, _ := r.Resolve(f)
	c2, _ := r.Resolve(f)
	if c1 != c2 || c1 != f.inv {
		t.Fatalf("resolve not idempotent")
	}
	st := r.Stats()
	if st.Probes != 1 || st.Hits != 1 || st.Misses != 1 || st.Cached != 1 {
		t.Fatalf("stats=%+v", st)
	}
	if !r.Contains(f.inv) {
		t.Fatalf("membership missing")
	}
}

func TestResolver_PurgeDropsMembership(t *testing.T) {
	r := NewResolver(quietLogger())
	f := newFridge(1, 0)
	r.Resolve(f)
	r.Purge(1)
	if r.Contains(f.inv) {
		t.Fatalf("membership survived purge")
	}
	if _, ok := r.Lookup(1); ok {
		t.Fatalf("cache survived purge")
	}
}

func TestResolver_SharedContainerKeepsMembershipUntilLastOwner(t *testing.T) {
	shared := inventory.NewContainer(4)
	a := &componentEntity{bareEntity: bareEntity{id: 1}, comps: []any{&storageComponent{inv: shared}}}
	b := &componentEntity{bareEntity: bareEntity{id: 2}, comps: []any{&storageComponent{inv: shared}}}

	r := NewResolver(quietLogger())
	if c, _ := r.Resolve(a); c != shared {
		t.Fatalf("a resolved to %p", c)
	}
	if c, _ := r.Resolve(b); c != shared {
		t.Fatalf("b resolved to %p", c)
	}

	r.Purge(2)
	if !r.Contains(shared) {
		t.Fatalf("membership dropped while entity 1 still resolves to it")
	}
	if c, ok := r.Lookup(1); !ok || c != shared {
		t.Fatalf("entity 1 cache lost")
	}

	r.Purge(1)
	if r.Contains(shared) {
		t.Fatalf("membership survived last purge")
	}
}

func TestResolver_HierarchyCycleTerminates(t *testing.T) {
	a := &childNode{}
	b := &childNode{children: []any{a}}
	a.children = []any{b}
	e := &parentEntity{bareEntity: bareEntity{id: 1}, children: []any{a}}

	r := NewResolver(quietLogger())
	if c, out := r.Resolve(e); c != nil || out != OutcomeRetryable {
		t.Fatalf("got %v %s", c, out)
	}
}
