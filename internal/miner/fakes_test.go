package miner

import (
	"errors"
	"io"
	"log"
	"time"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/sim/inventory"
)

var (
	scrapDef = &inventory.ItemDef{ID: "scrap", Kind: "MATERIAL", Stackable: 100}
	appleDef = &inventory.ItemDef{ID: "apple", Kind: "FOOD", Stackable: 10}
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

type bareEntity struct {
	id        host.EntityID
	short     string
	skin      uint64
	destroyed bool
}

func (e *bareEntity) ID() host.EntityID       { return e.id }
func (e *bareEntity) ShortPrefabName() string { return e.short }
func (e *bareEntity) PrefabName() string      { return "assets/" + e.short + ".prefab" }
func (e *bareEntity) SkinID() uint64          { return e.skin }
func (e *bareEntity) IsDestroyed() bool       { return e.destroyed }

// storageFridge has built-in storage, a label and an energy accessor.
type storageFridge struct {
	bareEntity
	inv    *inventory.Container
	label  string
	energy int
}

func (f *storageFridge) Inventory() *inventory.Container { return f.inv }
func (f *storageFridge) SetDisplayName(n string) error   { f.label = n; return nil }
func (f *storageFridge) CurrentEnergy() (int, error)     { return f.energy, nil }

type storageComponent struct{ inv *inventory.Container }

func (s *storageComponent) Inventory() *inventory.Container { return s.inv }

type componentEntity struct {
	bareEntity
	comps []any
}

func (e *componentEntity) Components() []any { return e.comps }

type childNode struct {
	comps    []any
	children []any
}

func (n *childNode) Components() []any { return n.comps }
func (n *childNode) Children() []any   { return n.children }

type parentEntity struct {
	bareEntity
	children []any
}

func (e *parentEntity) Children() []any { return e.children }

// fieldEntity only exposes its container as a struct field.
type fieldEntity struct {
	bareEntity
	Storage *inventory.Container
}

type getterEntity struct {
	bareEntity
	inv *inventory.Container
}

func (e *getterEntity) Locker() *inventory.Container { return e.inv }

type panickyGetter struct{ bareEntity }

func (e *panickyGetter) Broken() *inventory.Container { panic("boom") }

type holderComponent struct {
	Inner *inventory.Container
}

type introspectChildEntity struct {
	bareEntity
	comps []any
}

func (e *introspectChildEntity) Components() []any { return e.comps }

// power shapes

type energyEntity struct {
	bareEntity
	n   int
	err error
}

func (e *energyEntity) CurrentEnergy() (int, error) { return e.n, e.err }

type passthroughEntity struct {
	bareEntity
	n int
}

func (e *passthroughEntity) PassthroughAmount(int) (int, error) { return e.n, nil }

type flagEntity struct {
	bareEntity
	on bool
}

func (e *flagEntity) IsPowered() bool { return e.on }

type brokenEnergyEntity struct {
	bareEntity
	flag bool
}

func (e *brokenEnergyEntity) CurrentEnergy() (int, error) { return 0, errors.New("not wired") }
func (e *brokenEnergyEntity) IsPowered() bool             { return e.flag }

type panickyEnergyEntity struct {
	bareEntity
	through int
}

func (e *panickyEnergyEntity) CurrentEnergy() (int, error)        { panic("null ref") }
func (e *panickyEnergyEntity) PassthroughAmount(int) (int, error) { return e.through, nil }

// timers

type fakeTimer struct {
	interval  time.Duration
	fn        func()
	destroyed bool
}

func (t *fakeTimer) Destroy()        { t.destroyed = true }
func (t *fakeTimer) Destroyed() bool { return t.destroyed }

type fakeTimers struct{ armed []*fakeTimer }

func (f *fakeTimers) Every(d time.Duration, fn func()) host.Timer {
	t := &fakeTimer{interval: d, fn: fn}
	f.armed = append(f.armed, t)
	return t
}

func (f *fakeTimers) live() []*fakeTimer {
	var out []*fakeTimer
	for _, t := range f.armed {
		if !t.destroyed {
			out = append(out, t)
		}
	}
	return out
}

// fakeHost is a minimal Host for plugin tests.
type fakeHost struct {
	fakeTimers
	entities []host.Entity
	defs     map[string]*inventory.ItemDef
}

func newFakeHost(entities ...host.Entity) *fakeHost {
	return &fakeHost{entities: entities, defs: map[string]*inventory.ItemDef{"scrap": scrapDef, "apple": appleDef}}
}

func (h *fakeHost) Entities() []host.Entity { return h.entities }

func (h *fakeHost) FindItemDefinition(id string) (*inventory.ItemDef, bool) {
	d, ok := h.defs[id]
	return d, ok
}

func (h *fakeHost) CreateByName(id string, amount int, skin uint64) (*inventory.Item, error) {
	d, ok := h.defs[id]
	if !ok {
		return nil, errors.New("unknown item")
	}
	it := inventory.NewItem(d, amount)
	it.Skin = skin
	return it, nil
}

type memSink struct{ entries []ProductionEntry }

func (m *memSink) WriteProduction(e ProductionEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func newFridge(id host.EntityID, energy int) *storageFridge {
	return &storageFridge{
		bareEntity: bareEntity{id: id, short: "fridge.deployed", skin: 7},
		inv:        inventory.NewContainer(6),
		energy:     energy,
	}
}
