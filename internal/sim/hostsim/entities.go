package hostsim

import (
	"errors"
	"fmt"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/sim/inventory"
)

// PowerAPI selects which power accessor a deployed fridge exposes.
type PowerAPI int

const (
	PowerEnergy PowerAPI = iota
	PowerPassthrough
	PowerFlag
	PowerNone
)

func ParsePowerAPI(s string) (PowerAPI, error) {
	switch s {
	case "", "energy":
		return PowerEnergy, nil
	case "passthrough":
		return PowerPassthrough, nil
	case "flag":
		return PowerFlag, nil
	case "none":
		return PowerNone, nil
	}
	return PowerNone, fmt.Errorf("unknown power api %q", s)
}

const (
	FridgeShortPrefab = "fridge.deployed"
	FridgePrefab      = "assets/prefabs/deployable/fridge/fridge.deployed.prefab"
	// FridgeItem is the item that deploys into a fridge.
	FridgeItem = "fridge"

	BoxShortPrefab = "box.wooden"
	BoxPrefab      = "assets/prefabs/deployable/woodenbox/box.wooden.prefab"
)

var ErrDestroyed = errors.New("entity destroyed")

// Fridge is a deployed fridge. Which power accessor it exposes depends on the wrapper
// type returned by NewFridge.
type Fridge struct {
	id        host.EntityID
	skin      uint64
	name      string
	destroyed bool

	inv *inventory.Container

	// watts is the power delivered by the electrical network.
	watts int
}

func (f *Fridge) ID() host.EntityID       { return f.id }
func (f *Fridge) ShortPrefabName() string { return FridgeShortPrefab }
func (f *Fridge) PrefabName() string      { return FridgePrefab }
func (f *Fridge) SkinID() uint64          { return f.skin }
func (f *Fridge) IsDestroyed() bool       { return f.destroyed }
func (f *Fridge) DisplayName() string     { return f.name }
func (f *Fridge) Watts() int              { return f.watts }

func (f *Fridge) Inventory() *inventory.Container { return f.inv }

// SetWatts changes the delivered power. Negative values count as zero.
func (f *Fridge) SetWatts(w int) { f.watts = max(0, w) }

func (f *Fridge) SetDisplayName(name string) error {
	if f.destroyed {
		return ErrDestroyed
	}
	f.name = name
	return nil
}

func (f *Fridge) destroy() {
	f.destroyed = true
	f.inv.Close()
}

type energyFridge struct{ *Fridge }

func (f energyFridge) CurrentEnergy() (int, error) {
	if f.destroyed {
		return 0, ErrDestroyed
	}
	return f.watts, nil
}

type passthroughFridge struct{ *Fridge }

func (f passthroughFridge) PassthroughAmount(slot int) (int, error) {
	if f.destroyed {
		return 0, ErrDestroyed
	}
	if slot != 0 {
		return 0, fmt.Errorf("no input slot %d", slot)
	}
	return f.watts, nil
}

type flagFridge struct{ *Fridge }

func (f flagFridge) IsPowered() bool { return !f.destroyed && f.watts > 0 }

type plainFridge struct{ *Fridge }

// Unwrap returns the fridge behind an entity created by NewFridge.
func Unwrap(e host.Entity) (*Fridge, bool) {
	switch v := e.(type) {
	case *Fridge:
		return v, true
	case energyFridge:
		return v.Fridge, true
	case passthroughFridge:
		return v.Fridge, true
	case flagFridge:
		return v.Fridge, true
	case plainFridge:
		return v.Fridge, true
	}
	return nil, false
}

func foodOnly(def *inventory.ItemDef) bool { return def != nil && def.Kind == "FOOD" }

// NewFridge builds a fridge entity. Its container admits food by default and asks
// plugins about everything else.
func (w *World) NewFridge(skin uint64, api PowerAPI) host.Entity {
	f := &Fridge{id: w.NewEntityID(), skin: skin}
	f.inv = inventory.NewContainer(w.cfg.FridgeSlots,
		inventory.WithFilter(foodOnly),
		inventory.WithAcceptHook(w.canAccept),
	)
	switch api {
	case PowerEnergy:
		return energyFridge{f}
	case PowerPassthrough:
		return passthroughFridge{f}
	case PowerFlag:
		return flagFridge{f}
	default:
		return plainFridge{f}
	}
}

// Box is a plain storage box. It has no power input.
type Box struct {
	id        host.EntityID
	skin      uint64
	destroyed bool
	inv       *inventory.Container
}

func (b *Box) ID() host.EntityID       { return b.id }
func (b *Box) ShortPrefabName() string { return BoxShortPrefab }
func (b *Box) PrefabName() string      { return BoxPrefab }
func (b *Box) SkinID() uint64          { return b.skin }
func (b *Box) IsDestroyed() bool       { return b.destroyed }

func (b *Box) Inventory() *inventory.Container { return b.inv }

func (b *Box) destroy() {
	b.destroyed = true
	b.inv.Close()
}

func (w *World) NewBox(skin uint64, slots int) *Box {
	b := &Box{id: w.NewEntityID(), skin: skin}
	b.inv = inventory.NewContainer(slots, inventory.WithAcceptHook(w.canAccept))
	return b
}

// Deploy turns a deployable item into an entity next to the player and spawns it. The
// item is consumed.
func (w *World) Deploy(p *Player, it *inventory.Item, api PowerAPI) (host.Entity, error) {
	if it == nil || it.Def == nil {
		return nil, errors.New("nothing to deploy")
	}
	if it.Def.ID != FridgeItem {
		return nil, fmt.Errorf("%s is not deployable", it.Def.ID)
	}
	if p != nil && it.Parent() != p.inv {
		return nil, fmt.Errorf("%s is not in %s's inventory", it.Def.ID, p.name)
	}
	if it.Amount > 1 {
		it.Amount--
		it.MarkDirty()
	} else {
		it.Remove()
	}
	e := w.NewFridge(it.Skin, api)
	if f, ok := Unwrap(e); ok && it.Name != "" {
		f.name = it.Name
	}
	w.Spawn(e)
	return e, nil
}
