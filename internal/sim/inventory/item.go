package inventory

import "sync/atomic"

// ItemDef describes an item type.
type ItemDef struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"` // "MATERIAL","FOOD","DEPLOYABLE","COMPONENT"
	Stackable int    `json:"stackable"`
}

// Item is one stack of a single item type.
type Item struct {
	UID    uint64
	Def    *ItemDef
	Amount int
	Skin   uint64
	Name   string

	parent  *Container
	dirty   bool
	removed bool
}

var nextItemUID atomic.Uint64

// NewItem creates a detached stack. Amount is clamped to [1, def.Stackable].
func NewItem(def *ItemDef, amount int) *Item {
	if def == nil {
		return nil
	}
	if amount < 1 {
		amount = 1
	}
	if n := def.maxStack(); amount > n {
		amount = n
	}
	return &Item{
		UID:    nextItemUID.Add(1),
		Def:    def,
		Amount: amount,
	}
}

func (d *ItemDef) maxStack() int {
	if d == nil || d.Stackable < 1 {
		return 1
	}
	return d.Stackable
}

// MaxStackable is the per-type maximum stack size.
func (it *Item) MaxStackable() int { return it.Def.maxStack() }

func (it *Item) Parent() *Container { return it.parent }
func (it *Item) MarkDirty()         { it.dirty = true }
func (it *Item) Dirty() bool        { return it.dirty }
func (it *Item) Removed() bool      { return it.removed }

// Remove detaches the stack from its container and destroys it.
func (it *Item) Remove() {
	if it.parent != nil {
		it.parent.Remove(it)
	}
	it.removed = true
}
