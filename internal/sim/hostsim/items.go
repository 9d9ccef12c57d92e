package hostsim

import (
	"fmt"

	"scrapworks.ai/internal/sim/inventory"
)

func (w *World) FindItemDefinition(shortname string) (*inventory.ItemDef, bool) {
	return w.catalog.Find(shortname)
}

// CreateByName creates a detached stack. The amount is clamped to the stack size.
func (w *World) CreateByName(shortname string, amount int, skin uint64) (*inventory.Item, error) {
	def, ok := w.catalog.Find(shortname)
	if !ok {
		return nil, fmt.Errorf("unknown item %q", shortname)
	}
	it := inventory.NewItem(def, amount)
	it.Skin = skin
	return it, nil
}

// GiveByName gives amount units of an item, split into full stacks.
func (w *World) GiveByName(p *Player, shortname string, amount int) error {
	def, ok := w.catalog.Find(shortname)
	if !ok {
		return fmt.Errorf("unknown item %q", shortname)
	}
	for amount > 0 {
		n := min(amount, max(1, def.Stackable))
		p.Give(inventory.NewItem(def, n))
		amount -= n
	}
	return nil
}
