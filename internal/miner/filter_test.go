package miner

import (
	"testing"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/sim/inventory"
)

func TestAcceptanceFilter(t *testing.T) {
	reg, res := newTestRegistry()
	tracked := newFridge(1, 0)
	reg.ScanAll([]host.Entity{tracked})
	other := inventory.NewContainer(4)

	f := NewAcceptanceFilter("scrap", res, quietLogger())
	scrap := inventory.NewItem(scrapDef, 1)
	apple := inventory.NewItem(appleDef, 1)

	if v := f.CanAcceptItem(tracked.inv, scrap, 0); v != host.VerdictAllow {
		t.Fatalf("tracked+scrap=%s", v)
	}
	if v := f.CanAcceptItem(tracked.inv, apple, 0); v != host.VerdictNoOpinion {
		t.Fatalf("tracked+apple=%s", v)
	}
	if v := f.CanAcceptItem(other, scrap, 0); v != host.VerdictNoOpinion {
		t.Fatalf("untracked+scrap=%s", v)
	}
	if v := f.CanAcceptItem(nil, nil, -1); v != host.VerdictNoOpinion {
		t.Fatalf("nil args=%s", v)
	}

	reg.OnDespawned(tracked)
	if v := f.CanAcceptItem(tracked.inv, scrap, 0); v != host.VerdictNoOpinion {
		t.Fatalf("despawned+scrap=%s", v)
	}
}

func TestAcceptanceFilter_AsContainerHook(t *testing.T) {
	reg, res := newTestRegistry()
	foodOnly := func(def *inventory.ItemDef) bool { return def.Kind == "FOOD" }
	fr := newFridge(1, 0)
	fr.inv = inventory.NewContainer(4, inventory.WithFilter(foodOnly))
	reg.ScanAll([]host.Entity{fr})

	f := NewAcceptanceFilter("scrap", res, quietLogger())
	fr.inv.SetAcceptHook(f.CanAcceptItem)

	if !fr.inv.Insert(inventory.NewItem(scrapDef, 5)) {
		t.Fatalf("hook did not override food filter")
	}
	if !fr.inv.Insert(inventory.NewItem(appleDef, 1)) {
		t.Fatalf("default filter should still admit food")
	}
}
