package hostsim

import (
	"context"
	"testing"
	"time"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/miner"
	"scrapworks.ai/internal/sim/catalogs"
	"scrapworks.ai/internal/sim/inventory"
	"scrapworks.ai/internal/sim/tuning"
)

const testSkin = 1375523896

func newTestWorld(t *testing.T) *World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return New(Config{FrameRateHz: 10, FridgeSlots: 6}, cats.Items, nil)
}

func minerConfig() tuning.Tuning {
	cfg := tuning.Defaults()
	cfg.IntervalMinutes = 1.0 / 60 // one second
	cfg.ScrapPerTick = 21
	return cfg
}

func TestWorld_MinerEndToEnd(t *testing.T) {
	w := newTestWorld(t)
	powered := w.NewFridge(testSkin, PowerEnergy)
	starved := w.NewFridge(testSkin, PowerPassthrough)
	plain := w.NewFridge(0, PowerEnergy)
	for _, e := range []host.Entity{powered, starved, plain} {
		w.Spawn(e)
	}
	pf, _ := Unwrap(powered)
	pf.SetWatts(96)
	sf, _ := Unwrap(starved)
	sf.SetWatts(94)
	xf, _ := Unwrap(plain)
	xf.SetWatts(500)

	p := miner.New(w, minerConfig(), miner.Options{})
	w.Attach(p)
	w.Initialize()

	if got := p.Stats().Tracked; got != 2 {
		t.Fatalf("tracked=%d want 2", got)
	}
	if pf.DisplayName() != "Miner" {
		t.Fatalf("label=%q", pf.DisplayName())
	}

	w.Advance(time.Second)
	if got := pf.Inventory().Total("scrap"); got != 21 {
		t.Fatalf("powered fridge scrap=%d", got)
	}
	if got := sf.Inventory().Total("scrap"); got != 0 {
		t.Fatalf("underpowered fridge scrap=%d", got)
	}
	if got := xf.Inventory().Total("scrap"); got != 0 {
		t.Fatalf("untracked fridge scrap=%d", got)
	}

	// Players can move scrap into a tracked fridge, not into an ordinary one.
	scrapDef, _ := w.FindItemDefinition("scrap")
	if !pf.Inventory().Insert(inventory.NewItem(scrapDef, 1)) {
		t.Fatalf("tracked fridge refused scrap")
	}
	if xf.Inventory().Insert(inventory.NewItem(scrapDef, 1)) {
		t.Fatalf("ordinary fridge accepted scrap")
	}
}

func TestWorld_SpawnIsPickedUpNextFrame(t *testing.T) {
	w := newTestWorld(t)
	p := miner.New(w, minerConfig(), miner.Options{})
	w.Attach(p)
	w.Initialize()

	e := w.NewFridge(testSkin, PowerFlag)
	f, _ := Unwrap(e)
	f.SetWatts(1)
	w.Spawn(e)
	if p.Registry().Contains(e.ID()) {
		t.Fatalf("tracked before the next frame")
	}
	w.Step(w.FrameInterval())
	if !p.Registry().Contains(e.ID()) {
		t.Fatalf("not tracked after a frame")
	}

	// flag power counts as 1W; with compensation 5 that is below the default 100W
	w.Advance(time.Second)
	if f.Inventory().Total("scrap") != 0 {
		t.Fatalf("flag-powered fridge produced")
	}
}

func TestWorld_KillUntracksAndCloses(t *testing.T) {
	w := newTestWorld(t)
	e := w.NewFridge(testSkin, PowerEnergy)
	w.Spawn(e)
	p := miner.New(w, minerConfig(), miner.Options{})
	w.Attach(p)
	w.Initialize()

	w.Kill(e.ID())
	if p.Registry().Contains(e.ID()) || !e.IsDestroyed() {
		t.Fatalf("kill not applied")
	}
	f, _ := Unwrap(e)
	if !f.Inventory().Closed() {
		t.Fatalf("container left open")
	}
	if w.Kill(e.ID()) {
		t.Fatalf("second kill reported success")
	}
}

func TestWorld_TimersFireOnWorldClock(t *testing.T) {
	w := newTestWorld(t)
	n := 0
	tm := w.Every(time.Second, func() { n++ })
	w.Advance(3 * time.Second)
	if n != 3 {
		t.Fatalf("fired %d times", n)
	}
	tm.Destroy()
	w.Advance(2 * time.Second)
	if n != 3 || w.ActiveTimers() != 0 {
		t.Fatalf("destroyed timer fired or lingered: n=%d active=%d", n, w.ActiveTimers())
	}
}

func TestWorld_DeployConsumesItem(t *testing.T) {
	w := newTestWorld(t)
	pl := w.Connect(1, "alice", "")
	it, err := w.CreateByName(FridgeItem, 1, testSkin)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	it.Name = "Miner"
	pl.Give(it)

	e, err := w.Deploy(pl, it, PowerEnergy)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if e.SkinID() != testSkin || e.ShortPrefabName() != FridgeShortPrefab {
		t.Fatalf("deployed %s skin %d", e.ShortPrefabName(), e.SkinID())
	}
	if pl.Inventory().Len() != 0 {
		t.Fatalf("item not consumed")
	}
	if _, ok := w.Entity(e.ID()); !ok {
		t.Fatalf("not spawned")
	}
}

func TestWorld_PlayerGiveDropsWhenFull(t *testing.T) {
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatal(err)
	}
	w := New(Config{PlayerSlots: 1}, cats.Items, nil)
	pl := w.Connect(1, "bob", "de")
	if err := w.GiveByName(pl, "scrap", 1500); err != nil {
		t.Fatalf("give: %v", err)
	}
	if pl.Inventory().Len() != 1 || len(pl.Dropped()) != 1 {
		t.Fatalf("len=%d dropped=%d", pl.Inventory().Len(), len(pl.Dropped()))
	}
}

func TestPermissionStore(t *testing.T) {
	s := NewPermissionStore()
	s.Grant("1", "miner.vip")
	if s.UserHasPermission("1", "miner.vip") {
		t.Fatalf("unregistered permission granted")
	}
	s.RegisterPermission("miner.vip")
	if !s.UserHasPermission("1", "miner.vip") {
		t.Fatalf("grant not honoured")
	}
	s.Revoke("1", "miner.vip")
	if s.UserHasPermission("1", "miner.vip") {
		t.Fatalf("revoke not honoured")
	}
}

func TestWorld_RunAppliesRequests(t *testing.T) {
	w := newTestWorld(t)
	p := miner.New(w, minerConfig(), miner.Options{})
	w.Attach(p)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	e := w.NewFridge(testSkin, PowerEnergy)
	select {
	case <-w.RequestSpawn(e):
	case <-ctx.Done():
		t.Fatalf("spawn never applied")
	}

	var tracked bool
	deadline := time.Now().Add(3 * time.Second)
	for !tracked && time.Now().Before(deadline) {
		if err := w.Submit(ctx, func() { tracked = p.Registry().Contains(e.ID()) }); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if !tracked {
			time.Sleep(20 * time.Millisecond)
		}
	}
	if !tracked {
		t.Fatalf("spawned fridge never tracked")
	}

	w.Stop()
	if err := <-errc; err != nil {
		t.Fatalf("run: %v", err)
	}
}
