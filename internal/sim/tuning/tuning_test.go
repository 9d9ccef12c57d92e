package tuning

import (
	"bytes"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_RepoConfigMatchesDefaults(t *testing.T) {
	got, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Defaults()
	if got.FridgePrefabShortname != want.FridgePrefabShortname || got.TargetSkinID != want.TargetSkinID {
		t.Fatalf("signature mismatch: got=%s/%d", got.FridgePrefabShortname, got.TargetSkinID)
	}
	if got.RequiredPower != 100 || got.InputCompensationWatts != 5 || got.ScrapPerTick != 21 {
		t.Fatalf("production mismatch: %+v", got)
	}
	if got.Craft.Cost["metal.fragments"] != 2500 {
		t.Fatalf("craft cost mismatch: %+v", got.Craft.Cost)
	}
}

func TestParse_MissingFieldsKeepDefaultsButCostIsEmpty(t *testing.T) {
	got, err := Parse([]byte("required_power: 250\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.RequiredPower != 250 {
		t.Fatalf("required_power=%d want 250", got.RequiredPower)
	}
	if got.ScrapPerTick != 21 || got.MaxFridgeSlotsToUse != 48 {
		t.Fatalf("expected defaults for unspecified fields: %+v", got)
	}
	if got.Craft.Cost == nil || len(got.Craft.Cost) != 0 {
		t.Fatalf("expected empty craft cost, got %v", got.Craft.Cost)
	}
}

func TestParse_SchemaRejectsWrongTypes(t *testing.T) {
	cases := []string{
		"required_power: lots\n",
		"craft:\n  max_per_player: -1\n",
		"craft:\n  cost:\n    scrap: many\n",
		"- just\n- a list\n",
	}
	for _, in := range cases {
		if _, err := Parse([]byte(in)); err == nil {
			t.Fatalf("expected schema error for %q", in)
		}
	}
}

func TestLoadOrDefault_MalformedFallsBackAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("required_power: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var buf bytes.Buffer
	got, fellBack := LoadOrDefault(path, log.New(&buf, "", 0))
	if !fellBack {
		t.Fatalf("expected fallback")
	}
	if got.RequiredPower != 100 {
		t.Fatalf("required_power=%d want default 100", got.RequiredPower)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected a logged config error")
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("defaults were not persisted: %v", err)
	}
	if reloaded.Craft.Cost["gears"] != 10 {
		t.Fatalf("persisted defaults missing cost: %+v", reloaded.Craft.Cost)
	}
}

func TestLoadOrDefault_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "tuning.yaml")
	_, fellBack := LoadOrDefault(path, nil)
	if !fellBack {
		t.Fatalf("expected fallback for missing file")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected defaults written: %v", err)
	}
}

func TestInterval_FlooredAtOneSecond(t *testing.T) {
	tu := Defaults()
	if tu.Interval() != time.Hour {
		t.Fatalf("interval=%v want 1h", tu.Interval())
	}
	tu.IntervalMinutes = 0
	if tu.Interval() != time.Second {
		t.Fatalf("interval=%v want 1s", tu.Interval())
	}
	tu.IntervalMinutes = 0.5
	if tu.Interval() != 30*time.Second {
		t.Fatalf("interval=%v want 30s", tu.Interval())
	}
}

func TestInterval_HugeValueSaturates(t *testing.T) {
	tu, err := Parse([]byte("interval_minutes: 1e300\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tu.Interval(); got != time.Duration(math.MaxInt64) {
		t.Fatalf("interval=%v want max duration", got)
	}
	tu.IntervalMinutes = math.Inf(1)
	if got := tu.Interval(); got != time.Duration(math.MaxInt64) {
		t.Fatalf("inf interval=%v", got)
	}
	tu.IntervalMinutes = math.NaN()
	if got := tu.Interval(); got != time.Second {
		t.Fatalf("nan interval=%v want 1s", got)
	}
	tu.IntervalMinutes = -5
	if got := tu.Interval(); got != time.Second {
		t.Fatalf("negative interval=%v want 1s", got)
	}
}
