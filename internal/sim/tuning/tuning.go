package tuning

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning is the plugin configuration. It is immutable during a tick pass; a reload
// replaces the whole value.
type Tuning struct {
	// Producer signature.
	FridgePrefabShortname string `yaml:"fridge_prefab_shortname"`
	TargetSkinID          uint64 `yaml:"target_skin_id"`

	// Power & production.
	RequiredPower          int     `yaml:"required_power"`
	InputCompensationWatts int     `yaml:"input_compensation_watts"` // entity self-draw added back to the measured input
	ScrapPerTick           int     `yaml:"scrap_per_tick"`
	IntervalMinutes        float64 `yaml:"interval_minutes"`

	MaxFridgeSlotsToUse int `yaml:"max_fridge_slots_to_use"`

	Craft Craft `yaml:"craft"`

	LogDebug bool `yaml:"log_debug"`
}

type Craft struct {
	Enabled            bool           `yaml:"enabled"`
	PermissionRequired bool           `yaml:"permission_required"`
	Permission         string         `yaml:"permission"`
	ItemShortname      string         `yaml:"item_shortname"`
	ItemDisplayName    string         `yaml:"item_display_name"`
	Cost               map[string]int `yaml:"cost"`

	LimitEnabled    bool   `yaml:"limit_enabled"`
	MaxPerPlayer    int    `yaml:"max_per_player"` // 0 = unlimited
	VipPermission   string `yaml:"vip_permission"`
	VipMaxPerPlayer int    `yaml:"vip_max_per_player"` // 0 = unlimited
}

// Defaults is the configuration written when no usable file exists.
func Defaults() Tuning {
	return Tuning{
		FridgePrefabShortname:  "fridge.deployed",
		TargetSkinID:           1375523896,
		RequiredPower:          100,
		InputCompensationWatts: 5,
		ScrapPerTick:           21,
		IntervalMinutes:        60,
		MaxFridgeSlotsToUse:    48,
		Craft: Craft{
			Enabled:            true,
			PermissionRequired: false,
			Permission:         "miner.craft",
			ItemShortname:      "fridge",
			ItemDisplayName:    "Miner",
			Cost: map[string]int{
				"scrap":           500,
				"metal.fragments": 2500,
				"gears":           10,
			},
			LimitEnabled:    true,
			MaxPerPlayer:    1,
			VipPermission:   "miner.vip",
			VipMaxPerPlayer: 2,
		},
	}
}

// Interval is the production timer period, never shorter than one second. Periods
// beyond the range of time.Duration saturate at its maximum.
func (t Tuning) Interval() time.Duration {
	ns := t.IntervalMinutes * float64(time.Minute)
	switch {
	case !(ns >= float64(time.Second)):
		return time.Second
	case ns >= math.MaxInt64:
		return math.MaxInt64
	}
	return time.Duration(ns)
}

// Load reads and validates a tuning file. Fields missing from the file keep their
// default values, except the craft cost which is empty unless listed.
func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Tuning, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	if doc != nil {
		if err := validate(doc); err != nil {
			return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
		}
	}

	t := Defaults()
	t.Craft.Cost = nil
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.Craft.Cost == nil {
		t.Craft.Cost = map[string]int{}
	}
	return t, nil
}

func Save(path string, t Tuning) error {
	b, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadOrDefault loads the tuning file; a missing or malformed file is replaced with
// the defaults, which are persisted. fellBack reports whether that happened.
func LoadOrDefault(path string, logger *log.Logger) (t Tuning, fellBack bool) {
	t, err := Load(path)
	if err == nil {
		return t, false
	}
	if errors.Is(err, os.ErrNotExist) {
		if logger != nil {
			logger.Printf("tuning not found (%s); writing defaults", path)
		}
	} else if logger != nil {
		logger.Printf("config error: %v. loading defaults", err)
	}
	t = Defaults()
	if err := Save(path, t); err != nil && logger != nil {
		logger.Printf("save default tuning: %v", err)
	}
	return t, true
}

// validate checks the decoded yaml document against the embedded schema. yaml values
// are round-tripped through JSON so the validator sees JSON-native types.
func validate(doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	return s.Validate(v)
}
