// Package host is the contract between the miner plugin and the simulation that runs
// it. The simulation owns every entity, container and timer; the plugin only sees
// them through these interfaces.
//
// Capabilities are optional interfaces. Different host versions implement different
// subsets, so callers probe with type assertions and fall back in a fixed order.
package host

import (
	"time"

	"scrapworks.ai/internal/sim/inventory"
)

// EntityID is the host-assigned identity of a world object. It is only meaningful
// while the object exists.
type EntityID uint64

type Verdict = inventory.Verdict

const (
	VerdictNoOpinion = inventory.VerdictNoOpinion
	VerdictAllow     = inventory.VerdictAllow
	VerdictDeny      = inventory.VerdictDeny
)

// Entity is a world object.
type Entity interface {
	ID() EntityID
	ShortPrefabName() string
	PrefabName() string
	SkinID() uint64
	IsDestroyed() bool
}

// Labeler is implemented by entities that carry a presentation name.
type Labeler interface {
	SetDisplayName(name string) error
}

// StorageEntity exposes a built-in item container.
type StorageEntity interface {
	Inventory() *inventory.Container
}

// ComponentHolder exposes components attached to a node.
type ComponentHolder interface {
	Components() []any
}

// Parent exposes child nodes of a node in the component hierarchy.
type Parent interface {
	Children() []any
}

// Power input shapes, newest first.
type (
	EnergyReader interface {
		CurrentEnergy() (int, error)
	}
	PassthroughReader interface {
		PassthroughAmount(slot int) (int, error)
	}
	PoweredFlag interface {
		IsPowered() bool
	}
)

// Timer is a handle to an armed recurring timer.
type Timer interface {
	Destroy()
	Destroyed() bool
}

// Timers arms recurring callbacks. Callbacks run on the host loop.
type Timers interface {
	Every(interval time.Duration, fn func()) Timer
}

// Player is a connected participant.
type Player interface {
	UserID() uint64
	UserIDString() string
	DisplayName() string
	IsAdmin() bool
	Language() string

	Inventory() *inventory.Container
	// Give places an item in the player's inventory, dropping it at their feet when full.
	Give(it *inventory.Item)
	ChatMessage(msg string)
}

// Permissions is the host permission registry.
type Permissions interface {
	RegisterPermission(perm string)
	UserHasPermission(userID string, perm string) bool
}

// ItemFactory creates items from the host's item catalog.
type ItemFactory interface {
	FindItemDefinition(shortname string) (*inventory.ItemDef, bool)
	CreateByName(shortname string, amount int, skin uint64) (*inventory.Item, error)
}
