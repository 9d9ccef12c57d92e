package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"scrapworks.ai/internal/sim/inventory"
)

type Catalogs struct {
	Items ItemCatalog
}

// ItemCatalog holds the item definitions the host knows about.
type ItemCatalog struct {
	Defs map[string]*inventory.ItemDef
	// Digest is the sha256 of items.json, logged at startup.
	Digest string
}

// Find returns the shared definition for an item id. Definitions are pointers so that
// stacks created from the same catalog compare equal by identity.
func (c *ItemCatalog) Find(id string) (*inventory.ItemDef, bool) {
	if c == nil || c.Defs == nil {
		return nil, false
	}
	d, ok := c.Defs[id]
	return d, ok
}

// IDs lists item ids in sorted order.
func (c *ItemCatalog) IDs() []string {
	ids := make([]string, 0, len(c.Defs))
	for id := range c.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(raw)
	out.Digest = hex.EncodeToString(sum[:])

	var defs []inventory.ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = make(map[string]*inventory.ItemDef, len(defs))
	for i := range defs {
		d := defs[i]
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if d.Stackable < 1 {
			return fmt.Errorf("items.json: %s: stackable must be >= 1", d.ID)
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = &d
	}
	return nil
}
