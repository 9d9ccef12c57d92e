// Package lang holds player-facing message templates. English is built in; other
// languages are yaml files named after the language code that override any subset of
// keys.
package lang

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultLanguage = "en"

// Message keys.
const (
	CraftDisabled         = "Craft.Disabled"
	CraftNoPermission     = "Craft.NoPermission"
	CraftNotEnoughHeader  = "Craft.NotEnoughHeader"
	CraftNotEnoughLine    = "Craft.NotEnoughLine"
	CraftSuccess          = "Craft.Success"
	CraftSuccessRemaining = "Craft.SuccessRemaining"
	CraftLimitReached     = "Craft.LimitReached"

	AdminWipeDone = "Admin.WipeDone"
	AdminReloaded = "Admin.Reloaded"
	ScanResult    = "Scan.Result"

	ErrorCreateItem     = "Error.CreateItem"
	ErrorUnknownCommand = "Error.UnknownCommand"
	ErrorDidYouMean     = "Error.DidYouMean"
)

func defaults() map[string]string {
	return map[string]string{
		CraftDisabled:         "Crafting is disabled.",
		CraftNoPermission:     "You don't have permission to craft a Miner.",
		CraftNotEnoughHeader:  "Not enough resources to craft Miner:",
		CraftNotEnoughLine:    " - {0} x{1}",
		CraftSuccess:          "You crafted a Miner! Requires {0}w to run.",
		CraftSuccessRemaining: "You crafted a Miner! You can craft {0} more. Requires {1}w to run.",
		CraftLimitReached:     "You have reached your Miner craft limit ({0}).",

		AdminWipeDone: "Miner craft counts wiped.",
		AdminReloaded: "[Miner] Config reloaded.",
		ScanResult:    "Target fridges present: {0}",

		ErrorCreateItem:     "Failed to craft Miner (item create returned null).",
		ErrorUnknownCommand: "Unknown command: {0}",
		ErrorDidYouMean:     "Unknown command: {0}. Did you mean {1}?",
	}
}

// Catalog maps language code to key to template.
type Catalog struct {
	messages map[string]map[string]string
}

// Default returns the built-in English catalog.
func Default() *Catalog {
	return &Catalog{messages: map[string]map[string]string{DefaultLanguage: defaults()}}
}

// Load returns the built-in catalog overlaid with every <code>.yaml file in dir. A
// missing dir is not an error.
func Load(dir string) (*Catalog, error) {
	c := Default()
	if dir == "" {
		return c, nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		code := strings.TrimSuffix(filepath.Base(p), ".yaml")
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		var m map[string]string
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		c.Register(code, m)
	}
	return c, nil
}

// Register merges messages for a language.
func (c *Catalog) Register(language string, msgs map[string]string) {
	language = normalize(language)
	cur := c.messages[language]
	if cur == nil {
		cur = map[string]string{}
		c.messages[language] = cur
	}
	for k, v := range msgs {
		cur[k] = v
	}
}

// Languages lists registered language codes.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.messages))
	for code := range c.messages {
		out = append(out, code)
	}
	return out
}

// Get returns the template for key in language, falling back to English, then to
// the key itself.
func (c *Catalog) Get(key, language string) string {
	if m := c.messages[normalize(language)]; m != nil {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := c.messages[DefaultLanguage][key]; ok {
		return s
	}
	return key
}

// Format fills positional {0}, {1}, ... placeholders.
func (c *Catalog) Format(key, language string, args ...any) string {
	return Fill(c.Get(key, language), args...)
}

// Fill replaces positional placeholders. A bad template is returned unchanged.
func Fill(tmpl string, args ...any) string {
	if len(args) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		ch := tmpl[i]
		if ch != '{' {
			b.WriteByte(ch)
			continue
		}
		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			return tmpl
		}
		n, err := strconv.Atoi(tmpl[i+1 : i+end])
		if err != nil || n < 0 || n >= len(args) {
			return tmpl
		}
		fmt.Fprint(&b, args[n])
		i += end
	}
	return b.String()
}

func normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if code == "" {
		return DefaultLanguage
	}
	return code
}
