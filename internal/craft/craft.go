// Package craft lets players buy producer items with resources, within a per-player
// limit.
package craft

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/lang"
	plog "scrapworks.ai/internal/persistence/log"
	"scrapworks.ai/internal/sim/tuning"
)

const defaultItemShortname = "fridge"

// ConfigSource yields the active configuration; it changes on reload.
type ConfigSource interface {
	Config() tuning.Tuning
}

type AuditSink interface {
	WriteAudit(plog.CraftEntry) error
}

// Result is the outcome of one craft attempt. Key is the message key replied with.
type Result struct {
	Key       string
	Message   string
	Crafted   bool
	Remaining int // crafts left after this one; -1 when unlimited
}

type Deps struct {
	Config ConfigSource
	Items  host.ItemFactory
	Perms  host.Permissions
	Ledger *Ledger
	Lang   *lang.Catalog
	Audit  AuditSink
	Logger *log.Logger
}

type Service struct {
	cfg    ConfigSource
	items  host.ItemFactory
	perms  host.Permissions
	ledger *Ledger
	lang   *lang.Catalog
	audit  AuditSink
	log    *log.Logger
	now    func() time.Time
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = log.New(io.Discard, "", 0)
	}
	if d.Lang == nil {
		d.Lang = lang.Default()
	}
	if d.Ledger == nil {
		d.Ledger = OpenLedger(nil, d.Logger)
	}
	return &Service{
		cfg:    d.Config,
		items:  d.Items,
		perms:  d.Perms,
		ledger: d.Ledger,
		lang:   d.Lang,
		audit:  d.Audit,
		log:    d.Logger,
		now:    time.Now,
	}
}

func (s *Service) Ledger() *Ledger { return s.ledger }

// RegisterPermissions registers the craft and VIP permissions with the host.
func (s *Service) RegisterPermissions() {
	c := s.cfg.Config().Craft
	if strings.TrimSpace(c.Permission) != "" {
		s.perms.RegisterPermission(c.Permission)
	}
	if strings.TrimSpace(c.VipPermission) != "" {
		s.perms.RegisterPermission(c.VipPermission)
	}
}

// Limit is the player's craft limit; 0 means unlimited.
func (s *Service) Limit(p host.Player) int {
	c := s.cfg.Config().Craft
	if p != nil && strings.TrimSpace(c.VipPermission) != "" && s.perms.UserHasPermission(p.UserIDString(), c.VipPermission) {
		return c.VipMaxPerPlayer
	}
	return c.MaxPerPlayer
}

func (s *Service) hasCraftPermission(p host.Player) bool {
	perm := s.cfg.Config().Craft.Permission
	if strings.TrimSpace(perm) == "" {
		return true
	}
	return s.perms.UserHasPermission(p.UserIDString(), perm)
}

// Craft runs one craft attempt for p and sends the reply to the player.
func (s *Service) Craft(p host.Player) Result {
	if p == nil {
		return Result{}
	}
	res := s.craft(p)
	if res.Message != "" {
		p.ChatMessage(res.Message)
	}
	return res
}

func (s *Service) craft(p host.Player) Result {
	cfg := s.cfg.Config()
	c := cfg.Craft
	language := p.Language()
	reply := func(key string, args ...any) Result {
		return Result{Key: key, Message: s.lang.Format(key, language, args...), Remaining: -1}
	}

	if !c.Enabled {
		return reply(lang.CraftDisabled)
	}
	if c.PermissionRequired && !s.hasCraftPermission(p) {
		return reply(lang.CraftNoPermission)
	}

	userID := p.UserIDString()
	limit := 0
	if c.LimitEnabled {
		limit = s.Limit(p)
		if limit > 0 && s.ledger.Count(userID) >= limit {
			return reply(lang.CraftLimitReached, limit)
		}
	}

	cost := sortedCost(c.Cost)
	if short := s.shortfalls(p, cost, language); len(short) > 0 {
		msg := s.lang.Get(lang.CraftNotEnoughHeader, language) + "\n" + strings.Join(short, "\n")
		return Result{Key: lang.CraftNotEnoughHeader, Message: msg, Remaining: -1}
	}

	shortname := c.ItemShortname
	if strings.TrimSpace(shortname) == "" {
		shortname = defaultItemShortname
	}
	// Create before taking the cost so a failure leaves the player whole.
	it, err := s.items.CreateByName(shortname, 1, cfg.TargetSkinID)
	if err != nil || it == nil {
		s.log.Printf("create miner item %q: %v", shortname, err)
		return reply(lang.ErrorCreateItem)
	}
	if strings.TrimSpace(c.ItemDisplayName) != "" {
		it.Name = c.ItemDisplayName
	}

	inv := p.Inventory()
	paid := map[string]int{}
	for _, e := range cost {
		if _, ok := s.items.FindItemDefinition(e.shortname); !ok {
			continue
		}
		paid[e.shortname] = inv.Take(e.shortname, e.need)
	}
	p.Give(it)

	required := max(0, cfg.RequiredPower)
	res := reply(lang.CraftSuccess, required)
	res.Crafted = true
	count := 0
	if c.LimitEnabled && limit > 0 {
		count = s.ledger.Increment(userID)
		remain := max(0, limit-count)
		if remain > 0 {
			res = reply(lang.CraftSuccessRemaining, remain, required)
			res.Crafted = true
		}
		res.Remaining = remain
	}
	s.writeAudit(plog.CraftEntry{Action: "craft", UserID: userID, Name: p.DisplayName(), Count: count, Cost: paid})
	return res
}

type costEntry struct {
	shortname string
	need      int
}

func sortedCost(cost map[string]int) []costEntry {
	out := make([]costEntry, 0, len(cost))
	for name, n := range cost {
		if n <= 0 {
			continue
		}
		out = append(out, costEntry{shortname: name, need: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].shortname < out[j].shortname })
	return out
}

func (s *Service) shortfalls(p host.Player, cost []costEntry, language string) []string {
	inv := p.Inventory()
	var out []string
	for _, e := range cost {
		def, ok := s.items.FindItemDefinition(e.shortname)
		if !ok {
			out = append(out, s.lang.Format(lang.CraftNotEnoughLine, language, e.shortname, fmt.Sprintf("%d (unknown item)", e.need)))
			continue
		}
		if have := inv.Total(def.ID); have < e.need {
			out = append(out, s.lang.Format(lang.CraftNotEnoughLine, language, e.shortname, e.need-have))
		}
	}
	return out
}

// Wipe clears every craft count. by names who asked, for the audit log.
func (s *Service) Wipe(by string) int {
	n := s.ledger.Wipe()
	s.log.Printf("craft counts wiped by %s (%d entries)", by, n)
	s.writeAudit(plog.CraftEntry{Action: "wipe", Name: by, Count: n})
	return n
}

// Flush saves the ledger.
func (s *Service) Flush() error { return s.ledger.Flush() }

func (s *Service) writeAudit(e plog.CraftEntry) {
	if s.audit == nil {
		return
	}
	e.Time = s.now().UTC()
	if err := s.audit.WriteAudit(e); err != nil {
		s.log.Printf("craft audit: %v", err)
	}
}
