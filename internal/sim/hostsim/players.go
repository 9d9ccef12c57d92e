package hostsim

import (
	"strconv"

	"scrapworks.ai/internal/sim/inventory"
)

// Player is a connected participant.
type Player struct {
	id    uint64
	name  string
	admin bool
	lang  string

	inv     *inventory.Container
	dropped []*inventory.Item

	chat []string
	// onChat mirrors chat messages to a live session.
	onChat func(string)
}

func (p *Player) UserID() uint64                  { return p.id }
func (p *Player) UserIDString() string            { return strconv.FormatUint(p.id, 10) }
func (p *Player) DisplayName() string             { return p.name }
func (p *Player) IsAdmin() bool                   { return p.admin }
func (p *Player) Language() string                { return p.lang }
func (p *Player) Inventory() *inventory.Container { return p.inv }

// Dropped lists items that did not fit in the inventory.
func (p *Player) Dropped() []*inventory.Item { return append([]*inventory.Item(nil), p.dropped...) }

// Give puts the item in the inventory, or drops it when the inventory refuses it.
func (p *Player) Give(it *inventory.Item) {
	if it == nil {
		return
	}
	if p.inv.Insert(it) {
		return
	}
	p.dropped = append(p.dropped, it)
}

func (p *Player) ChatMessage(msg string) {
	p.chat = append(p.chat, msg)
	if p.onChat != nil {
		p.onChat(msg)
	}
}

// Chat returns every message sent to the player.
func (p *Player) Chat() []string { return append([]string(nil), p.chat...) }

// LastChat is the most recent message, or "".
func (p *Player) LastChat() string {
	if len(p.chat) == 0 {
		return ""
	}
	return p.chat[len(p.chat)-1]
}

// SetChatSink mirrors future chat messages to fn. Nil detaches.
func (p *Player) SetChatSink(fn func(string)) { p.onChat = fn }

func (p *Player) SetAdmin(on bool) { p.admin = on }

// Connect adds a player, or returns the existing one with the same id.
func (w *World) Connect(id uint64, name, lang string) *Player {
	if p, ok := w.players[id]; ok {
		return p
	}
	if lang == "" {
		lang = "en"
	}
	p := &Player{
		id:   id,
		name: name,
		lang: lang,
		inv:  inventory.NewContainer(w.cfg.PlayerSlots),
	}
	w.players[id] = p
	return p
}

func (w *World) Disconnect(id uint64) { delete(w.players, id) }

// PermissionStore is the host permission registry. Granting an unregistered
// permission is allowed; checks against it fail until it is registered.
type PermissionStore struct {
	registered map[string]bool
	grants     map[string]map[string]bool
}

func NewPermissionStore() *PermissionStore {
	return &PermissionStore{
		registered: map[string]bool{},
		grants:     map[string]map[string]bool{},
	}
}

func (s *PermissionStore) RegisterPermission(perm string) { s.registered[perm] = true }

func (s *PermissionStore) Registered(perm string) bool { return s.registered[perm] }

func (s *PermissionStore) UserHasPermission(userID, perm string) bool {
	if !s.registered[perm] {
		return false
	}
	return s.grants[userID][perm]
}

func (s *PermissionStore) Grant(userID, perm string) {
	g := s.grants[userID]
	if g == nil {
		g = map[string]bool{}
		s.grants[userID] = g
	}
	g[perm] = true
}

func (s *PermissionStore) Revoke(userID, perm string) {
	delete(s.grants[userID], perm)
}
