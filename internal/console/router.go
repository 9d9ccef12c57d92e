// Package console routes chat and console commands to the miner and craft features.
package console

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"scrapworks.ai/internal/craft"
	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/lang"
	"scrapworks.ai/internal/miner"
	"scrapworks.ai/internal/protocol"
	"scrapworks.ai/internal/sim/tuning"
)

// AdminAuthLevel is the console auth level that may run admin commands.
const AdminAuthLevel = 2

// Caller is whoever issued a command. A chat command has a Player; a console command
// has none and is authorized by AuthLevel.
type Caller struct {
	Player    host.Player
	AuthLevel int
}

func (c Caller) isAdmin() bool {
	if c.Player != nil {
		return c.Player.IsAdmin()
	}
	return c.AuthLevel >= AdminAuthLevel
}

func (c Caller) language() string {
	if c.Player != nil {
		return c.Player.Language()
	}
	return lang.DefaultLanguage
}

func (c Caller) String() string {
	if c.Player != nil {
		return fmt.Sprintf("%s[%s]", c.Player.DisplayName(), c.Player.UserIDString())
	}
	return "console"
}

type Response struct {
	Command    string
	OK         bool
	Code       string
	Lines      []string
	Suggestion string
}

// Admin is the production side the router drives.
type Admin interface {
	Reload() tuning.Tuning
	CountMatching() int
	Stats() miner.Stats
}

type command struct {
	name  string
	admin bool
	run   func(c Caller, args []string) Response
}

type Router struct {
	commands map[string]command

	craft *craft.Service
	admin Admin
	lang  *lang.Catalog

	log *log.Logger
}

func NewRouter(admin Admin, crafts *craft.Service, catalog *lang.Catalog, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if catalog == nil {
		catalog = lang.Default()
	}
	r := &Router{
		commands: map[string]command{},
		craft:    crafts,
		admin:    admin,
		lang:     catalog,
		log:      logger,
	}
	r.register(command{name: "miner.craft", run: r.cmdCraft})
	r.register(command{name: "miner_wipe", admin: true, run: r.cmdWipe})
	r.register(command{name: "fsg.reload", admin: true, run: r.cmdReload})
	r.register(command{name: "fsg.scan", admin: true, run: r.cmdScan})
	r.register(command{name: "miner.stats", admin: true, run: r.cmdStats})
	r.register(command{name: "help", run: r.cmdHelp})
	return r
}

func (r *Router) register(c command) { r.commands[c.name] = c }

// Commands lists registered command names.
func (r *Router) Commands() []string {
	out := make([]string, 0, len(r.commands))
	for name := range r.commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs one command. It must be called from the host loop. Admin commands
// from callers without privilege are ignored silently, as the host does for chat.
func (r *Router) Dispatch(c Caller, name string, args []string) Response {
	name = normalizeName(name)
	cmd, ok := r.commands[name]
	if !ok {
		return r.unknown(c, name)
	}
	if cmd.admin && !c.isAdmin() {
		return Response{Command: name, Code: protocol.ErrNoPermission}
	}
	resp := cmd.run(c, args)
	resp.Command = name
	return resp
}

func normalizeName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return strings.TrimPrefix(name, "/")
}

func (r *Router) unknown(c Caller, name string) Response {
	resp := Response{Command: name, Code: protocol.ErrUnknownCommand}
	if s := r.Suggest(name); s != "" {
		resp.Suggestion = s
		resp.Lines = []string{r.lang.Format(lang.ErrorDidYouMean, c.language(), name, s)}
	} else {
		resp.Lines = []string{r.lang.Format(lang.ErrorUnknownCommand, c.language(), name)}
	}
	r.reply(c, resp.Lines...)
	return resp
}

// Suggest returns the closest command name within a length-scaled edit distance,
// or "".
func (r *Router) Suggest(name string) string {
	if name == "" {
		return ""
	}
	best, bestDist := "", -1
	for _, cand := range r.Commands() {
		d := levenshtein.ComputeDistance(name, cand)
		if d > levenshteinLimit(len(cand)) {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func (r *Router) reply(c Caller, lines ...string) {
	if c.Player == nil {
		return
	}
	for _, l := range lines {
		c.Player.ChatMessage(l)
	}
}

func (r *Router) cmdCraft(c Caller, _ []string) Response {
	if c.Player == nil {
		return Response{Code: protocol.ErrNoPlayer, Lines: []string{"miner.craft must be run by a player"}}
	}
	res := r.craft.Craft(c.Player)
	resp := Response{OK: res.Crafted, Lines: splitLines(res.Message)}
	if !res.Crafted {
		resp.Code = craftCode(res.Key)
	}
	return resp
}

func craftCode(key string) string {
	switch key {
	case lang.CraftDisabled:
		return protocol.ErrDisabled
	case lang.CraftNoPermission:
		return protocol.ErrNoPermission
	case lang.CraftLimitReached:
		return protocol.ErrLimitReached
	case lang.CraftNotEnoughHeader:
		return protocol.ErrNoResource
	default:
		return protocol.ErrInternal
	}
}

func (r *Router) cmdWipe(c Caller, _ []string) Response {
	r.craft.Wipe(c.String())
	msg := r.lang.Get(lang.AdminWipeDone, c.language())
	r.reply(c, msg)
	return Response{OK: true, Lines: []string{msg}}
}

func (r *Router) cmdReload(c Caller, _ []string) Response {
	cfg := r.admin.Reload()
	r.log.Printf("config reloaded by %s (interval %s)", c, cfg.Interval())
	msg := r.lang.Get(lang.AdminReloaded, c.language())
	r.reply(c, msg)
	return Response{OK: true, Lines: []string{msg}}
}

func (r *Router) cmdScan(c Caller, _ []string) Response {
	msg := r.lang.Format(lang.ScanResult, c.language(), r.admin.CountMatching())
	r.reply(c, msg)
	return Response{OK: true, Lines: []string{msg}}
}

func (r *Router) cmdStats(c Caller, _ []string) Response {
	st := r.admin.Stats()
	last := st.Scheduler.Last
	lines := []string{
		fmt.Sprintf("tracked=%d pending=%d", st.Tracked, st.Pending),
		fmt.Sprintf("running=%t interval=%s ticks=%d inserted_total=%d failures_total=%d",
			st.Scheduler.Running, st.Scheduler.Interval, st.Scheduler.Ticks, st.Scheduler.InsertedTotal, st.Scheduler.FailuresTotal),
		fmt.Sprintf("last: produced=%d inserted=%d not_io=%d underpowered=%d removed=%d failures=%d",
			last.Produced, last.Inserted, last.Skipped[miner.SkipNotIO], last.Skipped[miner.SkipUnderpowered], last.Removed, len(last.Failures)),
		fmt.Sprintf("resolver: cached=%d hits=%d misses=%d probes=%d",
			st.Resolver.Cached, st.Resolver.Hits, st.Resolver.Misses, st.Resolver.Probes),
	}
	r.reply(c, lines...)
	return Response{OK: true, Lines: lines}
}

func (r *Router) cmdHelp(c Caller, _ []string) Response {
	var names []string
	admin := c.isAdmin()
	for _, name := range r.Commands() {
		if r.commands[name].admin && !admin {
			continue
		}
		names = append(names, name)
	}
	line := "commands: " + strings.Join(names, ", ")
	r.reply(c, line)
	return Response{OK: true, Lines: []string{line}}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
