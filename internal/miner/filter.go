package miner

import (
	"log"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/sim/inventory"
)

// AcceptanceFilter answers the host's "may this item enter this container" hook. It
// lets the producer resource into tracked containers and has no opinion on anything
// else.
type AcceptanceFilter struct {
	resource string
	resolver *Resolver

	log   *log.Logger
	debug bool
}

func NewAcceptanceFilter(resource string, resolver *Resolver, logger *log.Logger) *AcceptanceFilter {
	return &AcceptanceFilter{resource: resource, resolver: resolver, log: logger}
}

func (f *AcceptanceFilter) SetDebug(on bool) { f.debug = on }

// CanAcceptItem never panics: it runs on the host's interaction path.
func (f *AcceptanceFilter) CanAcceptItem(c *inventory.Container, it *inventory.Item, slot int) (v host.Verdict) {
	defer func() {
		if recover() != nil {
			v = host.VerdictNoOpinion
		}
	}()
	if c == nil || it == nil || it.Def == nil {
		return host.VerdictNoOpinion
	}
	if it.Def.ID != f.resource {
		return host.VerdictNoOpinion
	}
	if !f.resolver.Contains(c) {
		return host.VerdictNoOpinion
	}
	if f.debug {
		f.log.Printf("[hook] CanAcceptItem(slot=%d): allowing %s", slot, f.resource)
	}
	return host.VerdictAllow
}
