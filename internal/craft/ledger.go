package craft

import (
	"io"
	"log"

	"scrapworks.ai/internal/persistence/ledgerstore"
)

// Ledger counts crafts per player. Every change is saved immediately.
type Ledger struct {
	counts map[string]int
	store  ledgerstore.Store
	log    *log.Logger
}

// OpenLedger loads the ledger from store. A store that cannot be read yields an empty
// ledger. A nil store keeps the ledger in memory only.
func OpenLedger(store ledgerstore.Store, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	l := &Ledger{counts: map[string]int{}, store: store, log: logger}
	if store == nil {
		return l
	}
	counts, err := store.Load()
	if err != nil {
		logger.Printf("load craft ledger: %v; starting empty", err)
		return l
	}
	l.counts = counts
	return l
}

func (l *Ledger) Count(userID string) int { return l.counts[userID] }

// Increment adds one craft and returns the new count.
func (l *Ledger) Increment(userID string) int {
	l.counts[userID]++
	n := l.counts[userID]
	l.save()
	return n
}

// Wipe resets every count.
func (l *Ledger) Wipe() int {
	n := len(l.counts)
	l.counts = map[string]int{}
	l.save()
	return n
}

func (l *Ledger) Len() int { return len(l.counts) }

func (l *Ledger) Snapshot() map[string]int {
	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// Flush saves the ledger and reports the store error.
func (l *Ledger) Flush() error {
	if l.store == nil {
		return nil
	}
	return l.store.Save(l.counts)
}

func (l *Ledger) save() {
	if err := l.Flush(); err != nil {
		l.log.Printf("failed to save data: %v", err)
	}
}
