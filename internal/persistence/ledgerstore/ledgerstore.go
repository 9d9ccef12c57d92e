// Package ledgerstore persists the per-player craft counts.
package ledgerstore

import (
	"errors"
	"sort"
)

// Store loads and saves the whole ledger. Save replaces what is stored.
type Store interface {
	Load() (map[string]int, error)
	Save(counts map[string]int) error
	Close() error
}

var ErrEmptyPath = errors.New("empty ledger path")

// Entry is one ledger row, used for listings.
type Entry struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}

// Entries returns the rows ordered by count (descending), then user id.
func Entries(counts map[string]int) []Entry {
	out := make([]Entry, 0, len(counts))
	for id, n := range counts {
		out = append(out, Entry{UserID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func clean(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for id, n := range counts {
		if id == "" || n <= 0 {
			continue
		}
		out[id] = n
	}
	return out
}
