// Package trust keeps the append-only ledger of sender domains the user has
// explicitly vouched for. Trust is monotonic for the lifetime of the ledger:
// counts only grow, records are never deleted.
package trust

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/core"
)

const ledgerKey = "trust_ledger"

const (
	boostPerConfirmation = 5
	boostCap             = 25
)

// Record is one per-domain trust entry.
type Record struct {
	Domain     string    `json:"domain"`
	Count      int       `json:"count"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Ledger accumulates safe-sender confirmations, backed by a persistent
// store so trust survives restarts. Storage failures degrade gracefully: an
// unreadable store yields an empty ledger, a failed write keeps the
// in-memory state and retries on the next confirmation.
type Ledger struct {
	mu      sync.Mutex
	records map[string]*Record
	store   core.PersistentStore
	logger  *zap.Logger
}

// NewLedger loads the ledger from the store and pre-populates one
// confirmation for each seed domain not already present.
func NewLedger(store core.PersistentStore, seedDomains []string, logger *zap.Logger) *Ledger {
	l := &Ledger{
		records: make(map[string]*Record),
		store:   store,
		logger:  logger,
	}
	l.load()

	for _, domain := range seedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if _, ok := l.records[domain]; !ok {
			l.records[domain] = &Record{Domain: domain, Count: 1, LastSeenAt: time.Now().UTC()}
		}
	}
	return l
}

// RecordSafe upserts the record for a domain: creates it on first
// confirmation, increments the count and refreshes the timestamp on every
// repeat. An empty domain is silently ignored, a missing domain is not an
// error. Repeated confirmations deliberately keep incrementing.
func (l *Ledger) RecordSafe(ctx context.Context, domain string) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[domain]
	if !ok {
		rec = &Record{Domain: domain}
		l.records[domain] = rec
	}
	rec.Count++
	rec.LastSeenAt = time.Now().UTC()

	l.persist(ctx)
	l.logger.Debug("Recorded safe-sender confirmation",
		zap.String("domain", domain),
		zap.Int("count", rec.Count))
}

// BoostFor converts accumulated confirmations into a bounded trust boost:
// 0 for an unknown domain, otherwise min(25, count*5).
func (l *Ledger) BoostFor(domain string) int {
	domain = strings.ToLower(strings.TrimSpace(domain))

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[domain]
	if !ok {
		return 0
	}
	boost := rec.Count * boostPerConfirmation
	if boost > boostCap {
		boost = boostCap
	}
	return boost
}

// Count reports the confirmation count for a domain, for surfacing in
// diagnostics.
func (l *Ledger) Count(domain string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.records[strings.ToLower(domain)]; ok {
		return rec.Count
	}
	return 0
}

func (l *Ledger) load() {
	if l.store == nil {
		return
	}
	raw, err := l.store.Get(context.Background(), ledgerKey)
	if err != nil {
		return
	}
	var records map[string]*Record
	if err := json.Unmarshal(raw, &records); err != nil {
		l.logger.Warn("Discarding unreadable trust ledger", zap.Error(err))
		return
	}
	// a persisted JSON null decodes to a nil map; keep the empty one
	if records != nil {
		l.records = records
	}
}

// persist is best-effort; callers hold the mutex.
func (l *Ledger) persist(ctx context.Context) {
	if l.store == nil {
		return
	}
	raw, err := json.Marshal(l.records)
	if err != nil {
		l.logger.Error("Failed to encode trust ledger", zap.Error(err))
		return
	}
	if err := l.store.Set(ctx, ledgerKey, raw); err != nil {
		l.logger.Warn("Failed to persist trust ledger", zap.Error(err))
	}
}
