// Package history serves per-address transaction lists through a
// time-boxed cache, with in/out filtering computed relative to the owning
// account.
package history

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pvzzle/miniwallet/internal/storage"

	"github.com/rs/zerolog"
)

type Filter string

const (
	FilterAll Filter = "all"
	FilterIn  Filter = "in"
	FilterOut Filter = "out"
)

// Direction derives in/out for a record relative to owner (case-insensitive).
func Direction(rec storage.TxRecord, owner string) Filter {
	if strings.EqualFold(rec.FromAddr, owner) {
		return FilterOut
	}
	return FilterIn
}

// Source fetches the unfiltered transaction list for an address.
// internal/explorer implements it; tests inject fakes.
type Source interface {
	TxList(ctx context.Context, address string) ([]storage.TxRecord, error)
}

type Config struct {
	TTL   time.Duration // freshness window, default 5m
	Limit int           // display cap, most recent first, default 10
}

// Result is a filtered view of a cached snapshot. Stale is set when the
// fetch failed and a previously cached snapshot is being served instead.
type Result struct {
	Records []storage.TxRecord
	Stale   bool
}

type entry struct {
	records   []storage.TxRecord
	fetchedAt time.Time
}

// Cache keys unfiltered snapshots by lowercase address; filters are
// computed views and never trigger a second fetch. Snapshots are written
// through to the repository so they survive restarts.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	source Source
	repo   storage.Repository // optional
	cfg    Config
	now    func() time.Time
	log    zerolog.Logger
}

func NewCache(source Source, repo storage.Repository, cfg Config, log zerolog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	return &Cache{
		entries: make(map[string]entry),
		source:  source,
		repo:    repo,
		cfg:     cfg,
		now:     time.Now,
		log:     log,
	}
}

// Get returns the filtered history for address. A fresh cached snapshot is
// served without a network call; otherwise the full unfiltered list is
// fetched, cached under the address, and filtered in memory.
//
// On a fetch failure the previous snapshot, if any, is returned alongside
// the error with Stale set.
func (c *Cache) Get(ctx context.Context, address string, filter Filter) (Result, error) {
	key := strings.ToLower(address)
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && now.Sub(e.fetchedAt) < c.cfg.TTL {
		return Result{Records: c.view(e.records, address, filter)}, nil
	}

	if !ok && c.repo != nil {
		snap, found, err := c.repo.LoadHistorySnapshot(ctx, key)
		if err != nil {
			c.log.Warn().Err(err).Str("address", key).Msg("history snapshot load failed")
		} else if found && now.Sub(snap.FetchedAt) < c.cfg.TTL {
			e = entry{records: snap.Records, fetchedAt: snap.FetchedAt}
			c.mu.Lock()
			c.entries[key] = e
			c.mu.Unlock()
			return Result{Records: c.view(e.records, address, filter)}, nil
		}
	}

	records, err := c.source.TxList(ctx, address)
	if err != nil {
		if ok {
			return Result{Records: c.view(e.records, address, filter), Stale: true}, err
		}
		return Result{}, err
	}

	e = entry{records: records, fetchedAt: now}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	if c.repo != nil {
		snap := storage.HistorySnapshot{Address: key, Records: records, FetchedAt: now}
		if err := c.repo.SaveHistorySnapshot(ctx, snap); err != nil {
			c.log.Warn().Err(err).Str("address", key).Msg("history snapshot save failed")
		}
	}

	return Result{Records: c.view(records, address, filter)}, nil
}

// Invalidate drops the cached snapshot so the next Get refetches. Used
// after a confirmed send.
func (c *Cache) Invalidate(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, strings.ToLower(address))
}

func (c *Cache) view(records []storage.TxRecord, owner string, filter Filter) []storage.TxRecord {
	out := make([]storage.TxRecord, 0, len(records))
	for _, rec := range records {
		if filter == FilterAll || Direction(rec, owner) == filter {
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > c.cfg.Limit {
		out = out[:c.cfg.Limit]
	}
	return out
}
