// Package dictionary owns the compound entries and the published trie
// snapshots. All mutations (file reloads and admin API writes) are serialised
// through a single writer; readers pin an immutable snapshot per request and
// never block.
package dictionary

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"thai-search-proxy/domain"
	"thai-search-proxy/trie"
)

// Snapshot is one immutable dictionary generation. Entries and Trie are
// never mutated after publish.
type Snapshot struct {
	Generation uint64
	Entries    map[string]domain.CompoundEntry // keyed by NFC surface
	Trie       *trie.Trie
	BuiltAt    time.Time
}

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int { return len(s.Entries) }

// Lookup returns the entry for an NFC-normalised surface.
func (s *Snapshot) Lookup(surface string) (domain.CompoundEntry, bool) {
	e, ok := s.Entries[surface]
	return e, ok
}

// Store loads, validates and publishes dictionary snapshots.
type Store struct {
	mu sync.Mutex // single-writer serialisation for all mutations

	current atomic.Pointer[Snapshot]

	path        string
	overlayPath string

	// overlay mutations layered on top of the file source
	overlay map[string]domain.CompoundEntry
	removed map[string]bool

	fileEntries []domain.CompoundEntry

	subscribers []func(*Snapshot)
	degraded    atomic.Bool
	generation  atomic.Uint64
	lastReload  atomic.Int64 // unix nano

	logger *slog.Logger
}

// NewStore creates a store for the given dictionary file. The store starts
// with an empty generation-zero snapshot; call Load to read the file.
func NewStore(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:        path,
		overlayPath: path + ".overlay.json",
		overlay:     make(map[string]domain.CompoundEntry),
		removed:     make(map[string]bool),
		logger:      logger,
	}
	s.current.Store(emptySnapshot())
	return s
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Generation: 0,
		Entries:    map[string]domain.CompoundEntry{},
		Trie:       trie.Build(nil),
		BuiltAt:    time.Now().UTC(),
	}
}

// Load reads the primary file and the overlay (if present) and publishes a
// new snapshot. A failed initial load leaves the empty snapshot in place and
// marks the store degraded; the service keeps running.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Reload re-reads the primary file, keeping the current snapshot on failure.
// Called by the file watcher.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) && s.current.Load().Generation == 0 {
			s.degraded.Store(true)
			s.logger.Warn("dictionary file missing, starting with empty dictionary",
				"path", s.path,
			)
			s.publishLocked(nil)
			return nil
		}
		s.degraded.Store(true)
		return &domain.ProxyError{
			Kind: domain.KindDictionaryLoadFailed,
			Op:   "Load",
			Err:  err,
		}
	}

	entries, err := ParseDictionary(s.path, data)
	if err != nil {
		s.degraded.Store(true)
		s.logger.Warn("dictionary load failed, keeping previous snapshot",
			"path", s.path,
			"err", err,
		)
		return &domain.ProxyError{
			Kind: domain.KindDictionaryLoadFailed,
			Op:   "Load",
			Err:  err,
		}
	}

	s.fileEntries = entries
	s.loadOverlayLocked()
	s.degraded.Store(false)
	s.publishLocked(nil)
	return nil
}

// loadOverlayLocked merges previously persisted admin mutations. Overlay
// problems never fail a load; they are logged and skipped.
func (s *Store) loadOverlayLocked() {
	data, err := os.ReadFile(s.overlayPath)
	if err != nil {
		return
	}
	var ov overlayJSON
	if err := json.Unmarshal(data, &ov); err != nil {
		s.logger.Warn("dictionary overlay unreadable, ignoring", "path", s.overlayPath, "err", err)
		return
	}
	s.overlay = make(map[string]domain.CompoundEntry, len(ov.Entries))
	s.removed = make(map[string]bool, len(ov.Removed))
	for _, e := range ov.Entries {
		e.Surface = domain.NormalizeSurface(e.Surface)
		if err := e.Validate(); err != nil {
			s.logger.Warn("dictionary overlay entry invalid, skipping", "surface", e.Surface, "err", err)
			continue
		}
		s.overlay[e.Surface] = e
	}
	for _, surface := range ov.Removed {
		s.removed[domain.NormalizeSurface(surface)] = true
	}
}

type overlayJSON struct {
	Entries []domain.CompoundEntry `json:"entries"`
	Removed []string               `json:"removed,omitempty"`
}

// publishLocked builds a new immutable snapshot from file entries plus the
// overlay and swaps it in atomically. Builds happen off the read path;
// in-flight requests keep their pinned snapshot.
func (s *Store) publishLocked(extra []func(*Snapshot)) {
	merged := make(map[string]domain.CompoundEntry, len(s.fileEntries)+len(s.overlay))
	for _, e := range s.fileEntries {
		if s.removed[e.Surface] {
			continue
		}
		merged[e.Surface] = e
	}
	for surface, e := range s.overlay {
		merged[surface] = e
	}

	surfaces := make([]string, 0, len(merged))
	for surface := range merged {
		surfaces = append(surfaces, surface)
	}
	sort.Strings(surfaces)

	tentries := make([]trie.Entry, 0, len(merged))
	for _, surface := range surfaces {
		tentries = append(tentries, trie.Entry{Surface: surface, Confidence: merged[surface].Confidence})
	}

	snap := &Snapshot{
		Generation: s.generation.Add(1),
		Entries:    merged,
		Trie:       trie.Build(tentries),
		BuiltAt:    time.Now().UTC(),
	}
	s.current.Store(snap)
	s.lastReload.Store(snap.BuiltAt.UnixNano())

	s.logger.Info("dictionary snapshot published",
		"generation", snap.Generation,
		"entries", snap.Len(),
	)

	for _, fn := range s.subscribers {
		fn(snap)
	}
	for _, fn := range extra {
		fn(snap)
	}
}

// Snapshot returns the current published snapshot. Callers pin the returned
// value for the duration of their request.
func (s *Store) Snapshot() *Snapshot { return s.current.Load() }

// Subscribe registers a callback invoked after every publish. Callbacks run
// on the writer goroutine and must be fast.
func (s *Store) Subscribe(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Degraded reports whether the last file load failed.
func (s *Store) Degraded() bool { return s.degraded.Load() }

// LastReload returns the publish time of the current snapshot.
func (s *Store) LastReload() time.Time {
	return time.Unix(0, s.lastReload.Load()).UTC()
}

// Path returns the primary dictionary file path (watched for changes).
func (s *Store) Path() string { return s.path }

// Add inserts a new entry through the admin overlay. Duplicate surfaces are
// rejected so the API can answer 409.
func (s *Store) Add(entry domain.CompoundEntry) (domain.CompoundEntry, error) {
	entry.Surface = domain.NormalizeSurface(entry.Surface)
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if err := entry.Validate(); err != nil {
		return entry, &domain.ProxyError{Kind: domain.KindInvalidInput, Op: "Add", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.current.Load().Entries[entry.Surface]; exists {
		return entry, domain.NewProxyError(domain.KindDuplicateEntry, "Add", "surface %q already exists", entry.Surface)
	}
	s.overlay[entry.Surface] = entry
	delete(s.removed, entry.Surface)
	s.publishLocked(nil)
	s.persistOverlayLocked()
	return entry, nil
}

// Update replaces an existing entry. The surface itself is immutable; use
// Remove plus Add to rename.
func (s *Store) Update(surface string, entry domain.CompoundEntry) (domain.CompoundEntry, error) {
	surface = domain.NormalizeSurface(surface)
	entry.Surface = surface
	entry.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, exists := s.current.Load().Entries[surface]
	if !exists {
		return entry, domain.NewProxyError(domain.KindNotFound, "Update", "surface %q not found", surface)
	}
	entry.CreatedAt = prev.CreatedAt
	if err := entry.Validate(); err != nil {
		return entry, &domain.ProxyError{Kind: domain.KindInvalidInput, Op: "Update", Err: err}
	}
	s.overlay[surface] = entry
	delete(s.removed, surface)
	s.publishLocked(nil)
	s.persistOverlayLocked()
	return entry, nil
}

// Remove deletes an entry (file-sourced entries are masked via the overlay).
func (s *Store) Remove(surface string) error {
	surface = domain.NormalizeSurface(surface)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.current.Load().Entries[surface]; !exists {
		return domain.NewProxyError(domain.KindNotFound, "Remove", "surface %q not found", surface)
	}
	delete(s.overlay, surface)
	s.removed[surface] = true
	s.publishLocked(nil)
	s.persistOverlayLocked()
	return nil
}

// List returns entries filtered by category, ordered by surface, with the
// total count before pagination.
func (s *Store) List(category string, offset, limit int) ([]domain.CompoundEntry, int) {
	snap := s.current.Load()
	all := make([]domain.CompoundEntry, 0, snap.Len())
	for _, e := range snap.Entries {
		if category != "" && e.Category != category {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Surface < all[j].Surface })

	total := len(all)
	if offset >= total {
		return []domain.CompoundEntry{}, total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total
}

// persistOverlayLocked writes the admin mutations next to the primary file
// so they survive restarts. Failures are logged, not fatal: the snapshot is
// already published.
func (s *Store) persistOverlayLocked() {
	entries := make([]domain.CompoundEntry, 0, len(s.overlay))
	surfaces := make([]string, 0, len(s.overlay))
	for surface := range s.overlay {
		surfaces = append(surfaces, surface)
	}
	sort.Strings(surfaces)
	for _, surface := range surfaces {
		entries = append(entries, s.overlay[surface])
	}

	removed := make([]string, 0, len(s.removed))
	for surface := range s.removed {
		removed = append(removed, surface)
	}
	sort.Strings(removed)

	data, err := json.MarshalIndent(overlayJSON{Entries: entries, Removed: removed}, "", "  ")
	if err != nil {
		s.logger.Error("dictionary overlay marshal failed", "err", err)
		return
	}
	tmp := s.overlayPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error("dictionary overlay write failed", "path", tmp, "err", err)
		return
	}
	if err := os.Rename(tmp, s.overlayPath); err != nil {
		s.logger.Error("dictionary overlay rename failed", "path", s.overlayPath, "err", err)
	}
}

// Stats summarises the store for health reporting.
type Stats struct {
	Generation uint64    `json:"generation"`
	Entries    int       `json:"entries"`
	LastReload time.Time `json:"last_reload"`
	Degraded   bool      `json:"degraded"`
}

// Stats returns the current store statistics.
func (s *Store) Stats() Stats {
	snap := s.current.Load()
	return Stats{
		Generation: snap.Generation,
		Entries:    snap.Len(),
		LastReload: s.LastReload(),
		Degraded:   s.Degraded(),
	}
}
