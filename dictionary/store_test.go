package dictionary

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thai-search-proxy/domain"
)

func writeDict(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "compounds.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestStore(t *testing.T, content string) *Store {
	t.Helper()
	path := writeDict(t, t.TempDir(), content)
	store := NewStore(path, slog.Default())
	require.NoError(t, store.Load(context.Background()))
	return store
}

func TestStoreLoadPublishesSnapshot(t *testing.T) {
	store := newTestStore(t, `{"thai_japanese": ["วากาเมะ", "ซาชิมิ"]}`)

	snap := store.Snapshot()
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, 2, snap.Len())
	assert.True(t, snap.Trie.Contains("วากาเมะ"))
	assert.False(t, store.Degraded())
}

func TestStoreMissingFileStartsEmptyDegraded(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.json"), slog.Default())
	require.NoError(t, store.Load(context.Background()))

	assert.True(t, store.Degraded())
	assert.Equal(t, 0, store.Snapshot().Len())
}

func TestStoreInvalidFileKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeDict(t, dir, `{"misc": ["วากาเมะ"]}`)
	store := NewStore(path, slog.Default())
	require.NoError(t, store.Load(context.Background()))
	first := store.Snapshot()

	require.NoError(t, os.WriteFile(path, []byte(`{"misc": ["x", "วากาเมะ"]}`), 0o644))
	err := store.Reload()
	require.Error(t, err)
	assert.Equal(t, domain.KindDictionaryLoadFailed, domain.KindOf(err))

	// old generation stays active
	assert.Same(t, first, store.Snapshot())
	assert.True(t, store.Degraded())
}

func TestStoreSnapshotIsolation(t *testing.T) {
	store := newTestStore(t, `{"misc": ["วากาเมะ"]}`)
	pinned := store.Snapshot()

	require.NoError(t, store.Remove("วากาเมะ"))

	// the pinned snapshot still sees the entry, the new one does not
	assert.True(t, pinned.Trie.Contains("วากาเมะ"))
	assert.False(t, store.Snapshot().Trie.Contains("วากาเมะ"))
	assert.Greater(t, store.Snapshot().Generation, pinned.Generation)
}

func TestStoreAddDuplicateRejected(t *testing.T) {
	store := newTestStore(t, `{"misc": ["วากาเมะ"]}`)

	_, err := store.Add(domain.CompoundEntry{Surface: "วากาเมะ", Category: "misc", Confidence: 1})
	require.Error(t, err)
	assert.Equal(t, domain.KindDuplicateEntry, domain.KindOf(err))
}

func TestStoreAddInvalidRejected(t *testing.T) {
	store := newTestStore(t, `{"misc": ["วากาเมะ"]}`)

	_, err := store.Add(domain.CompoundEntry{Surface: "wakame", Category: "misc", Confidence: 1})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestStoreUpdateAndRemove(t *testing.T) {
	store := newTestStore(t, `{"misc": ["วากาเมะ"]}`)

	updated, err := store.Update("วากาเมะ", domain.CompoundEntry{
		Surface:    "วากาเมะ",
		Components: []string{"วา", "กา", "เมะ"},
		Category:   "thai_japanese",
		Confidence: 0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, "thai_japanese", updated.Category)

	got, ok := store.Snapshot().Lookup("วากาเมะ")
	require.True(t, ok)
	assert.Equal(t, 0.8, got.Confidence)

	require.NoError(t, store.Remove("วากาเมะ"))
	_, ok = store.Snapshot().Lookup("วากาเมะ")
	assert.False(t, ok)

	err = store.Remove("วากาเมะ")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestStoreOverlaySurvivesReload(t *testing.T) {
	dir := t.TempDir()
	path := writeDict(t, dir, `{"misc": ["วากาเมะ"]}`)
	store := NewStore(path, slog.Default())
	require.NoError(t, store.Load(context.Background()))

	_, err := store.Add(domain.CompoundEntry{Surface: "ซาชิมิ", Category: "misc", Confidence: 1})
	require.NoError(t, err)
	require.NoError(t, store.Remove("วากาเมะ"))

	// fresh store over the same files replays the overlay
	again := NewStore(path, slog.Default())
	require.NoError(t, again.Load(context.Background()))
	assert.True(t, again.Snapshot().Trie.Contains("ซาชิมิ"))
	assert.False(t, again.Snapshot().Trie.Contains("วากาเมะ"))
}

func TestStoreList(t *testing.T) {
	store := newTestStore(t, `{"a": ["วากาเมะ", "ซาชิมิ"], "b": ["ซูชิ"]}`)

	all, total := store.List("", 0, 10)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	onlyA, total := store.List("a", 0, 10)
	assert.Equal(t, 2, total)
	assert.Len(t, onlyA, 2)

	page, total := store.List("", 1, 1)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 1)

	empty, total := store.List("", 10, 10)
	assert.Equal(t, 3, total)
	assert.Empty(t, empty)
}

func TestStoreSubscribeNotifiedOnPublish(t *testing.T) {
	store := newTestStore(t, `{"misc": ["วากาเมะ"]}`)

	var seen []uint64
	store.Subscribe(func(s *Snapshot) { seen = append(seen, s.Generation) })

	_, err := store.Add(domain.CompoundEntry{Surface: "ซูชิ", Category: "misc", Confidence: 1})
	require.NoError(t, err)
	require.NoError(t, store.Reload())

	assert.Len(t, seen, 2)
	assert.IsIncreasing(t, seen)
}

func TestWatcherReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := writeDict(t, dir, `{"misc": ["วากาเมะ"]}`)
	store := NewStore(path, slog.Default())
	require.NoError(t, store.Load(context.Background()))

	watcher := NewWatcher(store, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"misc": ["วากาเมะ", "ซูชิ"]}`), 0o644))

	assert.Eventually(t, func() bool {
		return store.Snapshot().Trie.Contains("ซูชิ")
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWatcherKeepsSnapshotOnBadWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeDict(t, dir, `{"misc": ["วากาเมะ"]}`)
	store := NewStore(path, slog.Default())
	require.NoError(t, store.Load(context.Background()))
	gen := store.Snapshot().Generation

	watcher := NewWatcher(store, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = watcher.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))

	assert.Eventually(t, func() bool { return store.Degraded() }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, gen, store.Snapshot().Generation)
	assert.True(t, store.Snapshot().Trie.Contains("วากาเมะ"))
}
