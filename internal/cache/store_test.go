package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mira/internal/media"
)

func testKey(seed string) string {
	return Key([]byte(seed), media.KindFile, media.Context{})
}

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	store, err := New(t.TempDir(), ttl, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	return store
}

func TestStoreRoundtrip(t *testing.T) {
	store := newTestStore(t, time.Hour)
	key := testKey("roundtrip")
	entry := Entry{
		Text:      "a summary",
		Metadata:  media.Metadata{FileName: "notes.txt", FileSize: 12, MimeType: "application/octet-stream"},
		Analysis:  map[string]any{"summary": "a summary"},
		Timestamp: time.Now(),
	}

	require.NoError(t, store.Set(key, entry))

	got, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, entry.Text, got.Text)
	assert.Equal(t, entry.Metadata, got.Metadata)
}

func TestStoreSetWritesFileBeforeIndex(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, time.Hour, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())

	key := testKey("persisted")
	require.NoError(t, store.Set(key, Entry{Text: "t", Timestamp: time.Now()}))

	_, statErr := os.Stat(filepath.Join(dir, key+".json"))
	assert.NoError(t, statErr, "every indexed entry must exist on disk")
	assert.Equal(t, 1, store.Len())
}

func TestStoreGetRejectsExpiredEntry(t *testing.T) {
	store := newTestStore(t, time.Hour)
	key := testKey("expiring")
	require.NoError(t, store.Set(key, Entry{Text: "old", Timestamp: time.Now()}))

	// An entry written just over the TTL ago must not be served, even though
	// it is still indexed.
	store.Now = func() time.Time { return time.Now().Add(time.Hour + time.Millisecond) }

	_, ok := store.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len(), "stale entry should be dropped from the index")
}

func TestInitializePrunesExpiredFiles(t *testing.T) {
	dir := t.TempDir()

	fresh := testKey("fresh")
	stale := testKey("stale")
	writeEntryFile(t, dir, fresh, Entry{Text: "fresh", Timestamp: time.Now()})
	writeEntryFile(t, dir, stale, Entry{Text: "stale", Timestamp: time.Now().Add(-25 * time.Hour)})

	store, err := New(dir, DefaultTTL, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())

	_, ok := store.Get(fresh)
	assert.True(t, ok)
	_, ok = store.Get(stale)
	assert.False(t, ok)

	_, statErr := os.Stat(filepath.Join(dir, stale+".json"))
	assert.True(t, os.IsNotExist(statErr), "expired entry file should be removed at startup")
}

func TestInitializeSkipsCorruptEntries(t *testing.T) {
	dir := t.TempDir()

	good := testKey("good")
	bad := testKey("bad")
	writeEntryFile(t, dir, good, Entry{Text: "good", Timestamp: time.Now()})
	require.NoError(t, os.WriteFile(filepath.Join(dir, bad+".json"), []byte("{not json"), 0o644))

	store, err := New(dir, DefaultTTL, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(), "corrupt entries must not fail startup")

	_, ok := store.Get(good)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestInitializeIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a cache entry"), 0o644))

	store, err := New(dir, DefaultTTL, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	assert.Equal(t, 0, store.Len())

	// The foreign file survives the scan untouched.
	_, statErr := os.Stat(filepath.Join(dir, "README.txt"))
	assert.NoError(t, statErr)
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New("  ", time.Hour, nil, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "required"))
}

func writeEntryFile(t *testing.T, dir, key string, entry Entry) {
	t.Helper()
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, key+".json"), data, 0o644))
}
