package fsutil_test

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MichalMitros/evend-publisher/internal/platform/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	require.NoError(t, fsutil.WriteFileAtomic(path, []byte("first"), 0o644), "should write new file")
	require.NoError(t, fsutil.WriteFileAtomic(path, []byte("second"), 0o600), "should replace file")

	data, err := os.ReadFile(path)
	require.NoError(t, err, "should read file")
	assert.Equal(t, "second", string(data), "should contain latest content")

	info, err := os.Stat(path)
	require.NoError(t, err, "should stat file")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "should apply file mode")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err, "should read dir")
	assert.Len(t, entries, 1, "should not leave temporary files")
}

func TestUnitLockExcludesConcurrentHolders(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "counter.lock")
	var counter, inside atomic.Int32
	var overlapped atomic.Bool

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := fsutil.Lock(path)
			if !assert.NoError(t, err, "should lock") {
				return
			}
			if inside.Add(1) > 1 {
				overlapped.Store(true)
			}
			counter.Add(1)
			inside.Add(-1)
			assert.NoError(t, unlock(), "should unlock")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), counter.Load(), "should count every holder")
	assert.False(t, overlapped.Load(), "should allow single holder at a time")
}

func TestUnitSafeName(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		id       string
		expected string
	}{
		"plain":      {id: "tenant-42", expected: "tenant-42"},
		"email":      {id: "shop@example.com", expected: "shop_40example.com"},
		"underscore": {id: "shop_example.com", expected: "shop_5Fexample.com"},
		"path":       {id: "../etc/passwd", expected: "_2E._2Fetc_2Fpasswd"},
		"dots only":  {id: "..", expected: "_2E."},
		"empty":      {id: "", expected: "_"},
		"accents":    {id: "boutique-é", expected: "boutique-_C3_A9"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, fsutil.SafeName(tt.id), "should return correct name")
		})
	}
}

func TestUnitSafeNameDistinctIDs(t *testing.T) {
	t.Parallel()

	ids := []string{
		"alice@shop.ca", "alice_shop.ca", "alice_40shop.ca", "alice shop.ca",
		"", "_", "__", ".", "..", "_2E", "a/b", "a_b", "a_2Fb", "A_B", "a-b",
	}

	owners := map[string]string{}
	for _, id := range ids {
		name := fsutil.SafeName(id)
		owner, taken := owners[name]
		assert.Falsef(t, taken, "%q and %q should map to different names, both got %q", owner, id, name)
		owners[name] = id

		assert.NotContains(t, name, "/", "shouldn't contain path separator")
		assert.NotEqual(t, '.', rune(name[0]), "shouldn't start with dot")
	}
}
