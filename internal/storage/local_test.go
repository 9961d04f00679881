package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a clock that advances one millisecond per call, so
// same-name uploads in the same test never race the real clock.
func fakeClock(t *testing.T) func() time.Time {
	t.Helper()
	base := time.Unix(1700000000, 0)
	calls := 0
	return func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Millisecond)
	}
}

func TestLocalStoreStoreAndRemove(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(filepath.Join(root, "icons"), "/uploads/icons", zerolog.Nop())

	public, err := store.Store(context.Background(), "My Icon.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(public, "/uploads/icons/page_"))
	require.True(t, strings.HasSuffix(public, "my-icon.png"))

	diskPath := filepath.Join(root, "icons", filepath.Base(public))
	content, err := os.ReadFile(diskPath)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(content))

	require.NoError(t, store.Remove(context.Background(), public))
	_, err = os.Stat(diskPath)
	require.True(t, os.IsNotExist(err))
}

func TestLocalStoreCreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "icons")
	store := NewLocalStore(root, "uploads/icons", zerolog.Nop())

	_, err := store.Store(context.Background(), "a.png", strings.NewReader("x"))
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestLocalStoreUniqueNamesForSameUpload(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/uploads/icons", zerolog.Nop())
	store.now = fakeClock(t)

	first, err := store.Store(context.Background(), "icon.png", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := store.Store(context.Background(), "icon.png", strings.NewReader("b"))
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestLocalStoreRemoveMissingFileIsNotError(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/uploads/icons", zerolog.Nop())

	require.NoError(t, store.Remove(context.Background(), "/uploads/icons/page_1_gone.png"))
	require.NoError(t, store.Remove(context.Background(), ""))
}

func TestLocalStoreRemoveIgnoresPathTraversal(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "/uploads/icons", zerolog.Nop())

	outside := filepath.Join(filepath.Dir(root), "victim.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep me"), 0o644))

	// Only the base name is honoured, so the file outside the root survives.
	require.NoError(t, store.Remove(context.Background(), "/uploads/icons/../../victim.txt"))
	_, err := os.Stat(outside)
	require.NoError(t, err)
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Simple.png":         "simple.png",
		"With Spaces.JPG":    "with-spaces.jpg",
		"../../../etc/x.svg": "x.svg",
		"???":                "icon.bin",
		"noext":              "noext.bin",
	}
	for input, want := range cases {
		require.Equal(t, want, sanitizeFileName(input), "input %q", input)
	}
}
