package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(filepath.Join(t.TempDir(), "archives"))
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "Transcript.PDF")
	require.NoError(t, os.WriteFile(src, []byte("archive body"), 0o644))

	rel, err := store.Import(42, src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "42"+string(filepath.Separator)))
	assert.Equal(t, ".pdf", filepath.Ext(rel))

	f, err := store.Open(rel)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "archive body", string(body))

	require.NoError(t, store.Delete(rel))
	_, err = os.Stat(store.Path(rel))
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, store.Delete(rel))
}

func TestResolveRejectsEscapes(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("../outside.txt")
	assert.ErrorIs(t, err, ErrOutsideBase)
	_, err = store.Open("/etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideBase)
	assert.Equal(t, "", store.Path("../x"))
}

func TestImportMissingSource(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.Import(1, filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
