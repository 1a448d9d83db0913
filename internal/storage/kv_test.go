package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// kvFactories lets the contract tests run against every backend.
func kvFactories(t *testing.T) map[string]func(t *testing.T) KV {
	t.Helper()
	return map[string]func(t *testing.T) KV{
		"file": func(t *testing.T) KV {
			kv, err := NewFileKV(filepath.Join(t.TempDir(), "store.json"))
			require.NoError(t, err)
			return kv
		},
		"sqlite": func(t *testing.T) KV {
			kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "store.db"))
			require.NoError(t, err)
			return kv
		},
		"memory": func(t *testing.T) KV {
			return NewMemKV()
		},
	}
}

func TestKV_SetGetRoundTrip(t *testing.T) {
	for name, newKV := range kvFactories(t) {
		t.Run(name, func(t *testing.T) {
			kv := newKV(t)
			defer func() { require.NoError(t, kv.Close()) }()

			require.NoError(t, kv.Set(t.Context(), "k", `{"v":1}`))

			got, err := kv.Get(t.Context(), "k")
			require.NoError(t, err)
			require.Equal(t, `{"v":1}`, got)
		})
	}
}

func TestKV_GetMissingKey_ReturnsNotFound(t *testing.T) {
	for name, newKV := range kvFactories(t) {
		t.Run(name, func(t *testing.T) {
			kv := newKV(t)
			defer func() { require.NoError(t, kv.Close()) }()

			_, err := kv.Get(t.Context(), "missing")
			require.Error(t, err)
			require.True(t, IsNotFound(err))
		})
	}
}

func TestKV_SetOverwritesPreviousValue(t *testing.T) {
	for name, newKV := range kvFactories(t) {
		t.Run(name, func(t *testing.T) {
			kv := newKV(t)
			defer func() { require.NoError(t, kv.Close()) }()

			require.NoError(t, kv.Set(t.Context(), "k", "old"))
			require.NoError(t, kv.Set(t.Context(), "k", "new"))

			got, err := kv.Get(t.Context(), "k")
			require.NoError(t, err)
			require.Equal(t, "new", got)
		})
	}
}

func TestKV_DeleteIsIdempotent(t *testing.T) {
	for name, newKV := range kvFactories(t) {
		t.Run(name, func(t *testing.T) {
			kv := newKV(t)
			defer func() { require.NoError(t, kv.Close()) }()

			require.NoError(t, kv.Set(t.Context(), "k", "v"))
			require.NoError(t, kv.Delete(t.Context(), "k"))
			require.NoError(t, kv.Delete(t.Context(), "k"))

			_, err := kv.Get(t.Context(), "k")
			require.True(t, IsNotFound(err))
		})
	}
}

func TestFileKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	kv, err := NewFileKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(t.Context(), "snapshot", `{"timers":[]}`))
	require.NoError(t, kv.Close())

	reopened, err := NewFileKV(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	got, err := reopened.Get(t.Context(), "snapshot")
	require.NoError(t, err)
	require.Equal(t, `{"timers":[]}`, got)
}

func TestFileKV_WriteLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	kv, err := NewFileKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(t.Context(), "k", "v"))
	require.NoError(t, kv.Close())

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err), "atomic rename must consume the temp file")
}

func TestFileKV_CorruptFile_FailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := NewFileKV(path)
	require.Error(t, err)
}

func TestSQLiteKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(t.Context(), "snapshot", "payload"))
	require.NoError(t, kv.Close())

	reopened, err := NewSQLiteKV(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	got, err := reopened.Get(t.Context(), "snapshot")
	require.NoError(t, err)
	require.Equal(t, "payload", got)
}

func TestMemKV_SetCountTracksAttempts(t *testing.T) {
	kv := NewMemKV()

	require.NoError(t, kv.Set(t.Context(), "k", "a"))
	require.NoError(t, kv.Set(t.Context(), "k", "b"))
	require.Equal(t, 2, kv.SetCount("k"))
	require.Equal(t, 0, kv.SetCount("other"))

	kv.Seed("seeded", "v")
	require.Equal(t, 0, kv.SetCount("seeded"), "seeding is not a write")
}
