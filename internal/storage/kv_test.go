package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawchat/internal/config"
	"clawchat/internal/domain"
)

func backends(t *testing.T) map[string]domain.KVStore {
	t.Helper()
	sqliteKV, err := NewSQLiteKV(filepath.Join(t.TempDir(), "kv.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteKV.Close() })
	mr := miniredis.RunT(t)
	redisKV, err := NewRedisKV("redis://"+mr.Addr(), "clawchat-test")
	require.NoError(t, err)
	t.Cleanup(func() { redisKV.Close() })
	return map[string]domain.KVStore{
		"sqlite": sqliteKV,
		"memory": NewMemoryKV(),
		"redis":  redisKV,
	}
}

func TestKV_Contract(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set(ctx, "clawchat_main_s1", `[1]`))
			require.NoError(t, kv.Set(ctx, "clawchat_main_s1", `[1,2]`))
			v, ok, err := kv.Get(ctx, "clawchat_main_s1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[1,2]`, v)

			require.NoError(t, kv.Set(ctx, "clawchat_code_s2", `[]`))
			require.NoError(t, kv.Set(ctx, "other", `x`))
			keys, err := kv.Keys(ctx, "clawchat_")
			require.NoError(t, err)
			assert.Equal(t, []string{"clawchat_code_s2", "clawchat_main_s1"}, keys)

			require.NoError(t, kv.Delete(ctx, "clawchat_code_s2"))
			_, ok, _ = kv.Get(ctx, "clawchat_code_s2")
			assert.False(t, ok)
		})
	}
}

func TestSQLiteKV_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")

	kv, err := NewSQLiteKV(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, ThemeKey, "light"))
	require.NoError(t, kv.Close())

	kv, err = NewSQLiteKV(path, testLogger())
	require.NoError(t, err)
	defer kv.Close()
	v, ok, err := kv.Get(ctx, ThemeKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", v)
}

func TestOpen_Drivers(t *testing.T) {
	kv, err := Open(config.StorageConfig{Driver: "memory"}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	kv, err = Open(config.StorageConfig{Driver: "sqlite", DBPath: filepath.Join(t.TempDir(), "c.db")}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteKV{}, kv)
	kv.Close()

	_, err = Open(config.StorageConfig{Driver: "etcd"}, testLogger())
	assert.Error(t, err)
}

func TestNewRedisKV_RejectsBadURL(t *testing.T) {
	_, err := NewRedisKV("", "")
	assert.Error(t, err)

	_, err = NewRedisKV("http://localhost:6379", "")
	assert.Error(t, err)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `clawchat_`, escapeGlob("clawchat_"))
	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
}

func TestRedisKV_Namespace(t *testing.T) {
	r := &RedisKV{namespace: "team"}
	assert.Equal(t, "team:clawchat_theme", r.key(ThemeKey))
	assert.Equal(t, "clawchat_theme", (&RedisKV{}).key(ThemeKey))
}

func TestRedisKV_NamespacesDoNotOverlap(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	team, err := NewRedisKV("redis://"+mr.Addr(), "team")
	require.NoError(t, err)
	defer team.Close()
	solo, err := NewRedisKV("redis://"+mr.Addr(), "solo")
	require.NoError(t, err)
	defer solo.Close()

	require.NoError(t, team.Set(ctx, "clawchat_main_s1", `[]`))
	require.NoError(t, solo.Set(ctx, "clawchat_main_s2", `[]`))

	keys, err := team.Keys(ctx, "clawchat_")
	require.NoError(t, err)
	assert.Equal(t, []string{"clawchat_main_s1"}, keys)
	_, ok, err := solo.Get(ctx, "clawchat_main_s1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("team:clawchat_main_s1"))
}
