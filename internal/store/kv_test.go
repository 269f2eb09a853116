package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryKV_SetGetDel(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "session:abc", `{"user_id":"u1"}`, 0))
	val, err := kv.Get(ctx, "session:abc")
	require.NoError(t, err)
	require.Equal(t, `{"user_id":"u1"}`, val)

	require.NoError(t, kv.Del(ctx, "session:abc"))
	_, err = kv.Get(ctx, "session:abc")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_TTLExpiry(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "short", "v", 10*time.Millisecond))
	val, err := kv.Get(ctx, "short")
	require.NoError(t, err)
	require.Equal(t, "v", val)

	time.Sleep(20 * time.Millisecond)
	_, err = kv.Get(ctx, "short")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_ScanKeys(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "pincode:400001", "a", 0))
	require.NoError(t, kv.Set(ctx, "pincode:560001", "b", 0))
	require.NoError(t, kv.Set(ctx, "session:abc", "c", 0))

	keys, err := kv.ScanKeys(ctx, "pincode:*")
	require.NoError(t, err)
	require.Len(t, keys, 2)

	keys, err = kv.ScanKeys(ctx, "*")
	require.NoError(t, err)
	require.Len(t, keys, 3)

	keys, err = kv.ScanKeys(ctx, "session:abc")
	require.NoError(t, err)
	require.Equal(t, []string{"session:abc"}, keys)
}
