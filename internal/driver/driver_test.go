package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/nova/internal/cache"
)

const goodSource = `class C { int add(int a, int b) { return a + b; } }`
const badSource = `class C { int add(int a, int b) { return a + ; } }`

func Test_Run_stampsARunIDAndCompiles(t *testing.T) {
	result, err := Run(context.Background(), "main.nova", goodSource)
	require.NoError(t, err)
	assert.NotEqual(t, result.RunID.String(), "00000000-0000-0000-0000-000000000000")
	require.NotNil(t, result.Module)
	assert.True(t, result.Success())
	assert.False(t, result.Cached)
}

func Test_Run_reportsCompileErrors(t *testing.T) {
	result, err := Run(context.Background(), "main.nova", badSource)
	require.NoError(t, err)
	assert.Nil(t, result.Module)
	assert.False(t, result.Success())
	assert.NotEmpty(t, result.Errors)
}

func Test_Driver_withoutCacheAlwaysCompiles(t *testing.T) {
	d := New(nil)
	r1, err := d.Run(context.Background(), "main.nova", goodSource)
	require.NoError(t, err)
	assert.False(t, r1.Cached)

	r2, err := d.Run(context.Background(), "main.nova", goodSource)
	require.NoError(t, err)
	assert.False(t, r2.Cached)
}

func Test_Driver_withCacheSecondRunIsAHit(t *testing.T) {
	store, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	d := New(store)
	ctx := context.Background()

	first, err := d.Run(ctx, "main.nova", goodSource)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, first.Success())
	require.NotNil(t, first.Module)

	second, err := d.Run(ctx, "main.nova", goodSource)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.True(t, second.Success())
	assert.Nil(t, second.Module, "a cache hit doesn't rebuild the module")
}

func Test_Driver_withCacheContentChangeIsAMiss(t *testing.T) {
	store, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	d := New(store)
	ctx := context.Background()

	_, err = d.Run(ctx, "main.nova", goodSource)
	require.NoError(t, err)

	changed, err := d.Run(ctx, "main.nova", badSource)
	require.NoError(t, err)
	assert.False(t, changed.Cached)
	assert.False(t, changed.Success())
}

func Test_Watcher_onChangeDelegatesToDriver(t *testing.T) {
	d := New(nil)
	w := NewWatcher(d)
	result, err := w.OnChange(context.Background(), "main.nova", goodSource)
	require.NoError(t, err)
	assert.True(t, result.Success())
}
