package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/nova/internal/diag"
	"github.com/dekarrin/nova/internal/source"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func Test_Cache_missOnUnseenPath(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Lookup(context.Background(), "main.nova", "abc123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_Cache_hitAfterPutWithMatchingHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "main.nova", "hash-1", nil))

	entry, ok, err := s.Lookup(ctx, "main.nova", "hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, entry.Success)
	assert.Empty(t, entry.Diagnostics)
}

func Test_Cache_missAfterContentHashChanges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "main.nova", "hash-1", nil))
	_, ok, err := s.Lookup(ctx, "main.nova", "hash-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_Cache_storesAndRoundTripsDiagnostics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	errs := []*diag.Error{
		{Kind: diag.ParseError, Message: "unexpected token", Location: source.Location{File: "main.nova"}},
	}
	require.NoError(t, s.Put(ctx, "main.nova", "hash-1", errs))

	entry, ok, err := s.Lookup(ctx, "main.nova", "hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, entry.Success)
	require.Len(t, entry.Diagnostics, 1)
	assert.Equal(t, "ParseError", entry.Diagnostics[0].Kind)
	assert.Equal(t, "unexpected token", entry.Diagnostics[0].Message)
}

func Test_Cache_putOverwritesPriorRowForSamePath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "main.nova", "hash-1", []*diag.Error{
		{Kind: diag.LexError, Message: "bad escape", Location: source.Location{File: "main.nova"}},
	}))
	require.NoError(t, s.Put(ctx, "main.nova", "hash-2", nil))

	_, ok, err := s.Lookup(ctx, "main.nova", "hash-1")
	require.NoError(t, err)
	assert.False(t, ok, "the row for hash-1 should have been replaced")

	entry, ok, err := s.Lookup(ctx, "main.nova", "hash-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, entry.Success)
}
