package cache

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider 记录每次收到的文本
type countingProvider struct {
	calls [][]string
	fail  error
}

func (p *countingProvider) Translate(_ context.Context, texts []string, _, _ string) ([]string, error) {
	p.calls = append(p.calls, texts)
	if p.fail != nil {
		return nil, p.fail
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = strings.ToUpper(t)
	}
	return out, nil
}

func (p *countingProvider) Name() string { return "counting" }

func TestKey(t *testing.T) {
	assert.Equal(t, Key("English", "Italian", "Hello"), Key("en", "it", "Hello"))
	assert.NotEqual(t, Key("en", "it", "Hello"), Key("en", "fr", "Hello"))
	assert.NotEqual(t, Key("en", "it", "Hello"), Key("en", "it", "Hello "))
	assert.Len(t, Key("en", "it", "x"), 32)
}

func TestTranslatorForwardsOnlyMisses(t *testing.T) {
	next := &countingProvider{}
	store := NewMemoryStore()
	c := New(next, store, nil)
	ctx := context.Background()

	out, err := c.Translate(ctx, []string{"a", " ", "b"}, "English", "Italian")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", " ", "B"}, out)

	out, err = c.Translate(ctx, []string{"b", "c", "a"}, "English", "Italian")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, out)

	require.Len(t, next.calls, 2)
	assert.Equal(t, []string{"a", "b"}, next.calls[0])
	assert.Equal(t, []string{"c"}, next.calls[1])

	stats := store.Stats()
	assert.Equal(t, int64(3), stats.Size)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, "counting", c.Name())
}

func TestTranslatorAllHitsMakesNoCall(t *testing.T) {
	next := &countingProvider{}
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), Key("en", "it", "a"), "uno"))

	out, err := New(next, store, nil).Translate(context.Background(), []string{"a"}, "en", "it")
	require.NoError(t, err)
	assert.Equal(t, []string{"uno"}, out)
	assert.Empty(t, next.calls)
}

func TestTranslatorErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&countingProvider{fail: boom}, NewMemoryStore(), nil).
		Translate(context.Background(), []string{"a"}, "en", "it")
	assert.ErrorIs(t, err, boom)

	short := providers.Named("short", translation.TranslatorFunc(func(context.Context, []string, string, string) ([]string, error) {
		return nil, nil
	}))
	_, err = New(short, NewMemoryStore(), nil).Translate(context.Background(), []string{"a"}, "en", "it")
	assert.True(t, errors.Is(err, translation.ErrAlignmentMismatch))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "translations.db")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v1"))
	require.NoError(t, store.Set(ctx, "k", "v2"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	n, err := reopened.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStoreBacksTranslator(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	next := &countingProvider{}
	c := New(next, store, nil)
	for range 2 {
		out, err := c.Translate(context.Background(), []string{"x"}, "en", "it")
		require.NoError(t, err)
		assert.Equal(t, []string{"X"}, out)
	}
	assert.Len(t, next.calls, 1)
}
