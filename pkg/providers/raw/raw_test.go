package raw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawPassthrough(t *testing.T) {
	p := New("")
	out, err := p.Translate(context.Background(), []string{"Hello", " "}, "English", "Italian")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " "}, out)
	assert.Equal(t, "raw", p.Name())
}

func TestRawPrefix(t *testing.T) {
	p := New(DummyPrefix)
	out, err := p.Translate(context.Background(), []string{"Hello", "\n"}, "English", "Italian")
	require.NoError(t, err)
	assert.Equal(t, []string{"[DUMMY] Hello", "\n"}, out)
}

func TestRawCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("").Translate(ctx, []string{"a"}, "", "")
	assert.ErrorIs(t, err, context.Canceled)
}
