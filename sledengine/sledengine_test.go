package sledengine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamsxin/kvs/engine"
)

func TestSetGetRemove(t *testing.T) {
	e, err := Open(t.TempDir())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set("k", "v1"))
	v, ok, err := e.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", v)

	require.NoError(t, e.Set("k", "v2"))
	v, ok, err = e.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)

	_, ok, err = e.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, e.Remove("k"))
	_, ok, err = e.Get("k")
	require.NoError(t, err)
	require.False(t, ok)

	err = e.Remove("k")
	require.ErrorIs(t, err, engine.ErrKeyNotFound)
}

func TestCloseReopen(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Set("b", "2"))
	require.NoError(t, e.Close())

	e2, err := Open(dir)
	require.NoError(t, err)
	defer e2.Close()

	v, ok, err := e2.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)
}
