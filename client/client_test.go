package client

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamsxin/kvs/engine/kvs"
	"github.com/dreamsxin/kvs/server"
	"github.com/dreamsxin/kvs/threadpool"
)

func TestClientSetGetRemove(t *testing.T) {
	eng, err := kvs.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	srv := server.New(eng, threadpool.NewNaivePool(4), nil)
	go srv.Serve(ln)

	c := New(ln.Addr().String())

	require.NoError(t, c.Set("k", "v"))

	value, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", value)

	_, ok, err = c.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Remove("k"))

	err = c.Remove("k")
	require.Error(t, err)
}
