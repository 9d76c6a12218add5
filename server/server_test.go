package server

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamsxin/kvs/engine/kvs"
	"github.com/dreamsxin/kvs/threadpool"
)

// E5: a Put followed by a Get over two separate connections returns the
// exact wire envelope the specification names.
func TestServerPutThenGet(t *testing.T) {
	eng, err := kvs.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	srv := New(eng, threadpool.NewNaivePool(4), nil)
	go srv.Serve(ln)

	putResp := roundTrip(t, ln.Addr().String(), `{"operate_type":1,"param":{"key":"a","value":"b"}}`)
	require.JSONEq(t, `{"operate_type":254,"param":{}}`, putResp)

	getResp := roundTrip(t, ln.Addr().String(), `{"operate_type":0,"param":{"key":"a"}}`)
	require.JSONEq(t, `{"operate_type":253,"param":{"content":"b"}}`, getResp)
}

func TestServerGetMissingIsNoContent(t *testing.T) {
	eng, err := kvs.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	srv := New(eng, threadpool.NewNaivePool(4), nil)
	go srv.Serve(ln)

	resp := roundTrip(t, ln.Addr().String(), `{"operate_type":0,"param":{"key":"missing"}}`)
	require.JSONEq(t, `{"operate_type":254,"param":{}}`, resp)
}

func TestServerRemoveMissingIsError(t *testing.T) {
	eng, err := kvs.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	srv := New(eng, threadpool.NewNaivePool(4), nil)
	go srv.Serve(ln)

	raw := roundTrip(t, ln.Addr().String(), `{"operate_type":2,"param":{"key":"missing"}}`)
	resp, err := ParseResponse(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, ResponseError, resp.Kind)
	require.Equal(t, "Key not found", resp.Reason)
}

func roundTrip(t *testing.T, addr, request string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(request))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}
