package server

import (
	"net"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/dreamsxin/kvs/engine"
	"github.com/dreamsxin/kvs/threadpool"
)

// readTimeout bounds how long a connection handler waits for a client's
// request before giving up, mirroring the original's
// set_read_timeout(Duration::from_secs(10)).
const readTimeout = 10 * time.Second

// Server binds one KvsEngine to a listening address and dispatches every
// accepted connection through a thread pool, one request/response per
// connection (framed by the client's half-close on the way in and the
// server's on the way out).
type Server struct {
	engine engine.KvsEngine
	pool   threadpool.ThreadPool
	logger log.Logger
}

// New returns a Server. If logger is nil, a no-op logger is used.
func New(eng engine.KvsEngine, pool threadpool.ThreadPool, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Server{engine: eng, pool: pool, logger: logger}
}

// ListenAndServe binds addr and serves forever, dispatching each accepted
// connection onto the pool. It returns only once Accept fails for good
// (typically because the listener was closed).
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	level.Info(s.logger).Log("msg", "listening", "addr", ln.Addr().String())
	return s.Serve(ln)
}

// Serve accepts connections from an already-bound listener until Accept
// fails, dispatching each through the pool. Exposed separately from
// ListenAndServe so callers (and tests) that need the bound address before
// serving starts can create the listener themselves.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		// Clone the engine once per connection rather than sharing
		// s.engine across every pool worker: spec.md §5/§9 require a
		// per-worker handle because a kvs Engine's reader cache is
		// intentionally unsynchronized (see engine/kvs/readerset.go).
		conn, workerEngine := conn, s.engine.Clone()
		s.pool.Spawn(func() {
			s.handleConn(conn, workerEngine)
		})
	}
}

func (s *Server) handleConn(conn net.Conn, eng engine.KvsEngine) {
	defer conn.Close()
	peer := conn.RemoteAddr().String()

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		level.Error(s.logger).Log("msg", "failed to set read deadline", "peer", peer, "err", err)
		return
	}

	req, err := ParseRequest(conn)
	if err != nil {
		level.Error(s.logger).Log("msg", "malformed request", "peer", peer, "err", err)
		s.writeResponse(conn, peer, Response{Kind: ResponseError, Reason: err.Error()})
		return
	}

	level.Debug(s.logger).Log("msg", "handling request", "peer", peer, "kind", req.Kind)
	resp := dispatch(eng, req)
	s.writeResponse(conn, peer, resp)
}

// dispatch runs req against eng and maps the outcome onto a wire Response.
// Every engine error, including ErrKeyNotFound from Remove, is reported
// back to the client as an Error response rather than closing the
// connection bare, matching the original's query_db. A Get miss is not an
// error and maps to NoContent.
func dispatch(eng engine.KvsEngine, req Request) Response {
	switch req.Kind {
	case RequestGet:
		value, ok, err := eng.Get(req.Key)
		if err != nil {
			return Response{Kind: ResponseError, Reason: err.Error()}
		}
		if !ok {
			return Response{Kind: ResponseNoContent}
		}
		return Response{Kind: ResponseContent, Content: value}

	case RequestSet:
		if err := eng.Set(req.Key, req.Value); err != nil {
			return Response{Kind: ResponseError, Reason: err.Error()}
		}
		return Response{Kind: ResponseNoContent}

	case RequestRemove:
		if err := eng.Remove(req.Key); err != nil {
			return Response{Kind: ResponseError, Reason: err.Error()}
		}
		return Response{Kind: ResponseNoContent}

	default:
		return Response{Kind: ResponseError, Reason: "unknown request kind"}
	}
}

func (s *Server) writeResponse(conn net.Conn, peer string, resp Response) {
	if _, err := conn.Write(EncodeResponse(resp)); err != nil {
		level.Error(s.logger).Log("msg", "failed to write response", "peer", peer, "err", err)
	}
}
