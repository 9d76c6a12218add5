// Package client implements the small wire client used by cmd/kvs-client:
// connect, write one request, half-close, read one response. Grounded on
// original_source/src/bin/client.rs's send_to.
package client

import (
	"fmt"
	"net"

	"github.com/dreamsxin/kvs/server"
)

// Client talks the kvs wire protocol to a single server address.
type Client struct {
	addr string
}

// New returns a Client targeting addr (host:port).
func New(addr string) *Client {
	return &Client{addr: addr}
}

// Get fetches key. ok is false if the server reported no content for key.
func (c *Client) Get(key string) (value string, ok bool, err error) {
	resp, err := c.roundTrip(server.Request{Kind: server.RequestGet, Key: key})
	if err != nil {
		return "", false, err
	}
	switch resp.Kind {
	case server.ResponseContent:
		return resp.Content, true, nil
	case server.ResponseNoContent:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("%s", resp.Reason)
	}
}

// Set writes key=value.
func (c *Client) Set(key, value string) error {
	resp, err := c.roundTrip(server.Request{Kind: server.RequestSet, Key: key, Value: value})
	if err != nil {
		return err
	}
	if resp.Kind == server.ResponseError {
		return fmt.Errorf("%s", resp.Reason)
	}
	return nil
}

// Remove deletes key.
func (c *Client) Remove(key string) error {
	resp, err := c.roundTrip(server.Request{Kind: server.RequestRemove, Key: key})
	if err != nil {
		return err
	}
	if resp.Kind == server.ResponseError {
		return fmt.Errorf("%s", resp.Reason)
	}
	return nil
}

func (c *Client) roundTrip(req server.Request) (server.Response, error) {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return server.Response{}, err
	}
	defer conn.Close()

	if _, err := conn.Write(server.EncodeRequest(req)); err != nil {
		return server.Response{}, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			return server.Response{}, err
		}
	}
	return server.ParseResponse(conn)
}
