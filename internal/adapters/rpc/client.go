package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// Client talks to the daemon over its unix socket: one connection per call.
type Client struct {
	socketPath  string
	dialTimeout time.Duration
	callTimeout time.Duration
}

func NewClient(socketPath string) *Client {
	return &Client{
		socketPath:  socketPath,
		dialTimeout: 2 * time.Second,
		callTimeout: 30 * time.Second,
	}
}

// Ping reports whether a daemon is listening on the socket.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.socketPath, c.dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Call sends one request and decodes the result into out (which may be nil
// when the caller only cares about success). Daemon-side errors come back as
// DomainErrors carrying the wire code.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.dialTimeout)
	if err != nil {
		return shared.WrapDomainError(shared.ErrRemoteUnavailable,
			fmt.Sprintf("daemon not reachable at %s", c.socketPath), err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.callTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	rawParams, err := json.Marshal(params)
	if err != nil {
		return shared.WrapDomainError(shared.ErrInvalidParams, "encoding params", err)
	}
	if err := json.NewEncoder(conn).Encode(&Request{Method: method, Params: rawParams}); err != nil {
		return shared.WrapDomainError(shared.ErrRemoteUnavailable, "sending request", err)
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *ErrorBody      `json:"error"`
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return shared.WrapDomainError(shared.ErrRemoteUnavailable, "reading response", err)
	}

	if resp.Error != nil {
		return shared.NewDomainError(shared.ErrorCode(resp.Error.Code), resp.Error.Message)
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return shared.WrapDomainError(shared.ErrInternal, "decoding result", err)
		}
	}
	return nil
}
