package rpc

import (
	"encoding/json"
	"fmt"
	"io"
)

// Wire protocol: one JSON request per connection, one JSON response back,
// then the server closes. No streaming, no pipelining; every CLI invocation
// is its own connection.

// Request is the envelope every client sends.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response carries exactly one of Result or Error.
type Response struct {
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the wire form of a failed call.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// readRequest decodes a single request envelope from the connection.
func readRequest(r io.Reader) (*Request, error) {
	var req Request
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	if req.Method == "" {
		return nil, fmt.Errorf("request missing method")
	}
	return &req, nil
}

// writeResponse encodes the envelope onto the connection. The caller closes
// the connection afterwards without waiting for the peer.
func writeResponse(w io.Writer, resp *Response) error {
	return json.NewEncoder(w).Encode(resp)
}

func errorResponse(code, message string) *Response {
	return &Response{Error: &ErrorBody{Code: code, Message: message}}
}

func resultResponse(result interface{}) *Response {
	return &Response{Result: result}
}
