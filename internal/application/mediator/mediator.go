package mediator

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Request is a command or query dispatched through the mediator.
type Request interface{}

// Response is the result of handling a request.
type Response interface{}

// RequestHandler handles one concrete request type.
type RequestHandler interface {
	Handle(ctx context.Context, request Request) (Response, error)
}

// HandlerFunc is the function form of a handler, used as the continuation
// passed through middleware.
type HandlerFunc func(ctx context.Context, request Request) (Response, error)

// Middleware wraps handler execution with a cross-cutting concern (logging,
// validation, metrics, auth). Calling next continues the chain.
type Middleware func(ctx context.Context, request Request, next HandlerFunc) (Response, error)

// Mediator dispatches requests to their registered handlers. Register and
// RegisterMiddleware are called during boot wiring; Send is safe for
// concurrent use once wiring is done.
type Mediator interface {
	Send(ctx context.Context, request Request) (Response, error)
	Register(requestType reflect.Type, handler RequestHandler) error
	RegisterMiddleware(mw Middleware)
}

type mediator struct {
	handlers    map[reflect.Type]RequestHandler
	middlewares []Middleware
}

// NewMediator creates an empty mediator.
func NewMediator() Mediator {
	return &mediator{
		handlers: make(map[reflect.Type]RequestHandler),
	}
}

// Register binds a handler to a request type. Double registration is a wiring
// bug and fails loudly.
func (m *mediator) Register(requestType reflect.Type, handler RequestHandler) error {
	if requestType == nil {
		return fmt.Errorf("request type cannot be nil")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if _, exists := m.handlers[requestType]; exists {
		return fmt.Errorf("handler already registered for type %s", requestType)
	}
	m.handlers[requestType] = handler
	return nil
}

// RegisterMiddleware appends a middleware. Middlewares run in registration
// order: the first registered sees the request first.
func (m *mediator) RegisterMiddleware(mw Middleware) {
	m.middlewares = append(m.middlewares, mw)
}

// Send dispatches a request through the middleware chain to its handler.
func (m *mediator) Send(ctx context.Context, request Request) (Response, error) {
	if request == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	requestType := reflect.TypeOf(request)
	handler, ok := m.handlers[requestType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for type %s", requestType)
	}

	invoke := HandlerFunc(handler.Handle)
	for i := len(m.middlewares) - 1; i >= 0; i-- {
		mw := m.middlewares[i]
		next := invoke
		invoke = func(c context.Context, r Request) (Response, error) {
			return mw(c, r, next)
		}
	}

	return invoke(ctx, request)
}

// RegisterHandler registers a handler for request type T with type inference.
//
//	mediator.RegisterHandler[*commands.DockShipCommand](med, handler)
func RegisterHandler[T Request](m Mediator, handler RequestHandler) error {
	var zero T
	return m.Register(reflect.TypeOf(zero), handler)
}

// RequestName returns the bare type name of a request, without package or
// pointer decoration: "*commands.DockShipCommand" → "DockShipCommand".
func RequestName(request Request) string {
	if request == nil {
		return "UnknownRequest"
	}
	name := strings.TrimPrefix(reflect.TypeOf(request).String(), "*")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
