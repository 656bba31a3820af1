package helpers

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
)

// MockMediator records every request sent through it and answers via
// SendFunc. Tests wire SendFunc to return canned responses per request type;
// an unset SendFunc fails the call so missing expectations surface loudly.
type MockMediator struct {
	mu       sync.Mutex
	SendFunc func(ctx context.Context, request mediator.Request) (mediator.Response, error)
	sent     []mediator.Request
}

func NewMockMediator() *MockMediator {
	return &MockMediator{}
}

func (m *MockMediator) Send(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	m.mu.Lock()
	m.sent = append(m.sent, request)
	fn := m.SendFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, fmt.Errorf("no SendFunc configured for %T", request)
	}
	return fn(ctx, request)
}

// Register is a no-op; mock dispatch goes through SendFunc.
func (m *MockMediator) Register(requestType reflect.Type, handler mediator.RequestHandler) error {
	return nil
}

func (m *MockMediator) RegisterMiddleware(mw mediator.Middleware) {}

// Sent returns a copy of every request dispatched so far, in order.
func (m *MockMediator) Sent() []mediator.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mediator.Request{}, m.sent...)
}

// SentOfType filters the dispatch log by concrete request type.
func (m *MockMediator) SentOfType(example mediator.Request) []mediator.Request {
	want := reflect.TypeOf(example)

	var matches []mediator.Request
	for _, request := range m.Sent() {
		if reflect.TypeOf(request) == want {
			matches = append(matches, request)
		}
	}
	return matches
}

var _ mediator.Mediator = (*MockMediator)(nil)
