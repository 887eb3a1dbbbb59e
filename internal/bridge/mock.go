package bridge

import (
	"context"
	"sync"
)

// Call is one recorded invocation.
type Call struct {
	Channel Channel
	Method  string
	Args    map[string]any
}

// Handler answers a mocked method.
type Handler func(args map[string]any) (any, error)

// Mock is a thread-safe in-memory Bridge for tests and development.
// Unhandled methods succeed with a nil result.
type Mock struct {
	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
	fail     map[string]error
	failAll  error
	block    chan struct{}
}

// NewMock returns an empty mock bridge.
func NewMock() *Mock {
	return &Mock{
		handlers: make(map[string]Handler),
		fail:     make(map[string]error),
	}
}

func key(ch Channel, method string) string { return string(ch) + "/" + method }

// Handle installs a handler for ch/method.
func (m *Mock) Handle(ch Channel, method string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[key(ch, method)] = h
}

// Fail makes ch/method return err. A nil err clears the failure.
func (m *Mock) Fail(ch Channel, method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, key(ch, method))
		return
	}
	m.fail[key(ch, method)] = err
}

// FailAll makes every call return err. A nil err clears it.
func (m *Mock) FailAll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = err
}

// Block makes calls wait until Unblock or their context ends.
func (m *Mock) Block() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.block == nil {
		m.block = make(chan struct{})
	}
}

// Unblock releases blocked calls.
func (m *Mock) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.block != nil {
		close(m.block)
		m.block = nil
	}
}

func (m *Mock) Invoke(ctx context.Context, ch Channel, method string, args map[string]any) (any, error) {
	m.mu.Lock()
	cp := make(map[string]any, len(args))
	for k, v := range args {
		cp[k] = v
	}
	m.calls = append(m.calls, Call{Channel: ch, Method: method, Args: cp})
	block := m.block
	failAll := m.failAll
	failErr := m.fail[key(ch, method)]
	h := m.handlers[key(ch, method)]
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failAll != nil {
		return nil, failAll
	}
	if failErr != nil {
		return nil, failErr
	}
	if h != nil {
		return h(args)
	}
	return nil, nil
}

// Calls returns a copy of every recorded call.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns the recorded calls to method.
func (m *Mock) CallsTo(method string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

var _ Bridge = (*Mock)(nil)
