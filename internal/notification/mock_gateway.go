package notification

import (
	"context"
	"sync"
)

// Call is one recorded gateway invocation.
type Call struct {
	Method    string
	UserID    int64
	ChannelID int64
	Notice    Notice
	Content   string
}

// MockGateway records every call and can be told to fail by method name.
// It backs service tests and local runs.
type MockGateway struct {
	mu    sync.Mutex
	calls []Call
	fail  map[string]error
}

var _ Gateway = (*MockGateway)(nil)

// NewMockGateway creates an empty recorder.
func NewMockGateway() *MockGateway {
	return &MockGateway{fail: make(map[string]error)}
}

// FailWith makes every later call to method return err. A nil err clears it.
func (m *MockGateway) FailWith(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

// Calls returns recorded calls, optionally filtered by method.
func (m *MockGateway) Calls(method string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Notices returns the notice kinds sent to a user, in order.
func (m *MockGateway) Notices(userID int64) []string {
	var kinds []string
	for _, c := range m.Calls("Notify") {
		if c.UserID == userID {
			kinds = append(kinds, c.Notice.Kind)
		}
	}
	return kinds
}

// Reset drops recorded calls and failures.
func (m *MockGateway) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.fail = make(map[string]error)
}

func (m *MockGateway) record(c Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	return m.fail[c.Method]
}

// Notify implements Gateway.
func (m *MockGateway) Notify(_ context.Context, userID int64, notice Notice) error {
	return m.record(Call{Method: "Notify", UserID: userID, Notice: notice})
}

// RevokeAccess implements Gateway.
func (m *MockGateway) RevokeAccess(_ context.Context, userID, channelID int64) error {
	return m.record(Call{Method: "RevokeAccess", UserID: userID, ChannelID: channelID})
}

// Admit implements Gateway.
func (m *MockGateway) Admit(_ context.Context, userID, channelID int64) error {
	return m.record(Call{Method: "Admit", UserID: userID, ChannelID: channelID})
}

// Publish implements Gateway.
func (m *MockGateway) Publish(_ context.Context, channelID int64, content string) error {
	return m.record(Call{Method: "Publish", ChannelID: channelID, Content: content})
}
