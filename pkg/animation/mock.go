package animation

import (
	"context"
	"sync"
)

// MockPresenter implements Presenter for testing and records every call.
type MockPresenter struct {
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a presenter invocation for verification.
type MockCall struct {
	Method       string
	Menu         Menu
	MarkerID     int
	AnimationID  string
	Notification Notification
}

// NewMockPresenter creates an empty recording presenter
func NewMockPresenter() *MockPresenter {
	return &MockPresenter{}
}

func (m *MockPresenter) record(c MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// ShowMenu records the call.
func (m *MockPresenter) ShowMenu(menu Menu) {
	m.record(MockCall{Method: "ShowMenu", Menu: menu, MarkerID: menu.MarkerID})
}

// UpdateMenuSelection records the call.
func (m *MockPresenter) UpdateMenuSelection(markerID int, animationID string) {
	m.record(MockCall{Method: "UpdateMenuSelection", MarkerID: markerID, AnimationID: animationID})
}

// HideMenu records the call.
func (m *MockPresenter) HideMenu() {
	m.record(MockCall{Method: "HideMenu"})
}

// Notify records the call.
func (m *MockPresenter) Notify(n Notification) {
	m.record(MockCall{Method: "Notify", Notification: n, MarkerID: n.MarkerID})
}

// Calls returns a copy of all recorded calls.
func (m *MockPresenter) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of calls to the named method.
func (m *MockPresenter) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears recorded calls.
func (m *MockPresenter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// MockSource implements Source for testing.
type MockSource struct {
	// ListFunc is called by ListAnimations. If nil, Rows is returned.
	ListFunc func(ctx context.Context) ([]Row, error)

	// Rows is the static catalog returned when ListFunc is nil
	Rows []Row

	mu    sync.Mutex
	calls int
}

// ListAnimations calls ListFunc and records the call.
func (m *MockSource) ListAnimations(ctx context.Context) ([]Row, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return m.Rows, nil
}

// Calls returns how many times ListAnimations ran
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Ensure mocks implement their interfaces
var (
	_ Presenter = (*MockPresenter)(nil)
	_ Source    = (*MockSource)(nil)
)
