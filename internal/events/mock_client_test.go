package events_test

import (
	"sync"

	"feedbackhub/backend/internal/models"

	"github.com/google/uuid"
)

type mockClient struct {
	id     string
	app    *uuid.UUID
	Recv   chan models.Event
	mu     sync.Mutex
	closed bool
}

func newMockClient(id string, app *uuid.UUID, buffer int) *mockClient {
	return &mockClient{id: id, app: app, Recv: make(chan models.Event, buffer)}
}

func (m *mockClient) GetClientID() string                  { return m.id }
func (m *mockClient) GetSendChannel() chan<- models.Event { return m.Recv }
func (m *mockClient) Run()                                 {}

func (m *mockClient) Wants(ev models.Event) bool {
	return m.app == nil || *m.app == ev.ApplicationID
}

func (m *mockClient) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockClient) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
