package helpers

import (
	"context"
	"sync"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// MockContainerLogRepository appends log lines to a slice. GetLogs applies
// the same newest-first ordering and filters as the real repository.
type MockContainerLogRepository struct {
	mu      sync.Mutex
	entries []container.LogEntry
	nextID  int
}

func NewMockContainerLogRepository() *MockContainerLogRepository {
	return &MockContainerLogRepository{}
}

func (m *MockContainerLogRepository) Log(ctx context.Context, containerID string, playerID shared.PlayerID, message, level string, metadata map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.entries = append(m.entries, container.LogEntry{
		ID:          m.nextID,
		ContainerID: containerID,
		PlayerID:    playerID,
		Timestamp:   time.Now(),
		Level:       level,
		Message:     message,
		Metadata:    metadata,
	})
	return nil
}

func (m *MockContainerLogRepository) GetLogs(ctx context.Context, containerID string, playerID shared.PlayerID, limit int, level *string, since *time.Time) ([]container.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []container.LogEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.ContainerID != containerID || e.PlayerID != playerID {
			continue
		}
		if level != nil && e.Level != *level {
			continue
		}
		if since != nil && e.Timestamp.Before(*since) {
			continue
		}
		matches = append(matches, e)
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

func (m *MockContainerLogRepository) DeleteByContainer(ctx context.Context, containerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.ContainerID != containerID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

// Entries returns every log line recorded so far, oldest first.
func (m *MockContainerLogRepository) Entries() []container.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]container.LogEntry{}, m.entries...)
}

// Messages returns just the message text of every recorded line, in order.
func (m *MockContainerLogRepository) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := make([]string, len(m.entries))
	for i, e := range m.entries {
		messages[i] = e.Message
	}
	return messages
}
