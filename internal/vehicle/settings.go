package vehicle

import "sync"

// Settings is the key/value store the manager persists its flags in.
type Settings interface {
	Save(key, value string) error
	Load(key, defaultValue string) string
}

// MemorySettings is a process-local Settings used when nothing is persisted.
type MemorySettings struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{values: make(map[string]string)}
}

func (m *MemorySettings) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemorySettings) Load(key, defaultValue string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[key]; ok {
		return v
	}
	return defaultValue
}
