// Package link adapts the MQTT bridge to the vehicle.Link port. Each named
// link corresponds to one radio, serial or UDP connection handled by the
// protocol layer on the other side of the broker.
package link

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/autopeer-io/groundlink/internal/groundlink/outbox"
	"github.com/autopeer-io/groundlink/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/pkg/mqtt/topic"
)

// ConnectionState reports whether the broker session is up.
type ConnectionState interface {
	IsConnected() bool
}

var _ vehicle.Link = (*mqttLink)(nil)

type mqttLink struct {
	name    string
	topics  *topic.Builder
	outbox  *outbox.Outbox
	conn    ConnectionState
	removed atomic.Bool
}

func (l *mqttLink) Name() string {
	return l.name
}

func (l *mqttLink) Connected() bool {
	return !l.removed.Load() && l.conn.IsConnected()
}

// SendHeartbeat queues the frame on {root}/gcs/heartbeat/{link}/{vehicleID}.
func (l *mqttLink) SendHeartbeat(_ context.Context, frame vehicle.HeartbeatFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}

	return l.outbox.Enqueue(outbox.Message{
		Topic:   l.topics.Build(paths.GCSHeartbeat, l.name, strconv.Itoa(frame.TargetSystem)),
		QoS:     0,
		Payload: payload,
		Kind:    "heartbeat",
	})
}

// Manager hands out one Link per name.
type Manager struct {
	mu     sync.Mutex
	links  map[string]*mqttLink
	topics *topic.Builder
	outbox *outbox.Outbox
	conn   ConnectionState
}

func NewManager(topics *topic.Builder, out *outbox.Outbox, conn ConnectionState) *Manager {
	return &Manager{
		links:  make(map[string]*mqttLink),
		topics: topics,
		outbox: out,
		conn:   conn,
	}
}

// Get returns the link called name, creating it on first use.
func (m *Manager) Get(name string) vehicle.Link {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.links[name]; ok {
		return l
	}
	l := &mqttLink{name: name, topics: m.topics, outbox: m.outbox, conn: m.conn}
	m.links[name] = l
	return l
}

// Remove forgets the link called name. Vehicles still holding it see it as
// disconnected.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[name]
	if !ok {
		return false
	}
	l.removed.Store(true)
	delete(m.links, name)
	return true
}

// Names returns the known link names.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.links))
	for name := range m.links {
		out = append(out, name)
	}
	return out
}
