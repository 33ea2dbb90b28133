package http

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/autopeer-io/groundlink/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/internal/vehicle/rtk"
	"github.com/autopeer-io/groundlink/pkg/log"
)

// EventSnapshot is the first message every stream client receives.
const EventSnapshot = "snapshot"

const clientBuffer = 64

// EventMessage is one frame of the event stream.
type EventMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Snapshot is the manager state a stream starts from.
type Snapshot struct {
	Vehicles  []VehicleView `json:"vehicles"`
	Active    ActiveView    `json:"active"`
	Heartbeat HeartbeatView `json:"heartbeat"`
	RTK       rtk.Status    `json:"rtk"`
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *streamClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Broadcaster fans manager notifications out to websocket clients. Its
// manager hooks and add run on the loop; a client that cannot keep up is
// dropped.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}

	disconnects []func()
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[*streamClient]struct{})}
}

// Attach subscribes to manager notifications. It must run on the loop.
func (b *Broadcaster) Attach(m *vehicle.Manager) {
	active := func() { b.broadcast(paths.EventActive, newActiveView(m)) }

	b.disconnects = append(b.disconnects,
		m.OnVehicleAdded(func(v *vehicle.Vehicle) {
			b.broadcast(paths.EventVehicleAdded, newVehicleView(v, m.Active()))
		}),
		m.OnVehicleRemoved(func(v *vehicle.Vehicle) {
			b.broadcast(paths.EventVehicleRemoved, newVehicleView(v, nil))
		}),
		m.OnActiveChanged(func(*vehicle.Vehicle) { active() }),
		m.OnActiveAvailableChanged(func(bool) { active() }),
		m.OnParameterReadyAvailableChanged(func(bool) { active() }),
		m.OnHeartbeatEnabledChanged(func(enabled bool) {
			b.broadcast(paths.EventHeartbeat, HeartbeatView{Enabled: enabled})
		}),
		m.RTK().OnChanged(func(s rtk.Status) {
			b.broadcast(paths.EventRTK, s)
		}),
	)
}

// Detach drops the manager subscriptions. It must run on the loop.
func (b *Broadcaster) Detach() {
	for _, disconnect := range b.disconnects {
		disconnect()
	}
	b.disconnects = nil
}

// add registers conn and queues the snapshot ahead of any later event. It
// must run on the loop.
func (b *Broadcaster) add(conn *websocket.Conn, m *vehicle.Manager) *streamClient {
	c := &streamClient{conn: conn, send: make(chan []byte, clientBuffer)}

	if data, err := json.Marshal(EventMessage{Type: EventSnapshot, Payload: newSnapshot(m)}); err == nil {
		c.send <- data
	}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	go c.writePump()
	return c
}

func (b *Broadcaster) remove(c *streamClient) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

// Len returns the number of connected clients.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *Broadcaster) broadcast(kind string, payload any) {
	data, err := json.Marshal(EventMessage{Type: kind, Payload: payload})
	if err != nil {
		log.Error(err, "Failed to marshal stream event", "kind", kind)
		return
	}

	b.mu.Lock()
	var slow []*streamClient
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.Unlock()

	for _, c := range slow {
		log.Warn("Event stream client too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
		b.remove(c)
	}
}

func newSnapshot(m *vehicle.Manager) Snapshot {
	active := m.Active()
	views := make([]VehicleView, 0, len(m.Vehicles()))
	for _, v := range m.Vehicles() {
		views = append(views, newVehicleView(v, active))
	}
	return Snapshot{
		Vehicles:  views,
		Active:    newActiveView(m),
		Heartbeat: HeartbeatView{Enabled: m.HeartbeatEnabled()},
		RTK:       m.RTK().Snapshot(),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Event stream upgrade failed", "err", err)
		return
	}

	var c *streamClient
	if err := s.loop.Call(r.Context(), func() { c = s.events.add(conn, s.manager) }); err != nil {
		conn.Close()
		return
	}
	log.Info("Event stream client connected", "remote", r.RemoteAddr)

	// The stream is one-way; reading only detects the close.
	go func() {
		defer func() {
			s.events.remove(c)
			log.Info("Event stream client disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
