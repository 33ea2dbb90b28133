package notifier

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/autopeer-io/groundlink/internal/groundlink/outbox"
	"github.com/autopeer-io/groundlink/internal/pkg/eventloop"
	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/pkg/mqtt/topic"
)

type published struct {
	topic   string
	retain  bool
	payload []byte
}

type collector struct {
	msgs []published
}

func (c *collector) Publish(_ context.Context, topic string, _ int, retain bool, payload []byte) error {
	c.msgs = append(c.msgs, published{topic, retain, payload})
	return nil
}

type stubLink struct{}

func (stubLink) Name() string    { return "udp0" }
func (stubLink) Connected() bool { return true }
func (stubLink) SendHeartbeat(context.Context, vehicle.HeartbeatFrame) error {
	return nil
}

// drain runs the outbox worker until the queue is empty.
func drain(t *testing.T, out *outbox.Outbox) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = out.Run(ctx)
		close(done)
	}()
	deadline := time.Now().Add(5 * time.Second)
	for out.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("outbox not drained")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
}

func TestNotifierPublishesManagerEvents(t *testing.T) {
	loop := eventloop.New()
	m := vehicle.NewManager(loop, vehicle.DefaultOptions())
	pub := &collector{}
	out := outbox.New(pub, 64, time.Second)

	n := NewMQTTNotifier(topic.NewBuilder("gcs/v1"), out)
	n.Attach(m)

	if _, err := m.HandleVehicleHeartbeat(context.Background(), stubLink{}, 3, vehicle.Info{VehicleType: 2}); err != nil {
		t.Fatal(err)
	}
	loop.RunPending()
	m.SetHeartbeatEnabled(false)
	m.GPSConnect()
	n.Detach()
	m.GPSDisconnect()

	drain(t, out)

	var topics []string
	for _, msg := range pub.msgs {
		topics = append(topics, msg.topic)
	}
	want := []string{
		"gcs/v1/gcs/event/active",
		"gcs/v1/gcs/event/heartbeat",
		"gcs/v1/gcs/event/vehicle-added",
		"gcs/v1/gcs/event/active",
		"gcs/v1/gcs/event/active",
		"gcs/v1/gcs/event/heartbeat",
		"gcs/v1/gcs/event/rtk",
	}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v, want %v", topics, want)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Fatalf("topic[%d] = %q, want %q", i, topics[i], want[i])
		}
	}

	var last ActiveEvent
	if err := json.Unmarshal(pub.msgs[4].payload, &last); err != nil {
		t.Fatal(err)
	}
	if last.ID != 3 || !last.Available {
		t.Fatalf("active event = %+v", last)
	}
	if !pub.msgs[4].retain || pub.msgs[2].retain {
		t.Fatal("state events must be retained and vehicle events must not")
	}
}
