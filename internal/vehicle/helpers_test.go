package vehicle

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/groundlink/internal/pkg/eventloop"
)

type fakeLink struct {
	name         string
	disconnected bool
	err          error
	frames       []HeartbeatFrame
}

func newFakeLink(name string) *fakeLink {
	return &fakeLink{name: name}
}

func (l *fakeLink) Name() string    { return l.name }
func (l *fakeLink) Connected() bool { return !l.disconnected }

func (l *fakeLink) SendHeartbeat(_ context.Context, frame HeartbeatFrame) error {
	if l.err != nil {
		return l.err
	}
	l.frames = append(l.frames, frame)
	return nil
}

func (l *fakeLink) targets() []int {
	out := make([]int, 0, len(l.frames))
	for _, f := range l.frames {
		out = append(out, f.TargetSystem)
	}
	return out
}

type harness struct {
	t        *testing.T
	loop     *eventloop.Loop
	clock    *testingclock.FakeClock
	settings *MemorySettings
	m        *Manager
	events   []string
}

func newHarness(t *testing.T, mutate func(o *Options)) *harness {
	t.Helper()

	h := &harness{
		t:        t,
		loop:     eventloop.New(),
		clock:    testingclock.NewFakeClock(time.Now()),
		settings: NewMemorySettings(),
	}

	opts := DefaultOptions()
	opts.StrictInvariants = true
	opts.Clock = h.clock
	opts.Settings = h.settings
	if mutate != nil {
		mutate(&opts)
	}

	h.m = NewManager(h.loop, opts)
	h.m.OnVehicleAdded(func(v *Vehicle) { h.record("added %d", v.ID()) })
	h.m.OnVehicleRemoved(func(v *Vehicle) { h.record("removed %d", v.ID()) })
	h.m.OnActiveChanged(func(v *Vehicle) {
		if v == nil {
			h.record("active none")
			return
		}
		h.record("active %d", v.ID())
	})
	h.m.OnActiveAvailableChanged(func(b bool) { h.record("activeAvailable %t", b) })
	h.m.OnParameterReadyAvailableChanged(func(b bool) { h.record("paramsReadyAvailable %t", b) })
	h.m.OnHeartbeatEnabledChanged(func(b bool) { h.record("heartbeat %t", b) })
	return h
}

func (h *harness) record(format string, args ...any) {
	h.events = append(h.events, fmt.Sprintf(format, args...))
}

// take returns the recorded events and resets the log.
func (h *harness) take() []string {
	out := h.events
	h.events = nil
	return out
}

func (h *harness) expect(want ...string) {
	h.t.Helper()
	got := h.take()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		h.t.Fatalf("events = %q, want %q", got, want)
	}
}

func (h *harness) admit(link Link, id int) *Vehicle {
	h.t.Helper()
	v, err := h.m.HandleVehicleHeartbeat(context.Background(), link, id, Info{
		ComponentID:    1,
		MavlinkVersion: 2,
		FirmwareType:   12,
		VehicleType:    2,
	})
	if err != nil {
		h.t.Fatalf("admit %d: %v", id, err)
	}
	return v
}

func (h *harness) settle() {
	h.loop.RunPending()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

var errLinkDown = errors.New("link down")
