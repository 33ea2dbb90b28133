package vehicle

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestHeartbeatAddressesEveryLiveVehicle(t *testing.T) {
	h := newHarness(t, nil)
	udp := newFakeLink("udp0")
	serial := newFakeLink("serial0")
	h.admit(udp, 1)
	h.admit(serial, 2)
	h.admit(udp, 3)
	h.settle()

	udp.frames, serial.frames = nil, nil
	h.m.heartbeat.tick(context.Background())

	if got := udp.targets(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("udp0 targets = %v, want [1 3]", got)
	}
	if got := serial.targets(); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("serial0 targets = %v, want [2]", got)
	}

	want := HeartbeatFrame{
		SystemID:       255,
		ComponentID:    CompIDMissionPlanner,
		Type:           MAVTypeGCS,
		Autopilot:      MAVAutopilotInvalid,
		BaseMode:       MAVModeManualArmed,
		SystemStatus:   MAVStateActive,
		TargetSystem:   2,
		MavlinkVersion: 2,
	}
	if serial.frames[0] != want {
		t.Fatalf("frame = %+v, want %+v", serial.frames[0], want)
	}
}

func TestHeartbeatSentOnAdmission(t *testing.T) {
	h := newHarness(t, nil)
	link := newFakeLink("udp0")

	h.admit(link, 4)
	if got := link.targets(); !reflect.DeepEqual(got, []int{4}) {
		t.Fatalf("targets = %v, want [4]", got)
	}

	h.admit(link, 4)
	if len(link.frames) != 1 {
		t.Fatal("repeat arrival sent another immediate heartbeat")
	}
}

func TestHeartbeatEligibility(t *testing.T) {
	h := newHarness(t, nil)
	up := newFakeLink("up")
	down := newFakeLink("down")
	down.disconnected = true
	slow := newFakeLink("satcom")

	h.admit(up, 1)
	h.admit(down, 2)
	if _, err := h.m.HandleVehicleHeartbeat(context.Background(), slow, 3, Info{VehicleType: 2, HighLatency: true}); err != nil {
		t.Fatal(err)
	}
	h.admit(up, 4)
	_ = h.m.RemoveVehicle(4)

	up.frames, down.frames, slow.frames = nil, nil, nil
	h.m.heartbeat.tick(context.Background())

	if got := up.targets(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("up targets = %v, want [1]", got)
	}
	if len(down.frames) != 0 {
		t.Error("disconnected link got a heartbeat")
	}
	if len(slow.frames) != 0 {
		t.Error("high latency link got a heartbeat")
	}
	if h.m.OfflineVehicle().HeartbeatEligible() {
		t.Error("offline vehicle is heartbeat eligible")
	}
}

func TestHeartbeatSendErrorDoesNotStopOthers(t *testing.T) {
	h := newHarness(t, nil)
	bad := newFakeLink("bad")
	good := newFakeLink("good")
	h.admit(bad, 1)
	h.admit(good, 2)
	bad.err = errLinkDown
	good.frames = nil

	h.m.heartbeat.tick(context.Background())
	if len(good.frames) != 1 {
		t.Fatalf("good link frames = %d, want 1", len(good.frames))
	}
}

func TestDisablingHeartbeatLeavesStateAlone(t *testing.T) {
	h := newHarness(t, nil)
	link := newFakeLink("udp0")
	v := h.admit(link, 1)
	h.settle()
	h.take()

	h.m.SetHeartbeatEnabled(false)
	h.m.SetHeartbeatEnabled(false)
	h.expect("heartbeat false")

	link.frames = nil
	h.m.heartbeat.tick(context.Background())
	h.admit(link, 2)
	if len(link.frames) != 0 {
		t.Fatalf("frames sent while disabled: %v", link.targets())
	}
	if h.m.Active() != v || len(h.m.Vehicles()) != 2 {
		t.Fatal("disabling heartbeats changed manager state")
	}
	if got := h.settings.Load(HeartbeatEnabledKey, ""); got != "false" {
		t.Fatalf("persisted value = %q, want false", got)
	}

	h.m.SetHeartbeatEnabled(true)
	h.m.heartbeat.tick(context.Background())
	if got := link.targets(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("targets after re-enable = %v", got)
	}
}

func TestHeartbeatFlagLoadedFromSettings(t *testing.T) {
	settings := NewMemorySettings()
	_ = settings.Save(HeartbeatEnabledKey, "false")

	h := newHarness(t, func(o *Options) { o.Settings = settings })
	if h.m.HeartbeatEnabled() {
		t.Fatal("persisted false was not honored")
	}

	_ = settings.Save(HeartbeatEnabledKey, "garbage")
	h = newHarness(t, func(o *Options) {
		o.Settings = settings
		o.HeartbeatEnabled = true
	})
	if !h.m.HeartbeatEnabled() {
		t.Fatal("malformed setting should fall back to the default")
	}
}

func TestReloadSettingsAppliesExternalChange(t *testing.T) {
	h := newHarness(t, nil)
	h.take()

	_ = h.settings.Save(HeartbeatEnabledKey, "false")
	h.m.ReloadSettings()
	h.expect("heartbeat false")
	if h.m.HeartbeatEnabled() {
		t.Fatal("reload did not apply the persisted value")
	}

	h.m.ReloadSettings()
	h.expect()

	_ = h.settings.Save(HeartbeatEnabledKey, "garbage")
	h.m.ReloadSettings()
	h.expect()
	if h.m.HeartbeatEnabled() {
		t.Fatal("malformed value should keep the current flag")
	}
}

func TestHeartbeatTickerKeepsRunningWhileDisabled(t *testing.T) {
	h := newHarness(t, nil)
	link := newFakeLink("udp0")
	h.admit(link, 1)
	h.settle()
	link.frames = nil

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = h.m.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	waitFor(t, h.clock.HasWaiters)

	tick := func() {
		t.Helper()
		h.clock.Step(time.Second)
		waitFor(t, func() bool { return h.loop.Len() > 0 })
		h.settle()
	}

	tick()
	h.m.SetHeartbeatEnabled(false)
	tick()
	h.m.SetHeartbeatEnabled(true)
	tick()

	if got := link.targets(); !reflect.DeepEqual(got, []int{1, 1}) {
		t.Fatalf("targets = %v, want two heartbeats to vehicle 1", got)
	}
}
