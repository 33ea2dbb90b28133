package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/groundlink/internal/pkg/eventloop"
	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/pkg/options"
)

type stubLink struct{ name string }

func (l stubLink) Name() string    { return l.name }
func (l stubLink) Connected() bool { return true }
func (l stubLink) SendHeartbeat(context.Context, vehicle.HeartbeatFrame) error {
	return nil
}

type fixture struct {
	t       *testing.T
	loop    *eventloop.Loop
	manager *vehicle.Manager
	server  *Server
	srv     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	loop := eventloop.New()
	go loop.Run(ctx)

	opts := vehicle.DefaultOptions()
	opts.StrictInvariants = true
	opts.Clock = testingclock.NewFakeClock(time.Now())
	manager := vehicle.NewManager(loop, opts)

	httpOpts := options.NewHttpOptions()
	s := NewServer(httpOpts, loop, manager, func() bool { return true })
	if err := s.AttachEvents(ctx); err != nil {
		t.Fatal(err)
	}

	f := &fixture{t: t, loop: loop, manager: manager, server: s, srv: httptest.NewServer(s.Handler())}
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) admit(id int, link string) {
	f.t.Helper()
	var err error
	callErr := f.loop.Call(context.Background(), func() {
		_, err = f.manager.HandleVehicleHeartbeat(context.Background(), stubLink{name: link}, id,
			vehicle.Info{ComponentID: 1, MavlinkVersion: 2, FirmwareType: 3, VehicleType: 2})
	})
	if callErr != nil || err != nil {
		f.t.Fatalf("admit %d: %v %v", id, callErr, err)
	}
}

func (f *fixture) do(method, path, body string) *http.Response {
	f.t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		f.t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		f.t.Fatal(err)
	}
	f.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

// eventually polls cond on the loop until it holds.
func (f *fixture) eventually(cond func(m *vehicle.Manager) bool) {
	f.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		_ = f.loop.Call(context.Background(), func() { ok = cond(f.manager) })
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.t.Fatal("condition not met")
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if resp := f.do(http.MethodGet, path, ""); resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
	}
}

func TestReadyzNotReady(t *testing.T) {
	loop := eventloop.New()
	s := NewServer(options.NewHttpOptions(), loop, vehicle.NewManager(loop, vehicle.DefaultOptions()), func() bool { return false })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestVehiclesAndActive(t *testing.T) {
	f := newFixture(t)
	f.admit(1, "udp")
	f.admit(2, "udp")
	f.eventually(func(m *vehicle.Manager) bool { return m.Active() != nil })

	views := decode[[]VehicleView](t, f.do(http.MethodGet, "/api/v1/vehicles", ""))
	if len(views) != 2 || views[0].ID != 1 || !views[0].Active || views[1].Active {
		t.Fatalf("vehicles = %+v", views)
	}

	v := decode[VehicleView](t, f.do(http.MethodGet, "/api/v1/vehicles/2", ""))
	if v.Link != "udp" || v.State != vehicle.StateLive || v.VehicleType != 2 {
		t.Fatalf("vehicle = %+v", v)
	}

	if resp := f.do(http.MethodGet, "/api/v1/vehicles/9", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown vehicle status = %d", resp.StatusCode)
	}

	if resp := f.do(http.MethodPut, "/api/v1/active", `{"id":2}`); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("put active status = %d", resp.StatusCode)
	}
	f.eventually(func(m *vehicle.Manager) bool { return m.Active() != nil && m.Active().ID() == 2 })

	active := decode[ActiveView](t, f.do(http.MethodGet, "/api/v1/active", ""))
	if active.ID != 2 || active.Offline || !active.Available || active.Vehicle == nil {
		t.Fatalf("active = %+v", active)
	}

	if resp := f.do(http.MethodPut, "/api/v1/active", `{"id":7}`); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("put unknown active status = %d", resp.StatusCode)
	}
	if resp := f.do(http.MethodPut, "/api/v1/active", `not json`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("put bad body status = %d", resp.StatusCode)
	}
}

func TestDeleteVehicleFailsOver(t *testing.T) {
	f := newFixture(t)
	f.admit(1, "udp")
	f.admit(2, "tcp")
	f.eventually(func(m *vehicle.Manager) bool { return m.Active() != nil })

	if resp := f.do(http.MethodDelete, "/api/v1/vehicles/1", ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	f.eventually(func(m *vehicle.Manager) bool {
		return m.PendingDeletions() == 0 && m.Active() != nil && m.Active().ID() == 2
	})

	if resp := f.do(http.MethodDelete, "/api/v1/vehicles/1", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d", resp.StatusCode)
	}
}

func TestHeartbeatToggle(t *testing.T) {
	f := newFixture(t)

	if hb := decode[HeartbeatView](t, f.do(http.MethodGet, "/api/v1/heartbeat", "")); !hb.Enabled {
		t.Fatal("heartbeat should default to enabled")
	}
	if resp := f.do(http.MethodPut, "/api/v1/heartbeat", `{"enabled":false}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("put heartbeat status = %d", resp.StatusCode)
	}
	if hb := decode[HeartbeatView](t, f.do(http.MethodGet, "/api/v1/heartbeat", "")); hb.Enabled {
		t.Fatal("heartbeat should be disabled")
	}

	var stored string
	_ = f.loop.Call(context.Background(), func() {
		stored = f.manager.LoadSetting(vehicle.HeartbeatEnabledKey, "")
	})
	if stored != "false" {
		t.Fatalf("persisted flag = %q", stored)
	}
}

func TestLinkInUse(t *testing.T) {
	f := newFixture(t)
	f.admit(3, "serial0")

	tests := []struct {
		path string
		want bool
	}{
		{"/api/v1/links/serial0/in-use", true},
		{"/api/v1/links/serial0/in-use?exclude=3", false},
		{"/api/v1/links/udp/in-use", false},
	}
	for _, tt := range tests {
		view := decode[LinkInUseView](t, f.do(http.MethodGet, tt.path, ""))
		if view.InUse != tt.want {
			t.Errorf("GET %s in use = %v, want %v", tt.path, view.InUse, tt.want)
		}
	}

	if resp := f.do(http.MethodGet, "/api/v1/links/serial0/in-use?exclude=x", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad exclude status = %d", resp.StatusCode)
	}
}

func TestIgnoreList(t *testing.T) {
	f := newFixture(t)
	f.admit(4, "udp")

	if resp := f.do(http.MethodPut, "/api/v1/ignored/4", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("ignore status = %d", resp.StatusCode)
	}
	f.eventually(func(m *vehicle.Manager) bool { return len(m.Vehicles()) == 0 })

	if ids := decode[[]int](t, f.do(http.MethodGet, "/api/v1/ignored", "")); len(ids) != 1 || ids[0] != 4 {
		t.Fatalf("ignored = %v", ids)
	}

	if resp := f.do(http.MethodDelete, "/api/v1/ignored", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear status = %d", resp.StatusCode)
	}
	if ids := decode[[]int](t, f.do(http.MethodGet, "/api/v1/ignored", "")); len(ids) != 0 {
		t.Fatalf("ignored after clear = %v", ids)
	}
}

func TestRTKAndDebug(t *testing.T) {
	f := newFixture(t)
	f.admit(5, "udp")
	_ = f.loop.Call(context.Background(), func() {
		f.manager.GPSConnect()
		f.manager.GPSNumSatellites(12)
	})

	resp := f.do(http.MethodGet, "/api/v1/rtk", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rtk status = %d", resp.StatusCode)
	}

	resp = f.do(http.MethodGet, "/debug/vehicles", "")
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	out := string(body)
	if !strings.Contains(out, "STATE") || !strings.Contains(out, vehicle.StateLive) || !strings.Contains(out, "pending deletions: 0") {
		t.Fatalf("debug output:\n%s", out)
	}
}

func TestTimedOutMutationIsNotApplied(t *testing.T) {
	// Nothing drives the loop, so every call times out.
	loop := eventloop.New()
	manager := vehicle.NewManager(loop, vehicle.DefaultOptions())
	opts := options.NewHttpOptions()
	opts.Timeout = 10 * time.Millisecond
	s := NewServer(opts, loop, manager, func() bool { return true })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/heartbeat", strings.NewReader(`{"enabled":false}`))
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}

	loop.RunPending()
	if !manager.HeartbeatEnabled() {
		t.Fatal("request that timed out was applied afterwards")
	}
}
