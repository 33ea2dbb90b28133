package vehicle

import (
	"context"
	"errors"
	"testing"
)

func TestAdmitSameLinkTwiceKeepsOneVehicle(t *testing.T) {
	h := newHarness(t, nil)
	link := newFakeLink("udp0")

	first := h.admit(link, 5)
	second := h.admit(link, 5)

	if first != second {
		t.Fatal("second arrival on the same link created a new vehicle")
	}
	if n := len(h.m.Vehicles()); n != 1 {
		t.Fatalf("live vehicles = %d, want 1", n)
	}
	h.expect("added 5")
}

func TestAdmitDifferentLinkIsDuplicate(t *testing.T) {
	h := newHarness(t, nil)
	h.admit(newFakeLink("udp0"), 5)

	_, err := h.m.HandleVehicleHeartbeat(context.Background(), newFakeLink("serial0"), 5, Info{VehicleType: 2})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}
	if n := len(h.m.Vehicles()); n != 1 {
		t.Fatalf("live vehicles = %d, want 1", n)
	}
}

func TestAdmissionFilters(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness)
		id      int
		info    Info
		wantErr error
	}{
		{
			name:    "broadcast id",
			id:      0,
			info:    Info{VehicleType: 2},
			wantErr: ErrInvalidID,
		},
		{
			name:    "ground station",
			id:      7,
			info:    Info{VehicleType: MAVTypeGCS},
			wantErr: ErrNotAVehicle,
		},
		{
			name:    "gimbal",
			id:      7,
			info:    Info{VehicleType: MAVTypeGimbal},
			wantErr: ErrNotAVehicle,
		},
		{
			name:    "ignored id",
			setup:   func(h *harness) { _ = h.m.IgnoreVehicle(7) },
			id:      7,
			info:    Info{VehicleType: 2},
			wantErr: ErrAlreadyIgnored,
		},
		{
			name: "second vehicle with multi-vehicle off",
			setup: func(h *harness) {
				h.m.opts.MultiVehicle = false
				h.admit(newFakeLink("udp0"), 1)
			},
			id:      7,
			info:    Info{VehicleType: 2},
			wantErr: ErrMultiVehicleDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			if tt.setup != nil {
				tt.setup(h)
			}

			v, err := h.m.HandleVehicleHeartbeat(context.Background(), newFakeLink("udp0"), tt.id, tt.info)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if v != nil {
				t.Fatalf("vehicle = %v, want nil", v)
			}
			if !IsIgnorable(err) {
				t.Fatalf("IsIgnorable(%v) = false", err)
			}
			if h.m.Vehicle(tt.id) != nil {
				t.Fatal("filtered vehicle became live")
			}
		})
	}
}

func TestIgnoreVehicleRemovesAndBlocks(t *testing.T) {
	h := newHarness(t, nil)
	link := newFakeLink("udp0")
	h.admit(link, 3)
	h.settle()

	if err := h.m.IgnoreVehicle(3); err != nil {
		t.Fatalf("IgnoreVehicle: %v", err)
	}
	h.settle()

	if h.m.Vehicle(3) != nil {
		t.Fatal("ignored vehicle is still live")
	}
	if _, err := h.m.HandleVehicleHeartbeat(context.Background(), link, 3, Info{VehicleType: 2}); !errors.Is(err, ErrAlreadyIgnored) {
		t.Fatalf("readmission err = %v, want ErrAlreadyIgnored", err)
	}
	if got := h.m.IgnoredVehicles(); len(got) != 1 || got[0] != 3 {
		t.Fatalf("IgnoredVehicles = %v", got)
	}

	h.m.ClearIgnoredVehicles()
	h.admit(link, 3)
}

func TestLinkInUse(t *testing.T) {
	h := newHarness(t, nil)
	udp := newFakeLink("udp0")
	serial := newFakeLink("serial0")

	v1 := h.admit(udp, 1)
	h.admit(udp, 2)
	v3 := h.admit(serial, 3)

	if !h.m.LinkInUse("udp0", nil) {
		t.Error("udp0 should be in use")
	}
	if !h.m.LinkInUse("udp0", v1) {
		t.Error("udp0 is still used by vehicle 2")
	}
	if h.m.LinkInUse("serial0", v3) {
		t.Error("serial0 is only used by the excluded vehicle")
	}
	if h.m.LinkInUse("tcp0", nil) {
		t.Error("unknown link reported in use")
	}
}

func TestUniquenessUnderArbitraryArrivals(t *testing.T) {
	h := newHarness(t, nil)
	links := []Link{newFakeLink("a"), newFakeLink("b"), newFakeLink("c")}

	for i := 0; i < 200; i++ {
		id := 1 + (i*7)%11
		_, _ = h.m.HandleVehicleHeartbeat(context.Background(), links[i%len(links)], id, Info{VehicleType: 2})
		if i%13 == 0 {
			_ = h.m.HandleVehicleDisconnected(id)
		}
		if i%5 == 0 {
			h.settle()
		}

		seen := map[int]bool{}
		for _, v := range h.m.Vehicles() {
			if seen[v.ID()] {
				t.Fatalf("step %d: duplicate live id %d", i, v.ID())
			}
			seen[v.ID()] = true
		}
	}
}
