package topic

import "testing"

func TestBuilder(t *testing.T) {
	b := NewBuilder("gcs/v1/")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"single id", b.Build("vehicle/heartbeat", "42"), "gcs/v1/vehicle/heartbeat/42"},
		{"two ids", b.Build("gcs/heartbeat", "udp0", "42"), "gcs/v1/gcs/heartbeat/udp0/42"},
		{"no id", b.Build("rtk/connect"), "gcs/v1/rtk/connect"},
		{"wildcard", b.BuildWildcard("vehicle/params"), "gcs/v1/vehicle/params/+"},
		{"shared", b.Shared("groundlink").BuildWildcard("link/removed"), "$share/groundlink/gcs/v1/link/removed/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBuilderID(t *testing.T) {
	b := NewBuilder("gcs/v1")

	if id, ok := b.ID("vehicle/heartbeat", "gcs/v1/vehicle/heartbeat/7"); !ok || id != "7" {
		t.Errorf("got (%q, %v), want (7, true)", id, ok)
	}
	if _, ok := b.ID("vehicle/heartbeat", "gcs/v1/vehicle/params/7"); ok {
		t.Error("params topic must not match heartbeat segment")
	}
	if _, ok := b.ID("vehicle/heartbeat", "gcs/v1/vehicle/heartbeat/"); ok {
		t.Error("empty id must not match")
	}
}

func TestValidLevel(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"udp0", true},
		{"serial-ttyACM0", true},
		{"", false},
		{"radio/1", false},
		{"udp+", false},
		{"#", false},
	}
	for _, tt := range tests {
		if got := ValidLevel(tt.name); got != tt.want {
			t.Errorf("ValidLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
