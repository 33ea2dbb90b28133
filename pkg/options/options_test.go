package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"0.0.0.0:8443", false},
		{":8091", false},
		{"localhost:1883", false},
		{"[::1]:80", false},
		{"8443", true},
		{"0.0.0.0:http", true},
		{"0.0.0.0:70000", true},
		{"bad host:80", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultsValidate(t *testing.T) {
	groups := map[string]IOptions{
		"http":     NewHttpOptions(),
		"grpc":     NewGrpcOptions(),
		"mqtt":     NewMqttOptions(),
		"s3":       NewS3Options(),
		"settings": NewSettingsOptions(),
		"vehicle":  NewVehicleOptions(),
	}

	for name, o := range groups {
		if errs := o.Validate(); len(errs) != 0 {
			t.Errorf("%s defaults do not validate: %v", name, errs)
		}
	}
}

func TestVehicleOptionsFlags(t *testing.T) {
	o := NewVehicleOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	args := []string{
		"--vehicle.heartbeat-interval=250ms",
		"--vehicle.system-id=0",
		"--vehicle.auto-activate-first=false",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if o.HeartbeatInterval != 250*time.Millisecond {
		t.Errorf("HeartbeatInterval = %v", o.HeartbeatInterval)
	}
	if o.AutoActivateFirst {
		t.Error("AutoActivateFirst should be false")
	}
	if errs := o.Validate(); len(errs) != 1 {
		t.Errorf("got %d errors for system-id 0, want 1: %v", len(errs), errs)
	}
}

func TestSettingsOptionsBackend(t *testing.T) {
	o := NewSettingsOptions()
	o.Backend = "etcd"
	if errs := o.Validate(); len(errs) != 1 {
		t.Fatalf("got %v, want one error", errs)
	}

	o.Backend = SettingsBackendS3
	o.ObjectKey = ""
	if errs := o.Validate(); len(errs) != 1 {
		t.Fatalf("got %v, want one error", errs)
	}
}

func TestMqttToClientConfig(t *testing.T) {
	o := NewMqttOptions()
	o.KeepAlive = 30 * time.Second

	cfg := o.ToClientConfig()
	if cfg.KeepAlive != 30 {
		t.Errorf("KeepAlive = %d, want 30", cfg.KeepAlive)
	}
	if cfg.BrokerURL != o.Broker || cfg.SessionExpiry != o.SessionExpiry {
		t.Errorf("unexpected client config: %+v", cfg)
	}
}
