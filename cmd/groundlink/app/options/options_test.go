package options

import (
	"strings"
	"testing"

	genericoptions "github.com/autopeer-io/groundlink/pkg/options"
)

func TestDefaultsValidate(t *testing.T) {
	o := NewGroundlinkOptions()
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestS3OnlyValidatedForS3Backend(t *testing.T) {
	o := NewGroundlinkOptions()
	o.S3Options.Endpoint = ""

	if err := o.Validate(); err != nil {
		t.Fatalf("file backend should ignore s3 options: %v", err)
	}

	o.SettingsOptions.Backend = genericoptions.SettingsBackendS3
	err := o.Validate()
	if err == nil || !strings.Contains(err.Error(), "s3.endpoint") {
		t.Fatalf("Validate() = %v, want s3 endpoint error", err)
	}
}

func TestFlagsCoverEveryGroup(t *testing.T) {
	fss := NewGroundlinkOptions().Flags()
	for _, name := range []string{"MQTT", "HTTP", "gRPC", "Settings", "S3", "Vehicle", "Log"} {
		if _, ok := fss.FlagSets[name]; !ok {
			t.Errorf("missing flag set %q", name)
		}
	}

	fs := fss.FlagSet("Vehicle")
	if err := fs.Parse([]string{"--vehicle.failover-to-next=false", "--vehicle.system-id=7"}); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCarriesOptions(t *testing.T) {
	o := NewGroundlinkOptions()
	o.VehicleOptions.MultiVehicle = false

	cfg, err := o.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VehicleOptions.MultiVehicle || cfg.MqttOptions != o.MqttOptions {
		t.Fatalf("config does not carry options: %+v", cfg)
	}
}
