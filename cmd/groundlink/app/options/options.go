package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/groundlink/internal/groundlink"
	"github.com/autopeer-io/groundlink/pkg/app"
	"github.com/autopeer-io/groundlink/pkg/log"
	genericoptions "github.com/autopeer-io/groundlink/pkg/options"
)

type GroundlinkOptions struct {
	MqttOptions     *genericoptions.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	HttpOptions     *genericoptions.HttpOptions     `json:"http" mapstructure:"http"`
	GrpcOptions     *genericoptions.GrpcOptions     `json:"grpc" mapstructure:"grpc"`
	S3Options       *genericoptions.S3Options       `json:"s3" mapstructure:"s3"`
	SettingsOptions *genericoptions.SettingsOptions `json:"settings" mapstructure:"settings"`
	VehicleOptions  *genericoptions.VehicleOptions  `json:"vehicle" mapstructure:"vehicle"`
	Log             *log.Options                    `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*GroundlinkOptions)(nil)
	_ app.LogOptionsProvider  = (*GroundlinkOptions)(nil)
)

func NewGroundlinkOptions() *GroundlinkOptions {
	o := &GroundlinkOptions{
		MqttOptions:     genericoptions.NewMqttOptions(),
		HttpOptions:     genericoptions.NewHttpOptions(),
		GrpcOptions:     genericoptions.NewGrpcOptions(),
		S3Options:       genericoptions.NewS3Options(),
		SettingsOptions: genericoptions.NewSettingsOptions(),
		VehicleOptions:  genericoptions.NewVehicleOptions(),
		Log:             log.NewOptions(),
	}

	return o
}

func (o *GroundlinkOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}

	o.MqttOptions.AddFlags(fss.FlagSet("MQTT"))
	o.HttpOptions.AddFlags(fss.FlagSet("HTTP"))
	o.GrpcOptions.AddFlags(fss.FlagSet("gRPC"))
	o.SettingsOptions.AddFlags(fss.FlagSet("Settings"))
	o.S3Options.AddFlags(fss.FlagSet("S3"))
	o.VehicleOptions.AddFlags(fss.FlagSet("Vehicle"))
	o.Log.AddFlags(fss.FlagSet("Log"))

	return fss
}

func (o *GroundlinkOptions) Complete() error {
	return nil
}

func (o *GroundlinkOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.SettingsOptions.Validate()...)
	if o.SettingsOptions.Backend == genericoptions.SettingsBackendS3 {
		errs = append(errs, o.S3Options.Validate()...)
	}
	errs = append(errs, o.VehicleOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	return utilerrors.NewAggregate(errs)
}

func (o *GroundlinkOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *GroundlinkOptions) Config() (*groundlink.Config, error) {
	return &groundlink.Config{
		HttpOptions:     o.HttpOptions,
		GrpcOptions:     o.GrpcOptions,
		MqttOptions:     o.MqttOptions,
		S3Options:       o.S3Options,
		SettingsOptions: o.SettingsOptions,
		VehicleOptions:  o.VehicleOptions,
	}, nil
}
