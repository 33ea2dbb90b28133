package groundlink

import (
	"context"
	"fmt"

	"github.com/autopeer-io/groundlink/internal/groundlink/link"
	"github.com/autopeer-io/groundlink/internal/groundlink/notifier"
	"github.com/autopeer-io/groundlink/internal/groundlink/outbox"
	"github.com/autopeer-io/groundlink/internal/groundlink/server"
	"github.com/autopeer-io/groundlink/internal/groundlink/settings"
	"github.com/autopeer-io/groundlink/internal/pkg/eventloop"
	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/pkg/log"
	"github.com/autopeer-io/groundlink/pkg/mqtt/topic"
	"github.com/autopeer-io/groundlink/pkg/options"
)

type Config struct {
	HttpOptions     *options.HttpOptions
	GrpcOptions     *options.GrpcOptions
	MqttOptions     *options.MqttOptions
	S3Options       *options.S3Options
	SettingsOptions *options.SettingsOptions
	VehicleOptions  *options.VehicleOptions
}

func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	// 1. Settings backend
	store, err := settings.New(ctx, cfg.SettingsOptions, cfg.S3Options)
	if err != nil {
		return nil, fmt.Errorf("failed to init settings store: %w", err)
	}

	// 2. Broker session, shared by ingress and egress
	topics := topic.NewBuilder(cfg.MqttOptions.TopicRoot)
	client, err := InitializeMQTTClient(cfg.MqttOptions, topics)
	if err != nil {
		return nil, err
	}
	out := outbox.New(client, outbox.DefaultCapacity, cfg.MqttOptions.ConnectTimeout)
	links := link.NewManager(topics, out, client)

	// 3. Core: the vehicle manager and the loop it lives on
	loop := eventloop.New()
	manager := vehicle.NewManager(loop, cfg.vehicleOptions(store))

	n := notifier.NewMQTTNotifier(topics, out)
	loop.Post(func() { n.Attach(manager) })

	store.OnChange(func() {
		loop.Post(manager.ReloadSettings)
	})

	// 4. Ingress servers
	serverConfig := &server.Config{
		HttpOptions: cfg.HttpOptions,
		GrpcOptions: cfg.GrpcOptions,
		MqttOptions: cfg.MqttOptions,
	}
	srvManager := server.NewManager(serverConfig, server.Deps{
		Client:  client,
		Topics:  topics,
		Loop:    loop,
		Vehicle: manager,
		Links:   links,
	})

	log.Info("Ground link configured",
		"broker", cfg.MqttOptions.Broker,
		"settings", cfg.SettingsOptions.Backend,
		"multiVehicle", cfg.VehicleOptions.MultiVehicle,
	)

	return &Server{
		loop:          loop,
		manager:       manager,
		outbox:        out,
		store:         store,
		serverManager: srvManager,
	}, nil
}

func (cfg *Config) vehicleOptions(store vehicle.Settings) vehicle.Options {
	o := cfg.VehicleOptions
	opts := vehicle.DefaultOptions()
	opts.HeartbeatInterval = o.HeartbeatInterval
	opts.HeartbeatEnabled = o.HeartbeatEnabled
	opts.SystemID = o.SystemID
	opts.ComponentID = o.ComponentID
	opts.AutoActivateFirst = o.AutoActivateFirst
	opts.MultiVehicle = o.MultiVehicle
	opts.FailoverToNext = o.FailoverToNext
	opts.OfflineFirmwareType = o.OfflineFirmwareType
	opts.OfflineVehicleType = o.OfflineVehicleType
	opts.StrictInvariants = o.StrictInvariants
	opts.Settings = store
	return opts
}
