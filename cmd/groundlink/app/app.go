package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/groundlink/cmd/groundlink/app/options"
	"github.com/autopeer-io/groundlink/pkg/app"
)

const (
	commandName = "groundlink"
	commandDesc = `Groundlink tracks the vehicles a ground station is connected to. It admits
vehicles from their MAVLink heartbeats relayed over MQTT, keeps one of them
active, sends the ground station heartbeat back to each vehicle and publishes
every change as an MQTT event.`
)

func NewApp() *app.App {
	opts := options.NewGroundlinkOptions()
	application := app.NewApp(
		commandName,
		"Launch the groundlink multi-vehicle manager",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.GroundlinkOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create groundlink server: %w", err)
		}

		return server.Run(ctx)
	}
}
