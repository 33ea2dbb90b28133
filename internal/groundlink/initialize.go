package groundlink

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/autopeer-io/groundlink/internal/groundlink/server/mqtt"
	"github.com/autopeer-io/groundlink/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/groundlink/pkg/log"
	pkgmqtt "github.com/autopeer-io/groundlink/pkg/mqtt"
	"github.com/autopeer-io/groundlink/pkg/mqtt/topic"
	"github.com/autopeer-io/groundlink/pkg/options"
)

// InitializeMQTTClient builds the broker client. The broker publishes a
// retained offline presence message if the session drops.
func InitializeMQTTClient(opts *options.MqttOptions, topics *topic.Builder) (pkgmqtt.Client, error) {
	cfg := opts.ToClientConfig()

	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("groundlink-%s", hostname)
	}

	offlinePayload, _ := json.Marshal(mqtt.OnlinePayload{Online: false})
	cfg.WillTopic = topics.Build(paths.Event, paths.EventOnline)
	cfg.WillPayload = offlinePayload
	cfg.WillQoS = 1
	cfg.WillRetain = true

	client, err := pkgmqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "failed to new mqtt client")
		return nil, err
	}

	return client, nil
}
