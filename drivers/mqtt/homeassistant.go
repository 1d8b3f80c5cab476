package mqtt

import (
	"fmt"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/timzifer/colint/config"
)

type discoveryMessage struct {
	topic   string
	payload []byte
}

// homeAssistantPublisher announces one sensor per tally field so Home
// Assistant picks up the dashboard health without manual configuration.
type homeAssistantPublisher struct {
	messages []discoveryMessage
	once     sync.Once
}

var haSensors = []struct {
	key  string
	name string
	icon string
}{
	{key: "active", name: "Fuentes activas", icon: "mdi:rss"},
	{key: "live", name: "Fuentes en vivo", icon: "mdi:access-point"},
	{key: "total", name: "Fuentes totales", icon: "mdi:counter"},
}

func newHomeAssistantPublisher(cfg config.MQTTPublishConfig) (*homeAssistantPublisher, error) {
	ha := cfg.HomeAssistant
	if !ha.Enabled {
		return nil, nil
	}
	prefix := strings.Trim(ha.Prefix, "/")
	if prefix == "" {
		prefix = "homeassistant"
	}
	deviceName := ha.Device
	if deviceName == "" {
		deviceName = "COLINT"
	}
	id := clientID(cfg)
	publisher := &homeAssistantPublisher{}
	for _, sensor := range haSensors {
		objectID := uniqueID(id, sensor.key)
		payload := map[string]any{
			"name":                  sensor.name,
			"object_id":             objectID,
			"unique_id":             objectID,
			"icon":                  sensor.icon,
			"state_topic":           healthTopic(cfg),
			"value_template":        fmt.Sprintf("{{ value_json.%s }}", sensor.key),
			"state_class":           "measurement",
			"availability_topic":    statusTopic(cfg),
			"payload_available":     statusOnline,
			"payload_not_available": statusOffline,
			"device": map[string]any{
				"identifiers": []string{id},
				"name":        deviceName,
				"model":       "feed dashboard",
			},
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("mqtt: encode home assistant discovery: %w", err)
		}
		publisher.messages = append(publisher.messages, discoveryMessage{
			topic:   fmt.Sprintf("%s/sensor/%s/config", prefix, objectID),
			payload: body,
		})
	}
	return publisher, nil
}

func (h *homeAssistantPublisher) Ensure(client mqtt.Client, logger zerolog.Logger) {
	if h == nil {
		return
	}
	h.once.Do(func() {
		for _, msg := range h.messages {
			token := client.Publish(msg.topic, 1, true, msg.payload)
			if token.Wait() && token.Error() != nil {
				logger.Error().Err(token.Error()).Str("topic", msg.topic).Msg("mqtt: home assistant discovery publish failed")
				continue
			}
			logger.Info().Str("topic", msg.topic).Msg("mqtt: home assistant discovery published")
		}
	})
}

func uniqueID(clientID, key string) string {
	base := strings.TrimSpace(clientID)
	if base == "" {
		base = defaultClientID
	}
	return fmt.Sprintf("%s_%s", base, strings.TrimSpace(key))
}
