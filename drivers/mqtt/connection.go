// Package mqtt publishes the dashboard health tally and panel outcomes to an
// MQTT broker.
package mqtt

import (
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/timzifer/colint/config"
)

const (
	defaultClientID       = "colint"
	defaultTopic          = "colint"
	defaultConnectTimeout = 30 * time.Second
	statusOnline          = "online"
	statusOffline         = "offline"
)

// connectFunc opens a client; tests replace it to avoid a broker.
type connectFunc func(cfg config.MQTTPublishConfig, logger zerolog.Logger, onConnect mqtt.OnConnectHandler) (mqtt.Client, error)

// buildClient constructs a configured MQTT client and establishes the initial connection.
func buildClient(cfg config.MQTTPublishConfig, logger zerolog.Logger, onConnect mqtt.OnConnectHandler) (mqtt.Client, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, fmt.Errorf("mqtt: broker address is required")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID(cfg))
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.KeepAlive.Duration > 0 {
		opts.SetKeepAlive(cfg.KeepAlive.Duration)
	}
	timeout := connectTimeout(cfg)
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(true)
	opts.SetWill(statusTopic(cfg), statusOffline, 1, true)

	if onConnect != nil {
		opts.OnConnect = onConnect
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt: connection lost")
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Info().Msg("mqtt: reconnecting")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt: connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect failed: %w", err)
	}

	return client, nil
}

func clientID(cfg config.MQTTPublishConfig) string {
	if id := strings.TrimSpace(cfg.ClientID); id != "" {
		return id
	}
	return defaultClientID
}

func connectTimeout(cfg config.MQTTPublishConfig) time.Duration {
	if cfg.ConnectTimeout.Duration > 0 {
		return cfg.ConnectTimeout.Duration
	}
	return defaultConnectTimeout
}

func baseTopic(cfg config.MQTTPublishConfig) string {
	if topic := strings.Trim(cfg.Topic, "/ "); topic != "" {
		return topic
	}
	return defaultTopic
}

func statusTopic(cfg config.MQTTPublishConfig) string {
	return baseTopic(cfg) + "/status"
}

func healthTopic(cfg config.MQTTPublishConfig) string {
	return baseTopic(cfg) + "/health"
}

func panelTopic(cfg config.MQTTPublishConfig, id string) string {
	return baseTopic(cfg) + "/panels/" + id
}
