package mqtt

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/runtime/sources"
	"github.com/timzifer/colint/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const publishTimeout = 5 * time.Second

type healthPayload struct {
	Active      int       `json:"active"`
	Live        int       `json:"live"`
	Total       int       `json:"total"`
	Label       string    `json:"label"`
	Pass        uint64    `json:"pass"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMS  int64     `json:"duration_ms"`
}

type panelPayload struct {
	ID     string        `json:"id"`
	OK     bool          `json:"ok"`
	Mock   bool          `json:"mock"`
	Reason string        `json:"reason,omitempty"`
	Title  string        `json:"title,omitempty"`
	Rows   []sources.Row `json:"rows,omitempty"`
}

// Publisher is a service.Sink that mirrors the dashboard state to MQTT.
type Publisher struct {
	cfg    config.MQTTPublishConfig
	logger zerolog.Logger
	client mqtt.Client
	ha     *homeAssistantPublisher

	mu         sync.Mutex
	lastHealth []byte
	pending    sync.WaitGroup
}

// NewPublisher connects to the configured broker. The logger is used as
// given; callers scope it to their component.
func NewPublisher(cfg config.MQTTPublishConfig, logger zerolog.Logger) (*Publisher, error) {
	return newPublisher(cfg, logger, buildClient)
}

func newPublisher(cfg config.MQTTPublishConfig, logger zerolog.Logger, connect connectFunc) (*Publisher, error) {
	ha, err := newHomeAssistantPublisher(cfg)
	if err != nil {
		return nil, err
	}
	p := &Publisher{
		cfg:    cfg,
		logger: logger,
		ha:     ha,
	}
	client, err := connect(cfg, p.logger, p.onConnect)
	if err != nil {
		return nil, err
	}
	p.client = client
	p.logger.Info().Str("broker", cfg.Broker).Str("topic", baseTopic(cfg)).Msg("mqtt publisher connected")
	return p, nil
}

// onConnect runs after every (re)connect: it restores the retained status,
// discovery and last tally.
func (p *Publisher) onConnect(client mqtt.Client) {
	p.waitFor(client.Publish(statusTopic(p.cfg), 1, true, statusOnline), statusTopic(p.cfg))
	p.ha.Ensure(client, p.logger)
	p.mu.Lock()
	last := p.lastHealth
	p.mu.Unlock()
	if last != nil {
		p.waitFor(client.Publish(healthTopic(p.cfg), p.cfg.QoS, p.cfg.Retain, last), healthTopic(p.cfg))
	}
}

// HealthPublished implements service.Sink.
func (p *Publisher) HealthPublished(tally service.HealthTally) {
	body, err := json.Marshal(healthPayload{
		Active:      tally.Active,
		Live:        tally.Live,
		Total:       tally.Total,
		Label:       tally.Ratio(),
		Pass:        tally.Pass,
		CompletedAt: tally.CompletedAt,
		DurationMS:  tally.Duration.Milliseconds(),
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("mqtt: encode health")
		return
	}
	p.mu.Lock()
	p.lastHealth = body
	p.mu.Unlock()
	p.publish(healthTopic(p.cfg), body)
}

// PanelUpdated implements service.Sink. Panels are only published when
// panel_topics is enabled.
func (p *Publisher) PanelUpdated(id string, outcome sources.Outcome) {
	if !p.cfg.PanelTopics {
		return
	}
	payload := panelPayload{ID: id, OK: outcome.OK, Mock: outcome.Mock, Reason: outcome.Reason}
	if outcome.OK {
		payload.Title = outcome.Content.Title
		payload.Rows = outcome.Content.Rows
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error().Err(err).Str("panel", id).Msg("mqtt: encode panel")
		return
	}
	p.publish(panelTopic(p.cfg, id), body)
}

func (p *Publisher) publish(topic string, body []byte) {
	if p.client == nil {
		return
	}
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, body)
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		p.waitFor(token, topic)
	}()
}

func (p *Publisher) waitFor(token mqtt.Token, topic string) {
	if !token.WaitTimeout(publishTimeout) {
		p.logger.Warn().Str("topic", topic).Msg("mqtt: publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("mqtt: publish failed")
	}
}

// Close marks the dashboard offline and disconnects.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	p.pending.Wait()
	p.waitFor(p.client.Publish(statusTopic(p.cfg), 1, true, statusOffline), statusTopic(p.cfg))
	p.client.Disconnect(250)
	return nil
}
