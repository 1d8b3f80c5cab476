package mqtt

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/runtime/sources"
	"github.com/timzifer/colint/service"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// fakeClient records publishes; the embedded interface panics on anything else.
type fakeClient struct {
	mqtt.Client
	mu           sync.Mutex
	messages     []published
	disconnected bool
	failTopic    string
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	var body []byte
	switch v := payload.(type) {
	case []byte:
		body = v
	case string:
		body = []byte(v)
	}
	f.messages = append(f.messages, published{topic: topic, qos: qos, retain: retained, payload: body})
	if topic == f.failTopic {
		return doneToken{err: errors.New("not authorised")}
	}
	return doneToken{}
}

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
}

func (f *fakeClient) byTopic(topic string) []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []published
	for _, msg := range f.messages {
		if msg.topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

func newTestPublisher(t *testing.T, cfg config.MQTTPublishConfig) (*Publisher, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	pub, err := newPublisher(cfg, zerolog.New(io.Discard), func(_ config.MQTTPublishConfig, _ zerolog.Logger, onConnect mqtt.OnConnectHandler) (mqtt.Client, error) {
		onConnect(client)
		return client, nil
	})
	require.NoError(t, err)
	return pub, client
}

func TestPublisherAnnouncesOnlineStatus(t *testing.T) {
	_, client := newTestPublisher(t, config.MQTTPublishConfig{Broker: "tcp://broker:1883", Topic: "/dash/"})
	status := client.byTopic("dash/status")
	require.Len(t, status, 1)
	require.Equal(t, "online", string(status[0].payload))
	require.True(t, status[0].retain)
}

func TestPublisherPublishesHealth(t *testing.T) {
	pub, client := newTestPublisher(t, config.MQTTPublishConfig{Broker: "tcp://broker:1883", QoS: 1, Retain: true})
	pub.HealthPublished(service.HealthTally{Active: 3, Live: 2, Total: 5, Pass: 7, Duration: 1500 * time.Millisecond})
	require.NoError(t, pub.Close())

	msgs := client.byTopic("colint/health")
	require.Len(t, msgs, 1)
	require.Equal(t, byte(1), msgs[0].qos)
	require.True(t, msgs[0].retain)

	var payload healthPayload
	require.NoError(t, json.Unmarshal(msgs[0].payload, &payload))
	require.Equal(t, 3, payload.Active)
	require.Equal(t, 2, payload.Live)
	require.Equal(t, "3/5", payload.Label)
	require.Equal(t, uint64(7), payload.Pass)
	require.Equal(t, int64(1500), payload.DurationMS)

	status := client.byTopic("colint/status")
	require.Equal(t, "offline", string(status[len(status)-1].payload))
	require.True(t, client.disconnected)
}

func TestPublisherRepublishesLastHealthOnReconnect(t *testing.T) {
	pub, client := newTestPublisher(t, config.MQTTPublishConfig{Broker: "tcp://broker:1883"})
	pub.HealthPublished(service.HealthTally{Active: 1, Total: 1})
	pub.pending.Wait()
	pub.onConnect(client)
	require.Len(t, client.byTopic("colint/health"), 2)
}

func TestPublisherPanelTopics(t *testing.T) {
	pub, client := newTestPublisher(t, config.MQTTPublishConfig{Broker: "tcp://broker:1883"})
	pub.PanelUpdated("crypto", sources.Success(sources.Panel{Title: "Crypto"}))
	pub.pending.Wait()
	require.Empty(t, client.byTopic("colint/panels/crypto"))

	pub, client = newTestPublisher(t, config.MQTTPublishConfig{Broker: "tcp://broker:1883", PanelTopics: true})
	pub.PanelUpdated("crypto", sources.Success(sources.Panel{Title: "Crypto", Rows: []sources.Row{{Title: "BTC", Value: "$65,000"}}}))
	pub.PanelUpdated("news", sources.Failure("Sin datos", sources.ErrEmpty))
	pub.pending.Wait()

	msgs := client.byTopic("colint/panels/crypto")
	require.Len(t, msgs, 1)
	var payload panelPayload
	require.NoError(t, json.Unmarshal(msgs[0].payload, &payload))
	require.True(t, payload.OK)
	require.Equal(t, "$65,000", payload.Rows[0].Value)

	msgs = client.byTopic("colint/panels/news")
	require.Len(t, msgs, 1)
	require.NoError(t, json.Unmarshal(msgs[0].payload, &payload))
	require.False(t, payload.OK)
	require.Equal(t, "Sin datos", payload.Reason)
}

func TestPublisherHomeAssistantDiscovery(t *testing.T) {
	cfg := config.MQTTPublishConfig{
		Broker:        "tcp://broker:1883",
		ClientID:      "colint-test",
		HomeAssistant: config.HomeAssistantDiscovery{Enabled: true},
	}
	pub, client := newTestPublisher(t, cfg)

	msgs := client.byTopic("homeassistant/sensor/colint-test_active/config")
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].retain)
	var discovery map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].payload, &discovery))
	require.Equal(t, "colint/health", discovery["state_topic"])
	require.Equal(t, "{{ value_json.active }}", discovery["value_template"])
	require.Equal(t, "colint/status", discovery["availability_topic"])

	pub.onConnect(client)
	require.Len(t, client.byTopic("homeassistant/sensor/colint-test_active/config"), 1)
	require.Len(t, client.byTopic("homeassistant/sensor/colint-test_total/config"), 1)
}

func TestPublisherToleratesPublishErrors(t *testing.T) {
	pub, client := newTestPublisher(t, config.MQTTPublishConfig{Broker: "tcp://broker:1883"})
	client.failTopic = "colint/health"
	pub.HealthPublished(service.HealthTally{Active: 1, Total: 1})
	require.NoError(t, pub.Close())
}

func TestBuildClientRequiresBroker(t *testing.T) {
	_, err := buildClient(config.MQTTPublishConfig{}, zerolog.New(io.Discard), nil)
	require.ErrorContains(t, err, "broker address is required")
}

func TestTopicHelpers(t *testing.T) {
	cfg := config.MQTTPublishConfig{}
	require.Equal(t, "colint/health", healthTopic(cfg))
	require.Equal(t, "colint/panels/vuelos", panelTopic(cfg, "vuelos"))
	require.Equal(t, defaultClientID, clientID(cfg))
	require.Equal(t, defaultConnectTimeout, connectTimeout(cfg))
}
