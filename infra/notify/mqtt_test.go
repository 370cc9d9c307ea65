package notify

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenotify "github.com/kurirhub/kurir/core/notify"
)

// mockClient implements pahoClient for tests.
type mockClient struct {
	opts      *paho.ClientOptions
	published []struct {
		topic   string
		qos     byte
		payload []byte
	}
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(nil)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	m.published = append(m.published, struct {
		topic   string
		qos     byte
		payload []byte
	}{topic, qos, payload.([]byte)})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func withMockClient(t *testing.T) *mockClient {
	t.Helper()
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
	return mc
}

func TestOfferToDriver_TopicAndPayload(t *testing.T) {
	mc := withMockClient(t)
	n, err := NewMQTTNotifier(Config{Broker: "tcp://localhost:1883", ClientID: "kurir", QoS: map[string]byte{"offer": 1}})
	require.NoError(t, err)

	deadline := time.Date(2026, 8, 29, 9, 1, 0, 0, time.UTC)
	err = n.OfferToDriver("628111111", corenotify.OfferSummary{
		OrderNumber: "KRK-20260829-001",
		OrderType:   "delivery",
		Payload:     map[string]string{"pickup": "Warung A"},
		Deadline:    deadline,
	}, time.Minute)
	require.NoError(t, err)

	require.Len(t, mc.published, 1)
	assert.Equal(t, "kurir/driver/628111111/offer", mc.published[0].topic)
	assert.Equal(t, byte(1), mc.published[0].qos)

	var msg struct {
		MessageID string                  `json:"message_id"`
		Offer     corenotify.OfferSummary `json:"offer"`
		TimeoutS  int                     `json:"timeout_s"`
	}
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &msg))
	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, "KRK-20260829-001", msg.Offer.OrderNumber)
	assert.Equal(t, 60, msg.TimeoutS)
}

func TestNotify_MessageTopics(t *testing.T) {
	mc := withMockClient(t)
	n, err := NewMQTTNotifier(Config{Broker: "tcp://localhost:1883", ClientID: "kurir", TopicPrefix: "hub"})
	require.NoError(t, err)

	require.NoError(t, n.NotifyDriver("628111111", "order withdrawn"))
	require.NoError(t, n.NotifyCustomer("628999999", "driver on the way"))

	require.Len(t, mc.published, 2)
	assert.Equal(t, "hub/driver/628111111/message", mc.published[0].topic)
	assert.Equal(t, "hub/customer/628999999/message", mc.published[1].topic)
}

func TestPublish_Retries(t *testing.T) {
	mc := withMockClient(t)
	mc.publishErrs = []error{fmt.Errorf("net fail"), nil}
	n, err := NewMQTTNotifier(Config{Broker: "tcp://localhost:1883", ClientID: "kurir", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)

	require.NoError(t, n.NotifyDriver("628111111", "hello"))
	assert.Len(t, mc.published, 2, "first attempt failed, second succeeded")
}

func TestPublish_ExhaustedRetries(t *testing.T) {
	mc := withMockClient(t)
	mc.publishErrs = []error{fmt.Errorf("down"), fmt.Errorf("down"), fmt.Errorf("down")}
	n, err := NewMQTTNotifier(Config{Broker: "tcp://localhost:1883", ClientID: "kurir", MaxRetries: 2, BackoffMS: 1})
	require.NoError(t, err)

	require.Error(t, n.NotifyDriver("628111111", "hello"))
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
}

func TestLoadTLSConfig_MissingFiles(t *testing.T) {
	_, err := Config{UseTLS: true}.LoadTLSConfig()
	require.Error(t, err)
}
