// Package notify provides transport implementations of the core notify
// capability.
package notify

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kurirhub/kurir/core/notify"
	"github.com/kurirhub/kurir/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT notifier.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	QoS         map[string]byte `json:"qos"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTNotifier delivers offers and messages over per-contact MQTT topics. The
// bridge process on the other end renders them into chat messages.
type MQTTNotifier struct {
	cli        pahoClient
	prefix     string
	qos        map[string]byte
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

// NewMQTTNotifier connects to the broker and returns a ready notifier.
func NewMQTTNotifier(cfg Config) (*MQTTNotifier, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_notifier")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "kurir"
	}
	return &MQTTNotifier{
		cli:        c,
		prefix:     prefix,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// OfferToDriver publishes the offer to the driver's offer topic.
func (n *MQTTNotifier) OfferToDriver(contact string, offer notify.OfferSummary, deadline time.Duration) error {
	msg := struct {
		MessageID string              `json:"message_id"`
		Offer     notify.OfferSummary `json:"offer"`
		TimeoutS  int                 `json:"timeout_s"`
		Timestamp int64               `json:"timestamp"`
	}{
		MessageID: uuid.NewString(),
		Offer:     offer,
		TimeoutS:  int(deadline.Seconds()),
		Timestamp: time.Now().UnixMilli(),
	}
	topic := fmt.Sprintf("%s/driver/%s/offer", n.prefix, contact)
	return n.publish(topic, "offer", msg)
}

// NotifyDriver publishes a free-form message to the driver's message topic.
func (n *MQTTNotifier) NotifyDriver(contact, message string) error {
	return n.publishText(fmt.Sprintf("%s/driver/%s/message", n.prefix, contact), message)
}

// NotifyCustomer publishes a free-form message to the customer's message topic.
func (n *MQTTNotifier) NotifyCustomer(contact, message string) error {
	return n.publishText(fmt.Sprintf("%s/customer/%s/message", n.prefix, contact), message)
}

func (n *MQTTNotifier) publishText(topic, message string) error {
	msg := struct {
		MessageID string `json:"message_id"`
		Text      string `json:"text"`
		Timestamp int64  `json:"timestamp"`
	}{
		MessageID: uuid.NewString(),
		Text:      message,
		Timestamp: time.Now().UnixMilli(),
	}
	return n.publish(topic, "message", msg)
}

func (n *MQTTNotifier) publish(topic, kind string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	qos := byte(0)
	if q, ok := n.qos[kind]; ok {
		qos = q
	}
	maxRetries := n.maxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := n.backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	var publishErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		token := n.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			n.logger.Debugf("published to %s", topic)
			return nil
		}
		n.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		time.Sleep(backoff * time.Duration(1<<attempt))
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (n *MQTTNotifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
