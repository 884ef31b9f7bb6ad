package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/lox/weatherstatus/internal/weather"
)

const (
	DefaultTopicPrefix = "weatherstatus"
	DefaultClientID    = "weatherstatus"

	connectTimeout = 5 * time.Second
)

// publishWait bounds how long a QoS 0 publish may hold up the caller. An
// unacknowledged publish is reported as an error and left to paho.
var publishWait = 500 * time.Millisecond

// publishClient is the subset of mqtt.Client the publisher needs.
type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher mirrors pushed statuses to an MQTT broker. A Publisher built
// from a config without a broker is disabled and every call is a no-op.
type Publisher struct {
	client      mqtt.Client
	pub         publishClient
	topicPrefix string
	enabled     bool
	log         *zap.Logger
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Logger      *zap.Logger
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if cfg.Broker == "" {
		return &Publisher{enabled: false, topicPrefix: prefix, log: logger}, nil
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info("mqtt connected", zap.String("broker", cfg.Broker))
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(connectTimeout) && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		pub:         client,
		topicPrefix: prefix,
		enabled:     true,
		log:         logger,
	}, nil
}

// weatherMessage is the JSON body published on <prefix>/weather.
type weatherMessage struct {
	Status      string   `json:"status"`
	Condition   string   `json:"condition"`
	Temperature *float64 `json:"temperature_c,omitempty"`
	Sunrise     string   `json:"sunrise,omitempty"`
	Sunset      string   `json:"sunset,omitempty"`
	Source      string   `json:"source,omitempty"`
	FetchedAt   string   `json:"fetched_at,omitempty"`
}

func newWeatherMessage(text string, snap weather.Snapshot) weatherMessage {
	msg := weatherMessage{
		Status:      text,
		Condition:   snap.Condition,
		Temperature: snap.Temperature,
		Source:      snap.Source,
	}
	if snap.Sunrise != nil {
		msg.Sunrise = snap.Sunrise.String()
	}
	if snap.Sunset != nil {
		msg.Sunset = snap.Sunset.String()
	}
	if !snap.IsUnknown() {
		msg.FetchedAt = snap.FetchedAt.UTC().Format(time.RFC3339)
	}
	return msg
}

// PublishStatus publishes text retained to <prefix>/status and the snapshot
// as JSON to <prefix>/weather.
func (p *Publisher) PublishStatus(text string, snap weather.Snapshot) error {
	if !p.enabled {
		return nil
	}

	if err := p.publish(p.topicPrefix+"/status", true, text); err != nil {
		return err
	}

	payload, err := json.Marshal(newWeatherMessage(text, snap))
	if err != nil {
		return fmt.Errorf("marshal weather: %w", err)
	}
	return p.publish(p.topicPrefix+"/weather", true, payload)
}

func (p *Publisher) publish(topic string, retained bool, payload interface{}) error {
	token := p.pub.Publish(topic, 0, retained, payload)
	select {
	case <-token.Done():
	case <-time.After(publishWait):
		return fmt.Errorf("publish %s: timed out after %s", topic, publishWait)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.log.Debug("mqtt published", zap.String("topic", topic))
	return nil
}

func (p *Publisher) Enabled() bool {
	return p.enabled
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled || p.client == nil {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
