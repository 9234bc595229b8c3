// Package mqtt publishes one compact telemetry message per stats
// collection to an MQTT broker. Everything is fire-and-forget: a dead
// broker degrades to log noise, never to a failed HTTP request.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tomek7667/sysmon/internal/config"
	"github.com/tomek7667/sysmon/internal/stats"
)

const (
	connectRetryInterval = 10 * time.Second
	disconnectQuiesceMs  = 250
)

type Publisher struct {
	client   paho.Client
	topic    string
	hostname string
}

// payload is the compact telemetry shape; the full stats response
// stays private to the HTTP API.
type payload struct {
	Hostname  string  `json:"hostname"`
	CPU       float64 `json:"cpu"`
	Memory    float64 `json:"memory"`
	Timestamp string  `json:"timestamp"`
}

// New builds a publisher and starts connecting in the background with
// retry and auto-reconnect; a broker that is down at startup is log
// noise, not a startup failure.
func New(cfg config.MQTT, hostname string) *Publisher {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = hostname + "-sysmon"
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetOnConnectHandler(func(paho.Client) {
			slog.Info("mqtt connected", "broker", cfg.Broker)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt connection lost", "error", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	p := &Publisher{
		client:   paho.NewClient(opts),
		topic:    statsTopic(cfg.TopicPrefix, hostname),
		hostname: hostname,
	}

	token := p.client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			slog.Warn("mqtt connect failed", "broker", cfg.Broker, "error", token.Error())
		}
	}()
	return p
}

// Publish sends one telemetry message at QoS 0. Failures are logged
// and the message dropped; the next collection brings fresher data
// anyway.
func (p *Publisher) Publish(resp stats.Response) {
	if !p.client.IsConnected() {
		return
	}

	data, err := json.Marshal(newPayload(p.hostname, resp))
	if err != nil {
		slog.Warn("mqtt payload marshal failed", "error", err)
		return
	}

	token := p.client.Publish(p.topic, 0, false, data)
	go func() {
		if token.Wait() && token.Error() != nil {
			slog.Warn("mqtt publish failed", "topic", p.topic, "error", token.Error())
		}
	}()
}

// Close disconnects after letting in-flight messages quiesce.
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectQuiesceMs)
}

func newPayload(hostname string, resp stats.Response) payload {
	return payload{
		Hostname:  hostname,
		CPU:       resp.CPU.Usage,
		Memory:    resp.Memory.Percent,
		Timestamp: resp.Timestamp,
	}
}

func statsTopic(prefix, hostname string) string {
	if prefix == "" {
		prefix = "sysmon"
	}
	return fmt.Sprintf("%s/%s/stats", prefix, hostname)
}
