package mqtt

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Mavwarf/stillness/internal/config"
	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/session"
	"github.com/Mavwarf/stillness/internal/tmpl"
)

// Publish connects to an MQTT broker, publishes a message to the given
// topic, and disconnects. Each invocation creates a fresh connection:
// sessions produce a handful of events, not a stream.
func Publish(broker, clientID, topic, message string, qos byte, retain bool, username, password string) error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second)

	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}

	client := pahomqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt: connect timeout")
	}
	if tok.Error() != nil {
		return fmt.Errorf("mqtt: connect: %w", tok.Error())
	}
	defer client.Disconnect(250)

	pub := client.Publish(topic, qos, retain, message)
	if !pub.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt: publish timeout")
	}
	if pub.Error() != nil {
		return fmt.Errorf("mqtt: publish: %w", pub.Error())
	}
	return nil
}

// Topic returns the topic for event under prefix, e.g. "stillness/started".
func Topic(prefix string, event session.Kind) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return string(event)
	}
	return prefix + "/" + string(event)
}

// Publisher sends announced session events to a broker in the background.
type Publisher struct {
	cfg     config.MQTT
	publish func(broker, clientID, topic, message string, qos byte, retain bool, username, password string) error
	wg      sync.WaitGroup
	log     *slog.Logger
}

// Attach subscribes a Publisher to m. It returns nil when no broker is set.
func Attach(m *session.Machine, cfg config.MQTT) *Publisher {
	if cfg.Broker == "" {
		return nil
	}
	p := &Publisher{cfg: cfg, publish: Publish, log: observability.WithFields("component", "mqtt")}
	m.Subscribe(p.handle)
	return p
}

func (p *Publisher) handle(ev session.Event) {
	if !session.Announced(ev.Kind) {
		return
	}
	topic := Topic(p.cfg.Topic, ev.Kind)
	msg := tmpl.Expand(p.cfg.Message, tmpl.FromEvent(ev))
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		c := p.cfg
		if err := p.publish(c.Broker, c.ClientID, topic, msg, byte(c.QoS), c.Retain, c.Username, c.Password); err != nil {
			p.log.Warn("publish failed", "topic", topic, "err", err)
		}
	}()
}

// Wait blocks until in-flight publishes finish.
func (p *Publisher) Wait() {
	if p != nil {
		p.wg.Wait()
	}
}
