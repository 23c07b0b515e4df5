package mqtt

import (
	"sync"
	"testing"

	"github.com/Mavwarf/stillness/internal/config"
	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/session"
)

func TestPublishBadBroker(t *testing.T) {
	// Connecting to a non-existent broker should return a connect error.
	err := Publish("tcp://127.0.0.1:19999", "test-client", "test/topic", "hello", 0, false, "", "")
	if err == nil {
		t.Fatal("expected error for unreachable broker")
	}
}

func TestPublishBadScheme(t *testing.T) {
	// A completely invalid broker URL should fail.
	err := Publish("not-a-url", "test-client", "test/topic", "hello", 0, false, "", "")
	if err == nil {
		t.Fatal("expected error for invalid broker URL")
	}
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"stillness", "stillness/completed"},
		{"home/meditation/", "home/meditation/completed"},
		{"", "completed"},
	}
	for _, tt := range tests {
		if got := Topic(tt.prefix, session.EventCompleted); got != tt.want {
			t.Errorf("Topic(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestPublisherHandlesAnnouncedEvents(t *testing.T) {
	var mu sync.Mutex
	got := map[string]string{}
	p := &Publisher{
		cfg: config.MQTT{Broker: "tcp://x", Topic: "stillness", Message: "{event}:{phase}"},
		publish: func(broker, clientID, topic, message string, qos byte, retain bool, username, password string) error {
			mu.Lock()
			got[topic] = message
			mu.Unlock()
			return nil
		},
		log: observability.Logger(),
	}
	m := session.New(session.Options{})
	m.Subscribe(p.handle)
	m.Start()
	m.Stop()
	m.PreviewBell()
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("published %v, want started and stopped", got)
	}
	if got["stillness/started"] != "started:settle" {
		t.Errorf("started message = %q", got["stillness/started"])
	}
	if _, ok := got["stillness/stopped"]; !ok {
		t.Error("stopped not published")
	}
}

func TestAttachDisabledWithoutBroker(t *testing.T) {
	if p := Attach(session.New(session.Options{}), config.MQTT{}); p != nil {
		t.Error("expected nil publisher without broker")
	}
}
