package rabbitmq

import (
	"context"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one message; topic is the subscription filter.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes and dispatches messages to a Handler.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
}

// Consumer subscribes to a single topic filter.
type Consumer struct {
	client  mqtt.Client
	handler Handler
	topic   string
}

func NewConsumer(client mqtt.Client, topic string, handler Handler) *Consumer {
	return &Consumer{client: client, topic: topic, handler: handler}
}

func (c *Consumer) SetHandler(handler Handler) {
	c.handler = handler
}

// alert e advisory a QoS1: possibili redelivery, gestite con dedup
func qosFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "event/alert") || strings.HasPrefix(t, "event/advisory") {
		return 1
	}
	return 0
}

// ConsumeMessage subscribes and blocks until ctx is cancelled.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	token := c.client.Subscribe(c.topic, qosFor(c.topic), dispatch(c.topic, func() Handler { return c.handler }))
	if token.Wait() && token.Error() != nil {
		log.Printf("mqtt: error subscribing to %s: %v", c.topic, token.Error())
		return
	}
	log.Printf("mqtt: subscribed to %s", c.topic)

	<-ctx.Done()

	c.client.Unsubscribe(c.topic).Wait()
}

// MultiConsumer subscribes to several topic filters with one handler.
type MultiConsumer struct {
	client  mqtt.Client
	topics  []string
	handler Handler
}

func NewMultiConsumer(client mqtt.Client, topics []string, handler Handler) *MultiConsumer {
	return &MultiConsumer{client: client, topics: topics, handler: handler}
}

func (m *MultiConsumer) SetHandler(handler Handler) {
	m.handler = handler
}

func (m *MultiConsumer) ConsumeMessage(ctx context.Context) {
	for _, topic := range m.topics {
		token := m.client.Subscribe(topic, qosFor(topic), dispatch(topic, func() Handler { return m.handler }))
		token.Wait()
		if token.Error() != nil {
			log.Printf("mqtt: error subscribing to %s: %v", topic, token.Error())
		} else {
			log.Printf("mqtt: subscribed to %s", topic)
		}
	}

	<-ctx.Done()

	m.client.Unsubscribe(m.topics...).Wait()
}

func dispatch(topic string, handler func() Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		h := handler()
		if h == nil {
			log.Printf("mqtt: no handler set for %s", topic)
			return
		}
		if err := h(topic, msg); err != nil {
			log.Printf("mqtt: error handling message on %s: %v", msg.Topic(), err)
		}
	}
}

// SplitTopics parses a comma separated list of topic filters.
func SplitTopics(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
