package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes payloads on MQTT topics.
type IPublisher interface {
	PublishMessage(message string) error
	PublishTo(topic string, qos byte, retained bool, payload string) error
	Close()
}

// Publisher holds the client and its default topic.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// NewPublisher creates a Publisher using the shared MQTT client; topic may
// be empty when the caller only uses PublishTo.
func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// PublishMessage publishes on the default topic with the topic's QoS.
func (p *Publisher) PublishMessage(message string) error {
	if p.topic == "" {
		return fmt.Errorf("publisher has no default topic")
	}
	return p.PublishTo(p.topic, qosFor(p.topic), false, message)
}

// PublishTo publishes on an explicit topic.
func (p *Publisher) PublishTo(topic string, qos byte, retained bool, payload string) error {
	token := p.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish on %s: %w", topic, token.Error())
	}
	log.Printf("mqtt: published %d bytes on %s (qos=%d)", len(payload), topic, qos)
	return nil
}

// Close gracefully closes the MQTT connection for the publisher
func (p *Publisher) Close() {
	CloseRabbitMQConn(p.client)
}

// PublishJSON marshals v and publishes it on topic with the topic's QoS.
func PublishJSON(p IPublisher, topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	return p.PublishTo(topic, qosFor(topic), false, string(b))
}
