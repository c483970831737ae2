// Package rabbitmqtest provides in-memory MQTT doubles for tests.
package rabbitmqtest

import (
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Message is a minimal mqtt.Message.
type Message struct {
	TopicName string
	Body      []byte
	QoS       byte
}

func NewMessage(topic string, body []byte) *Message {
	return &Message{TopicName: topic, Body: body}
}

func (m *Message) Duplicate() bool   { return false }
func (m *Message) Qos() byte         { return m.QoS }
func (m *Message) Retained() bool    { return false }
func (m *Message) Topic() string     { return m.TopicName }
func (m *Message) MessageID() uint16 { return 0 }
func (m *Message) Payload() []byte   { return m.Body }
func (m *Message) Ack()              {}

// Token is an already completed mqtt.Token.
type Token struct{ Err error }

func (t *Token) Wait() bool                     { return true }
func (t *Token) WaitTimeout(time.Duration) bool { return true }
func (t *Token) Error() error                   { return t.Err }
func (t *Token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Published is a message recorded by Client.Publish.
type Published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  string
}

// Client records publications and lets tests deliver messages to subscribers.
type Client struct {
	mu         sync.Mutex
	connected  bool
	subs       map[string]mqtt.MessageHandler
	published  []Published
	PublishErr error
}

func NewClient() *Client {
	return &Client{connected: true, subs: make(map[string]mqtt.MessageHandler)}
}

func (c *Client) IsConnected() bool      { c.mu.Lock(); defer c.mu.Unlock(); return c.connected }
func (c *Client) IsConnectionOpen() bool { return c.IsConnected() }
func (c *Client) Connect() mqtt.Token {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return &Token{}
}
func (c *Client) Disconnect(uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PublishErr != nil {
		return &Token{Err: c.PublishErr}
	}
	var body string
	switch p := payload.(type) {
	case string:
		body = p
	case []byte:
		body = string(p)
	}
	c.published = append(c.published, Published{Topic: topic, QoS: qos, Retained: retained, Payload: body})
	return &Token{}
}

func (c *Client) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.subs[topic] = callback
	c.mu.Unlock()
	return &Token{}
}

func (c *Client) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	for topic, qos := range filters {
		c.Subscribe(topic, qos, callback)
	}
	return &Token{}
}

func (c *Client) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	c.mu.Unlock()
	return &Token{}
}

func (c *Client) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.Subscribe(topic, 0, callback)
}

func (c *Client) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

// Subscribed reports whether a subscription for filter is active.
func (c *Client) Subscribed(filter string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[filter]
	return ok
}

// Deliver routes a message to every subscription whose filter matches topic.
// It returns the number of handlers invoked.
func (c *Client) Deliver(topic string, payload []byte) int {
	c.mu.Lock()
	var handlers []mqtt.MessageHandler
	for filter, h := range c.subs {
		if Match(filter, topic) {
			handlers = append(handlers, h)
		}
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(c, NewMessage(topic, payload))
	}
	return len(handlers)
}

// Published returns a copy of everything published so far.
func (c *Client) Published() []Published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Published(nil), c.published...)
}

// Match implements MQTT filter matching with + and # wildcards.
func Match(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, f := range fp {
		if f == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if f != "+" && f != tp[i] {
			return false
		}
	}
	return len(fp) == len(tp)
}

var _ mqtt.Client = (*Client)(nil)
var _ mqtt.Message = (*Message)(nil)

// Publisher is an in-memory rabbitmq.IPublisher.
type Publisher struct {
	mu       sync.Mutex
	Messages []Published
	Err      error
	closed   bool
}

func (p *Publisher) PublishMessage(message string) error {
	return p.PublishTo("", 0, false, message)
}

func (p *Publisher) PublishTo(topic string, qos byte, retained bool, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Messages = append(p.Messages, Published{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Sent returns a copy of the published messages.
func (p *Publisher) Sent() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.Messages...)
}

// Closed reports whether Close was called.
func (p *Publisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
