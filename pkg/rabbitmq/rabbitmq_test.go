package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq/rabbitmqtest"
)

func TestQosFor(t *testing.T) {
	testCases := []struct {
		topic string
		want  byte
	}{
		{"event/alert/farm1", 1},
		{"event/advisory/#", 1},
		{"sensor/reading/farm1", 0},
		{" event/alert/x ", 1},
	}
	for _, tc := range testCases {
		if got := qosFor(tc.topic); got != tc.want {
			t.Errorf("qosFor(%q) = %d, want %d", tc.topic, got, tc.want)
		}
	}
}

func TestPublisher(t *testing.T) {
	client := rabbitmqtest.NewClient()
	p := NewPublisher(client, "sensor/reading/f1")

	if err := p.PublishMessage("hello"); err != nil {
		t.Fatalf("PublishMessage: %v", err)
	}
	if err := PublishJSON(p, "event/alert/f1", map[string]int{"a": 1}); err != nil {
		t.Fatalf("PublishJSON: %v", err)
	}

	got := client.Published()
	if len(got) != 2 {
		t.Fatalf("want 2 publications, got %d", len(got))
	}
	if got[0].Topic != "sensor/reading/f1" || got[0].QoS != 0 || got[0].Payload != "hello" {
		t.Errorf("unexpected first publication: %+v", got[0])
	}
	if got[1].QoS != 1 || got[1].Payload != `{"a":1}` {
		t.Errorf("unexpected second publication: %+v", got[1])
	}

	client.PublishErr = errors.New("broker down")
	if err := p.PublishMessage("x"); err == nil {
		t.Fatalf("expected publish error")
	}

	if err := NewPublisher(client, "").PublishMessage("x"); err == nil {
		t.Fatalf("expected error without default topic")
	}
}

func TestConsumerDispatchesUntilCancelled(t *testing.T) {
	client := rabbitmqtest.NewClient()
	var mu sync.Mutex
	var got []string
	c := NewConsumer(client, "sensor/reading/#", nil)
	c.SetHandler(func(topic string, m mqtt.Message) error {
		mu.Lock()
		got = append(got, topic+"|"+m.Topic()+"|"+string(m.Payload()))
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.ConsumeMessage(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for !client.Subscribed("sensor/reading/#") {
		if time.Now().After(deadline) {
			t.Fatalf("consumer never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if n := client.Deliver("sensor/reading/farm9", []byte("payload")); n != 1 {
		t.Fatalf("delivered to %d handlers", n)
	}
	cancel()
	<-done

	if client.Subscribed("sensor/reading/#") {
		t.Errorf("consumer should unsubscribe on cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "sensor/reading/#|sensor/reading/farm9|payload" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestMultiConsumer(t *testing.T) {
	client := rabbitmqtest.NewClient()
	count := make(chan string, 4)
	m := NewMultiConsumer(client, []string{"event/alert/#", "event/advisory/#"}, func(_ string, msg mqtt.Message) error {
		count <- msg.Topic()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.ConsumeMessage(ctx)

	deadline := time.Now().Add(time.Second)
	for !client.Subscribed("event/advisory/#") {
		if time.Now().After(deadline) {
			t.Fatalf("multi consumer never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	client.Deliver("event/alert/f1", []byte("{}"))
	client.Deliver("event/advisory/f1", []byte("{}"))
	client.Deliver("sensor/reading/f1", []byte("{}"))

	if a, b := <-count, <-count; a != "event/alert/f1" || b != "event/advisory/f1" {
		t.Fatalf("unexpected topics %s %s", a, b)
	}
	select {
	case extra := <-count:
		t.Fatalf("unexpected delivery on %s", extra)
	default:
	}
}

func TestSplitTopics(t *testing.T) {
	got := SplitTopics(" event/alert/#, ,event/advisory/# ")
	if len(got) != 2 || got[0] != "event/alert/#" || got[1] != "event/advisory/#" {
		t.Fatalf("SplitTopics = %v", got)
	}
}
