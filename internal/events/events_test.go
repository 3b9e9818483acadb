package events

import (
	"context"
	"testing"
)

func TestNewKafkaPublisherValidatesConfig(t *testing.T) {
	if _, err := NewKafkaPublisher(KafkaConfig{Topic: "t"}, nil); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil); err == nil {
		t.Fatalf("expected error without topic")
	}
	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"a:9092, b:9092"}, Topic: "matches"}, nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if err := p.Publish(context.Background(), nil); err != nil {
		t.Fatalf("empty publish must be a no-op: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), []Event{{Type: TypeMatchCreated, MatchID: 1}}); err != nil {
		t.Fatalf("nop publish: %v", err)
	}
}
