package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_DrainsOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, ProducerConfig{Logger: zerolog.Nop(), WorkerNum: 2})

	for i := 0; i < 5; i++ {
		if err := p.SendMessage(context.Background(), "arcade.settlements", "s-1", map[string]int{"n": i}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(w.msgs) != 5 || !w.closed {
		t.Fatalf("expected 5 messages and a closed writer, got %d closed=%v", len(w.msgs), w.closed)
	}
	if err := p.SendMessage(context.Background(), "t", "k", 1); err != ErrProducerClosed {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestNewProducer_NoBrokers(t *testing.T) {
	if p := NewProducer(ProducerConfig{}); p != nil {
		t.Fatal("expected nil producer without brokers")
	}
}

type fakeReader struct {
	msgs chan kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(context.Context, ...kafka.Message) error { return nil }
func (r *fakeReader) Close() error                                           { return nil }

func encode(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestConsumer_TalliesAndBroadcasts(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafka.Message, 4)}
	c := newConsumer(r, ConsumerConfig{
		SettlementTopic:  "settlements",
		ConsistencyTopic: "consistency",
		Logger:           zerolog.Nop(),
	})
	all := c.SubscribeAll()
	minas := c.Subscribe("minas")

	r.msgs <- kafka.Message{Topic: "settlements", Value: encode(t, providers.SettlementEvent{
		GameCode: "minas", SessionID: "s-1", Stake: decimal.NewFromInt(500), Gain: decimal.NewFromInt(750),
	})}
	r.msgs <- kafka.Message{Topic: "consistency", Value: encode(t, providers.Violation{GameCode: "cascadas", Steps: 3})}

	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	got := []Event{}
	for len(got) < 2 {
		select {
		case ev := <-all.Channel:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	if got[0].Kind != EventSettlement || !got[0].Settlement.Gain.Equal(decimal.NewFromInt(750)) {
		t.Errorf("unexpected first event %+v", got[0])
	}
	if got[1].Kind != EventViolation || got[1].Violation.Steps != 3 {
		t.Errorf("unexpected second event %+v", got[1])
	}

	select {
	case ev := <-minas.Channel:
		if ev.GameCode != "minas" {
			t.Errorf("minas subscriber got %q", ev.GameCode)
		}
	case <-time.After(time.Second):
		t.Fatal("expected minas event")
	}

	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	tallies := c.Tallies()
	if tallies["minas"].Settlements != 1 || tallies["cascadas"].Violations != 1 {
		t.Errorf("unexpected tallies %+v", tallies)
	}

	c.Unsubscribe(all)
	if _, open := <-all.Channel; open {
		t.Error("expected channel closed after unsubscribe")
	}
}

func TestConsumer_UnknownTopic(t *testing.T) {
	c := newConsumer(&fakeReader{}, ConsumerConfig{SettlementTopic: "a", ConsistencyTopic: "b", Logger: zerolog.Nop()})
	if err := c.handleMessage(kafka.Message{Topic: "c", Value: []byte("{}")}); err == nil {
		t.Fatal("expected error for unknown topic")
	}
	if err := c.handleMessage(kafka.Message{Topic: "a", Value: []byte("not json")}); err == nil {
		t.Fatal("expected decode error")
	}
}
