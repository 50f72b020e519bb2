package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// Event kinds delivered to subscribers
const (
	EventSettlement = "settlement"
	EventViolation  = "violation"
)

const allGamesKey = "*"

// Event is one operator event read back from Kafka
type Event struct {
	Kind       string                     `json:"kind"`
	GameCode   string                     `json:"gameCode"`
	Settlement *providers.SettlementEvent `json:"settlement,omitempty"`
	Violation  *providers.Violation       `json:"violation,omitempty"`
	Offset     int64                      `json:"offset"`
}

// GameTally counts the events seen for one game
type GameTally struct {
	Settlements int `json:"settlements" yaml:"settlements"`
	Violations  int `json:"violations" yaml:"violations"`
}

// Subscription represents a client subscription for events
type Subscription struct {
	ID       string
	GameCode string
	Channel  chan Event
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the settlement and consistency topics, keeps per-game tallies
// and fans events out to subscribers
type Consumer struct {
	reader           messageReader
	settlementTopic  string
	consistencyTopic string
	logger           zerolog.Logger
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup

	mu          sync.RWMutex
	tallies     map[string]*GameTally
	subscribers map[string][]*Subscription
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers          []string
	SettlementTopic  string
	ConsistencyTopic string
	ConsumerGroup    string
	Logger           zerolog.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(config ConsumerConfig) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		GroupID:        config.ConsumerGroup,
		GroupTopics:    []string{config.SettlementTopic, config.ConsistencyTopic},
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})
	return newConsumer(reader, config)
}

func newConsumer(reader messageReader, config ConsumerConfig) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		reader:           reader,
		settlementTopic:  config.SettlementTopic,
		consistencyTopic: config.ConsistencyTopic,
		logger:           config.Logger.With().Str("component", "kafka-consumer").Logger(),
		ctx:              ctx,
		cancel:           cancel,
		tallies:          make(map[string]*GameTally),
		subscribers:      make(map[string][]*Subscription),
	}
}

// Start begins consuming messages
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go c.consume()
	c.logger.Info().Msg("Kafka consumer started")
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info().Msg("Stopping Kafka consumer...")
	c.cancel()
	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Error closing Kafka reader")
		return err
	}
	c.logger.Info().Msg("Kafka consumer stopped")
	return nil
}

func (c *Consumer) consume() {
	defer c.wg.Done()

	for {
		msg, err := c.reader.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error().Err(err).Msg("Error fetching message from Kafka")
			select {
			case <-time.After(time.Second):
			case <-c.ctx.Done():
				return
			}
			continue
		}

		if err := c.handleMessage(msg); err != nil {
			c.logger.Error().
				Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Error handling message")
		}

		if err := c.reader.CommitMessages(c.ctx, msg); err != nil && c.ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("Error committing message")
		}
	}
}

func (c *Consumer) handleMessage(msg kafka.Message) error {
	ev := Event{Offset: msg.Offset}
	switch msg.Topic {
	case c.settlementTopic:
		var s providers.SettlementEvent
		if err := json.Unmarshal(msg.Value, &s); err != nil {
			return fmt.Errorf("decode settlement: %w", err)
		}
		ev.Kind, ev.GameCode, ev.Settlement = EventSettlement, s.GameCode, &s
	case c.consistencyTopic:
		var v providers.Violation
		if err := json.Unmarshal(msg.Value, &v); err != nil {
			return fmt.Errorf("decode violation: %w", err)
		}
		ev.Kind, ev.GameCode, ev.Violation = EventViolation, v.GameCode, &v
	default:
		return fmt.Errorf("unexpected topic %q", msg.Topic)
	}

	c.mu.Lock()
	t, ok := c.tallies[ev.GameCode]
	if !ok {
		t = &GameTally{}
		c.tallies[ev.GameCode] = t
	}
	if ev.Kind == EventSettlement {
		t.Settlements++
	} else {
		t.Violations++
	}
	c.mu.Unlock()

	c.broadcast(ev)
	return nil
}

func (c *Consumer) broadcast(ev Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, key := range []string{ev.GameCode, allGamesKey} {
		for _, sub := range c.subscribers[key] {
			select {
			case sub.Channel <- ev:
			default:
				c.logger.Warn().
					Str("sub_id", sub.ID).
					Str("game_code", ev.GameCode).
					Msg("Subscriber channel full, dropping event")
			}
		}
	}
}

// Tallies returns a copy of the per-game counts
func (c *Consumer) Tallies() map[string]GameTally {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]GameTally, len(c.tallies))
	for k, v := range c.tallies {
		out[k] = *v
	}
	return out
}

// Subscribe subscribes to events for one game
func (c *Consumer) Subscribe(gameCode string) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := &Subscription{
		ID:       uuid.New().String(),
		GameCode: gameCode,
		Channel:  make(chan Event, 16),
	}
	c.subscribers[gameCode] = append(c.subscribers[gameCode], sub)
	c.logger.Debug().Str("game_code", gameCode).Str("sub_id", sub.ID).Msg("New subscription added")
	return sub
}

// SubscribeAll subscribes to events for every game
func (c *Consumer) SubscribeAll() *Subscription {
	return c.Subscribe(allGamesKey)
}

// Unsubscribe removes a subscription and closes its channel
func (c *Consumer) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.subscribers[sub.GameCode]
	kept := make([]*Subscription, 0, len(subs))
	for _, s := range subs {
		if s.ID == sub.ID {
			close(s.Channel)
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		delete(c.subscribers, sub.GameCode)
	} else {
		c.subscribers[sub.GameCode] = kept
	}
}
