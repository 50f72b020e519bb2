package provider

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/config"
	"github.com/Digital-Creators-Team/arcade-client/events/kafka"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// eventSender is the part of *kafka.Producer the audit provider uses
type eventSender interface {
	SendMessage(ctx context.Context, topic, key string, value interface{}) error
	SendMessageSync(ctx context.Context, topic, key string, value interface{}) error
}

// AuditProvider implements providers.Reporter by publishing to Kafka
type AuditProvider struct {
	producer         eventSender
	settlementTopic  string
	consistencyTopic string
	logger           zerolog.Logger
}

// NewAuditProvider creates a reporter over producer. A nil producer turns
// reporting into logging only.
func NewAuditProvider(cfg *config.Config, producer *kafka.Producer, logger zerolog.Logger) providers.Reporter {
	logger = logger.With().Str("component", "audit_provider").Logger()
	if producer == nil {
		return NewLogReporter(logger)
	}
	return &AuditProvider{
		producer:         producer,
		settlementTopic:  cfg.Kafka.Topic(config.TopicSettlements),
		consistencyTopic: cfg.Kafka.Topic(config.TopicConsistency),
		logger:           logger,
	}
}

// ReportSettlement publishes a settled round keyed by session
func (p *AuditProvider) ReportSettlement(ctx context.Context, event *providers.SettlementEvent) error {
	if err := p.producer.SendMessage(ctx, p.settlementTopic, event.SessionID, event); err != nil {
		p.logger.Error().Err(err).Str("session_id", event.SessionID).Msg("Failed to queue settlement event")
		return err
	}
	return nil
}

// ReportViolation publishes a replay consistency violation keyed by session.
// Violations are rare and written synchronously.
func (p *AuditProvider) ReportViolation(ctx context.Context, v *providers.Violation) error {
	if err := p.producer.SendMessageSync(ctx, p.consistencyTopic, v.SessionID, v); err != nil {
		p.logger.Error().Err(err).Str("session_id", v.SessionID).Msg("Failed to publish violation event")
		return err
	}
	return nil
}

// LogReporter writes operator events to the structured log
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter creates a log-only reporter
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) ReportSettlement(_ context.Context, e *providers.SettlementEvent) error {
	r.logger.Info().
		Str("game_code", e.GameCode).
		Str("session_id", e.SessionID).
		Str("label", e.Label).
		Str("stake", e.Stake.String()).
		Str("gain", e.Gain.String()).
		Bool("free", e.Free).
		Msg("Round settled")
	return nil
}

func (r *LogReporter) ReportViolation(_ context.Context, v *providers.Violation) error {
	r.logger.Warn().
		Str("game_code", v.GameCode).
		Str("session_id", v.SessionID).
		Int("steps", v.Steps).
		Interface("expected", v.Expected).
		Interface("got", v.Got).
		Msg("Replay consistency violation")
	return nil
}
