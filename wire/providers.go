package wire

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/arcade"
	"github.com/Digital-Creators-Team/arcade-client/auth"
	"github.com/Digital-Creators-Team/arcade-client/config"
	"github.com/Digital-Creators-Team/arcade-client/events/kafka"
	"github.com/Digital-Creators-Team/arcade-client/logging"
	"github.com/Digital-Creators-Team/arcade-client/pkg/feed"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
	"github.com/Digital-Creators-Team/arcade-client/provider"
	"github.com/Digital-Creators-Team/arcade-client/server"
)

// feedBuffer is the per-listener frame backlog before frames are dropped
const feedBuffer = 64

// Runtime is the assembled client
type Runtime struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Credentials *auth.TokenCredentials
	Arcade      *arcade.App
	Feed        *feed.Feed
	Server      *server.Server
}

// ProvideLogger provides a zerolog.Logger
func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Logging)
}

// ProvideCredentials provides the bearer token source for the game service
func ProvideCredentials(cfg *config.Config, logger zerolog.Logger) *auth.TokenCredentials {
	return auth.NewTokenCredentials(cfg.Auth.Token, cfg.Auth.TokenFile, logger)
}

// ProvideGameService provides the remote game service client
func ProvideGameService(cfg *config.Config, creds providers.Credentials, logger zerolog.Logger) providers.GameService {
	return provider.NewGameServiceProvider(cfg, creds, logger)
}

// ProvideStore provides the statistics store selected by cfg.Storage
func ProvideStore(cfg *config.Config, logger zerolog.Logger) (providers.Store, func(), error) {
	store, closeFn, err := provider.NewStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := closeFn(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}, nil
}

// ProvideProducer provides the Kafka producer, nil when no brokers are configured
func ProvideProducer(cfg *config.Config, logger zerolog.Logger) (*kafka.Producer, func()) {
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Logger:  logger,
	})
	return producer, func() {
		if producer == nil {
			return
		}
		if err := producer.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close Kafka producer")
		}
	}
}

// ProvideConsumer provides the operator event consumer
func ProvideConsumer(cfg *config.Config, logger zerolog.Logger) *kafka.Consumer {
	return kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:          cfg.Kafka.Brokers,
		SettlementTopic:  cfg.Kafka.Topic(config.TopicSettlements),
		ConsistencyTopic: cfg.Kafka.Topic(config.TopicConsistency),
		ConsumerGroup:    cfg.Kafka.ConsumerGroup,
		Logger:           logger,
	})
}

// ProvideReporter provides the operator event reporter
func ProvideReporter(cfg *config.Config, producer *kafka.Producer, logger zerolog.Logger) providers.Reporter {
	return provider.NewAuditProvider(cfg, producer, logger)
}

// ProvideFeed provides the replay frame feed
func ProvideFeed(logger zerolog.Logger) *feed.Feed {
	return feed.New(feedBuffer, logger)
}

// ProvideArcade provides the per-game controllers
func ProvideArcade(
	cfg *config.Config,
	service providers.GameService,
	creds providers.Credentials,
	store providers.Store,
	reporter providers.Reporter,
	f *feed.Feed,
	logger zerolog.Logger,
) (*arcade.App, func()) {
	app := arcade.New(arcade.Options{
		Config:      cfg,
		Service:     service,
		Credentials: creds,
		Store:       store,
		Reporter:    reporter,
		Sink:        f,
		Logger:      logger,
	})
	return app, func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close arcade")
		}
	}
}

// ProvideServerOptions provides server options
func ProvideServerOptions(cfg *config.Config, app *arcade.App, f *feed.Feed, logger zerolog.Logger) server.Options {
	return server.Options{
		Config: cfg,
		Arcade: app,
		Feed:   f,
		Logger: logger,
	}
}

// ProvideServer provides the HTTP bridge
func ProvideServer(opts server.Options) *server.Server {
	return server.New(opts)
}

// LoggingSet is the wire provider set for logging
var LoggingSet = wire.NewSet(
	ProvideLogger,
)

// ServiceSet is the wire provider set for the remote game service
var ServiceSet = wire.NewSet(
	ProvideCredentials,
	wire.Bind(new(providers.Credentials), new(*auth.TokenCredentials)),
	ProvideGameService,
)

// StorageSet is the wire provider set for statistics storage
var StorageSet = wire.NewSet(
	ProvideStore,
)

// EventsSet is the wire provider set for operator events
var EventsSet = wire.NewSet(
	ProvideProducer,
	ProvideReporter,
)

// ArcadeSet is the wire provider set for the game controllers
var ArcadeSet = wire.NewSet(
	ProvideFeed,
	ProvideArcade,
)

// ServerSet is the wire provider set for the bridge
var ServerSet = wire.NewSet(
	ProvideServerOptions,
	ProvideServer,
)

// FullSet includes every provider needed for a Runtime
var FullSet = wire.NewSet(
	LoggingSet,
	ServiceSet,
	StorageSet,
	EventsSet,
	ArcadeSet,
	ServerSet,
	wire.Struct(new(Runtime), "*"),
)
