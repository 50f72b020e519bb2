package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/logging"
)

// Storage drivers
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Service     ServiceConfig  `mapstructure:"service"`
	Auth        AuthConfig     `mapstructure:"auth"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Bridge      BridgeConfig   `mapstructure:"bridge"`
	Logging     logging.Config `mapstructure:"logging"`
	Replay      ReplayConfig   `mapstructure:"replay"`
	Games       []game.Config  `mapstructure:"games"`
	// GamesDir holds one YAML file per game; entries override Games by game code
	GamesDir string `mapstructure:"games_dir"`
}

// ServiceConfig points at the remote game service
type ServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds the player's credentials. TokenFile is read when Token is empty.
type AuthConfig struct {
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token_file"`
}

// StorageConfig selects where statistics are persisted
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// Topic keys
const (
	TopicSettlements = "settlements"
	TopicConsistency = "consistency"
)

// KafkaConfig holds Kafka configuration. An empty broker list disables reporting.
type KafkaConfig struct {
	Brokers       []string          `mapstructure:"brokers"`
	ConsumerGroup string            `mapstructure:"consumer_group"`
	Topics        map[string]string `mapstructure:"topics"`
}

// BridgeConfig holds the local HTTP bridge configuration
type BridgeConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
}

// ReplayConfig holds the default replay timing, overridable per game
type ReplayConfig struct {
	Settle time.Duration `mapstructure:"settle"`
	Pause  time.Duration `mapstructure:"pause"`
}

// Load loads configuration from YAML file using Viper
func Load(filename string) (*Config, error) {
	config, _, err := LoadWithViper(filename)
	return config, err
}

// LoadByEnv loads config-<env>.yaml from configDir, env coming from ENV or APP_ENV
func LoadByEnv(configDir string) (*Config, error) {
	v := newViper()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	env := v.GetString("ENV")
	if env == "" {
		env = v.GetString("APP_ENV")
	}
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config-%s", env))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return unmarshal(v)
}

// LoadWithViper loads configuration and returns the viper instance for custom usage
func LoadWithViper(filename string) (*Config, *viper.Viper, error) {
	v := newViper()
	v.SetConfigFile(filename)

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	config, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	return config, v, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.loadGamesDir(); err != nil {
		return nil, err
	}
	config.setDefaults()
	return &config, nil
}

// loadGamesDir reads every YAML file of GamesDir as a game.Config
func (c *Config) loadGamesDir() error {
	if c.GamesDir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.GamesDir)
	if err != nil {
		return fmt.Errorf("failed to read games dir: %w", err)
	}
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		gc, err := game.LoadConfig(filepath.Join(c.GamesDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to load game config %s: %w", entry.Name(), err)
		}
		if gc.GameCode == "" {
			gc.GameCode = strings.TrimSuffix(entry.Name(), ext)
		}
		c.Games = lo.Reject(c.Games, func(g game.Config, _ int) bool { return g.GameCode == gc.GameCode })
		c.Games = append(c.Games, *gc)
	}
	return nil
}

// setDefaults sets default values for missing configuration
func (c *Config) setDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Service.Timeout == 0 {
		c.Service.Timeout = 10 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	if c.Storage.Driver == StorageSQLite && c.Storage.Path == "" {
		c.Storage.Path = "arcade.db"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 2
	}
	if c.Kafka.Topics == nil {
		c.Kafka.Topics = map[string]string{}
	}
	if c.Kafka.Topics[TopicSettlements] == "" {
		c.Kafka.Topics[TopicSettlements] = "arcade.settlements"
	}
	if c.Kafka.Topics[TopicConsistency] == "" {
		c.Kafka.Topics[TopicConsistency] = "arcade.consistency"
	}
	if c.Kafka.ConsumerGroup == "" {
		c.Kafka.ConsumerGroup = "arcade-monitor"
	}
	if c.Bridge.Port == 0 {
		c.Bridge.Port = 8080
	}
	if c.Bridge.ReadTimeout == 0 {
		c.Bridge.ReadTimeout = 30 * time.Second
	}
	if c.Bridge.WriteTimeout == 0 {
		c.Bridge.WriteTimeout = 30 * time.Second
	}
	if c.Bridge.IdleTimeout == 0 {
		c.Bridge.IdleTimeout = 60 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Replay.Settle == 0 {
		c.Replay.Settle = 300 * time.Millisecond
	}
	if c.Replay.Pause == 0 {
		c.Replay.Pause = 100 * time.Millisecond
	}
}

// GameConfig returns the configuration for gameCode with the replay defaults
// filled in where the game does not override them
func (c *Config) GameConfig(gameCode string) *game.Config {
	out := &game.Config{GameCode: gameCode, GameName: gameCode}
	for _, g := range c.Games {
		if g.GameCode == gameCode {
			gc := g
			out = &gc
			break
		}
	}
	if out.GameName == "" {
		out.GameName = gameCode
	}
	if out.Settle == 0 {
		out.Settle = c.Replay.Settle
	}
	if out.Pause == 0 {
		out.Pause = c.Replay.Pause
	}
	return out
}

// Topic returns the configured topic name for key
func (c *KafkaConfig) Topic(key string) string {
	return c.Topics[key]
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return c.Addr
}

// IsDevelopment returns true if environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsProduction returns true if environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
