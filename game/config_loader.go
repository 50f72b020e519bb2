package game

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads game configuration from a YAML file
func LoadConfig(configPath string) (*Config, error) {
	var cfg Config
	if err := LoadConfigInto(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigInto loads config into the provided struct (out must be a pointer).
func LoadConfigInto(configPath string, out interface{}) error {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// LoadConfigFromDirInto merges every YAML file of a directory into out.
// Files are applied in name order, later files override earlier ones.
func LoadConfigFromDirInto(configDir string, out interface{}) error {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		return fmt.Errorf("failed to read config directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no YAML files found in config directory: %s", configDir)
	}
	sort.Strings(files)

	v := newViper()
	for _, name := range files {
		v.SetConfigFile(filepath.Join(configDir, name))
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to merge config from %s: %w", name, err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// LoadGameConfig loads game configuration with custom fields from a file or
// directory. Custom structs embed game.Config with `mapstructure:",squash"`.
//
//	type WheelConfig struct {
//		game.Config `mapstructure:",squash"`
//		Numbers []int `mapstructure:"numbers"`
//	}
//
//	cfg, err := game.LoadGameConfig[WheelConfig]("config/roulette")
func LoadGameConfig[T any](configPath string) (*T, error) {
	info, err := os.Stat(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config path: %w", err)
	}

	var cfg T
	if info.IsDir() {
		if err := LoadConfigFromDirInto(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from directory: %w", err)
		}
	} else if err := LoadConfigInto(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}
