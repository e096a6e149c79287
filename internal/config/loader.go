// Package config loads formview.Config from an optional config.yaml and
// FORMVIEW_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lychee-technology/formview"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment override, e.g. FORMVIEW_DATABASE_HOST.
const EnvPrefix = "FORMVIEW"

// New returns a viper instance primed with DefaultConfig, reading config.yaml
// from configDir when given.
func New(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v, formview.DefaultConfig()); err != nil {
		return nil, err
	}

	if configDir == "" {
		return v, nil
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		zap.S().Infow("no config.yaml found, using defaults and env vars", "dir", configDir)
	} else {
		zap.S().Infow("loaded config", "file", v.ConfigFileUsed())
	}
	return v, nil
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (*formview.Config, error) {
	cfg := formview.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is New followed by Decode.
func Load(configDir string) (*formview.Config, error) {
	v, err := New(configDir)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// setDefaults registers every leaf of cfg so AutomaticEnv can override keys
// that no config file mentions.
func setDefaults(v *viper.Viper, cfg *formview.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	flatten("", tree, v.SetDefault)
	return nil
}

func flatten(prefix string, node map[string]any, set func(string, any)) {
	for k, val := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := val.(map[string]any); ok {
			flatten(key, child, set)
			continue
		}
		set(key, val)
	}
}
