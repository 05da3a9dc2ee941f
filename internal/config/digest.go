package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DigestConfig controls notification digest batching. Operators tune
// it via digest.yml without a restart.
type DigestConfig struct {
	// MinAge is how long a notification sits in the queue before it is
	// eligible for the next digest.
	MinAge time.Duration `mapstructure:"minAge"`
	// MaxBatch caps how many notifications one digest email carries.
	MaxBatch int `mapstructure:"maxBatch"`
	// MaxRecipients caps how many users a single drain pass serves.
	MaxRecipients int `mapstructure:"maxRecipients"`
}

func DefaultDigestConfig() DigestConfig {
	return DigestConfig{
		MinAge:        15 * time.Minute,
		MaxBatch:      50,
		MaxRecipients: 200,
	}
}

// DigestConfigHolder exposes the current digest policy and hot-reloads
// it when the config file changes.
type DigestConfigHolder struct {
	current atomic.Value // holds DigestConfig
}

func NewDigestConfigHolder() (*DigestConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("digest")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/tabshare")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TABSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultDigestConfig()
		v.SetDefault("digest.minAge", defaults.MinAge)
		v.SetDefault("digest.maxBatch", defaults.MaxBatch)
		v.SetDefault("digest.maxRecipients", defaults.MaxRecipients)
	}

	var cfg DigestConfig
	if err := v.UnmarshalKey("digest", &cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := validateDigestConfig(cfg); err != nil {
		return nil, err
	}

	holder := &DigestConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DigestConfig
		if err := v.UnmarshalKey("digest", &updated); err != nil {
			zap.L().Warn("digest config reload failed", zap.Error(err))
			return
		}
		updated = updated.withDefaults()
		if err := validateDigestConfig(updated); err != nil {
			zap.L().Warn("digest config invalid, keeping previous", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		zap.L().Info("digest config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *DigestConfigHolder) Get() DigestConfig {
	return h.current.Load().(DigestConfig)
}

// StaticDigestConfigHolder wraps a fixed config with no file watching.
func StaticDigestConfigHolder(cfg DigestConfig) *DigestConfigHolder {
	holder := &DigestConfigHolder{}
	holder.current.Store(cfg.withDefaults())
	return holder
}

func (c DigestConfig) withDefaults() DigestConfig {
	defaults := DefaultDigestConfig()
	if c.MinAge <= 0 {
		c.MinAge = defaults.MinAge
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = defaults.MaxBatch
	}
	if c.MaxRecipients <= 0 {
		c.MaxRecipients = defaults.MaxRecipients
	}
	return c
}

func validateDigestConfig(cfg DigestConfig) error {
	if cfg.MaxBatch > 1000 {
		return errors.New("digest.maxBatch must be <= 1000")
	}
	if cfg.MaxRecipients > 10000 {
		return errors.New("digest.maxRecipients must be <= 10000")
	}
	return nil
}
