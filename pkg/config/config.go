// Package config loads the service configuration from an optional YAML file
// with BROKERHUB_* environment overrides on top.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type BrokerConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type DispatchConfig struct {
	CallTimeout time.Duration `yaml:"call_timeout"`
	JoinTimeout time.Duration `yaml:"join_timeout"`
}

type StoreConfig struct {
	Dir           string `yaml:"dir"`            // badger directory for clients and groups
	EncryptionKey string `yaml:"encryption_key"` // 32 bytes, hex or base64; empty disables encryption
	SymbolsDB     string `yaml:"symbols_db"`
}

type Config struct {
	Listen   string         `yaml:"listen"`
	Log      LogConfig      `yaml:"log"`
	Dhan     BrokerConfig   `yaml:"dhan"`
	Motilal  BrokerConfig   `yaml:"motilal"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Store    StoreConfig    `yaml:"store"`
}

func defaults() *Config {
	return &Config{
		Listen: ":8080",
		Log: LogConfig{
			Level:      "info",
			File:       "logs/brokerhub.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Dhan:    BrokerConfig{Timeout: 15 * time.Second},
		Motilal: BrokerConfig{Timeout: 15 * time.Second},
		Dispatch: DispatchConfig{
			CallTimeout: 15 * time.Second,
			JoinTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Dir:       "data/store",
			SymbolsDB: "data/symbols.db",
		},
	}
}

// Load reads path when it exists and then applies environment overrides.
// An empty path means env-and-defaults only.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", path)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Listen = getEnv("BROKERHUB_LISTEN", c.Listen)
	c.Log.Level = getEnv("BROKERHUB_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("BROKERHUB_LOG_FILE", c.Log.File)
	c.Dhan.BaseURL = getEnv("BROKERHUB_DHAN_URL", c.Dhan.BaseURL)
	c.Motilal.BaseURL = getEnv("BROKERHUB_MOTILAL_URL", c.Motilal.BaseURL)
	c.Store.Dir = getEnv("BROKERHUB_STORE_DIR", c.Store.Dir)
	c.Store.EncryptionKey = getEnv("BROKERHUB_STORE_KEY", c.Store.EncryptionKey)
	c.Store.SymbolsDB = getEnv("BROKERHUB_SYMBOLS_DB", c.Store.SymbolsDB)
	c.Dispatch.CallTimeout = parseDurationEnv("BROKERHUB_CALL_TIMEOUT", c.Dispatch.CallTimeout)
	c.Dispatch.JoinTimeout = parseDurationEnv("BROKERHUB_JOIN_TIMEOUT", c.Dispatch.JoinTimeout)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
