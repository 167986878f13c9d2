// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package config loads and validates environment variables at startup.
// Fail-fast: a missing or malformed required variable stops the process.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ktong/lpassistant"
)

// Config holds all runtime configuration of the commands.
type Config struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string
	AssistantID   string
	VectorStoreID string

	DatabaseURL string
	RedisURL    string

	Port            string
	IndexOutputDir  string
	RebuildSchedule string // cron spec, e.g. "@every 6h"

	PollTimeout     time.Duration
	PollMaxInterval time.Duration

	Assistant lpassistant.Definition

	LogLevel  string
	LogFormat string
}

// Load reads .env from the working directory if present, then the environment,
// and returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the variables returned by getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	apiKey := getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}

	pollTimeout, err := duration(getenv, "POLL_TIMEOUT", 2*time.Minute) //nolint:mnd
	if err != nil {
		return nil, err
	}
	pollMaxInterval, err := duration(getenv, "POLL_MAX_INTERVAL", 5*time.Second) //nolint:mnd
	if err != nil {
		return nil, err
	}

	definition := lpassistant.DefaultDefinition()
	if path := getenv("ASSISTANT_CONFIG"); path != "" {
		if definition, err = loadDefinition(path, definition); err != nil {
			return nil, err
		}
	}

	model := getenv("OPENAI_MODEL")
	if model == "" {
		model = definition.Model
	}

	return &Config{
		OpenAIAPIKey:    apiKey,
		OpenAIBaseURL:   getenv("OPENAI_BASE_URL"),
		Model:           model,
		AssistantID:     getenv("ASST_ID"),
		VectorStoreID:   getenv("VECTOR_STORE_ID"),
		DatabaseURL:     databaseURL(getenv),
		RedisURL:        getenv("REDIS_URL"),
		Port:            withDefault(getenv("PORT"), "8080"),
		IndexOutputDir:  withDefault(getenv("INDEX_OUTPUT_DIR"), "."),
		RebuildSchedule: getenv("REBUILD_SCHEDULE"),
		PollTimeout:     pollTimeout,
		PollMaxInterval: pollMaxInterval,
		Assistant:       definition,
		LogLevel:        getenv("LOG_LEVEL"),
		LogFormat:       getenv("LOG_FORMAT"),
	}, nil
}

// RequireDatabase fails when neither DATABASE_URL nor the discrete connection variables are set.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL (or dbname, user, password, host, pg_port) is required")
	}

	return nil
}

// RequireVectorStore fails when VECTOR_STORE_ID is not set.
func (c *Config) RequireVectorStore() error {
	if c.VectorStoreID == "" {
		return errors.New("VECTOR_STORE_ID is required")
	}

	return nil
}

// PollPolicy is the default policy bounded by POLL_TIMEOUT and POLL_MAX_INTERVAL.
func (c *Config) PollPolicy() lpassistant.PollPolicy {
	policy := lpassistant.DefaultPollPolicy()
	policy.Timeout = c.PollTimeout
	policy.MaxInterval = c.PollMaxInterval
	if policy.InitialInterval > policy.MaxInterval {
		policy.InitialInterval = policy.MaxInterval
	}

	return policy
}

// databaseURL prefers DATABASE_URL and falls back to the discrete libpq style variables.
func databaseURL(getenv func(string) string) string {
	if dsn := getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	name := getenv("dbname")
	if name == "" {
		return ""
	}
	port := getenv("pg_port")
	if port == "" {
		port = getenv("port")
	}
	host := withDefault(getenv("host"), "localhost")
	if port != "" {
		host = net.JoinHostPort(host, port)
	}

	dsn := url.URL{Scheme: "postgres", Host: host, Path: "/" + name}
	if user := getenv("user"); user != "" {
		if password := getenv("password"); password != "" {
			dsn.User = url.UserPassword(user, password)
		} else {
			dsn.User = url.User(user)
		}
	}

	return dsn.String()
}

func duration(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	s := getenv(key)
	if s == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, s)
	}

	return d, nil
}

// loadDefinition overlays the YAML file at path on def; fields missing from the file keep their value.
func loadDefinition(path string, def lpassistant.Definition) (lpassistant.Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("read ASSISTANT_CONFIG: %w", err)
	}
	if err := yaml.Unmarshal(content, &def); err != nil {
		return def, fmt.Errorf("parse ASSISTANT_CONFIG %s: %w", path, err)
	}
	if err := def.Validate(); err != nil {
		return def, fmt.Errorf("ASSISTANT_CONFIG %s: %w", path, err)
	}

	return def, nil
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
