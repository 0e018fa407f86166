package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FINSIGHT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "gemini.api_key", typ: kString, env: "FINSIGHT_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "FINSIGHT_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "gemini.temperature", typ: kFloat, env: "FINSIGHT_GEMINI_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Gemini.Temperature },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FINSIGHT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.scratch_dir", typ: kString, env: "FINSIGHT_STORAGE_SCRATCH_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.ScratchDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.ScratchDir },
	},
	{
		key: "analysis.timeout", typ: kString, env: "FINSIGHT_ANALYSIS_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Analysis.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Analysis.Timeout },
	},
	{
		key: "analysis.batch_concurrency", typ: kInt, env: "FINSIGHT_ANALYSIS_BATCH_CONCURRENCY",
		apply:   func(cfg *Config, v any) { cfg.Analysis.BatchConcurrency = v.(int) },
		extract: func(cfg Config) any { return cfg.Analysis.BatchConcurrency },
	},
	{
		key: "analysis.max_upload_bytes", typ: kInt, env: "FINSIGHT_ANALYSIS_MAX_UPLOAD_BYTES",
		apply:   func(cfg *Config, v any) { cfg.Analysis.MaxUploadBytes = int64(v.(int)) },
		extract: func(cfg Config) any { return cfg.Analysis.MaxUploadBytes },
	},
	{
		key: "log.level", typ: kString, env: "FINSIGHT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetFloat(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

const apiTokenKey = "api.token"

// GetAPIToken returns the bearer token protecting management endpoints.
// FINSIGHT_API_TOKEN takes precedence; otherwise the token is read from the
// config backend, generated and persisted on first use.
func GetAPIToken(b Backend) (string, error) {
	if tok := os.Getenv("FINSIGHT_API_TOKEN"); tok != "" {
		return tok, nil
	}

	tok, ok, err := b.GetString(apiTokenKey)
	if err != nil {
		return "", fmt.Errorf("reading API token: %w", err)
	}
	if ok && tok != "" {
		return tok, nil
	}

	tok = uuid.New().String()
	if err := b.SetString(apiTokenKey, tok); err != nil {
		return "", fmt.Errorf("persisting API token: %w", err)
	}
	return tok, nil
}

// NewBackend returns the default config backend.
func NewBackend() Backend {
	return newFileBackend(configFilePath())
}
