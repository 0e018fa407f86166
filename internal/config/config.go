package config

import (
	"os"
	"path/filepath"

	"github.com/finsight/finsight/internal/fault"
)

type Config struct {
	Server   ServerConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
}

type StorageConfig struct {
	DataDir    string
	ScratchDir string
}

type AnalysisConfig struct {
	// Timeout bounds a single pipeline run, expressed as a duration string.
	Timeout string
	// BatchConcurrency bounds concurrent scratch-file saves on the batch endpoint.
	BatchConcurrency int
	MaxUploadBytes   int64
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4400,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.3,
		},
		Storage: StorageConfig{
			DataDir:    dataDir,
			ScratchDir: filepath.Join(dataDir, "uploads"),
		},
		Analysis: AnalysisConfig{
			Timeout:          "5m",
			BatchConcurrency: 2,
			MaxUploadBytes:   10 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "finsight-data"
		}
	}
	return filepath.Join(dir, "finsight")
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/finsight/config.json, then applies FINSIGHT_* environment
// overrides. Secrets (the Gemini API key) come only from the environment:
// FINSIGHT_GEMINI_API_KEY, with GEMINI_API_KEY as a fallback.
//
// A missing API key is a fatal configuration error at startup, never a
// per-request failure.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Gemini.APIKey == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.Gemini.APIKey = key
		}
	}

	if cfg.Gemini.APIKey == "" {
		return Config{}, fault.New(fault.Configuration,
			"missing required config: Gemini API key. Set it via environment variable FINSIGHT_GEMINI_API_KEY or GEMINI_API_KEY")
	}

	return cfg, nil
}
