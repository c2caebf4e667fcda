package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type OutputConfig struct {
	Dir     string `yaml:"dir"`
	TempDir string `yaml:"temp_dir"`
}

type SegmentConfig struct {
	MaxSentenceLength int `yaml:"max_sentence_length"`
	MaxChunkChars     int `yaml:"max_chunk_chars"`
}

type TTSConfig struct {
	Mode             string `yaml:"mode"` // mock, exec, elevenlabs
	Command          string `yaml:"command"`
	Voice            string `yaml:"voice"`
	Language         string `yaml:"language"`
	APIKey           string `yaml:"api_key"`
	Endpoint         string `yaml:"endpoint"`
	SampleRate       int    `yaml:"sample_rate"`
	Channels         int    `yaml:"channels"`
	Concurrency      int    `yaml:"concurrency"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
	MaxRetries       int    `yaml:"max_retries"`
}

type RewriteConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Mode        string  `yaml:"mode"` // mock, ollama
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type LibraryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	MaxRuns       int    `yaml:"max_runs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	AppName     string          `yaml:"app_name"`
	Environment string          `yaml:"environment"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Output      OutputConfig    `yaml:"output"`
	Segment     SegmentConfig   `yaml:"segment"`
	TTS         TTSConfig       `yaml:"tts"`
	Rewrite     RewriteConfig   `yaml:"rewrite"`
	Bus         BusConfig       `yaml:"bus"`
	Library     LibraryConfig   `yaml:"library"`
}

func Default() Config {
	return Config{
		AppName:     "quillcast",
		Environment: "development",
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Output: OutputConfig{
			Dir:     "./audiobooks",
			TempDir: "",
		},
		Segment: SegmentConfig{
			MaxSentenceLength: 300,
			MaxChunkChars:     4000,
		},
		TTS: TTSConfig{
			Mode:             "mock",
			Language:         "en",
			SampleRate:       22050,
			Channels:         1,
			Concurrency:      4,
			RequestTimeoutMS: 45000,
			MaxRetries:       2,
		},
		Rewrite: RewriteConfig{
			Enabled:     false,
			Mode:        "mock",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:latest",
			MaxTokens:   4096,
			Temperature: 0.3,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Library: LibraryConfig{
			Enabled: true,
			Path:    "./data/quillcast.db",
			MaxRuns: 10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.AppName, "QUILLCAST_APP_NAME")
	overrideString(&cfg.Environment, "QUILLCAST_ENVIRONMENT")
	overrideString(&cfg.Telemetry.LogLevel, "QUILLCAST_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "QUILLCAST_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "QUILLCAST_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "QUILLCAST_TELEMETRY_PROMETHEUS_BIND")
	overrideString(&cfg.Output.Dir, "QUILLCAST_OUTPUT_DIR")
	overrideString(&cfg.Output.TempDir, "QUILLCAST_OUTPUT_TEMP_DIR")
	overrideInt(&cfg.Segment.MaxSentenceLength, "QUILLCAST_SEGMENT_MAX_SENTENCE_LENGTH")
	overrideInt(&cfg.Segment.MaxChunkChars, "QUILLCAST_SEGMENT_MAX_CHUNK_CHARS")
	overrideString(&cfg.TTS.Mode, "QUILLCAST_TTS_MODE")
	overrideString(&cfg.TTS.Command, "QUILLCAST_TTS_COMMAND")
	overrideString(&cfg.TTS.Voice, "QUILLCAST_TTS_VOICE")
	overrideString(&cfg.TTS.Language, "QUILLCAST_TTS_LANGUAGE")
	overrideString(&cfg.TTS.APIKey, "QUILLCAST_TTS_API_KEY")
	overrideString(&cfg.TTS.Endpoint, "QUILLCAST_TTS_ENDPOINT")
	overrideInt(&cfg.TTS.SampleRate, "QUILLCAST_TTS_SAMPLE_RATE")
	overrideInt(&cfg.TTS.Channels, "QUILLCAST_TTS_CHANNELS")
	overrideInt(&cfg.TTS.Concurrency, "QUILLCAST_TTS_CONCURRENCY")
	overrideInt(&cfg.TTS.RequestTimeoutMS, "QUILLCAST_TTS_REQUEST_TIMEOUT_MS")
	overrideInt(&cfg.TTS.MaxRetries, "QUILLCAST_TTS_MAX_RETRIES")
	overrideBool(&cfg.Rewrite.Enabled, "QUILLCAST_REWRITE_ENABLED")
	overrideString(&cfg.Rewrite.Mode, "QUILLCAST_REWRITE_MODE")
	overrideString(&cfg.Rewrite.Endpoint, "QUILLCAST_REWRITE_ENDPOINT")
	overrideString(&cfg.Rewrite.Model, "QUILLCAST_REWRITE_MODEL")
	overrideInt(&cfg.Rewrite.MaxTokens, "QUILLCAST_REWRITE_MAX_TOKENS")
	overrideFloat(&cfg.Rewrite.Temperature, "QUILLCAST_REWRITE_TEMPERATURE")
	overrideBool(&cfg.Bus.Enabled, "QUILLCAST_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "QUILLCAST_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "QUILLCAST_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "QUILLCAST_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "QUILLCAST_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "QUILLCAST_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "QUILLCAST_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "QUILLCAST_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "QUILLCAST_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "QUILLCAST_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.Library.Enabled, "QUILLCAST_LIBRARY_ENABLED")
	overrideString(&cfg.Library.Path, "QUILLCAST_LIBRARY_PATH")
	overrideInt(&cfg.Library.MaxRuns, "QUILLCAST_LIBRARY_MAX_RUNS")
	overrideBool(&cfg.Library.VacuumOnStart, "QUILLCAST_LIBRARY_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.AppName == "" {
		return errors.New("app_name must not be empty")
	}
	if cfg.Output.Dir == "" {
		return errors.New("output.dir must not be empty")
	}
	if cfg.Segment.MaxSentenceLength <= 0 {
		return errors.New("segment.max_sentence_length must be positive")
	}
	if cfg.Segment.MaxChunkChars <= 0 {
		return errors.New("segment.max_chunk_chars must be positive")
	}
	switch cfg.TTS.Mode {
	case "mock", "exec", "elevenlabs":
	default:
		return errors.New("tts.mode must be one of mock|exec|elevenlabs")
	}
	if cfg.TTS.Mode == "exec" && cfg.TTS.Command == "" {
		return errors.New("tts.command must be set when mode=exec")
	}
	if cfg.TTS.Mode == "elevenlabs" {
		if cfg.TTS.APIKey == "" {
			return errors.New("tts.api_key must be set when mode=elevenlabs")
		}
		if cfg.TTS.Voice == "" {
			return errors.New("tts.voice must be set when mode=elevenlabs")
		}
	}
	if cfg.TTS.SampleRate <= 0 {
		return errors.New("tts.sample_rate must be positive")
	}
	if cfg.TTS.Channels <= 0 {
		return errors.New("tts.channels must be positive")
	}
	if cfg.TTS.Concurrency <= 0 {
		return errors.New("tts.concurrency must be >= 1")
	}
	if cfg.TTS.RequestTimeoutMS <= 0 {
		return errors.New("tts.request_timeout_ms must be positive")
	}
	if cfg.TTS.MaxRetries < 0 {
		return errors.New("tts.max_retries must be >= 0")
	}
	if cfg.Rewrite.Enabled {
		switch cfg.Rewrite.Mode {
		case "mock", "ollama":
		default:
			return errors.New("rewrite.mode must be one of mock|ollama")
		}
		if cfg.Rewrite.Mode == "ollama" && cfg.Rewrite.Endpoint == "" {
			return errors.New("rewrite.endpoint must be set when mode=ollama")
		}
		if cfg.Rewrite.MaxTokens < 0 {
			return errors.New("rewrite.max_tokens must be >= 0")
		}
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Library.Enabled {
		if cfg.Library.Path == "" {
			return errors.New("library.path must not be empty when the library is enabled")
		}
		if cfg.Library.MaxRuns < 0 {
			return errors.New("library.max_runs must be >= 0")
		}
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	return nil
}
