package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Audio capture settings
	Audio struct {
		Device           string        `yaml:"device"`
		SampleRate       uint32        `yaml:"sample_rate" validate:"oneof=8000 16000 22050 44100 48000"`
		Channels         uint32        `yaml:"channels" validate:"min=1,max=2"`
		BitDepth         uint32        `yaml:"bit_depth" validate:"oneof=16"`
		PollInterval     time.Duration `yaml:"poll_interval" validate:"gt=0"`
		DurationInterval time.Duration `yaml:"duration_interval" validate:"gt=0"`
	} `yaml:"audio"`

	// Amplitude pipeline tuning, clamped rather than validated
	Amplitude struct {
		WindowSize      int     `yaml:"window_size"`
		SmoothingFactor float64 `yaml:"smoothing_factor"`
		Normalize       bool    `yaml:"normalize"`
		CacheCapacity   int     `yaml:"cache_capacity"`
	} `yaml:"amplitude"`

	// Waveform snapshot persistence
	Snapshots struct {
		Backend   string `yaml:"backend" validate:"oneof=none file redis"`
		Dir       string `yaml:"dir"`
		Namespace string `yaml:"namespace" validate:"required"`
		Redis     struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db" validate:"min=0"`
		} `yaml:"redis"`
	} `yaml:"snapshots"`

	// Recording storage
	Storage struct {
		RecordingsDir string `yaml:"recordings_dir" validate:"required"`
	} `yaml:"storage"`

	// Transcription settings
	Transcription struct {
		Language         string `yaml:"language"`
		SpeakerDetection bool   `yaml:"speaker_detection"`
		AudioEnhancement bool   `yaml:"audio_enhancement"`
		AutoTranscribe   bool   `yaml:"auto_transcribe"`

		Offline struct {
			Model     string `yaml:"model"`
			ModelsDir string `yaml:"models_dir"`
		} `yaml:"offline"`

		Online struct {
			OpenAIKey       string `yaml:"openai_key"`
			OpenAIModel     string `yaml:"openai_model"`
			ChatModel       string `yaml:"chat_model"`
			AnthropicKey    string `yaml:"anthropic_key"`
			AnthropicModel  string `yaml:"anthropic_model"`
			SummaryMaxWords int    `yaml:"summary_max_words" validate:"min=0"`
		} `yaml:"online"`
	} `yaml:"transcription"`

	// Network availability probe
	Network struct {
		ProbeURL string        `yaml:"probe_url" validate:"omitempty,url"`
		Interval time.Duration `yaml:"interval" validate:"gt=0"`
		Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
	} `yaml:"network"`

	// Transcript note output
	Notes struct {
		Format string `yaml:"format" validate:"oneof=json text"`
		Dir    string `yaml:"dir"`
	} `yaml:"notes"`

	// Diagnostic logging
	Logging struct {
		Level      string `yaml:"level" validate:"oneof=trace debug info warn error disabled"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb" validate:"min=0"`
		MaxBackups int    `yaml:"max_backups" validate:"min=0"`
		Console    bool   `yaml:"console"`
	} `yaml:"logging"`

	// Server settings
	Server struct {
		Host     string `yaml:"host"`
		GRPCPort int    `yaml:"grpc_port" validate:"min=1,max=65535"`
	} `yaml:"server"`

	// Push-to-talk hotkey
	Hotkey string `yaml:"hotkey"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Audio defaults
	cfg.Audio.SampleRate = 16000
	cfg.Audio.Channels = 1
	cfg.Audio.BitDepth = 16
	cfg.Audio.PollInterval = 100 * time.Millisecond
	cfg.Audio.DurationInterval = time.Second

	// Amplitude defaults
	cfg.Amplitude.WindowSize = 100
	cfg.Amplitude.SmoothingFactor = 0.2
	cfg.Amplitude.Normalize = true
	cfg.Amplitude.CacheCapacity = 100

	// Snapshot defaults
	cfg.Snapshots.Backend = "file"
	cfg.Snapshots.Dir = filepath.Join(os.TempDir(), "voxnote", "snapshots")
	cfg.Snapshots.Namespace = "waveform"
	cfg.Snapshots.Redis.Addr = "localhost:6379"

	// Storage defaults
	cfg.Storage.RecordingsDir = "recordings"

	// Transcription defaults
	cfg.Transcription.Language = "en"
	cfg.Transcription.AutoTranscribe = true
	cfg.Transcription.Offline.Model = "vosk-model-small-en-us-0.15"
	cfg.Transcription.Offline.ModelsDir = "models"
	cfg.Transcription.Online.OpenAIModel = "whisper-1"
	cfg.Transcription.Online.ChatModel = "gpt-4o-mini"
	cfg.Transcription.Online.AnthropicModel = "claude-3-5-haiku-latest"
	cfg.Transcription.Online.SummaryMaxWords = 150

	// Network defaults
	cfg.Network.ProbeURL = "https://api.openai.com"
	cfg.Network.Interval = 15 * time.Second
	cfg.Network.Timeout = 3 * time.Second

	// Note defaults
	cfg.Notes.Format = "json"

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3

	// Server defaults
	cfg.Server.Host = "localhost"
	cfg.Server.GRPCPort = 50051

	cfg.Hotkey = "ctrl+shift+space"

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.voxnoterc > /etc/voxnote/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".voxnoterc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/voxnote/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

// Validate checks structural fields
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnv overlays secrets and endpoints from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Transcription.Online.OpenAIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Transcription.Online.AnthropicKey = v
	}
	if v := os.Getenv("VOXNOTE_REDIS_ADDR"); v != "" {
		c.Snapshots.Redis.Addr = v
	}
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
