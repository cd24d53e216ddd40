// Package config handles loading and validating the vaani configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vaani/internal/actions"
	"vaani/internal/catalog"
	"vaani/internal/speech"
)

// Config is the root configuration for the vaani daemon.
type Config struct {
	Wake         WakeConfig              `mapstructure:"wake"`
	Session      SessionConfig           `mapstructure:"session"`
	Intent       IntentConfig            `mapstructure:"intent"`
	Audio        AudioConfig             `mapstructure:"audio"`
	Connectivity ConnectivityConfig      `mapstructure:"connectivity"`
	Local        LocalConfig             `mapstructure:"local"`
	Remote       RemoteConfig            `mapstructure:"remote"`
	Proxy        string                  `mapstructure:"proxy"`
	TTS          TTSConfig               `mapstructure:"tts"`
	Notify       NotifyConfig            `mapstructure:"notify"`
	Duck         DuckConfig              `mapstructure:"duck"`
	Control      ControlConfig           `mapstructure:"control"`
	Bus          BusConfig               `mapstructure:"bus"`
	Health       HealthConfig            `mapstructure:"health"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Commands     []catalog.Entry         `mapstructure:"commands"`
	Actions      map[string]actions.Spec `mapstructure:"actions"`
}

// WakeConfig maps a language code to its wake word.
type WakeConfig struct {
	Words map[string]string `mapstructure:"words"`
}

type SessionConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Language string        `mapstructure:"language"`
	Greet    bool          `mapstructure:"greet"`
}

type IntentConfig struct {
	Threshold int `mapstructure:"threshold"`
}

// AudioConfig selects the capture device. An empty Input means the default
// microphone; a path replays a wav, mp3 or ogg file instead.
type AudioConfig struct {
	SampleRate  int           `mapstructure:"sample_rate"`
	BlockSize   int           `mapstructure:"block_size"`
	Input       string        `mapstructure:"input"`
	Realtime    bool          `mapstructure:"realtime"`
	Calibration time.Duration `mapstructure:"calibration"`
	MaxPhrase   time.Duration `mapstructure:"max_phrase"`
}

type ConnectivityConfig struct {
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LocalConfig configures the on-device recognizers. Models maps a language
// code to a vosk model directory or a whisper ggml file.
type LocalConfig struct {
	Engine  string            `mapstructure:"engine"` // "vosk" or "whisper"
	Models  map[string]string `mapstructure:"models"`
	Threads int               `mapstructure:"threads"`
}

type RemoteConfig struct {
	Backend string        `mapstructure:"backend"` // "openai", "google" or "none"
	Timeout time.Duration `mapstructure:"timeout"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Google  GoogleConfig  `mapstructure:"google"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GoogleConfig struct {
	Language    string `mapstructure:"language"`
	Credentials string `mapstructure:"credentials"`
}

type TTSConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type NotifyConfig struct {
	Chime string `mapstructure:"chime"`
}

// DuckConfig lowers other applications while a session is active.
type DuckConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Factor  float64       `mapstructure:"factor"`
	Fade    time.Duration `mapstructure:"fade"`
	Ignore  []string      `mapstructure:"ignore"`
}

type ControlConfig struct {
	Socket string `mapstructure:"socket"`
}

type BusConfig struct {
	URL string `mapstructure:"url"`
}

type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"log":   "logging.level",
	"proxy": "proxy",
	"input": "audio.input",
}

// Load reads the configuration from file, environment variables, flags and
// defaults. If configFile is empty the standard search order applies:
// ./vaani.yaml, ./configs/vaani.yaml, /etc/vaani/vaani.yaml. flags may be
// nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("wake.words.en", "tom")
	v.SetDefault("wake.words.hi", "टॉम")
	v.SetDefault("session.timeout", 120*time.Second)
	v.SetDefault("session.language", "en")
	v.SetDefault("session.greet", true)
	v.SetDefault("intent.threshold", 75)
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.block_size", 4000)
	v.SetDefault("audio.input", "")
	v.SetDefault("audio.realtime", true)
	v.SetDefault("audio.calibration", time.Second)
	v.SetDefault("audio.max_phrase", 10*time.Second)
	v.SetDefault("connectivity.address", "8.8.8.8:53")
	v.SetDefault("connectivity.timeout", 3*time.Second)
	v.SetDefault("local.engine", "vosk")
	v.SetDefault("local.models.en", "models/vosk-model-small-en-in-0.4")
	v.SetDefault("local.models.hi", "models/vosk-model-small-hi-0.22")
	v.SetDefault("local.threads", 0)
	v.SetDefault("remote.backend", "openai")
	v.SetDefault("remote.timeout", 15*time.Second)
	v.SetDefault("remote.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("remote.openai.model", "whisper-1")
	v.SetDefault("remote.google.language", "en-IN")
	v.SetDefault("remote.google.credentials", "")
	v.SetDefault("proxy", "")
	v.SetDefault("tts.enabled", true)
	v.SetDefault("notify.chime", "")
	v.SetDefault("duck.enabled", false)
	v.SetDefault("duck.factor", 0.3)
	v.SetDefault("duck.fade", 300*time.Millisecond)
	v.SetDefault("duck.ignore", []string{"espeak", "vaani"})
	v.SetDefault("control.socket", "/tmp/vaani.sock")
	v.SetDefault("bus.url", "")
	v.SetDefault("health.port", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("vaani")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vaani")
	}

	// Environment variables: VAANI_SESSION_TIMEOUT, VAANI_REMOTE_BACKEND, etc.
	v.SetEnvPrefix("VAANI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	// Read config file (optional, env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Remote.OpenAI.APIKey = resolveEnvRef(cfg.Remote.OpenAI.APIKey)

	if len(cfg.Commands) == 0 {
		cfg.Commands = catalog.Default()
	}
	merged := actions.Default()
	for id, spec := range cfg.Actions {
		merged[id] = spec
	}
	cfg.Actions = merged

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := speech.ParseLanguage(c.Session.Language); err != nil {
		return fmt.Errorf("session.language: %w", err)
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("session.timeout must be positive, got %s", c.Session.Timeout)
	}
	if c.Intent.Threshold < 1 || c.Intent.Threshold > 100 {
		return fmt.Errorf("intent.threshold must be within 1..100, got %d", c.Intent.Threshold)
	}
	if c.Audio.SampleRate != 16000 {
		return fmt.Errorf("audio.sample_rate must be 16000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.BlockSize <= 0 {
		return fmt.Errorf("audio.block_size must be positive, got %d", c.Audio.BlockSize)
	}
	switch c.Local.Engine {
	case "vosk", "whisper":
	default:
		return fmt.Errorf("local.engine must be vosk or whisper, got %q", c.Local.Engine)
	}
	switch c.Remote.Backend {
	case "openai", "google", "none", "":
	default:
		return fmt.Errorf("remote.backend must be openai, google or none, got %q", c.Remote.Backend)
	}

	if c.Duck.Factor < 0 || c.Duck.Factor > 1 {
		return fmt.Errorf("duck.factor must be within 0..1, got %v", c.Duck.Factor)
	}

	models := 0
	for code, path := range c.Local.Models {
		if _, err := speech.ParseLanguage(code); err != nil {
			return fmt.Errorf("local.models: %w", err)
		}
		if path != "" {
			models++
		}
	}
	if models == 0 {
		return errors.New("local.models: at least one local model is required")
	}

	if err := catalog.Validate(c.Commands); err != nil {
		return fmt.Errorf("commands: %w", err)
	}
	for _, e := range c.Commands {
		if e.Action == "" {
			continue
		}
		if _, ok := c.Actions[e.Action]; !ok {
			return fmt.Errorf("commands: %q refers to unknown action %q", e.Phrase, e.Action)
		}
	}
	return nil
}

// Language returns the configured starting language.
func (c *Config) Language() speech.Language {
	lang, _ := speech.ParseLanguage(c.Session.Language)
	return lang
}

// WakeWords returns every configured wake word.
func (c *Config) WakeWords() []string {
	var words []string
	for _, w := range c.Wake.Words {
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	level, ok := logLevelMap[strings.ToLower(cfg.Level)]
	if !ok {
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	}

	slog.SetDefault(slog.New(handler))
}
