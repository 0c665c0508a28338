package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/bytes"
	"github.com/spf13/viper"
	"github.com/vibetunes/vibetunes-backend/mood"
	"gopkg.in/yaml.v3"
)

const envPrefix = "VIBETUNES"

type Server struct {
	Port        string   `mapstructure:"port" yaml:"port"`
	BodyLimit   string   `mapstructure:"body_limit" yaml:"body_limit"`
	RateLimit   float64  `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst   int      `mapstructure:"rate_burst" yaml:"rate_burst"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type Breaker struct {
	Failures    uint32 `mapstructure:"failures" yaml:"failures"`
	OpenSeconds int    `mapstructure:"open_seconds" yaml:"open_seconds"`
}

type HuggingFace struct {
	Token          string   `mapstructure:"token" yaml:"token"`
	Models         []string `mapstructure:"models" yaml:"models"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	EarlyStop      float64  `mapstructure:"early_stop_confidence" yaml:"early_stop_confidence"`
	RetryAttempts  int      `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryBackoffMS int      `mapstructure:"retry_backoff_ms" yaml:"retry_backoff_ms"`
	Breaker        Breaker  `mapstructure:"breaker" yaml:"breaker"`
}

type Root struct {
	Server      Server      `mapstructure:"server" yaml:"server"`
	Log         Log         `mapstructure:"log" yaml:"log"`
	HuggingFace HuggingFace `mapstructure:"huggingface" yaml:"huggingface"`
	Engine      mood.Config `mapstructure:"engine" yaml:"engine"`
	Paths       struct {
		Outputs string `mapstructure:"outputs" yaml:"outputs"`
	} `mapstructure:"paths" yaml:"paths"`
	Simulation struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"simulation" yaml:"simulation"`
}

// DefaultModels are the facial-expression classifiers queried in order.
var DefaultModels = []string{
	"https://api-inference.huggingface.co/models/trpakov/vit-face-expression",
	"https://api-inference.huggingface.co/models/Sanster/liteface_emotion",
	"https://api-inference.huggingface.co/models/dima806/facial_emotions_image_detection",
}

func Defaults() Root {
	var r Root
	r.Server = Server{Port: "3001", BodyLimit: "10M", RateLimit: 5, RateBurst: 10, CORSOrigins: []string{"*"}}
	r.Log = Log{Level: "info", Format: "text"}
	r.HuggingFace = HuggingFace{
		Models:         append([]string(nil), DefaultModels...),
		TimeoutSeconds: 15,
		EarlyStop:      0.8,
		RetryAttempts:  2,
		RetryBackoffMS: 500,
		Breaker:        Breaker{Failures: 5, OpenSeconds: 30},
	}
	r.Engine = mood.DefaultConfig()
	r.Simulation.Enabled = true
	return r
}

// Load reads .env, then path (or the first guessed config file), then the
// environment. Later sources win.
func Load(path string) (*Root, error) {
	_ = godotenv.Load()

	v := viper.New()
	if err := setDefaults(v, Defaults()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range map[string][]string{
		"server.port":       {"PORT"},
		"huggingface.token": {"HF_TOKEN"},
		"log.level":         {"LOG_LEVEL"},
		"log.format":        {"LOG_FORMAT"},
	} {
		names := append([]string{envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, err
		}
	}

	if path == "" {
		path = guessConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func guessConfigFile() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	guess := []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	}
	for _, p := range guess {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// setDefaults registers every leaf of r with viper so env overrides apply to
// keys that no config file mentions.
func setDefaults(v *viper.Viper, r Root) error {
	b, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return err
	}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := val.(map[string]any); ok {
				walk(key, sub)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)
	return nil
}

func (r *Root) Validate() error {
	var errs []error
	if r.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if _, err := bytes.Parse(r.Server.BodyLimit); err != nil {
		errs = append(errs, fmt.Errorf("server.body_limit: %w", err))
	}
	if len(r.HuggingFace.Models) == 0 {
		errs = append(errs, errors.New("huggingface.models must list at least one model"))
	}
	if r.HuggingFace.EarlyStop <= 0 || r.HuggingFace.EarlyStop > 1 {
		errs = append(errs, fmt.Errorf("huggingface.early_stop_confidence must be in (0, 1], got %v", r.HuggingFace.EarlyStop))
	}
	if r.HuggingFace.RetryAttempts < 1 {
		errs = append(errs, errors.New("huggingface.retry_attempts must be at least 1"))
	}
	if err := r.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	return errors.Join(errs...)
}

// YAML renders the effective configuration with the token redacted.
func (r Root) YAML() ([]byte, error) {
	if r.HuggingFace.Token != "" {
		r.HuggingFace.Token = "********"
	}
	return yaml.Marshal(r)
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }

func DurMillis(n int) time.Duration { return time.Duration(n) * time.Millisecond }
