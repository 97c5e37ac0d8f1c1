package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Address         string        `mapstructure:"address"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TelemetryURL    string        `mapstructure:"telemetry_url"`
	LogLevel        string        `mapstructure:"log_level"`
	ForwardHistory  bool          `mapstructure:"forward_history"`
	MaxPromptChars  int           `mapstructure:"max_prompt_chars"`

	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
	OpenAIModel   string `mapstructure:"openai_model"`

	ClaudeAPIKey    string `mapstructure:"claude_api_key"`
	ClaudeBaseURL   string `mapstructure:"claude_base_url"`
	ClaudeModel     string `mapstructure:"claude_model"`
	ClaudeMaxTokens int    `mapstructure:"claude_max_tokens"`

	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	GeminiBaseURL string `mapstructure:"gemini_base_url"`
	GeminiModel   string `mapstructure:"gemini_model"`

	OllamaAPIURL string `mapstructure:"ollama_api_url"`
	OllamaModel  string `mapstructure:"ollama_model"`
}

// provider settings keep the environment names used by existing deployments
var providerEnv = map[string]string{
	"openai_api_key":    "OPENAI_API_KEY",
	"openai_base_url":   "OPENAI_BASE_URL",
	"openai_model":      "OPENAI_MODEL",
	"claude_api_key":    "CLAUDE_API_KEY",
	"claude_base_url":   "CLAUDE_BASE_URL",
	"claude_model":      "CLAUDE_MODEL",
	"claude_max_tokens": "CLAUDE_MAX_TOKENS",
	"gemini_api_key":    "GEMINI_API_KEY",
	"gemini_base_url":   "GEMINI_BASE_URL",
	"gemini_model":      "GEMINI_MODEL",
	"ollama_api_url":    "OLLAMA_API_URL",
	"ollama_model":      "OLLAMA_MODEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("address", ":8000")
	v.SetDefault("request_timeout", "60s")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("telemetry_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("forward_history", true)
	v.SetDefault("max_prompt_chars", 0)

	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "https://api.openai.com")
	v.SetDefault("openai_model", "gpt-3.5-turbo")
	v.SetDefault("claude_api_key", "")
	v.SetDefault("claude_base_url", "https://api.anthropic.com")
	v.SetDefault("claude_model", "claude-3-7-sonnet-20250219")
	v.SetDefault("claude_max_tokens", 1024)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini_model", "gemini-2.0-flash")
	v.SetDefault("ollama_api_url", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama3.2:latest")
}

// Load reads config.yaml from the working directory or ./config, then a .env
// file from the working directory, then the environment.
func Load() (*Config, error) {
	return LoadFrom(".", "./config")
}

// LoadFrom is Load with explicit search paths. The first path is also where
// the .env file is looked up.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

	// allow environment variables like POLYCHAT_ADDRESS
	v.SetEnvPrefix("POLYCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range providerEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// don't fail if config file is missing, allow env-only config
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	if len(paths) > 0 {
		if err := mergeDotEnv(v, strings.TrimRight(paths[0], "/")+"/.env"); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func mergeDotEnv(v *viper.Viper, path string) error {
	dot := viper.New()
	dot.SetConfigFile(path)
	dot.SetConfigType("env")
	if err := dot.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	settings := make(map[string]any)
	for k, val := range dot.AllSettings() {
		settings[strings.TrimPrefix(k, "polychat_")] = val
	}
	return v.MergeConfigMap(settings)
}
