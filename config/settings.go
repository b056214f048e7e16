// Package config provides application settings loaded from environment
// variables and an optional config file.
//
// Settings are created via Load() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific model and API key lookup

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/richinex/swasth/agent"
	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/tools"
)

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig      `yaml:"llm"`
	Agent    AgentConfig    `yaml:"agent"`
	Tools    ToolsConfig    `yaml:"tools"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// LLMConfig holds model provider configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	MaxTokens   uint32  `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	APIKey      string  `yaml:"api_key"`
	OllamaHost  string  `yaml:"ollama_host,omitempty"`
}

// AgentConfig holds orchestrator limits.
type AgentConfig struct {
	MaxIterations  int           `yaml:"max_iterations"`
	MaxHistory     int           `yaml:"max_history"`
	ModelTimeout   time.Duration `yaml:"model_timeout"`
	ParallelTools  bool          `yaml:"parallel_tools"`
	EmergencyGuard bool          `yaml:"emergency_guard"`
}

// ToolsConfig holds tool execution settings.
type ToolsConfig struct {
	TimeoutSecs    uint64 `yaml:"timeout_seconds"`
	MaxRetries     uint32 `yaml:"max_retries"`
	MaxOutputChars int    `yaml:"max_output_chars"`
	SearchProvider string `yaml:"search_provider"`
	SearXNGURL     string `yaml:"searxng_url,omitempty"`
}

// ServerConfig holds the HTTP listener address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
}

// Load reads settings from the environment and, when path is not empty,
// from a YAML, JSON or TOML file. Environment variables win over the file.
// Invalid numeric or boolean values are errors.
func Load(path string) (Settings, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return fromViper(v)
}

// New loads settings from the environment only.
func New() (Settings, error) {
	return Load("")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("llm.provider", llm.ProviderGemini.String())
	v.SetDefault("llm.max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("llm.temperature", llm.DefaultTemperature)
	v.SetDefault("agent.max_iterations", agent.DefaultMaxIterations)
	v.SetDefault("agent.max_history", agent.DefaultMaxHistory)
	v.SetDefault("agent.model_timeout_seconds", int(agent.DefaultModelTimeout/time.Second))
	v.SetDefault("agent.parallel_tools", false)
	v.SetDefault("agent.emergency_guard", true)
	v.SetDefault("tools.timeout_seconds", tools.DefaultTimeoutSecs)
	v.SetDefault("tools.max_retries", tools.DefaultMaxRetries)
	v.SetDefault("tools.max_output_chars", tools.DefaultMaxOutputChars)
	v.SetDefault("tools.search_provider", tools.BackendDuckDuckGo)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("database.path", "swasth.db")
	v.SetDefault("access_token_expire_minutes", 24*60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	return v
}

func fromViper(v *viper.Viper) (Settings, error) {
	var s Settings
	p := parser{v: v}

	s.LLM.Provider = strings.ToLower(strings.TrimSpace(v.GetString("llm.provider")))
	s.LLM.MaxTokens = p.uint32("llm.max_tokens")
	s.LLM.Temperature = p.float64("llm.temperature")
	s.LLM.OllamaHost = v.GetString("ollama.host")
	if pt, perr := llm.ParseProviderType(s.LLM.Provider); perr == nil {
		s.LLM.Provider = pt.String()
		s.LLM.Model = modelFor(v, pt)
		s.LLM.APIKey = apiKeyFor(v, pt)
	} else {
		s.LLM.Model = v.GetString("llm.model")
	}

	s.Agent.MaxIterations = p.int("agent.max_iterations")
	s.Agent.MaxHistory = p.int("agent.max_history")
	s.Agent.ModelTimeout = time.Duration(p.int("agent.model_timeout_seconds")) * time.Second
	s.Agent.ParallelTools = p.bool("agent.parallel_tools")
	s.Agent.EmergencyGuard = p.bool("agent.emergency_guard")

	s.Tools.TimeoutSecs = uint64(p.uint32("tools.timeout_seconds"))
	s.Tools.MaxRetries = p.uint32("tools.max_retries")
	s.Tools.MaxOutputChars = p.int("tools.max_output_chars")
	s.Tools.SearchProvider = strings.ToLower(v.GetString("tools.search_provider"))
	if s.Tools.SearchProvider == "ddg" {
		s.Tools.SearchProvider = tools.BackendDuckDuckGo
	}
	s.Tools.SearXNGURL = v.GetString("tools.searxng_url")

	s.Server.Host = v.GetString("server.host")
	s.Server.Port = p.int("server.port")
	s.Database.Path = v.GetString("database.path")
	s.Auth.TokenTTL = time.Duration(p.int("access_token_expire_minutes")) * time.Minute
	s.Log.Level = strings.ToLower(v.GetString("log.level"))
	s.Log.Format = strings.ToLower(v.GetString("log.format"))
	s.Telegram.BotToken = v.GetString("telegram.bot_token")

	if p.err != nil {
		return Settings{}, p.err
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) validate() error {
	switch {
	case s.Agent.MaxIterations <= 0:
		return fmt.Errorf("AGENT_MAX_ITERATIONS must be positive, got %d", s.Agent.MaxIterations)
	case s.Agent.MaxHistory < 0:
		return fmt.Errorf("AGENT_MAX_HISTORY must not be negative, got %d", s.Agent.MaxHistory)
	case s.Agent.ModelTimeout <= 0:
		return fmt.Errorf("AGENT_MODEL_TIMEOUT_SECONDS must be positive")
	case s.Server.Port <= 0 || s.Server.Port > 65535:
		return fmt.Errorf("SERVER_PORT out of range: %d", s.Server.Port)
	case s.Auth.TokenTTL <= 0:
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	case s.Tools.SearchProvider != tools.BackendDuckDuckGo && s.Tools.SearchProvider != tools.BackendSearXNG:
		return fmt.Errorf("unknown TOOLS_SEARCH_PROVIDER %q", s.Tools.SearchProvider)
	case s.Tools.SearchProvider == tools.BackendSearXNG && s.Tools.SearXNGURL == "":
		return fmt.Errorf("TOOLS_SEARXNG_URL is required for the searxng search provider")
	}
	return nil
}

// modelFor prefers <PROVIDER>_MODEL, then LLM_MODEL, then the provider default.
func modelFor(v *viper.Viper, pt llm.ProviderType) string {
	if m := v.GetString(pt.String() + ".model"); m != "" {
		return m
	}
	if m := v.GetString("llm.model"); m != "" {
		return m
	}
	return pt.DefaultModel()
}

func apiKeyFor(v *viper.Viper, pt llm.ProviderType) string {
	for _, name := range pt.EnvVars() {
		if key := v.GetString(strings.ToLower(name)); key != "" {
			return key
		}
	}
	return ""
}

// APIKeyFor returns the API key for a provider from the environment.
func APIKeyFor(provider string) (string, error) {
	pt, err := llm.ParseProviderType(provider)
	if err != nil {
		return "", err
	}
	key := apiKeyFor(newViper(), pt)
	if key == "" && pt.RequiresAPIKey() {
		return "", &llm.ConfigError{
			Provider: pt.String(),
			Reason:   fmt.Sprintf("%s environment variable not set", pt.EnvVars()[0]),
		}
	}
	return key, nil
}

// SupportedProviders returns the canonical provider names.
func SupportedProviders() []string {
	return []string{
		llm.ProviderGemini.String(),
		llm.ProviderOpenAI.String(),
		llm.ProviderAnthropic.String(),
		llm.ProviderDeepSeek.String(),
		llm.ProviderOllama.String(),
	}
}

// NewProvider builds the configured model provider. A missing credential
// or unknown provider is reported as llm.ErrNotConfigured.
func (s Settings) NewProvider() (llm.Provider, error) {
	pt, err := llm.ParseProviderType(s.LLM.Provider)
	if err != nil {
		return nil, err
	}
	return llm.NewProviderBuilder(pt).
		Model(s.LLM.Model).
		MaxTokens(s.LLM.MaxTokens).
		Temperature(float32(s.LLM.Temperature)).
		Host(s.LLM.OllamaHost).
		APIKey(s.LLM.APIKey)
}

// AgentConfig returns the orchestrator configuration.
func (s Settings) AgentConfig() agent.Config {
	cfg := agent.DefaultConfig()
	cfg.MaxIterations = s.Agent.MaxIterations
	cfg.MaxHistory = s.Agent.MaxHistory
	cfg.ModelTimeout = s.Agent.ModelTimeout
	cfg.ParallelTools = s.Agent.ParallelTools
	cfg.EmergencyGuard = s.Agent.EmergencyGuard
	return cfg
}

// ToolsConfig returns the registry configuration.
func (s Settings) ToolsConfig() tools.Config {
	return tools.Config{
		Exec: tools.ToolConfig{
			TimeoutSecs:    s.Tools.TimeoutSecs,
			MaxRetries:     s.Tools.MaxRetries,
			MaxOutputChars: s.Tools.MaxOutputChars,
		},
		SearchProvider: s.Tools.SearchProvider,
		SearXNGURL:     s.Tools.SearXNGURL,
	}
}

// Redacted returns a copy with secrets masked, for display.
func (s Settings) Redacted() Settings {
	s.LLM.APIKey = redact(s.LLM.APIKey)
	s.Telegram.BotToken = redact(s.Telegram.BotToken)
	return s
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// parser reads typed values, keeping the first error.
type parser struct {
	v   *viper.Viper
	err error
}

func (p *parser) raw(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) fail(key, val string, err error) {
	if p.err == nil {
		env := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		p.err = fmt.Errorf("invalid value for %s: %q: %w", env, val, err)
	}
}

func (p *parser) int(key string) int {
	val := p.raw(key)
	i, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
	}
	return i
}

func (p *parser) uint32(key string) uint32 {
	val := p.raw(key)
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		p.fail(key, val, err)
	}
	return uint32(i)
}

func (p *parser) float64(key string) float64 {
	val := p.raw(key)
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
	}
	return f
}

func (p *parser) bool(key string) bool {
	val := p.raw(key)
	b, err := strconv.ParseBool(val)
	if err != nil {
		p.fail(key, val, err)
	}
	return b
}
