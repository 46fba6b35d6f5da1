package config

// Config is the full toolbridge configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Tools     ToolsConfig     `yaml:"tools"`
	Logs      LogsConfig      `yaml:"logs"`
}

// ServerConfig configures the HTTP façade.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AnthropicConfig configures the model gateway. The API key is sourced from
// the ANTHROPIC_API_KEY environment variable only and is never written to the
// config file.
type AnthropicConfig struct {
	APIKey    string `yaml:"-"`
	APIBase   string `yaml:"apiBase"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"maxTokens"`
}

// ToolsConfig configures the tool-server subprocess and the loop guard.
type ToolsConfig struct {
	ServerScript string `yaml:"serverScript"`
	MaxIter      int    `yaml:"maxIter"`
}

// LogsConfig configures conversation-log persistence and retention.
// RetentionDays of zero disables the sweep.
type LogsConfig struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retentionDays"`
	Sweep         string `yaml:"sweep"`
}

// DefaultConfig returns the built-in defaults. Model and token budget mirror
// the fixed values the chatbot was designed around.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{Addr: ":8000"},
		Anthropic: AnthropicConfig{
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 1000,
		},
		Tools: ToolsConfig{MaxIter: 25},
		Logs: LogsConfig{
			RetentionDays: 30,
			Sweep:         "0 * * * *",
		},
	}
}
