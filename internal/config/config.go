package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pondelion/mplm/internal/llm"
)

const (
	DefaultMaxRetry    = 3
	DefaultRandomSeed  = 42
	DefaultExecTimeout = 60 * time.Second
	DefaultNATSSubject = "mplm.transitions"
)

// ConfigurationError reports a missing or malformed setting. It is fatal and
// surfaces before any run starts.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

type Config struct {
	DataDir      string `yaml:"data_dir"`
	DBPath       string `yaml:"db_file"`
	ModelSaveDir string `yaml:"model_save_dir"`

	LLMName          string        `yaml:"llm_name"`
	LLMProvider      string        `yaml:"llm_provider"`
	OpenRouterAPIKey string        `yaml:"openrouter_api_key"`
	LLMBaseURL       string        `yaml:"llm_base_url"`
	Temperature      *float64      `yaml:"temperature"`
	LLMTimeout       time.Duration `yaml:"llm_timeout"`

	MaxRetry    int           `yaml:"max_retry"`
	RandomSeed  int64         `yaml:"default_random_seed"`
	ExecTimeout time.Duration `yaml:"exec_timeout"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// New returns the configuration from defaults and the environment.
func New() (*Config, error) {
	return Load("")
}

// Load reads .env from the working directory (if present), then the optional
// YAML file at path, then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	c, err := defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		base := *c
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
		c.rebaseDataDir(&base)
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

func defaults() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	dataDir := getEnv("MPLM_DATA_DIR", filepath.Join(homeDir, ".mplm"))

	return &Config{
		DataDir:      dataDir,
		DBPath:       dbPath(dataDir),
		ModelSaveDir: modelSaveDir(dataDir),
		LLMProvider:  llm.ProviderOpenRouter,
		LLMTimeout:   llm.DefaultTimeout,
		MaxRetry:     DefaultMaxRetry,
		RandomSeed:   DefaultRandomSeed,
		ExecTimeout:  DefaultExecTimeout,
		NATSSubject:  DefaultNATSSubject,
		LogLevel:     "info",
		LogFormat:    "text",
	}, nil
}

func dbPath(dataDir string) string       { return filepath.Join(dataDir, "mplm.db") }
func modelSaveDir(dataDir string) string { return filepath.Join(dataDir, "models") }

// rebaseDataDir moves the database and model paths under a data_dir set in
// YAML, unless the file set them explicitly.
func (c *Config) rebaseDataDir(base *Config) {
	if c.DataDir == base.DataDir {
		return
	}
	if c.DBPath == base.DBPath {
		c.DBPath = dbPath(c.DataDir)
	}
	if c.ModelSaveDir == base.ModelSaveDir {
		c.ModelSaveDir = modelSaveDir(c.DataDir)
	}
}

func (c *Config) applyEnv() error {
	c.DBPath = getEnv("DB_FILE", c.DBPath)
	c.ModelSaveDir = getEnv("MODEL_SAVE_DIR", c.ModelSaveDir)
	c.LLMName = getEnv("LLM_NAME", c.LLMName)
	c.LLMProvider = getEnv("LLM_PROVIDER", c.LLMProvider)
	c.OpenRouterAPIKey = getEnv("OPENROUTER_API_KEY", c.OpenRouterAPIKey)
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.NATSSubject = getEnv("NATS_SUBJECT", c.NATSSubject)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	if v, ok := os.LookupEnv("MAX_RETRY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Key: "max_retry", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		c.MaxRetry = n
	}
	if v, ok := os.LookupEnv("DEFAULT_RANDOM_SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &ConfigurationError{Key: "default_random_seed", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		c.RandomSeed = n
	}
	if v, ok := os.LookupEnv("LLM_TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ConfigurationError{Key: "temperature", Reason: fmt.Sprintf("not a number: %q", v)}
		}
		c.Temperature = &f
	}
	for key, dst := range map[string]*time.Duration{
		"EXEC_TIMEOUT": &c.ExecTimeout,
		"LLM_TIMEOUT":  &c.LLMTimeout,
	} {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return &ConfigurationError{Key: strings.ToLower(key), Reason: fmt.Sprintf("not a duration: %q", v)}
			}
			*dst = d
		}
	}
	return nil
}

// Validate checks the settings a build run needs.
func (c *Config) Validate() error {
	if c.LLMName == "" {
		return &ConfigurationError{Key: "llm_name", Reason: "model name is not set (LLM_NAME)"}
	}
	switch strings.ToLower(c.LLMProvider) {
	case "", llm.ProviderOpenRouter, "openai":
		if c.OpenRouterAPIKey == "" {
			return &ConfigurationError{Key: "openrouter_api_key", Reason: "API key is not set (OPENROUTER_API_KEY)"}
		}
	case llm.ProviderOllama, "local":
	default:
		return &ConfigurationError{Key: "llm_provider", Reason: fmt.Sprintf("unsupported provider %q", c.LLMProvider)}
	}
	if c.MaxRetry < 0 {
		return &ConfigurationError{Key: "max_retry", Reason: "must not be negative"}
	}
	if c.ExecTimeout <= 0 {
		return &ConfigurationError{Key: "exec_timeout", Reason: "must be positive"}
	}
	return nil
}

func (c *Config) LLMSettings() llm.Settings {
	return llm.Settings{
		Provider:    c.LLMProvider,
		Model:       c.LLMName,
		APIKey:      c.OpenRouterAPIKey,
		BaseURL:     c.LLMBaseURL,
		Temperature: c.Temperature,
		Timeout:     c.LLMTimeout,
	}
}

func (c *Config) EnsureDataDir() error {
	for _, dir := range []string{c.DataDir, c.ModelSaveDir, filepath.Dir(c.DBPath)} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// Print writes every setting except secrets, one per line.
func (c *Config) Print(w io.Writer) {
	temperature := "default"
	if c.Temperature != nil {
		temperature = strconv.FormatFloat(*c.Temperature, 'f', -1, 64)
	}
	apiKey := "(not set)"
	if c.OpenRouterAPIKey != "" {
		apiKey = "(set)"
	}

	rows := [][2]string{
		{"data_dir", c.DataDir},
		{"db_file", c.DBPath},
		{"model_save_dir", c.ModelSaveDir},
		{"llm_name", c.LLMName},
		{"llm_provider", c.LLMProvider},
		{"openrouter_api_key", apiKey},
		{"llm_base_url", c.LLMBaseURL},
		{"temperature", temperature},
		{"llm_timeout", c.LLMTimeout.String()},
		{"max_retry", strconv.Itoa(c.MaxRetry)},
		{"default_random_seed", strconv.FormatInt(c.RandomSeed, 10)},
		{"exec_timeout", c.ExecTimeout.String()},
		{"nats_url", c.NATSURL},
		{"nats_subject", c.NATSSubject},
		{"log_level", c.LogLevel},
		{"log_format", c.LogFormat},
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	fmt.Fprintln(w, "Application Settings:")
	for _, r := range rows {
		fmt.Fprintf(w, "  %-*s : %s\n", width, r[0], r[1])
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
