package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/sharingan/internal/domain"
)

// Index drivers.
const (
	DriverPinecone = "pinecone"
	DriverRedis    = "redis"
	DriverValkey   = "valkey"
)

// Defaults applied when the configuration leaves a field empty.
const (
	DefaultCompletionModel  = "gpt-3.5-turbo"
	DefaultEmbeddingModel   = "text-embedding-ada-002"
	DefaultIndexEnvironment = "us-west4-gcp-free"
	DefaultIndexName        = "mera-master-db"
	DefaultTopK             = 5
	DefaultHTTPPort         = 3000
)

//go:embed defaults.yaml
var defaultTemplate []byte

// Config holds the sharingan configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Index   IndexConfig   `yaml:"index"`
	Search  SearchConfig  `yaml:"search"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds local listener settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// OpenAIConfig holds embedding and completion provider settings.
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Driver        string   `yaml:"driver"` // pinecone, redis, valkey (default: pinecone)
	APIKey        string   `yaml:"api_key"`
	Environment   string   `yaml:"environment"`
	Name          string   `yaml:"name"`
	Host          string   `yaml:"host"`           // pinecone: skip project lookup when set
	ControllerURL string   `yaml:"controller_url"` // pinecone: override https://controller.<env>.pinecone.io
	Addrs         []string `yaml:"addrs"`          // redis/valkey
	Password      string   `yaml:"password"`       // redis/valkey AUTH
	ReturnFields  []string `yaml:"return_fields"`  // redis/valkey metadata fields
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// Load reads configuration for the given environment name (local, dev, prod, lambda).
// config/<env>.yaml wins when present; otherwise the embedded template is used,
// so a deployment can be configured from environment variables alone.
func Load(env string) (Config, error) {
	data, err := readConfig(env)
	if err != nil {
		return Config{}, err
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = DefaultCompletionModel
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.Index.Driver == "" {
		c.Index.Driver = DriverPinecone
	}
	if c.Index.Environment == "" {
		c.Index.Environment = DefaultIndexEnvironment
	}
	if c.Index.Name == "" {
		c.Index.Name = DefaultIndexName
	}
	if len(c.Index.ReturnFields) == 0 {
		c.Index.ReturnFields = []string{domain.MetadataText, domain.MetadataCourse}
	}
	c.Index.Addrs = compact(c.Index.Addrs)
	if c.Search.TopK == 0 {
		c.Search.TopK = DefaultTopK
	}
}

// Validate checks the configuration structure. Credentials are checked separately
// by ValidateCredentials, on every request, so the listener can start without them.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	switch c.Index.Driver {
	case DriverPinecone:
	case DriverRedis, DriverValkey:
		if len(c.Index.Addrs) == 0 {
			return fmt.Errorf("index.addrs is required for driver %q", c.Index.Driver)
		}
	default:
		return fmt.Errorf("index.driver must be one of pinecone, redis, valkey, got %q", c.Index.Driver)
	}
	return nil
}

// ValidateCredentials reports a missing provider credential as a *domain.ConfigurationError.
// The index key is only mandatory for the hosted Pinecone driver; redis/valkey may run without AUTH.
func (c *Config) ValidateCredentials() error {
	if c.OpenAI.APIKey == "" {
		return domain.NewConfigurationError("OPENAI_API_KEY environment variable is required")
	}
	if c.Index.Driver == DriverPinecone && c.Index.APIKey == "" {
		return domain.NewConfigurationError("PINECONE_API_KEY environment variable is required")
	}
	return nil
}

func readConfig(env string) ([]byte, error) {
	path, ok := findConfigPath(env)
	if !ok {
		return defaultTemplate, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultTemplate, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return data, nil
}

// findConfigPath locates the config file. CONFIG_PATH overrides the lookup.
func findConfigPath(env string) (string, bool) {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p, true
	}

	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path, true
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path, true
	}

	return "", false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// compact splits comma-separated entries (REDIS_ADDRS="a:6379,b:6379") and drops blanks.
func compact(ss []string) []string {
	var out []string
	for _, s := range ss {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
