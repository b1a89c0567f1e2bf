package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/sharingan/internal/domain"
)

// clearProviderEnv isolates tests from credentials exported in the developer's shell.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "OPENAI_EMBEDDING_MODEL",
		"INDEX_DRIVER", "PINECONE_API_KEY", "PINECONE_ENVIRONMENT", "PINECONE_INDEX_NAME",
		"PINECONE_INDEX_HOST", "PINECONE_CONTROLLER_URL", "REDIS_ADDRS", "REDIS_PASSWORD", "TOP_K", "PORT",
		"LOG_LEVEL", "CONFIG_PATH", "HTTP_READ_TIMEOUT_SEC", "HTTP_WRITE_TIMEOUT_SEC",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_EmbeddedDefaults(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := Load("no-such-env")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.HTTP.Port)
	}
	if cfg.OpenAI.Model != "gpt-3.5-turbo" {
		t.Errorf("model = %q", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.EmbeddingModel != "text-embedding-ada-002" {
		t.Errorf("embedding model = %q", cfg.OpenAI.EmbeddingModel)
	}
	if cfg.Index.Driver != DriverPinecone {
		t.Errorf("driver = %q", cfg.Index.Driver)
	}
	if cfg.Index.Environment != "us-west4-gcp-free" {
		t.Errorf("environment = %q", cfg.Index.Environment)
	}
	if cfg.Index.Name != "mera-master-db" {
		t.Errorf("index name = %q", cfg.Index.Name)
	}
	if cfg.Search.TopK != 5 {
		t.Errorf("top_k = %d, want 5", cfg.Search.TopK)
	}
	if len(cfg.Index.Addrs) != 0 {
		t.Errorf("expected no redis addrs, got %v", cfg.Index.Addrs)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("PINECONE_API_KEY", "pc-test")
	t.Setenv("PINECONE_INDEX_NAME", "courses")
	t.Setenv("TOP_K", "3")
	t.Setenv("PORT", "8081")

	cfg, err := Load("no-such-env")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", cfg.OpenAI.Model)
	}
	if cfg.Index.APIKey != "pc-test" {
		t.Errorf("index api key = %q", cfg.Index.APIKey)
	}
	if cfg.Index.Name != "courses" {
		t.Errorf("index name = %q", cfg.Index.Name)
	}
	if cfg.Search.TopK != 3 {
		t.Errorf("top_k = %d", cfg.Search.TopK)
	}
	if cfg.HTTP.Port != 8081 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		t.Errorf("unexpected credentials error: %v", err)
	}
}

func TestLoad_RedisAddrsSplit(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("INDEX_DRIVER", "valkey")
	t.Setenv("REDIS_ADDRS", "10.0.0.1:6379, 10.0.0.2:6379")

	cfg, err := Load("no-such-env")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Index.Addrs) != 2 {
		t.Fatalf("expected 2 addrs, got %v", cfg.Index.Addrs)
	}
	if cfg.Index.Addrs[1] != "10.0.0.2:6379" {
		t.Errorf("addr[1] = %q", cfg.Index.Addrs[1])
	}
}

func TestLoad_ConfigPathFile(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, `
http:
  port: 9090
openai:
  api_key: "${MY_OPENAI_KEY:-fallback-key}"
index:
  driver: redis
  addrs:
    - "redis-1:6379"
search:
  top_k: 7
`))

	cfg, err := Load("ignored")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.OpenAI.APIKey != "fallback-key" {
		t.Errorf("api key = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Index.Driver != DriverRedis {
		t.Errorf("driver = %q", cfg.Index.Driver)
	}
	if cfg.Search.TopK != 7 {
		t.Errorf("top_k = %d", cfg.Search.TopK)
	}
	// defaults still fill the rest
	if cfg.OpenAI.EmbeddingModel != DefaultEmbeddingModel {
		t.Errorf("embedding model = %q", cfg.OpenAI.EmbeddingModel)
	}
	if len(cfg.Index.ReturnFields) != 2 {
		t.Errorf("return fields = %v", cfg.Index.ReturnFields)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, "http: [unclosed"))

	if _, err := Load("ignored"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 70000}, Search: SearchConfig{TopK: 5}, Index: IndexConfig{Driver: DriverPinecone}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_NegativeTopK(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 3000}, Search: SearchConfig{TopK: -1}, Index: IndexConfig{Driver: DriverPinecone}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative top_k")
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 3000}, Search: SearchConfig{TopK: 5}, Index: IndexConfig{Driver: "milvus"}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	expected := `index.driver must be one of pinecone, redis, valkey, got "milvus"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_RedisWithoutAddrs(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 3000}, Search: SearchConfig{TopK: 5}, Index: IndexConfig{Driver: DriverRedis}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis driver without addrs")
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing openai key",
			cfg:     Config{Index: IndexConfig{Driver: DriverPinecone, APIKey: "pc"}},
			wantErr: "OPENAI_API_KEY environment variable is required",
		},
		{
			name:    "missing pinecone key",
			cfg:     Config{OpenAI: OpenAIConfig{APIKey: "sk"}, Index: IndexConfig{Driver: DriverPinecone}},
			wantErr: "PINECONE_API_KEY environment variable is required",
		},
		{
			name: "redis without password",
			cfg:  Config{OpenAI: OpenAIConfig{APIKey: "sk"}, Index: IndexConfig{Driver: DriverRedis}},
		},
		{
			name: "all present",
			cfg:  Config{OpenAI: OpenAIConfig{APIKey: "sk"}, Index: IndexConfig{Driver: DriverPinecone, APIKey: "pc"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.ValidateCredentials()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %q", tc.wantErr)
			}
			if err.Error() != tc.wantErr {
				t.Errorf("got %q, want %q", err.Error(), tc.wantErr)
			}
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Error("expected errors.Is(err, domain.ErrConfiguration)")
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SHARINGAN_TEST_VAR", "value")

	got := string(expandEnvVars([]byte("a: ${SHARINGAN_TEST_VAR}\nb: ${SHARINGAN_UNSET_VAR:-def}\nc: ${SHARINGAN_UNSET_VAR}")))
	want := "a: value\nb: def\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
