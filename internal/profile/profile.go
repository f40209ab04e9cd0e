package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Embedding configuration (OpenAI-compatible protocol).
	// All providers (openai, siliconflow, ollama) use the same config.
	AIEmbeddingProvider   string // Provider identifier: openai, siliconflow, ollama
	AIEmbeddingModel      string
	AIEmbeddingAPIKey     string
	AIEmbeddingBaseURL    string // Optional, has default per provider
	AIEmbeddingDimensions int    // Vector dimension, default 1536
	AIEmbeddingRPS        int    // Requests per second allowed against the embedding API

	// Retrieval configuration
	RetrievalTopK           int // Default candidate count per namespace query
	RetrievalRerankTopN     int // Results returned after re-ranking
	HealthModeRerankTopN    int // Wider window for health mode
	RetrievalTimeoutSeconds int // Time limit for a whole retrieval request

	// Server configuration
	Mode        string // "prod", "dev" or "demo"
	Addr        string
	UNIXSock    string
	Data        string
	Driver      string // "postgres", "sqlite" or "memory" (demo only)
	DSN         string
	Environment string // Suffix for the shared book-content namespace
	InstanceURL string
	Version     string
	Secret      string // JWT signing secret; empty disables auth outside prod
	Port        int
}

// Provider default configurations for embeddings.
// Used when the base URL is not explicitly set.
var embeddingProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "text-embedding-3-small",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "BAAI/bge-m3",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "nomic-embed-text",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an embedding API key is configured.
// Without embeddings there is nothing to retrieve against.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEmbeddingAPIKey != "" || p.AIEmbeddingProvider == "ollama"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.AIEmbeddingProvider = getEnvOrDefault("MRWHITE_AI_EMBEDDING_PROVIDER", "openai")
	p.AIEmbeddingModel = getEnvOrDefault("MRWHITE_AI_EMBEDDING_MODEL", "")
	p.AIEmbeddingAPIKey = getEnvOrDefault("MRWHITE_AI_EMBEDDING_API_KEY", "")
	p.AIEmbeddingBaseURL = getEnvOrDefault("MRWHITE_AI_EMBEDDING_BASE_URL", "")
	p.AIEmbeddingDimensions = getEnvOrDefaultInt("MRWHITE_AI_EMBEDDING_DIMENSIONS", 1536)
	p.AIEmbeddingRPS = getEnvOrDefaultInt("MRWHITE_AI_EMBEDDING_RPS", 10)

	// Apply provider defaults when base URL / model are not explicitly set.
	if defaults, ok := embeddingProviderDefaults[p.AIEmbeddingProvider]; ok {
		if p.AIEmbeddingBaseURL == "" {
			p.AIEmbeddingBaseURL = defaults.BaseURL
		}
		if p.AIEmbeddingModel == "" {
			p.AIEmbeddingModel = defaults.Model
		}
	}

	p.RetrievalTopK = getEnvOrDefaultInt("MRWHITE_RETRIEVAL_TOP_K", 10)
	p.RetrievalRerankTopN = getEnvOrDefaultInt("MRWHITE_RETRIEVAL_RERANK_TOP_N", 10)
	p.HealthModeRerankTopN = getEnvOrDefaultInt("MRWHITE_HEALTH_MODE_RERANK_TOP_N", 20)
	p.RetrievalTimeoutSeconds = getEnvOrDefaultInt("MRWHITE_RETRIEVAL_TIMEOUT_SECONDS", 10)

	p.Environment = getEnvOrDefault("MRWHITE_ENVIRONMENT", p.Environment)
	p.Secret = getEnvOrDefault("MRWHITE_SECRET", p.Secret)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func runtimeIsWindows() bool {
	return runtime.GOOS == "windows"
}

// Validate normalizes and validates the profile.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtimeIsWindows() {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "mrwhite")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					fmt.Printf("Failed to create data directory: %s, err: %+v\n", p.Data, err)
					return err
				}
			}
		} else {
			p.Data = "/var/opt/mrwhite"
		}
	}

	if p.Driver == "memory" {
		if p.Mode == "prod" {
			return errors.New("memory driver is for demo/dev only")
		}
	} else {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		if p.Driver == "sqlite" && p.DSN == "" {
			dbFile := fmt.Sprintf("mrwhite_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
		if p.Driver == "postgres" && p.DSN == "" {
			return errors.New("dsn is required for postgres driver")
		}
	}

	if p.Environment == "" {
		p.Environment = p.Mode
	}
	if p.AIEmbeddingDimensions <= 0 {
		p.AIEmbeddingDimensions = 1536
	}
	if p.RetrievalTopK <= 0 {
		p.RetrievalTopK = 10
	}
	if p.RetrievalRerankTopN <= 0 {
		p.RetrievalRerankTopN = 10
	}
	if p.HealthModeRerankTopN < p.RetrievalRerankTopN {
		p.HealthModeRerankTopN = p.RetrievalRerankTopN * 2
	}
	if p.RetrievalTimeoutSeconds <= 0 {
		p.RetrievalTimeoutSeconds = 10
	}
	if p.Mode == "prod" && p.Secret == "" {
		return errors.New("secret is required in prod mode")
	}

	return nil
}
