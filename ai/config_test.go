package ai

import (
	"testing"
	"time"

	"github.com/EscobozaEstrada/mrwhite-sub002/internal/profile"
)

func TestNewConfigFromProfile_Disabled(t *testing.T) {
	p := &profile.Profile{}
	cfg := NewConfigFromProfile(p)
	if cfg.Enabled {
		t.Error("Enabled = true, want false without embedding key")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on disabled config error = %v", err)
	}
}

func TestNewConfigFromProfile_Enabled(t *testing.T) {
	p := &profile.Profile{
		AIEmbeddingProvider:     "openai",
		AIEmbeddingModel:        "text-embedding-3-small",
		AIEmbeddingAPIKey:       "test-key",
		AIEmbeddingDimensions:   1536,
		RetrievalTopK:           10,
		RetrievalRerankTopN:     10,
		HealthModeRerankTopN:    20,
		RetrievalTimeoutSeconds: 10,
		Environment:             "dev",
	}
	cfg := NewConfigFromProfile(p)
	if !cfg.Enabled {
		t.Fatal("Enabled = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Retrieval.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Retrieval.Timeout)
	}
	if cfg.Retrieval.DocumentQueryTopN != 15 {
		t.Errorf("DocumentQueryTopN = %d, want 15", cfg.Retrieval.DocumentQueryTopN)
	}
	if cfg.Retrieval.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Retrieval.Environment)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "missing model",
			cfg: Config{
				Enabled:   true,
				Embedding: EmbeddingConfig{APIKey: "k", Dimensions: 1536},
			},
			wantErr: true,
		},
		{
			name: "missing key",
			cfg: Config{
				Enabled:   true,
				Embedding: EmbeddingConfig{Model: "m", Dimensions: 1536},
			},
			wantErr: true,
		},
		{
			name: "ollama without key",
			cfg: Config{
				Enabled:   true,
				Embedding: EmbeddingConfig{Provider: "ollama", Model: "m", Dimensions: 768},
			},
			wantErr: false,
		},
		{
			name: "bad dimensions",
			cfg: Config{
				Enabled:   true,
				Embedding: EmbeddingConfig{Model: "m", APIKey: "k"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFuseChunkContext(t *testing.T) {
	got := FuseChunkContext("chunk body", "Document: report.pdf, Type: vet_report")
	want := "Document: report.pdf, Type: vet_report\n\nchunk body"
	if got != want {
		t.Errorf("FuseChunkContext() = %q, want %q", got, want)
	}
	if FuseChunkContext("chunk", "") != "chunk" {
		t.Error("FuseChunkContext with empty context should return the chunk unchanged")
	}
}
