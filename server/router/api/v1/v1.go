// Package v1 implements the REST API surface.
package v1

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/metrics"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/retrieval"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
	"github.com/EscobozaEstrada/mrwhite-sub002/internal/profile"
	"github.com/EscobozaEstrada/mrwhite-sub002/store"
)

type APIV1Service struct {
	// MemoryService is nil when AI features are disabled; its routes then
	// answer 503.
	MemoryService *retrieval.MemoryService

	Profile *profile.Profile
	// Store is nil on the in-memory driver.
	Store   *store.Store
	Metrics *metrics.Collector
	Secret  string
}

func NewAPIV1Service(secret string, profile *profile.Profile, storeInstance *store.Store, collector *metrics.Collector) *APIV1Service {
	service := &APIV1Service{
		Secret:  secret,
		Profile: profile,
		Store:   storeInstance,
		Metrics: collector,
	}

	if !profile.IsAIEnabled() {
		slog.Info("Memory features disabled", "reason", "no embedding provider configured")
		return service
	}

	aiConfig := ai.NewConfigFromProfile(profile)
	if err := aiConfig.Validate(); err != nil {
		slog.Warn("Memory config validation failed", "error", err)
		return service
	}

	embeddingService, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		slog.Warn("Failed to initialize embedding service", "error", err)
		return service
	}

	// On the in-memory driver (demo mode) memories live in process and the
	// relational reference-query path is unavailable.
	var index vector.Index = vector.NewMemoryIndex()
	opts := &retrieval.Options{
		Metrics: collector,
		Logger:  slog.Default(),
	}
	if storeInstance != nil {
		index = storeInstance
		opts.Documents = storeInstance
	}

	service.MemoryService = retrieval.NewMemoryService(aiConfig.Retrieval, index, embeddingService, opts)
	slog.Info("Memory service initialized",
		"provider", aiConfig.Embedding.Provider,
		"model", aiConfig.Embedding.Model,
		"driver", profile.Driver,
	)

	return service
}

// RegisterRoutes attaches the v1 routes to the echo server.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	group := echoServer.Group("/api/v1")
	group.Use(s.authMiddleware())

	group.POST("/memories/retrieve", s.RetrieveMemories)
	group.POST("/memories/conversation", s.StoreConversationMemory)
	group.POST("/memories/document", s.StoreDocumentMemory)
	group.DELETE("/memories/conversation/:conversationID", s.DeleteConversationMemories)
	group.DELETE("/users/:userID/memories", s.DeleteUserMemories)
	group.GET("/conversations/:conversationID/documents", s.ListConversationDocuments)
}
