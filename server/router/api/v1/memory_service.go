package v1

import (
	"encoding/binary"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/retrieval"
	"github.com/EscobozaEstrada/mrwhite-sub002/store"
)

type RetrieveMemoriesRequest struct {
	Query              string `json:"query"`
	Mode               string `json:"mode"`
	UserID             int64  `json:"user_id"`
	DogProfileID       int64  `json:"dog_profile_id"`
	ConversationID     int64  `json:"conversation_id"`
	Limit              int    `json:"limit"`
	SkipDocumentSearch bool   `json:"skip_document_search"`
}

type RetrieveMemoriesResponse struct {
	Memories []retrieval.ScoredMemory `json:"memories"`
	Count    int                      `json:"count"`
}

// RetrieveMemories runs the retrieval pipeline for a chat turn. The pipeline
// is fail-open, so this endpoint only errors on bad requests.
func (s *APIV1Service) RetrieveMemories(c echo.Context) error {
	if s.MemoryService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory features disabled")
	}

	request := &RetrieveMemoriesRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	if request.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	userID, err := s.requestUserID(c, request.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	memories := s.MemoryService.Retrieve(c.Request().Context(), &retrieval.Query{
		Text:               request.Query,
		Mode:               retrieval.ParseMode(request.Mode),
		UserID:             userID,
		DogProfileID:       request.DogProfileID,
		ConversationID:     request.ConversationID,
		Limit:              request.Limit,
		SkipDocumentSearch: request.SkipDocumentSearch,
	})
	if memories == nil {
		memories = []retrieval.ScoredMemory{}
	}

	return c.JSON(http.StatusOK, &RetrieveMemoriesResponse{
		Memories: memories,
		Count:    len(memories),
	})
}

type StoreConversationMemoryRequest struct {
	Extra          map[string]any `json:"extra"`
	Content        string         `json:"content"`
	Role           string         `json:"role"`
	ActiveMode     string         `json:"active_mode"`
	UserID         int64          `json:"user_id"`
	ConversationID int64          `json:"conversation_id"`
	MessageID      int64          `json:"message_id"`
}

type StoreMemoryResponse struct {
	Success bool `json:"success"`
}

func (s *APIV1Service) StoreConversationMemory(c echo.Context) error {
	if s.MemoryService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory features disabled")
	}

	request := &StoreConversationMemoryRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	if request.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	if request.MessageID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "message_id is required")
	}
	userID, err := s.requestUserID(c, request.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ok := s.MemoryService.StoreConversationMemory(c.Request().Context(), &retrieval.ConversationMessage{
		UserID:         userID,
		ConversationID: request.ConversationID,
		MessageID:      request.MessageID,
		Content:        request.Content,
		Role:           request.Role,
		ActiveMode:     request.ActiveMode,
		Extra:          request.Extra,
	})
	return c.JSON(http.StatusOK, &StoreMemoryResponse{Success: ok})
}

type StoreDocumentMemoryRequest struct {
	Chunks         []string `json:"chunks"`
	Filename       string   `json:"filename"`
	FileType       string   `json:"file_type"`
	S3URL          string   `json:"s3_url"`
	UserID         int64    `json:"user_id"`
	DogProfileID   int64    `json:"dog_profile_id"`
	ConversationID int64    `json:"conversation_id"`
	MessageID      int64    `json:"message_id"`
	IsVetReport    bool     `json:"is_vet_report"`
}

type StoreDocumentMemoryResponse struct {
	Success      bool  `json:"success"`
	DocumentID   int64 `json:"document_id"`
	ChunksStored int   `json:"chunks_stored"`
}

// StoreDocumentMemory records the document and indexes its chunks. Chunk
// indexing is best-effort: the upload succeeds when at least one chunk
// landed.
func (s *APIV1Service) StoreDocumentMemory(c echo.Context) error {
	if s.MemoryService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory features disabled")
	}

	request := &StoreDocumentMemoryRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	if len(request.Chunks) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "chunks are required")
	}
	userID, err := s.requestUserID(c, request.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	s3URL := request.S3URL
	if s3URL == "" {
		// Chunks posted without an upload location still need a stable
		// reference for later cleanup.
		s3URL = "local://" + uuid.NewString() + "/" + request.Filename
	}

	var documentID int64
	if s.Store != nil {
		document, err := s.Store.CreateDocument(ctx, &store.Document{
			UserID:       userID,
			Filename:     request.Filename,
			FileType:     request.FileType,
			S3URL:        s3URL,
			IsVetReport:  request.IsVetReport,
			DogProfileID: request.DogProfileID,
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to create document").SetInternal(err)
		}
		documentID = document.ID

		if request.MessageID != 0 && request.ConversationID != 0 {
			err := s.Store.AttachDocumentToMessage(ctx, &store.AttachDocument{
				DocumentID:     documentID,
				MessageID:      request.MessageID,
				ConversationID: request.ConversationID,
			})
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to attach document").SetInternal(err)
			}
		}
	} else {
		documentID = randomDocumentID()
	}

	stored, ok := s.MemoryService.StoreDocumentMemory(ctx, &retrieval.DocumentUpload{
		UserID:       userID,
		DocumentID:   documentID,
		Filename:     request.Filename,
		FileType:     request.FileType,
		S3URL:        s3URL,
		IsVetReport:  request.IsVetReport,
		DogProfileID: request.DogProfileID,
		Chunks:       request.Chunks,
	})

	return c.JSON(http.StatusOK, &StoreDocumentMemoryResponse{
		Success:      ok,
		DocumentID:   documentID,
		ChunksStored: stored,
	})
}

func (s *APIV1Service) DeleteConversationMemories(c echo.Context) error {
	if s.MemoryService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory features disabled")
	}

	conversationID, err := strconv.ParseInt(c.Param("conversationID"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed conversation id")
	}
	claimed, _ := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)
	userID, err := s.requestUserID(c, claimed)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ok := s.MemoryService.DeleteConversationMemories(c.Request().Context(), userID, conversationID)
	return c.JSON(http.StatusOK, &StoreMemoryResponse{Success: ok})
}

// DeleteUserMemories drops everything the user owns: vectors in every
// namespace plus the relational document rows. Used on account deletion.
func (s *APIV1Service) DeleteUserMemories(c echo.Context) error {
	if s.MemoryService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory features disabled")
	}

	pathUserID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed user id")
	}
	userID, err := s.requestUserID(c, pathUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if userID != pathUserID {
		return echo.NewHTTPError(http.StatusForbidden, "cannot delete another user's memories")
	}

	ctx := c.Request().Context()
	ok := s.MemoryService.DeleteUserMemories(ctx, userID)

	if s.Store != nil {
		if err := s.Store.DeleteDocuments(ctx, &store.DeleteDocument{UserID: &userID}); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete documents").SetInternal(err)
		}
	}

	return c.JSON(http.StatusOK, &StoreMemoryResponse{Success: ok})
}

type ListConversationDocumentsResponse struct {
	Documents []*store.Document `json:"documents"`
	Count     int               `json:"count"`
}

func (s *APIV1Service) ListConversationDocuments(c echo.Context) error {
	if s.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "document store unavailable")
	}

	conversationID, err := strconv.ParseInt(c.Param("conversationID"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed conversation id")
	}
	claimed, _ := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)
	userID, err := s.requestUserID(c, claimed)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	documents, err := s.Store.FindConversationDocuments(c.Request().Context(), conversationID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list documents").SetInternal(err)
	}

	return c.JSON(http.StatusOK, &ListConversationDocumentsResponse{
		Documents: documents,
		Count:     len(documents),
	})
}

// randomDocumentID synthesizes a positive id for the storeless demo driver.
func randomDocumentID() int64 {
	id := uuid.New()
	return int64(binary.BigEndian.Uint64(id[:8]) >> 1)
}
