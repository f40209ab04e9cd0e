package v1

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/retrieval"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
	"github.com/EscobozaEstrada/mrwhite-sub002/internal/profile"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = s.Embed(ctx, texts[i])
	}
	return out, nil
}

func (s stubEmbedder) EmbedContextual(ctx context.Context, chunk, _ string) ([]float32, error) {
	return s.Embed(ctx, chunk)
}

func (stubEmbedder) Dimensions() int { return 3 }

func newTestAPI(secret, mode string) (*APIV1Service, *echo.Echo) {
	testProfile := &profile.Profile{Mode: mode, Driver: "memory"}
	service := &APIV1Service{
		Secret:  secret,
		Profile: testProfile,
		MemoryService: retrieval.NewMemoryService(
			ai.RetrievalConfig{TopK: 10, RerankTopN: 10, Environment: "test"},
			vector.NewMemoryIndex(),
			stubEmbedder{},
			&retrieval.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))},
		),
	}

	echoServer := echo.New()
	service.RegisterRoutes(echoServer)
	return service, echoServer
}

func doJSON(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStoreAndRetrieveMemories(t *testing.T) {
	_, echoServer := newTestAPI("", "demo")

	rec := doJSON(echoServer, http.MethodPost, "/api/v1/memories/conversation",
		`{"user_id": 7, "conversation_id": 3, "message_id": 42, "content": "Bella loved the park today", "role": "user"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var storeResp StoreMemoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &storeResp))
	assert.True(t, storeResp.Success)

	rec = doJSON(echoServer, http.MethodPost, "/api/v1/memories/retrieve",
		`{"user_id": 7, "query": "what did Bella do today"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var retrieveResp RetrieveMemoriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &retrieveResp))
	require.Equal(t, 1, retrieveResp.Count)
	assert.Equal(t, "msg_42", retrieveResp.Memories[0].ID)
}

func TestRetrieveMemories_Validation(t *testing.T) {
	_, echoServer := newTestAPI("", "demo")

	rec := doJSON(echoServer, http.MethodPost, "/api/v1/memories/retrieve", `{"user_id": 7}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(echoServer, http.MethodPost, "/api/v1/memories/retrieve", `{"query": "hello"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "user id required when auth is disabled")
}

func TestStoreConversationMemory_Validation(t *testing.T) {
	_, echoServer := newTestAPI("", "demo")

	rec := doJSON(echoServer, http.MethodPost, "/api/v1/memories/conversation",
		`{"user_id": 7, "message_id": 42}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(echoServer, http.MethodPost, "/api/v1/memories/conversation",
		`{"user_id": 7, "content": "hello"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreDocumentMemory_Storeless(t *testing.T) {
	_, echoServer := newTestAPI("", "demo")

	rec := doJSON(echoServer, http.MethodPost, "/api/v1/memories/document",
		`{"user_id": 7, "filename": "vaccines.pdf", "file_type": "pdf", "is_vet_report": true, "chunks": ["chunk one", "chunk two"]}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp StoreDocumentMemoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.ChunksStored)
	assert.Positive(t, resp.DocumentID)
}

func TestMemoryRoutes_Disabled(t *testing.T) {
	service := &APIV1Service{Profile: &profile.Profile{Mode: "demo"}}
	echoServer := echo.New()
	service.RegisterRoutes(echoServer)

	rec := doJSON(echoServer, http.MethodPost, "/api/v1/memories/retrieve", `{"query": "hello", "user_id": 7}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	_, echoServer := newTestAPI(secret, "prod")

	rec := doJSON(echoServer, http.MethodPost, "/api/v1/memories/retrieve", `{"query": "hello"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(echoServer, http.MethodPost, "/api/v1/memories/retrieve", `{"query": "hello"}`, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	rec = doJSON(echoServer, http.MethodPost, "/api/v1/memories/retrieve", `{"query": "hello"}`, signed)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDeleteUserMemories_ScopedToSelf(t *testing.T) {
	const secret = "test-secret"
	_, echoServer := newTestAPI(secret, "prod")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	rec := doJSON(echoServer, http.MethodDelete, "/api/v1/users/99/memories", "", signed)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(echoServer, http.MethodDelete, "/api/v1/users/7/memories", "", signed)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
