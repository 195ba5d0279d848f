package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kosench/shortlinks/internal/cache"
	"github.com/Kosench/shortlinks/internal/config"
	"github.com/Kosench/shortlinks/internal/database"
	"github.com/Kosench/shortlinks/internal/model"
	"github.com/Kosench/shortlinks/internal/repository"
	"github.com/Kosench/shortlinks/internal/service"
)

func newServiceRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, dialect, err := database.Connect(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := service.NewLinkService(
		repository.NewStore(db, dialect),
		cache.NewMemoryCache(time.Minute, time.Minute),
		zerolog.New(io.Discard),
		service.Options{BaseURL: "http://sho.rt"},
	)

	router := gin.New()
	api := router.Group("/api")
	api.Use(IdentityMiddleware(testSecret))
	NewLinkHandler(svc).RegisterRoutes(api)
	return router
}

func doJSON(router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutes_LinkLifecycle(t *testing.T) {
	router := newServiceRouter(t)
	owner := signToken(t, testSecret, "user-1")
	stranger := signToken(t, testSecret, "user-2")

	w := doJSON(router, http.MethodPost, "/api/links/shorten", owner, map[string]string{
		"original_url": "https://example.com",
		"custom_alias": "abcd",
		"tag_name":     "Docs",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.CreateLinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "abcd", created.ShortCode)
	assert.Equal(t, "http://sho.rt/abcd", created.ShortURL)

	w = doJSON(router, http.MethodPost, "/api/links/shorten", "", map[string]string{
		"original_url": "https://example.org",
		"custom_alias": "abcd",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodGet, "/api/links/abcd", "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))

	w = doJSON(router, http.MethodGet, "/api/links/abcd/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.LinkStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Clicks)
	require.NotNil(t, stats.TagName)
	assert.Equal(t, "Docs", *stats.TagName)
	assert.NotContains(t, w.Body.String(), "owner_id")
	assert.NotContains(t, w.Body.String(), "user-1")

	w = doJSON(router, http.MethodGet, "/api/links/search?original_url=EXAMPLE&tag_name=docs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results []model.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "abcd", results[0].ShortCode)

	w = doJSON(router, http.MethodPut, "/api/links/abcd", stranger, map[string]string{"original_url": "https://evil.example"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPut, "/api/links/abcd", owner, map[string]string{"original_url": "https://example.net"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/links/abcd", "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.net", w.Header().Get("Location"))

	w = doJSON(router, http.MethodDelete, "/api/links/abcd", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/links/abcd", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/links/abcd", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodGet, "/api/links/exp_links", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no inactive links", decodeBody(t, w)["message"])
}
