package container

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-attack-planner/internal/config"
	"go-attack-planner/internal/logger"
	"go-attack-planner/internal/planner/plannertest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testConfig() *config.Config {
	return &config.Config{
		GeminiAPIKey:             "test-key",
		RequestTimeout:           5 * time.Second,
		GenerationTimeout:        5 * time.Second,
		MaxConcurrentGenerations: 2,
		Workers:                  2,
		MaxImageBytes:            1 << 20,
		MaxRequestBodySize:       4 << 20,
		ImageFetchTimeout:        time.Second,
		SessionTTL:               time.Minute,
		LogLevel:                 "error",
	}
}

func TestContainer_WiresHandlerAndStats(t *testing.T) {
	defer goleak.VerifyNone(t)
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)

	c := NewContainerWithModel(testConfig(), &plannertest.Model{Text: plannertest.ValidPlan}, nil)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Sessions struct {
			Sessions int `json:"sessions"`
		} `json:"sessions"`
		Workers struct {
			Workers int `json:"workers"`
		} `json:"workers"`
		Plans map[string]interface{} `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Sessions.Sessions)
	assert.Equal(t, 2, stats.Workers.Workers)
	assert.Contains(t, stats.Plans, "total_plans")

	assert.NotNil(t, c.Plans())
	assert.NotNil(t, c.Resolver())
	assert.Equal(t, "error", c.Config().LogLevel)

	c.Close()
}

func TestNewContainer_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = ""

	_, err := NewContainer(t.Context(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
