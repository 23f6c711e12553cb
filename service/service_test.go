package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"latidos/config"
	"latidos/gemini"
	"latidos/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		AllowedOrigins:     []string{"*"},
		StoreBackend:       "memory",
		LLMProvider:        "stub",
		AITimeout:          time.Second,
		CityName:           "Iquique, Chile",
		CityLat:            -20.2139,
		CityLng:            -70.1525,
		RateLimitPerMinute: 60,
		RateLimitBurst:     10,
		SessionTTL:         time.Hour,
	}
}

func TestNewServiceServesState(t *testing.T) {
	svc, err := NewService(context.Background(), testConfig())
	require.NoError(t, err)
	defer svc.Close()

	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.SessionHeader))
}

func TestNewServiceLoadsSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`reports:
  - id: post_a
    type: FOUND
    user_id: u1
    user_name: Ana
    photo_url: https://example.com/a.jpg
    breed: Poodle
    color: Blanco
    size: Pequeño
    description: Encontrado en la plaza.
    location: {lat: -20.21, lng: -70.15}
`), 0o644))

	cfg := testConfig()
	cfg.SeedFile = path
	svc, err := NewService(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestNewServiceRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.StoreBackend = "redis"
	_, err := NewService(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewGeneratorWithoutKeyDisablesChat(t *testing.T) {
	cfg := testConfig()
	cfg.LLMProvider = "gemini"

	gen, chat := newGenerator(context.Background(), cfg)
	assert.False(t, chat)
	assert.IsType(t, gemini.Disabled{}, gen)
}

func TestRunStopsWithContext(t *testing.T) {
	svc, err := NewService(context.Background(), testConfig())
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
