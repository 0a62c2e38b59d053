package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/8nevil8/telegram-channel-monitor/config"
	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
	"github.com/8nevil8/telegram-channel-monitor/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

func floatPtr(v float64) *float64 { return &v }

// mockMatchRepository is an in-memory domain.MatchRepository
type mockMatchRepository struct {
	records []domain.MatchRecord
	err     error
}

func (m *mockMatchRepository) Save(ctx context.Context, rec *domain.MatchRecord) error {
	m.records = append(m.records, *rec)
	return nil
}

func (m *mockMatchRepository) Recent(ctx context.Context, limit int) ([]domain.MatchRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > len(m.records) {
		limit = len(m.records)
	}
	return m.records[:limit], nil
}

func testMatcher(t *testing.T) *usecase.MatcherService {
	t.Helper()
	matcher, errs := usecase.NewMatcherService(
		[]domain.Product{
			{
				Name:       "iPhone 13",
				Keywords:   []string{"iphone"},
				PriceRange: &domain.PriceRange{Max: floatPtr(700)},
			},
		},
		usecase.DefaultPricePatterns(),
		domain.NumberFormat{},
		usecase.MatcherConfig{Matching: domain.MatchingConfig{RegexEnabled: true}},
	)
	if len(errs) != 0 {
		t.Fatalf("unexpected compile errors: %v", errs)
	}
	return matcher
}

// setupTestRouter creates a test router with default configuration
func setupTestRouter(t *testing.T, repo domain.MatchRepository) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		RateLimit: config.RateLimitConfig{PerIP: 0},
	}

	return SetupRouter(cfg, NewHandler(testMatcher(t), repo))
}

func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "telegram-channel-monitor" {
			t.Errorf("service = %v, want telegram-channel-monitor", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestMatchEndpoint(t *testing.T) {
	t.Run("returns matches for a matching text", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		payload := `{"text":"iPhone 13 Pro, цена 450€"}`
		req, _ := http.NewRequest("POST", "/api/v1/match", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
		}

		var response struct {
			Matches []domain.MatchResult `json:"matches"`
			Count   int                  `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response.Count != 1 {
			t.Fatalf("count = %d, want 1", response.Count)
		}
		match := response.Matches[0]
		if match.ProductName != "iPhone 13" {
			t.Errorf("productName = %q, want %q", match.ProductName, "iPhone 13")
		}
		if match.Price == nil || *match.Price != 450 {
			t.Errorf("price = %v, want 450", match.Price)
		}
		if match.Currency != "€" {
			t.Errorf("currency = %q, want €", match.Currency)
		}
	})

	t.Run("returns empty list for no matches", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		payload := `{"text":"selling a samsung"}`
		req, _ := http.NewRequest("POST", "/api/v1/match", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["count"] != float64(0) {
			t.Errorf("count = %v, want 0", response["count"])
		}
		if response["matches"] == nil {
			t.Error("matches must be an empty array, not null")
		}
	})

	t.Run("returns 400 for missing text", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		payload := `{"other":"field"}`
		req, _ := http.NewRequest("POST", "/api/v1/match", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["error"] != domain.ErrInvalidRequest.Error() {
			t.Errorf("error = %v, want %q", response["error"], domain.ErrInvalidRequest.Error())
		}
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		req, _ := http.NewRequest("POST", "/api/v1/match", strings.NewReader(`{invalid json}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestRecentMatchesEndpoint(t *testing.T) {
	t.Run("returns persisted matches", func(t *testing.T) {
		price := 450.0
		repo := &mockMatchRepository{records: []domain.MatchRecord{
			{
				ID:          1,
				Timestamp:   time.Now().UTC(),
				ProductName: "iPhone 13",
				Price:       &price,
				Currency:    "€",
			},
		}}
		router := setupTestRouter(t, repo)

		req, _ := http.NewRequest("GET", "/api/v1/matches", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response struct {
			Matches []domain.MatchRecord `json:"matches"`
			Count   int                  `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response.Count != 1 || response.Matches[0].ProductName != "iPhone 13" {
			t.Errorf("unexpected response: %+v", response)
		}
	})

	t.Run("honors the limit parameter", func(t *testing.T) {
		repo := &mockMatchRepository{}
		for i := 0; i < 10; i++ {
			repo.records = append(repo.records, domain.MatchRecord{ID: int64(i), ProductName: "iPhone 13"})
		}
		router := setupTestRouter(t, repo)

		req, _ := http.NewRequest("GET", "/api/v1/matches?limit=3", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["count"] != float64(3) {
			t.Errorf("count = %v, want 3", response["count"])
		}
	})

	t.Run("rejects a malformed limit", func(t *testing.T) {
		router := setupTestRouter(t, &mockMatchRepository{})

		for _, limit := range []string{"abc", "0", "-5", "9999"} {
			req, _ := http.NewRequest("GET", "/api/v1/matches?limit="+limit, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("limit=%s: Status = %d, want %d", limit, w.Code, http.StatusBadRequest)
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("limit=%s: failed to unmarshal response: %v", limit, err)
			}
			if response["error"] != domain.ErrInvalidRequest.Error() {
				t.Errorf("limit=%s: error = %v, want %q", limit, response["error"], domain.ErrInvalidRequest.Error())
			}
		}
	})

	t.Run("returns 503 when persistence is disabled", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		req, _ := http.NewRequest("GET", "/api/v1/matches", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})

	t.Run("returns 500 on repository failure", func(t *testing.T) {
		router := setupTestRouter(t, &mockMatchRepository{err: domain.ErrStoreUnavailable})

		req, _ := http.NewRequest("GET", "/api/v1/matches", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// Gin's default recovery returns 500
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	router := setupTestRouter(t, nil)

	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"POST", "/api/v1/match"},
		{"GET", "/api/v1/matches"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter(t, &mockMatchRepository{})

			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
