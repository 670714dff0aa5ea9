package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/nimbus-retail/kioskd/internal/config"
	"github.com/nimbus-retail/kioskd/internal/model"
	"github.com/nimbus-retail/kioskd/internal/pricing"
	"github.com/nimbus-retail/kioskd/internal/standby"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubChecker struct {
	product *model.Product
	err     error
}

func (s *stubChecker) Check(_ context.Context, code string) (*model.Product, error) {
	if err := pricing.ValidateCode(code); err != nil {
		return nil, err
	}
	return s.product, s.err
}

func testRouter(t *testing.T, checker PriceChecker) *gin.Engine {
	t.Helper()
	engine := standby.New(standby.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go engine.Run(ctx)

	cfg := &config.Config{RateLimitRequests: 100, RateLimitWindow: time.Minute}
	return NewRouter(checker, engine, cfg)
}

func TestCheckPriceSuccess(t *testing.T) {
	router := testRouter(t, &stubChecker{product: &model.Product{Description: "ARROZ 1KG"}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/price?code=123456", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var product model.Product
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, "ARROZ 1KG", product.Description)
}

func TestCheckPriceInvalidCode(t *testing.T) {
	router := testRouter(t, &stubChecker{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/price?code=drop-table", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid code parameter")
}

func TestCheckPriceNotFound(t *testing.T) {
	router := testRouter(t, &stubChecker{err: pricing.ErrNotFound})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/price?code=999999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Product not found")
}

func TestCurrentViewEndpoint(t *testing.T) {
	router := testRouter(t, &stubChecker{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/standby/view", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var view standby.View
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.Active)
	assert.Nil(t, view.Main)
}

func TestCrossOriginRequestsAllowed(t *testing.T) {
	router := testRouter(t, &stubChecker{product: &model.Product{}})

	req := httptest.NewRequest(http.MethodGet, "/api/price?code=123456", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	// preflight
	req = httptest.NewRequest(http.MethodOptions, "/api/price", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(2, time.Second)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))

	// other clients have their own window
	assert.True(t, rl.allow("10.0.0.2"))

	// window expiry resets the count
	now = now.Add(2 * time.Second)
	assert.True(t, rl.allow("10.0.0.1"))
}

func TestRateLimiterPrunesStaleRecords(t *testing.T) {
	rl := newRateLimiter(5, time.Second)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		assert.True(t, rl.allow(ip))
	}
	assert.Len(t, rl.records, 3)

	// lapsed windows are swept, not kept for every client ever seen
	now = now.Add(2 * time.Second)
	assert.True(t, rl.allow("10.0.0.9"))
	assert.Len(t, rl.records, 1)
}

func TestRateLimitedEndpoint(t *testing.T) {
	engine := standby.New(standby.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go engine.Run(ctx)

	cfg := &config.Config{RateLimitRequests: 1, RateLimitWindow: time.Minute}
	router := NewRouter(&stubChecker{product: &model.Product{}}, engine, cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/price?code=1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/price?code=1", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
