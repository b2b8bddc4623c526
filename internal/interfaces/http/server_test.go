package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/infrastructure/kv"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/interfaces/http/routes"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/session"
	"github.com/your-org/storefront/internal/viewer"
	"golang.org/x/text/language"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeQuotes struct {
	err error
}

func (f fakeQuotes) GenerateQuote(c *cart.CartResponse) (*bytes.Buffer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return bytes.NewBufferString("%PDF-1.4 " + c.SessionID), nil
}

type testServer struct {
	*Server
	hub    *viewer.Hub
	cookie *http.Cookie
}

func newTestServer(t *testing.T, quotes handlers.QuoteGenerator) *testServer {
	t.Helper()
	log := logger.Discard()

	cfg := &config.Config{
		App:    config.AppConfig{Name: "Storefront", Version: "test", Environment: "test"},
		Server: config.ServerConfig{Port: "0", RequestTimeout: 5 * time.Second},
		Storage: config.StorageConfig{
			Driver: config.StorageMemory,
		},
		Session: config.SessionConfig{
			Secret:     "test-secret-that-is-long-enough-for-hs256",
			TokenTTL:   time.Hour,
			CookieName: "sf_session",
		},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: []string{"http://localhost:5173"},
			CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		},
	}

	catalog, err := product.Default()
	require.NoError(t, err)

	store := kv.NewMemoryStore(0)
	repo := cart.NewRepository(store, "test:", log)
	engine := pricing.NewEngine(decimal.NewFromInt(100), decimal.RequireFromString("9.99"))
	hub := viewer.NewHub(viewer.HubOptions{}, log)
	t.Cleanup(hub.CloseAll)

	deps := routes.Dependencies{
		Config:   cfg,
		Products: product.NewService(catalog, language.French, log),
		Carts:    cart.NewService(catalog, repo, engine, nil, log),
		Quotes:   quotes,
		Sessions: session.NewManager(cfg.Session, "storefront"),
		Viewer:   hub,
		Log:      log,
	}

	srv, err := NewServer(cfg, deps, store, middleware.NewMemoryLimiter(), log)
	require.NoError(t, err)
	return &testServer{Server: srv, hub: hub}
}

// do sends a request carrying the session cookie, keeping any cookie the server issues
func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ts.cookie != nil {
		req.AddCookie(ts.cookie)
	}

	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == "sf_session" {
			ts.cookie = c
		}
	}

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	w, body := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["storage"])

	w, body = ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Nil(t, ts.cookie, "health endpoints do not start sessions")
}

func TestProductListPersistsPreferences(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	w, body := ts.do(t, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, ts.cookie)
	assert.EqualValues(t, 2, data(t, body)["total"])

	w, body = ts.do(t, http.MethodGet, "/api/v1/products?q=SMARTPHONE&sort=price_desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, data(t, body)["total"])
	prefs := body["prefs"].(map[string]any)
	assert.Equal(t, "SMARTPHONE", prefs["q"])
	assert.Equal(t, "price_desc", prefs["sort"])

	// no parameters: the saved filter applies again
	_, body = ts.do(t, http.MethodGet, "/api/v1/products", nil)
	assert.EqualValues(t, 1, data(t, body)["total"])

	_, body = ts.do(t, http.MethodGet, "/api/v1/prefs", nil)
	assert.Equal(t, "SMARTPHONE", data(t, body)["q"])

	w, body = ts.do(t, http.MethodPut, "/api/v1/prefs", map[string]any{"q": "", "sort": "name_asc"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ALL", data(t, body)["category"])

	_, body = ts.do(t, http.MethodGet, "/api/v1/products", nil)
	assert.EqualValues(t, 2, data(t, body)["total"])
}

func TestProductListRejectsBadBounds(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	w, _ := ts.do(t, http.MethodGet, "/api/v1/products?min_price=cheap", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductDetailAndCategories(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	w, body := ts.do(t, http.MethodGet, "/api/v1/products/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ordinateur Gaming Pro", data(t, body)["name"])

	w, _ = ts.do(t, http.MethodGet, "/api/v1/products/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = ts.do(t, http.MethodGet, "/api/v1/products/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["data"])
}

func TestPriceBreakdown(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	w, body := ts.do(t, http.MethodPost, "/api/v1/products/1/price", map[string]any{
		"selected_parts":   []string{"cpu-1", "gpu-1"},
		"selected_options": []string{"warranty-1"},
		"quantity":         2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	breakdown := data(t, body)
	assert.Equal(t, "2596", breakdown["unit_price"])
	assert.Equal(t, "5192", breakdown["line_total"])
	assert.EqualValues(t, 2, breakdown["quantity"])
}

func TestToggleSelection(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	w, body := ts.do(t, http.MethodPost, "/api/v1/products/1/selection/options/rgb-1", map[string]any{
		"selected_parts":   []string{"cpu-1"},
		"selected_options": []string{},
	})
	require.Equal(t, http.StatusOK, w.Code)
	sel := data(t, body)["selection"].(map[string]any)
	assert.Equal(t, []any{"rgb-1"}, sel["selected_options"])
	assert.Equal(t, []any{"cpu-1"}, sel["selected_parts"])

	w, body = ts.do(t, http.MethodPost, "/api/v1/products/1/selection/parts/cpu-1", map[string]any{
		"selected_parts": []string{"cpu-1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	sel = data(t, body)["selection"].(map[string]any)
	assert.Empty(t, sel["selected_parts"])
}

func TestCartFlow(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	w, body := ts.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"product_id":       "2",
		"quantity":         1,
		"selected_options": []string{"color-1"},
	})
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.EqualValues(t, 1, data(t, body)["count"])

	w, body = ts.do(t, http.MethodPut, "/api/v1/cart/items/2", map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, data(t, body)["count"])

	_, body = ts.do(t, http.MethodGet, "/api/v1/cart/count", nil)
	assert.EqualValues(t, 3, data(t, body)["count"])

	w, body = ts.do(t, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	totals := data(t, body)["totals"].(map[string]any)
	assert.Equal(t, "0", totals["shipping_cost"])
	assert.Equal(t, true, totals["free_shipping"])

	w, body = ts.do(t, http.MethodDelete, "/api/v1/cart/items/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, data(t, body)["count"])

	w, _ = ts.do(t, http.MethodDelete, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartAddErrors(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	w, _ := ts.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartsAreScopedToSessions(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	ts.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "1"})
	_, body := ts.do(t, http.MethodGet, "/api/v1/cart/count", nil)
	assert.EqualValues(t, 1, data(t, body)["count"])

	ts.cookie = nil
	_, body = ts.do(t, http.MethodGet, "/api/v1/cart/count", nil)
	assert.EqualValues(t, 0, data(t, body)["count"])
}

func TestQuoteDownload(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	w, _ := ts.do(t, http.MethodGet, "/api/v1/cart/quote.pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "1"})
	w, _ = ts.do(t, http.MethodGet, "/api/v1/cart/quote.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "devis-")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestQuoteDownloadFailure(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{err: errors.New("wkhtmltopdf missing")})

	ts.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "1"})
	w, body := ts.do(t, http.MethodGet, "/api/v1/cart/quote.pdf", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to generate quote", body["error"])
}

func TestViewerEndpoints(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})

	w, _ := ts.do(t, http.MethodGet, "/api/v1/viewer/v1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := ts.do(t, http.MethodPost, "/api/v1/viewer/v1/events", map[string]any{
		"type":       "load",
		"product_id": "1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", data(t, body)["product_id"])

	w, _ = ts.do(t, http.MethodPost, "/api/v1/viewer/v1/events", map[string]any{"type": "explode"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = ts.do(t, http.MethodPost, "/api/v1/viewer/v1/events", map[string]any{"type": "view-mode", "mode": "image"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image", data(t, body)["view_mode"])

	w, _ = ts.do(t, http.MethodDelete, "/api/v1/viewer/v1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(t, http.MethodDelete, "/api/v1/viewer/v1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestViewerWebSocket(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/viewer/v2/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var initial viewer.Message
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, "v2", initial.Snapshot.SessionID)
	assert.Nil(t, initial.Event)

	require.NoError(t, conn.WriteJSON(viewer.Event{Kind: viewer.EventViewMode, Mode: viewer.ViewModeImage}))

	var update viewer.Message
	require.NoError(t, conn.ReadJSON(&update))
	require.NotNil(t, update.Event)
	assert.Equal(t, viewer.EventViewMode, update.Event.Kind)
	assert.Equal(t, viewer.ViewModeImage, update.Snapshot.ViewMode)

	// closing the session ends the stream
	assert.True(t, ts.hub.Close("v2"))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestViewerWebSocketRejectsForeignOrigin(t *testing.T) {
	ts := newTestServer(t, fakeQuotes{})
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/viewer/v3/ws"
	header := http.Header{"Origin": []string{"https://attacker.test"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, ts.hub.Len(), "rejected handshake creates no viewer session")
}

func TestViewerSessionCapReturnsUnavailable(t *testing.T) {
	log := logger.Discard()
	hub := viewer.NewHub(viewer.HubOptions{MaxSessions: 1}, log)
	defer hub.CloseAll()

	h := handlers.NewViewerHandler(hub, nil, log)
	router := gin.New()
	router.POST("/viewer/:session/events", h.EmitEvent)
	router.GET("/viewer/:session/ws", h.Stream)

	emit := func(id string) int {
		req := httptest.NewRequest(http.MethodPost, "/viewer/"+id+"/events",
			strings.NewReader(`{"type":"view-mode","mode":"3d"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, emit("first"))
	assert.Equal(t, http.StatusServiceUnavailable, emit("second"))
	assert.Equal(t, http.StatusOK, emit("first"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/viewer/second/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 1, hub.Len())
}
