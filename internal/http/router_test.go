package httpapi

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-order-bot/internal/cart"
	"github.com/tbourn/go-order-bot/internal/catalog"
	"github.com/tbourn/go-order-bot/internal/config"
	"github.com/tbourn/go-order-bot/internal/http/handlers"
	"github.com/tbourn/go-order-bot/internal/http/middleware"
	"github.com/tbourn/go-order-bot/internal/repo"
	"github.com/tbourn/go-order-bot/internal/services"
	"github.com/tbourn/go-order-bot/internal/transport"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   10,
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

// newRouter wires the real stack over an in-memory database.
func newRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	cat := catalog.Default()
	store := repo.NewSQLOrderStore(db)
	mail := transport.NewMailbox(db, "staff", "kitchen", "admin")
	e := &services.Engine{
		Catalog:       cat,
		Cart:          &services.CartService{Catalog: cat, Carts: cart.New()},
		Orders:        store,
		Notify:        &services.Notifier{Transport: mail, StaffChat: "staff", KitchenChat: "kitchen", AdminChat: "admin"},
		OperatorChats: []string{"staff", "admin"},
	}
	h := handlers.New(handlers.Deps{Bot: e, Mailbox: mail, Orders: store, Catalog: cat, DB: db})

	r := gin.New()
	RegisterRoutes(r, db, h, cfg)
	return r, db
}

func TestRegisterRoutes_Operational(t *testing.T) {
	r, _ := newRouter(t, testConfig())

	cases := []struct {
		method, path string
		status       int
		header       string
		headerValue  string
	}{
		{http.MethodGet, "/health", http.StatusOK, "Access-Control-Allow-Origin", "*"},
		{http.MethodGet, "/health", http.StatusOK, "Cache-Control", "no-store"},
		{http.MethodGet, "/api/v1/catalog", http.StatusOK, "X-Content-Type-Options", "nosniff"},
		{http.MethodGet, "/api/v1/chats", http.StatusOK, "", ""},
		{http.MethodGet, "/nope", http.StatusNotFound, "", ""},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed, "", ""},
		{http.MethodGet, "/swagger/index.html", http.StatusNotFound, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			if tc.header != "" && w.Header().Get(tc.header) != tc.headerValue {
				t.Fatalf("%s = %q, want %q", tc.header, w.Header().Get(tc.header), tc.headerValue)
			}
			if w.Code >= 400 {
				var er handlers.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code == "" || er.RequestID == "" {
					t.Fatalf("error envelope: %v %s", err, w.Body.String())
				}
			}
		})
	}
}

func TestRegisterRoutes_MetricsExposed(t *testing.T) {
	r, _ := newRouter(t, testConfig())
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "orderbot_http_requests_total") {
		t.Fatalf("metrics: %d %.300s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_CORSOriginList(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"https://shop.example"}}
	r, _ := newRouter(t, cfg)

	for origin, want := range map[string]string{
		"https://shop.example": "https://shop.example",
		"https://evil.example": "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %s: ACAO = %q, want %q", origin, got, want)
		}
	}
}

func TestRegisterRoutes_SwaggerEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ := newRouter(t, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/chats/{id}/updates") {
		t.Fatalf("swagger doc: %d %.200s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_UpdateThroughFullStack(t *testing.T) {
	r, _ := newRouter(t, testConfig())

	post := func(key string) *httptest.ResponseRecorder {
		body := `{"action":{"kind":"add_item","item":"Пицца Маргарита"}}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/42/updates", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderIdempotencyKey, key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("k-1")
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if w = post("k-1"); w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("second post must replay: %d %v", w.Code, w.Header())
	}
	if w = post("bad key!"); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed key: %d", w.Code)
	}

	// Gzip on the API group.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/42/messages", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("messages: %d encoding=%q", w.Code, w.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	raw, _ := io.ReadAll(zr)
	var page handlers.ListMessagesResponse
	if err := json.Unmarshal(raw, &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Pagination.Total != 2 {
		t.Fatalf("a replay must not log twice: total=%d", page.Pagination.Total)
	}
}

func TestRegisterRoutes_RateLimitPerChat(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r, _ := newRouter(t, cfg)

	post := func(chat string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/"+chat+"/updates", strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if post("a") != http.StatusOK || post("b") != http.StatusOK {
		t.Fatalf("first update per chat must pass")
	}
	if code := post("a"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
}

func TestRegisterRoutes_IdempotencyLookupError(t *testing.T) {
	r, db := newRouter(t, testConfig())

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()

	// Lookup errors are ignored; the request proceeds and fails on its own.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/health", bytes.NewBufferString("{}"))
	req.Header.Set(middleware.HeaderIdempotencyKey, "force-error")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestPipeline_HSTSOnlyOverHTTPS(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}
	r, _ := newRouter(t, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !strings.HasPrefix(w.Header().Get("Strict-Transport-Security"), "max-age=3600") {
		t.Fatalf("HSTS = %q", w.Header().Get("Strict-Transport-Security"))
	}
}
