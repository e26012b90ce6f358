package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// envelopeRouter answers every route with fail(status, code, msg) behind a
// fake request-id + request-logger middleware writing into buf.
func envelopeRouter(buf *bytes.Buffer, status int, code, msg string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	lg := zerolog.New(buf).Level(zerolog.DebugLevel)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		c.Set("logger", &lg)
		c.Next()
	})
	h := func(c *gin.Context) { fail(c, status, code, msg) }
	r.GET("/x", h)
	r.POST("/x", h)
	return r
}

func TestFail_Envelope(t *testing.T) {
	cases := []struct {
		name      string
		method    string
		status    int
		code, msg string
		wantLog   string
	}{
		{"persist failure", http.MethodPost, http.StatusInternalServerError, ErrCodePersistFailed, "We could not save your order.", `"level":"error"`},
		{"rejected update", http.MethodPost, http.StatusConflict, ErrCodeCartEmpty, "Your cart is empty.", `"update rejected"`},
		{"read miss", http.MethodGet, http.StatusNotFound, ErrCodeNotFound, "order not found", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := httptest.NewRecorder()
			envelopeRouter(&buf, tc.status, tc.code, tc.msg).ServeHTTP(w, httptest.NewRequest(tc.method, "/x", nil))

			if w.Code != tc.status {
				t.Fatalf("status = %d", w.Code)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if er != (ErrorResponse{RequestID: "rid-1", Code: tc.code, Message: tc.msg}) {
				t.Fatalf("envelope = %+v", er)
			}
			switch {
			case tc.wantLog == "" && buf.Len() != 0:
				t.Fatalf("unexpected log: %s", buf.String())
			case tc.wantLog != "" && !strings.Contains(buf.String(), tc.wantLog):
				t.Fatalf("log %q missing from %s", tc.wantLog, buf.String())
			}
		})
	}
}

func TestFail_StopsChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	reached := false
	r.GET("/orders/:phone",
		func(c *gin.Context) { Fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone required") },
		func(c *gin.Context) { reached = true },
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/x", nil))
	if w.Code != http.StatusBadRequest || reached {
		t.Fatalf("Fail must abort: code=%d reached=%v", w.Code, reached)
	}
}

func TestOK_WritesBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/catalog", func(c *gin.Context) {
		ok(c, http.StatusOK, CatalogResponse{})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"categories"`) {
		t.Fatalf("ok: %d %s", w.Code, w.Body.String())
	}
}

func TestNotModified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newest := time.Unix(0, 42)
	r := gin.New()
	r.GET("/orders", func(c *gin.Context) {
		if notModified(c, "orders", 3, &newest, 2, 20) {
			return
		}
		c.String(http.StatusOK, "fresh")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || etag != `W/"orders:3:42:2:20"` {
		t.Fatalf("first: %d %q", w.Code, etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("revalidation: %d %q", w.Code, w.Body.String())
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	notModified(c, "orders", 0, nil)
	if got := c.Writer.Header().Get("ETag"); got != `W/"orders:0:0"` {
		t.Fatalf("empty table etag = %q", got)
	}
}

func TestPageOf(t *testing.T) {
	cases := []struct {
		page, size int
		total      int64
		want       Pagination
	}{
		{1, 20, 0, Pagination{Page: 1, PageSize: 20}},
		{1, 20, 20, Pagination{Page: 1, PageSize: 20, Total: 20, TotalPages: 1}},
		{1, 20, 21, Pagination{Page: 1, PageSize: 20, Total: 21, TotalPages: 2, HasNext: true}},
		{2, 20, 21, Pagination{Page: 2, PageSize: 20, Total: 21, TotalPages: 2}},
	}
	for _, tc := range cases {
		if got := pageOf(tc.page, tc.size, tc.total); got != tc.want {
			t.Errorf("pageOf(%d, %d, %d) = %+v", tc.page, tc.size, tc.total, got)
		}
	}
}
