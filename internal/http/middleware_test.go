package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/prediction-service/internal/observability"
	"github.com/kjstillabower/prediction-service/internal/validation"
)

func TestMiddleware_CorrelationIDGenerated(t *testing.T) {
	resetState(t)
	router := newSumRouter(t, validation.WaterUsage, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID header missing")
	}
}

func TestMiddleware_CorrelationIDPropagated(t *testing.T) {
	var seen string
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.HandleFunc("/probe", func(w http.ResponseWriter, r *http.Request) {
		seen = observability.CorrelationID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Correlation-ID", "client-provided-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "client-provided-id" {
		t.Errorf("X-Correlation-ID = %q, want client-provided-id", got)
	}
	if seen != "client-provided-id" {
		t.Errorf("context correlation ID = %q, want client-provided-id", seen)
	}
}

// TestMiddleware_CORSPreflight verifies that an OPTIONS preflight on /predict is answered
// with 204 and the CORS headers, without invoking the prediction handler.
func TestMiddleware_CORSPreflight(t *testing.T) {
	resetState(t)
	router := newSumRouter(t, validation.WaterUsage, nil)

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "https://dashboard.example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("OPTIONS /predict status = %d, want 204", w.Code)
	}
	h := w.Header()
	if got := h.Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.org" {
		t.Errorf("Allow-Origin = %q, want request origin", got)
	}
	if h.Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Allow-Credentials not set")
	}
	if h.Get("Access-Control-Allow-Methods") != "POST" {
		t.Errorf("Allow-Methods = %q, want POST", h.Get("Access-Control-Allow-Methods"))
	}
	if h.Get("Access-Control-Allow-Headers") != "Content-Type" {
		t.Errorf("Allow-Headers = %q, want Content-Type", h.Get("Access-Control-Allow-Headers"))
	}
	if w.Body.Len() != 0 {
		t.Errorf("preflight body = %q, want empty", w.Body.String())
	}
}

func TestMiddleware_CORSActualRequest(t *testing.T) {
	resetState(t)
	router := newSumRouter(t, validation.WaterUsage, nil)

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"daily_water_usage": 100, "population": 1000000}`))
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST /predict status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want http://localhost:3000", got)
	}
	if w.Header().Get("Access-Control-Allow-Methods") != "" {
		t.Error("Allow-Methods set on non-preflight request")
	}
}

func TestMiddleware_CORSDisallowedOrigin(t *testing.T) {
	handler := CORSMiddleware(CORSConfig{AllowedOrigins: []string{"https://allowed.example.org"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	req := httptest.NewRequest(http.MethodGet, "/model", nil)
	req.Header.Set("Origin", "https://other.example.org")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/model", nil)
	req.Header.Set("Origin", "https://ALLOWED.example.org")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://ALLOWED.example.org" {
		t.Errorf("Allow-Origin = %q, want case-insensitive match echoed", got)
	}
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := TimeoutMiddleware(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/predict", nil))

	if !ok {
		t.Fatal("request context has no deadline")
	}
	if time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("deadline %v too far in the future", deadline)
	}
}

func TestGetRoute(t *testing.T) {
	var route string
	router := mux.NewRouter()
	router.HandleFunc("/model", func(w http.ResponseWriter, r *http.Request) {
		route = getRoute(r)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/model", nil))
	if route != "/model" {
		t.Errorf("getRoute() = %q, want /model", route)
	}

	unrouted := httptest.NewRequest(http.MethodGet, "/nope", nil).WithContext(context.Background())
	if got := getRoute(unrouted); got != "unmatched" {
		t.Errorf("getRoute() = %q, want unmatched", got)
	}
}

func TestStatusCodeString(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 413: "4xx", 422: "4xx", 503: "5xx"}
	for code, want := range tests {
		if got := statusCodeString(code); got != want {
			t.Errorf("statusCodeString(%d) = %q, want %q", code, got, want)
		}
	}
}
