package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/prediction-service/internal/observability"
)

// RouterConfig holds the per-route settings for NewRouter.
type RouterConfig struct {
	RequestTimeout time.Duration
	CORS           CORSConfig
}

// NewRouter wires handler routes and middleware. Every route also accepts OPTIONS so
// CORS preflights reach CORSMiddleware.
func NewRouter(handler *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(CORSMiddleware(cfg.CORS))
	router.HandleFunc("/health", handler.GetHealth).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/model", handler.GetModel).Methods(http.MethodGet, http.MethodOptions)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	predictRouter := router.Path("/predict").Subrouter()
	if cfg.RequestTimeout > 0 {
		predictRouter.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	predictRouter.Methods(http.MethodPost, http.MethodOptions).HandlerFunc(handler.PostPredict)

	// mux skips router middleware for unmatched requests, so the fallbacks wrap their own
	unmatched := func(h http.HandlerFunc) http.Handler {
		return CorrelationIDMiddleware(logger)(MetricsMiddleware(h))
	}
	router.NotFoundHandler = unmatched(notFound)
	router.MethodNotAllowedHandler = unmatched(methodNotAllowed)
	return router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed on "+r.URL.Path)
}
