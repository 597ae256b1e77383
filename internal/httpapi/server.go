// Package httpapi is the thin HTTP/JSON adapter over the control plane:
// parse a request, call a core function, serialize the result, map
// errors through one status-code table (spec.md §6, design note 9).
// Built on net/http's method+pattern ServeMux, no router dependency —
// matching the teacher's own choice not to pull one in for its simpler
// metrics endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/instance"
	"github.com/cvedix/edge-ai-core/internal/nodepool"
	"github.com/cvedix/edge-ai-core/internal/securt"
	"github.com/cvedix/edge-ai-core/internal/sysconfig"
)

// Server wires the core components to an http.Handler.
type Server struct {
	instances *instance.Manager
	config    *sysconfig.Store
	pool      *nodepool.Pool
	securt    *securt.Manager

	mux *http.ServeMux
}

// NewServer builds a Server with every route registered.
func NewServer(instances *instance.Manager, config *sysconfig.Store, pool *nodepool.Pool, securtMgr *securt.Manager) *Server {
	s := &Server{
		instances: instances,
		config:    config,
		pool:      pool,
		securt:    securtMgr,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the wrapped http.Handler, with CORS preflight and
// access logging applied to every request.
func (s *Server) Handler() http.Handler {
	return withLogging(withCORS(s.mux))
}

// NewHTTPServer builds a ready-to-run *http.Server with the timeouts the
// teacher's own metrics server uses (cmd/pulse/metrics_server.go).
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("http: failed to encode response body")
	}
}

// errorBody is the uniform error shape spec.md §6 requires:
// {"error": "<class>", "message": "<detail>"}.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusForKind is the single status-code table every handler routes
// errors through (spec.md §7, design note 9).
func statusForKind(kind coreerr.Kind) int {
	switch kind {
	case coreerr.InvalidArgument:
		return http.StatusBadRequest
	case coreerr.NotFound:
		return http.StatusNotFound
	case coreerr.Conflict:
		return http.StatusConflict
	case coreerr.AdmissionDenied:
		return http.StatusTooManyRequests
	case coreerr.PreconditionFailed:
		return http.StatusPreconditionFailed
	case coreerr.DependencyUnavailable:
		return http.StatusServiceUnavailable
	case coreerr.TransientIO:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := coreerr.KindOf(err)
	writeJSON(w, statusForKind(kind), errorBody{Error: string(kind), Message: err.Error()})
}

func decodeBody(r *http.Request, dst interface{}) error {
	const op = "httpapi.decodeBody"
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return coreerr.Wrap(op, coreerr.InvalidArgument, "malformed JSON body", err)
	}
	return nil
}

// deadlineContext returns the request's context bounded by a 30-second
// timeout. No handler in this package calls it.
func deadlineContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 30*time.Second)
}
