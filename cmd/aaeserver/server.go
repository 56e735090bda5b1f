package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/isle-project/aae/internal/aae/depcache"
	"github.com/isle-project/aae/internal/aae/engine"
	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/isle-project/aae/internal/aae/policy"
	"github.com/isle-project/aae/internal/aae/rules"
	"github.com/isle-project/aae/internal/aae/store"
	"github.com/isle-project/aae/internal/aaelog"
	"github.com/isle-project/aae/internal/concurrency"
)

// server bundles the engine, dependency cache, and store behind the
// gorilla/mux router.
type server struct {
	cfg    *Config
	store  *store.MemStore
	engine *engine.Engine
	cache  *depcache.Cache
	router *mux.Router
}

func newServer(cfg *Config) *server {
	st := store.NewMemStore()
	s := &server{
		cfg:    cfg,
		store:  st,
		engine: engine.New(st, rules.NewRegistry(), engine.WithMaxConcurrency(cfg.MaxConcurrency)),
		cache:  depcache.New(),
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *server) routes() {
	s.router.HandleFunc("/compute", s.handleCompute).Methods(http.MethodPost)
	s.router.HandleFunc("/auto-computes", s.handleUpdateAutoComputes).Methods(http.MethodPost)
	s.router.HandleFunc("/auto-computes/batch", s.handleUpdateAutoComputesBatch).Methods(http.MethodPost)
	s.router.HandleFunc("/debug/plans", s.handleDebugPlans).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Use(requestIDMiddleware)
}

// requestIDMiddleware stamps every request with a UUID, returned in the
// X-Request-Id response header and logged at debug level with the
// request path when the request is received.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		level.Debug(aaelog.Logger).Log("msg", "request received", "request_id", id, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *server) ListenAndServe() error {
	return http.ListenAndServe(s.cfg.HTTPListenAddr, s.router)
}

// computeRequest is the wire shape for a compute call: entity, metric,
// user list, and policy overrides.
type computeRequest struct {
	EntityID instance.EntityID `json:"entityId"`
	Metric   metric.Metric     `json:"metric"`
	Users    []instance.UserID `json:"users"`
	Options  policy.Options    `json:"options"`
}

func (s *server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.engine.Compute(r.Context(), req.EntityID, req.Metric, req.Users, req.Options)
	if err != nil {
		level.Error(aaelog.Logger).Log("msg", "compute failed", "entity", req.EntityID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, out)
}

// autoComputesRequest is the wire shape for a dependency-cache update:
// one user's new event at a (lessonId, componentMetric), optionally
// scoped to a namespace.
type autoComputesRequest struct {
	User            instance.UserID   `json:"user"`
	ComponentMetric string            `json:"componentMetric"`
	LessonID        instance.EntityID `json:"lessonId"`
	NamespaceID     instance.EntityID `json:"namespaceId,omitempty"`
}

func (s *server) handleUpdateAutoComputes(w http.ResponseWriter, r *http.Request) {
	var req autoComputesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	usr, err := depcache.UpdateAutoComputes(r.Context(), s.cache, s.store, s.store, s.engine, req.User, req.ComponentMetric, req.LessonID, req.NamespaceID)
	if err != nil {
		level.Error(aaelog.Logger).Log("msg", "updateAutoComputes failed", "user", req.User, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, usr)
}

// autoComputesBatchRequest extends autoComputesRequest to a list of
// users, for admin tooling that needs to re-run auto-computes for a
// whole roster after a bulk metric-configuration change.
type autoComputesBatchRequest struct {
	Users           []instance.UserID `json:"users"`
	ComponentMetric string            `json:"componentMetric"`
	LessonID        instance.EntityID `json:"lessonId"`
	NamespaceID     instance.EntityID `json:"namespaceId,omitempty"`
}

type autoComputesBatchResult struct {
	User   instance.UserID `json:"user"`
	Err    string          `json:"error,omitempty"`
	Result store.User      `json:"result,omitempty"`
}

// handleUpdateAutoComputesBatch fans UpdateAutoComputes out across
// req.Users, bounded by s.cfg.MaxConcurrency so a large roster can't
// open one goroutine (and one store round-trip) per user at once:
// Add blocks until a slot frees up rather than queuing unboundedly.
func (s *server) handleUpdateAutoComputesBatch(w http.ResponseWriter, r *http.Request) {
	var req autoComputesBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(req.Users) == 0 {
		writeJSON(w, []autoComputesBatchResult{})
		return
	}

	results := make([]autoComputesBatchResult, len(req.Users))
	bg := concurrency.New(uint(s.cfg.MaxConcurrency))

	for i, user := range req.Users {
		bg.Add(1)
		go func(i int, user instance.UserID) {
			defer bg.Done()
			usr, err := depcache.UpdateAutoComputes(r.Context(), s.cache, s.store, s.store, s.engine, user, req.ComponentMetric, req.LessonID, req.NamespaceID)
			if err != nil {
				level.Error(aaelog.Logger).Log("msg", "batch updateAutoComputes failed", "user", user, "err", err)
				results[i] = autoComputesBatchResult{User: user, Err: err.Error()}
				return
			}
			results[i] = autoComputesBatchResult{User: user, Result: usr}
		}(i, user)
	}
	bg.Wait()

	writeJSON(w, results)
}

func (s *server) handleDebugPlans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.cache.Snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		level.Error(aaelog.Logger).Log("msg", "failed encoding response", "err", err)
	}
}
