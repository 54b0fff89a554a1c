package api

import (
	"net/http"
	"time"

	"delayed-task-queue/internal/scheduler"
	"delayed-task-queue/pkg/logger"
)

// NewRouter wires the task endpoints to the scheduler.
func NewRouter(s *scheduler.Scheduler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /tasks", CreateTaskHandler(s))
	mux.HandleFunc("GET /tasks", ListTasksHandler(s))
	mux.HandleFunc("GET /tasks/{id}", GetTaskHandler(s))
	mux.HandleFunc("DELETE /tasks/{id}", DeleteTaskHandler(s))
	mux.HandleFunc("GET /stats", StatsHandler(s))
	mux.HandleFunc("GET /healthz", HealthHandler)
	return logRequests(mux)
}

func StatsHandler(s *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.Stats(r.Context())
		if err != nil {
			logger.Error("%v", err)
			http.Error(w, "Failed to get stats", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("%s %s -> %d (%s)", r.Method, r.URL.RequestURI(), rec.status, time.Since(start))
	})
}
