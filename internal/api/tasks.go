package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"delayed-task-queue/internal/scheduler"
	"delayed-task-queue/internal/store"
	"delayed-task-queue/internal/types"
	"delayed-task-queue/pkg/logger"
)

const maxRequestBody = 4 << 10

// CreateTaskRequest is the body of PUT /tasks. A missing execute_at means
// now.
type CreateTaskRequest struct {
	Kind      types.TaskKind `json:"kind"`
	ExecuteAt *time.Time     `json:"execute_at"`
}

type CreateTaskResponse struct {
	ID uuid.UUID `json:"id"`
}

func CreateTaskHandler(s *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

		var req CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if req.Kind == "" {
			http.Error(w, "kind is required", http.StatusBadRequest)
			return
		}

		var executeAt time.Time
		if req.ExecuteAt != nil {
			if err := types.CheckProcessAt(*req.ExecuteAt); err != nil {
				http.Error(w, "Invalid execute_at", http.StatusBadRequest)
				return
			}
			executeAt = *req.ExecuteAt
		}

		task, err := s.Submit(r.Context(), req.Kind, executeAt)
		if errors.Is(err, types.ErrInvalidTime) {
			http.Error(w, "Invalid execute_at", http.StatusBadRequest)
			return
		}
		if err != nil {
			logger.Error("Failed to create task: %v", err)
			http.Error(w, "Failed to create task", http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, CreateTaskResponse{ID: task.ID})
	}
}

func ListTasksHandler(s *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := s.List(r.Context(), r.URL.Query().Get("filter"))
		if err != nil {
			switch {
			case errors.Is(err, types.ErrInvalidFilter):
				http.Error(w, "Invalid filter", http.StatusBadRequest)
			case errors.Is(err, types.ErrInvalidStatus):
				http.Error(w, "Invalid status", http.StatusBadRequest)
			case errors.Is(err, types.ErrInvalidKind):
				http.Error(w, "Invalid kind", http.StatusBadRequest)
			default:
				logger.Error("Failed to list tasks: %v", err)
				http.Error(w, "Failed to get task list", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, tasks)
	}
}

func GetTaskHandler(s *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid task id", http.StatusBadRequest)
			return
		}

		task, err := s.Get(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("Failed to get task %s: %v", id, err)
			http.Error(w, "Failed to get task", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, task)
	}
}

func DeleteTaskHandler(s *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid task id", http.StatusBadRequest)
			return
		}

		if err := s.Delete(r.Context(), id); err != nil {
			logger.Error("Failed to delete task %s: %v", id, err)
			http.Error(w, "Failed to delete task", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write response: %v", err)
	}
}
