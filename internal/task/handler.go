package task

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskager/taskager/internal/auth"
	"github.com/taskager/taskager/internal/httputil"
	"github.com/taskager/taskager/internal/logging"
)

// Handler contains HTTP handlers for task endpoints. All routes sit behind
// the auth middleware, so the owner id is always present in the context.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// List handles GET /tasks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "not authorized to access this route", http.StatusUnauthorized)
		return
	}

	tasks, err := h.service.List(r.Context(), ownerID)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to list tasks", "error", err.Error())
		httputil.RespondError(w, "failed to fetch tasks", http.StatusInternalServerError)
		return
	}

	httputil.RespondList(w, tasks, len(tasks), http.StatusOK)
}

// Get handles GET /tasks/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, taskID, ok := h.identify(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), ownerID, taskID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to fetch task")
		return
	}

	httputil.RespondData(w, t, "", http.StatusOK)
}

// Create handles POST /tasks.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "not authorized to access this route", http.StatusUnauthorized)
		return
	}

	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t, err := h.service.Create(r.Context(), ownerID, in)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to create task")
		return
	}

	httputil.RespondData(w, t, "Task created successfully", http.StatusCreated)
}

// Update handles PUT /tasks/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, taskID, ok := h.identify(w, r)
	if !ok {
		return
	}

	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t, err := h.service.Update(r.Context(), ownerID, taskID, in)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to update task")
		return
	}

	httputil.RespondData(w, t, "Task updated successfully", http.StatusOK)
}

// Toggle handles PATCH /tasks/{id}/toggle.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	ownerID, taskID, ok := h.identify(w, r)
	if !ok {
		return
	}

	t, err := h.service.ToggleCompletion(r.Context(), ownerID, taskID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to toggle task")
		return
	}

	message := "Task marked as pending"
	if t.Completed {
		message = "Task marked as completed"
	}
	httputil.RespondData(w, t, message, http.StatusOK)
}

// Delete handles DELETE /tasks/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, taskID, ok := h.identify(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), ownerID, taskID); err != nil {
		h.respondServiceError(w, r, err, "failed to delete task")
		return
	}

	httputil.RespondJSON(w, httputil.Envelope{
		Success: true,
		Message: "Task deleted successfully",
	}, http.StatusOK)
}

// identify pulls the caller id from the context and the task id from the URL.
func (h *Handler) identify(w http.ResponseWriter, r *http.Request) (ownerID, taskID uuid.UUID, ok bool) {
	ownerID, ok = auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "not authorized to access this route", http.StatusUnauthorized)
		return ownerID, taskID, false
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "invalid task id", http.StatusBadRequest)
		return ownerID, taskID, false
	}

	return ownerID, taskID, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := logging.GetLoggerFromContext(r.Context())

	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.Warn("task validation failed", "error", err.Error())
		httputil.RespondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		httputil.RespondError(w, "task not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		logger.Warn("task ownership check failed")
		httputil.RespondError(w, err.Error(), http.StatusForbidden)
	default:
		logger.Error("task operation failed", "error", err.Error())
		httputil.RespondError(w, fallback, http.StatusInternalServerError)
	}
}
