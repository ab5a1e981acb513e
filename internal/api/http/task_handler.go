package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"task-service/internal/domain"
	"task-service/internal/metrics"
	"task-service/internal/usecase"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// transitionActions maps the URL action segment to the target state it
// requests. complete additionally carries a result reference in the body.
var transitionActions = map[string]domain.TaskState{
	"start":    domain.TaskStateInProgress,
	"pause":    domain.TaskStatePaused,
	"fail":     domain.TaskStateFailed,
	"complete": domain.TaskStateCompleted,
}

// TaskHandler handles HTTP requests for the task lifecycle API.
type TaskHandler struct {
	service  *usecase.TaskService
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
}

// NewTaskHandler creates a new TaskHandler and initializes its validator.
func NewTaskHandler(service *usecase.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		service:  service,
		logger:   logger.With("component", "task-handler"),
		validate: validator.New(),
		tracer:   otel.Tracer("task-service-api"),
	}
}

// A helper struct to capture the status code
type instrumentedResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *instrumentedResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// RegisterRoutes registers task routes on the mux.
func (h *TaskHandler) RegisterRoutes(mux *http.ServeMux) {
	baseHandler := http.HandlerFunc(h.handleTasks)

	instrumentedHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routeTemplate(r.URL.Path)

		ctx, span := h.tracer.Start(r.Context(), "HTTP "+r.Method+" "+path, trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
		))
		defer span.End()

		r = r.WithContext(ctx)

		iw := &instrumentedResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		baseHandler.ServeHTTP(iw, r)

		metrics.HttpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(iw.statusCode)).Inc()

		span.SetAttributes(attribute.Int("http.status_code", iw.statusCode))
		if iw.statusCode >= 500 {
			span.SetStatus(codes.Error, "Server Error")
		}
	})

	mux.Handle("/task", instrumentedHandler)
	mux.Handle("/task/", instrumentedHandler)
}

// routeTemplate collapses concrete paths into templates for metric labels so
// ids do not explode the label cardinality.
func routeTemplate(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	switch {
	case len(parts) >= 3:
		return "/task/{task_global_id}/{action}"
	case len(parts) == 2:
		return "/task/{task_global_id}"
	default:
		return "/task"
	}
}

// handleTasks is a general dispatcher for the /task path.
func (h *TaskHandler) handleTasks(w http.ResponseWriter, r *http.Request) {
	// e.g. /task/u1_t1/start -> ["task", "u1_t1", "start"]
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	if len(pathParts) < 1 || pathParts[0] != "task" {
		http.NotFound(w, r)
		return
	}

	var globalID, action string
	if len(pathParts) > 1 {
		globalID = pathParts[1]
	}
	if len(pathParts) > 2 {
		action = pathParts[2]
	}

	switch r.Method {
	case http.MethodPost:
		if globalID == "" && action == "" {
			h.handleSubmitTask(w, r)
		} else {
			http.NotFound(w, r)
		}
	case http.MethodGet:
		if globalID != "" && action == "" {
			h.handleGetTask(w, r, globalID)
		} else {
			http.NotFound(w, r)
		}
	case http.MethodPut:
		if globalID != "" && action != "" {
			h.handleTransition(w, r, globalID, action)
		} else {
			http.Error(w, "Task id and action are required", http.StatusBadRequest)
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSubmitTask handles POST /task.
func (h *TaskHandler) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.SubmitTask")
	defer span.End()

	var req SubmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "Failed to decode request body")
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		span.RecordError(err)
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors,
				"Field '"+err.Field()+"' failed on the '"+err.Tag()+"' tag.",
			)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":   "Validation failed",
			"details": validationErrors,
		})
		return
	}

	globalID, err := h.service.Submit(ctx, req.UserID, req.TaskType, req.SourceFile)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to submit task")
		span.RecordError(err)
		h.logger.Error("error submitting task", "user_id", req.UserID, "error", err)
		h.writeError(w, err)
		return
	}
	span.SetAttributes(attribute.String("task.global_id", globalID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(TaskIdentifier{TaskGlobalID: globalID})
}

// handleGetTask handles GET /task/{task_global_id}.
func (h *TaskHandler) handleGetTask(w http.ResponseWriter, r *http.Request, globalID string) {
	ctx, span := h.tracer.Start(r.Context(), "handler.GetTask")
	defer span.End()
	span.SetAttributes(attribute.String("task.global_id", globalID))

	task, err := h.service.Fetch(ctx, globalID)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to fetch task")
		span.RecordError(err)
		h.logger.Warn("error fetching task", "task_global_id", globalID, "error", err)
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

// handleTransition handles PUT /task/{task_global_id}/{action}.
func (h *TaskHandler) handleTransition(w http.ResponseWriter, r *http.Request, globalID, action string) {
	ctx, span := h.tracer.Start(r.Context(), "handler.TransitionTask")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.global_id", globalID),
		attribute.String("task.action", action),
	)

	target, ok := transitionActions[action]
	if !ok {
		http.NotFound(w, r)
		return
	}

	var resultFile *string
	if target == domain.TaskStateCompleted {
		var req TaskCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			span.SetStatus(codes.Error, "Failed to decode request body")
			span.RecordError(err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			span.SetStatus(codes.Error, "Validation failed")
			span.RecordError(err)
			http.Error(w, "result_file is required", http.StatusBadRequest)
			return
		}
		resultFile = &req.ResultFile
	}

	if err := h.service.Transition(ctx, globalID, target, resultFile); err != nil {
		span.SetStatus(codes.Error, "Failed to transition task")
		span.RecordError(err)
		h.logger.Warn("error transitioning task",
			"task_global_id", globalID, "action", action, "error", err)
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TaskIdentifier{TaskGlobalID: globalID})
}

// writeError maps the closed error set to status codes. Every category the
// API distinguishes is matched explicitly; anything else is a 500.
func (h *TaskHandler) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrTaskCreationFailure), errors.Is(err, usecase.ErrTaskUpdateFailure):
		status = http.StatusFailedDependency
	default:
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
