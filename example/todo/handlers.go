package todo

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/persistence-go/persistence"
	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	errTitleRequired = errors.New("title must not be empty")
	errInvalidID     = errors.New("id must be a positive integer")
	errNoSession     = errors.New("no session in request context")
)

type createRequest struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type updateRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handlers serves the todo routes. It expects the Session middleware in front of it.
type Handlers struct {
	logger *slog.Logger
}

// NewHandlers creates the handlers; logger receives failures that are not the client's fault.
func NewHandlers(logger *slog.Logger) *Handlers {
	return &Handlers{logger: logger}
}

// List returns all todos ordered by id.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFrom(r.Context())
	if !ok {
		h.fail(w, r, errNoSession)
		return
	}

	todos, err := postgresengine.Find[Todo](r.Context(), session, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, todos)
}

// Create inserts a todo and returns it with its generated id.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFrom(r.Context())
	if !ok {
		h.fail(w, r, errNoSession)
		return
	}

	var request createRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	title := strings.TrimSpace(request.Title)
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errTitleRequired.Error()})
		return
	}

	entity := &Todo{Title: title, Completed: request.Completed}

	if err := session.Add(entity); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := session.Commit(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, entity)
}

// Update changes the title and/or the completed flag of a todo.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFrom(r.Context())
	if !ok {
		h.fail(w, r, errNoSession)
		return
	}

	id, err := idParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var request updateRequest
	if err = json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	entity, err := postgresengine.Get[Todo](r.Context(), session, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if request.Title != nil {
		title := strings.TrimSpace(*request.Title)
		if title == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: errTitleRequired.Error()})
			return
		}

		entity.Title = title
	}

	if request.Completed != nil {
		entity.Completed = *request.Completed
	}

	if err = session.Commit(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entity)
}

// Delete removes a todo.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFrom(r.Context())
	if !ok {
		h.fail(w, r, errNoSession)
		return
	}

	id, err := idParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	entity, err := postgresengine.Get[Todo](r.Context(), session, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err = session.Delete(entity); err != nil {
		h.fail(w, r, err)
		return
	}

	if err = session.Commit(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// fail maps persistence errors to status codes and logs everything that is not the client's fault.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, persistence.ErrEntityNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "todo not found"})
	case errors.Is(err, persistence.ErrStaleEntity):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "todo was changed concurrently"})
	case errors.Is(err, persistence.ErrPoolTimeout):
		h.logger.ErrorContext(r.Context(), "request failed", "request_id", RequestIDFrom(r.Context()), "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database busy"})
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "request_id", RequestIDFrom(r.Context()), "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}

	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
