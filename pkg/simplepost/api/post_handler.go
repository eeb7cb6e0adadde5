package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-post/pkg/simplepost"
)

// maxContentSize bounds the markdown body accepted by PUT /posts/{id}/content
const maxContentSize = 10 << 20

// ErrorResponse is the response body for a rejected request
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Ref   string `json:"ref,omitempty"`
}

// RegisterRequest is the request body for registering a site or collection
type RegisterRequest struct {
	Ref string `json:"ref"`
}

// PostHandler handles HTTP requests for posts
type PostHandler struct {
	service simplepost.Service
}

// NewPostHandler creates a new post handler
func NewPostHandler(service simplepost.Service) *PostHandler {
	return &PostHandler{service: service}
}

// Routes returns the routes for posts
func (h *PostHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreatePost)
	r.Get("/{id}", h.GetPost)
	r.Patch("/{id}", h.UpdatePost)

	r.Get("/{id}/content", h.GetContent)
	r.Put("/{id}/content", h.PutContent)

	return r
}

// Mount registers the post routes together with site and collection registration, wrapped in
// the given middlewares
func (h *PostHandler) Mount(r chi.Router, middlewares ...Middleware) {
	r.Group(func(r chi.Router) {
		for _, m := range middlewares {
			r.Use(m)
		}
		r.Mount("/posts", h.Routes())
		r.Post("/sites", h.RegisterSite)
		r.Post("/collections", h.RegisterCollection)
	})
}

// CreatePost creates and saves a post from a JSON object of field values
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	values, ok := decodeValues(w, r)
	if !ok {
		return
	}

	post := h.service.NewPost()
	if err := post.Apply(r.Context(), values); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.SavePost(r.Context(), post); err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, post.Fields())
}

// GetPost returns the populated fields of a post
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, post.Fields())
}

// UpdatePost applies a JSON object of field values to a post and saves it. Either every value
// is accepted or nothing is saved.
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	values, ok := decodeValues(w, r)
	if !ok {
		return
	}

	if err := post.Apply(r.Context(), values); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.SavePost(r.Context(), post); err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, post.Fields())
}

// GetContent writes the markdown body of a post
func (h *PostHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}

	// an empty body that was set explicitly is served as-is
	if post.ContentPointer().IsEmpty() {
		writeError(w, r, simplepost.ErrContentNotFound)
		return
	}
	content, err := post.Content(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", post.ContentType()+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// PutContent replaces the markdown body of a post with the request body and saves the post
func (h *PostHandler) PutContent(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}

	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxContentSize))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
		return
	}

	if err := post.SetContent(r.Context(), content); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.SavePost(r.Context(), post); err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, post.Fields())
}

// RegisterSite creates a site that posts may reference
func (h *PostHandler) RegisterSite(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, simplepost.RecordTypeSite, h.service.RegisterSite)
}

// RegisterCollection creates a collection that posts may reference
func (h *PostHandler) RegisterCollection(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, simplepost.RecordTypeCollection, h.service.RegisterCollection)
}

func (h *PostHandler) register(w http.ResponseWriter, r *http.Request, recordType string, register func(ctx context.Context, ref string) error) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := register(r.Context(), req.Ref); err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, simplepost.MarkerFields(recordType, req.Ref))
}

func (h *PostHandler) loadPost(w http.ResponseWriter, r *http.Request) (*simplepost.Post, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid post id"})
		return nil, false
	}

	post, err := h.service.LoadPost(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return post, true
}

func decodeValues(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	var values map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil || values == nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "request body must be a JSON object"})
		return nil, false
	}
	return values, true
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, simplepost.ErrRecordNotFound), errors.Is(err, simplepost.ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, simplepost.ErrTypeMismatch):
		return http.StatusConflict
	case errors.Is(err, simplepost.ErrInvalidType),
		errors.Is(err, simplepost.ErrTooLong),
		errors.Is(err, simplepost.ErrInvalidArgument),
		errors.Is(err, simplepost.ErrInvalidReference):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var refErr *simplepost.ReferenceError
	var fieldErr *simplepost.FieldError
	if errors.As(err, &refErr) {
		resp.Field, resp.Ref = refErr.Field, refErr.Ref
	} else if errors.As(err, &fieldErr) {
		resp.Field = fieldErr.Field
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		resp = ErrorResponse{Error: http.StatusText(status)}
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}
