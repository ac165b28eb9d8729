// Package api exposes the asset service over HTTP for the command/event
// dispatcher. Routes are tenant-scoped; errors from the service taxonomy map
// to stable status codes and machine-readable error kinds.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-assets/pkg/simpleassets"
)

// maxUploadBytes bounds request parsing, not asset size; the service
// enforces the per-tenant limit.
const maxUploadBytes = 32 << 20

// Handler handles HTTP requests for tenant assets.
type Handler struct {
	service simpleassets.Service
	lister  *simpleassets.Lister
	logger  *slog.Logger
}

// NewHandler creates a new asset API handler.
func NewHandler(service simpleassets.Service, lister *simpleassets.Lister, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		lister:  lister,
		logger:  logger,
	}
}

// Routes returns the tenant-scoped asset routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.requestID)

	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Post("/", h.EnsureTenantScope)

		r.Route("/assets", func(r chi.Router) {
			r.Post("/", h.AddAsset)
			r.Get("/", h.ListAssets)
			r.Get("/{name}", h.GetAsset)
			r.Put("/{name}", h.ReplaceAsset)
			r.Delete("/{name}", h.DeleteAsset)
			r.Post("/{name}/rename", h.RenameAsset)
			r.Post("/{name}/uses", h.RecordUse)
		})
	})

	return r
}

// requestID stamps each request with an id carried into logs.
func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		h.logger.Debug("request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// AssetResponse is the response body for an asset descriptor.
type AssetResponse struct {
	TenantID   int64     `json:"tenant_id"`
	Name       string    `json:"name"`
	UploaderID int64     `json:"uploader_id"`
	ContentRef string    `json:"content_ref"`
	CreatedAt  time.Time `json:"created_at"`
	Location   string    `json:"location,omitempty"`
}

// ListResponse is the response body for an asset listing.
type ListResponse struct {
	Entries  []simpleassets.ListEntry   `json:"entries"`
	Pages    [][]simpleassets.ListEntry `json:"pages,omitempty"`
	PageSize int                        `json:"page_size"`
}

// RenameRequest is the request body for renaming an asset.
type RenameRequest struct {
	NewName string `json:"new_name"`
}

// RecordUseRequest is the request body for recording an asset use.
type RecordUseRequest struct {
	UserID int64 `json:"user_id"`
}

// ErrResponse is the error response body.
type ErrResponse struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func assetResponse(a *simpleassets.Asset) *AssetResponse {
	return &AssetResponse{
		TenantID:   a.TenantID,
		Name:       a.Name,
		UploaderID: a.UploaderID,
		ContentRef: a.ContentRef,
		CreatedAt:  a.CreatedAt,
	}
}

// renderError maps the error taxonomy to status codes. Storage and
// persistence failures are operator-attributable: they are logged with full
// detail and reported to the client as a generic failure.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var kind string
	var status int

	switch {
	case errors.Is(err, simpleassets.ErrInvalidName):
		kind, status = "invalid_name", http.StatusBadRequest
	case errors.Is(err, simpleassets.ErrUnsupportedFileType):
		kind, status = "unsupported_file_type", http.StatusBadRequest
	case errors.Is(err, simpleassets.ErrAssetNotFound):
		kind, status = "not_found", http.StatusNotFound
	case errors.Is(err, simpleassets.ErrAssetExists):
		kind, status = "name_exists", http.StatusConflict
	case errors.Is(err, simpleassets.ErrDuplicateContent):
		kind, status = "duplicate_content", http.StatusConflict
	case errors.Is(err, simpleassets.ErrCapacityExceeded):
		kind, status = "capacity_exceeded", http.StatusConflict
	case errors.Is(err, simpleassets.ErrFileTooLarge):
		kind, status = "file_too_large", http.StatusRequestEntityTooLarge
	default:
		h.logger.Error("internal failure", "method", r.Method, "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, &ErrResponse{Kind: "internal", Message: "operation failed"})
		return
	}

	render.Status(r, status)
	render.JSON(w, r, &ErrResponse{Kind: kind, Message: err.Error()})
}

func tenantID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "tenantID"), 10, 64)
}

func (h *Handler) EnsureTenantScope(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: "invalid tenant id"})
		return
	}

	if err := h.service.EnsureTenantScope(r.Context(), tenant); err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

// readUpload parses the multipart payload shared by AddAsset and
// ReplaceAsset.
func (h *Handler) readUpload(r *http.Request, tenant int64, name string) (simpleassets.UploadRequest, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return simpleassets.UploadRequest{}, err
	}

	if name == "" {
		name = r.FormValue("name")
	}
	uploader, err := strconv.ParseInt(r.FormValue("uploader_id"), 10, 64)
	if err != nil {
		return simpleassets.UploadRequest{}, errors.New("invalid uploader_id")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return simpleassets.UploadRequest{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return simpleassets.UploadRequest{}, err
	}

	return simpleassets.UploadRequest{
		TenantID:   tenant,
		Name:       name,
		UploaderID: uploader,
		Data:       data,
		MIMEType:   header.Header.Get("Content-Type"),
	}, nil
}

func (h *Handler) AddAsset(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: "invalid tenant id"})
		return
	}

	req, err := h.readUpload(r, tenant, "")
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: err.Error()})
		return
	}

	asset, err := h.service.Add(r.Context(), req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, assetResponse(asset))
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: "invalid tenant id"})
		return
	}
	name := chi.URLParam(r, "name")

	asset, err := h.service.Get(r.Context(), tenant, name)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	resp := assetResponse(asset)
	if loc, err := h.service.Locate(r.Context(), tenant, name); err == nil {
		resp.Location = loc
	}

	render.JSON(w, r, resp)
}

func (h *Handler) ReplaceAsset(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: "invalid tenant id"})
		return
	}

	req, err := h.readUpload(r, tenant, chi.URLParam(r, "name"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: err.Error()})
		return
	}

	asset, err := h.service.Replace(r.Context(), req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, assetResponse(asset))
}

func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: "invalid tenant id"})
		return
	}

	if err := h.service.Delete(r.Context(), tenant, chi.URLParam(r, "name")); err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

func (h *Handler) RenameAsset(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: "invalid tenant id"})
		return
	}

	var body RenameRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: err.Error()})
		return
	}

	if err := h.service.Rename(r.Context(), tenant, chi.URLParam(r, "name"), body.NewName); err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

func (h *Handler) RecordUse(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: "invalid tenant id"})
		return
	}

	var body RecordUseRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: err.Error()})
		return
	}

	if err := h.service.RecordUse(r.Context(), tenant, body.UserID, chi.URLParam(r, "name")); err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: "invalid tenant id"})
		return
	}

	var userID int64
	if v := r.URL.Query().Get("user_id"); v != "" {
		userID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, &ErrResponse{Kind: "bad_request", Message: "invalid user_id"})
			return
		}
	}
	keyword := r.URL.Query().Get("keyword")

	entries, err := h.service.List(r.Context(), tenant, userID, keyword)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	resp := &ListResponse{Entries: entries, PageSize: simpleassets.DefaultPageSize}
	if h.lister != nil {
		resp.Pages = h.lister.Paginate(entries)
		resp.PageSize = h.lister.PageSize()
	}

	render.JSON(w, r, resp)
}
