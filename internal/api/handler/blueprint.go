package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/stencil/internal/api/middleware"
	"github.com/daap14/stencil/internal/api/response"
	"github.com/daap14/stencil/internal/api/validation"
	"github.com/daap14/stencil/internal/blueprint"
	"github.com/daap14/stencil/internal/ingest"
	"github.com/daap14/stencil/internal/store"
)

// blueprintResponse is the API representation of a blueprint.
type blueprintResponse struct {
	ID           string `json:"id"`
	MainFileName string `json:"mainFileName"`
	Description  string `json:"description,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func toBlueprintResponse(bp *blueprint.Blueprint) blueprintResponse {
	return blueprintResponse{
		ID:           bp.ID,
		MainFileName: bp.MainFileName,
		Description:  bp.Description,
		CreatedAt:    bp.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    bp.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// BlueprintHandler handles blueprint upload, retrieval and deletion.
type BlueprintHandler struct {
	repo     blueprint.Repository
	ingestor *ingest.Ingestor
	layout   *store.Layout
}

// NewBlueprintHandler creates a new BlueprintHandler.
func NewBlueprintHandler(repo blueprint.Repository, ingestor *ingest.Ingestor, layout *store.Layout) *BlueprintHandler {
	return &BlueprintHandler{repo: repo, ingestor: ingestor, layout: layout}
}

// Upload handles PUT /blueprints/{id}. The archive arrives as the request
// body (buffered or chunked) or via the blueprint_archive_url query
// parameter; application_file_name optionally overrides the blueprint.yaml
// convention.
func (h *BlueprintHandler) Upload(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id := chi.URLParam(r, "id")
	if fieldErrors := validation.ValidateBlueprintID(id); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	src := ingest.Source{
		ArchiveURL: r.URL.Query().Get("blueprint_archive_url"),
		Body:       r.Body,
		HasBody:    r.ContentLength > 0,
		Chunked:    isChunked(r),
	}

	bp, err := h.ingestor.Ingest(r.Context(), id, src, r.URL.Query().Get("application_file_name"))
	if err != nil {
		h.writeIngestError(w, err, id, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toBlueprintResponse(bp), requestID)
}

// List handles GET /blueprints.
func (h *BlueprintHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	blueprints, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("failed to list blueprints", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list blueprints", requestID)
		return
	}

	items := make([]blueprintResponse, 0, len(blueprints))
	for i := range blueprints {
		items = append(items, toBlueprintResponse(&blueprints[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByID handles GET /blueprints/{id}.
func (h *BlueprintHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id := chi.URLParam(r, "id")
	bp, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, blueprint.ErrBlueprintNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Blueprint not found", requestID)
			return
		}
		slog.Error("failed to get blueprint", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get blueprint", requestID)
		return
	}

	response.Success(w, http.StatusOK, toBlueprintResponse(bp), requestID)
}

// DownloadArchive handles GET /blueprints/{id}/archive. It streams back the
// originally uploaded archive, byte-identical to the upload.
func (h *BlueprintHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id := chi.URLParam(r, "id")
	if _, err := h.repo.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, blueprint.ErrBlueprintNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Blueprint not found", requestID)
			return
		}
		slog.Error("failed to get blueprint", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get blueprint", requestID)
		return
	}

	archivePath, format, err := ingest.LocateArchive(h.layout, id)
	if err != nil {
		// An ingested blueprint always has exactly one uploaded archive.
		slog.Error("blueprint archive missing from store", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_INCONSISTENCY", "Blueprint archive is missing from the store", requestID)
		return
	}

	f, err := os.Open(archivePath)
	if err != nil {
		slog.Error("failed to open blueprint archive", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read blueprint archive", requestID)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		slog.Error("failed to stat blueprint archive", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read blueprint archive", requestID)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", id, format))
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := io.Copy(w, f); err != nil {
		slog.Error("failed to stream blueprint archive", "error", err, "id", id)
	}
}

// Delete handles DELETE /blueprints/{id}. The metadata record goes first,
// then both permanent subtrees; a subtree that cannot be removed is
// surfaced as an inconsistency, never ignored.
func (h *BlueprintHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, blueprint.ErrBlueprintNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Blueprint not found", requestID)
			return
		}
		slog.Error("failed to delete blueprint", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete blueprint", requestID)
		return
	}

	if err := h.ingestor.Remove(id); err != nil {
		slog.Error("blueprint store content partially deleted", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_INCONSISTENCY", "Blueprint was removed but its store content could not be fully deleted", requestID)
		return
	}

	response.NoContent(w)
}

// writeIngestError maps a pipeline error to its externally observable kind.
func (h *BlueprintHandler) writeIngestError(w http.ResponseWriter, err error, id, requestID string) {
	switch {
	case errors.Is(err, ingest.ErrInvalidParameter):
		response.Err(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), requestID)
	case errors.Is(err, ingest.ErrMissingInput):
		response.Err(w, http.StatusBadRequest, "MISSING_INPUT", err.Error(), requestID)
	case errors.Is(err, ingest.ErrRemoteFetch):
		response.Err(w, http.StatusBadRequest, "REMOTE_FETCH_FAILED", err.Error(), requestID)
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		response.Err(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), requestID)
	case errors.Is(err, ingest.ErrStructuralValidation):
		response.Err(w, http.StatusBadRequest, "STRUCTURAL_VALIDATION", err.Error(), requestID)
	case errors.Is(err, ingest.ErrMissingDefinition):
		response.Err(w, http.StatusBadRequest, "MISSING_DEFINITION", err.Error(), requestID)
	case errors.Is(err, ingest.ErrInvalidDefinition):
		response.Err(w, http.StatusBadRequest, "INVALID_DEFINITION", err.Error(), requestID)
	case errors.Is(err, blueprint.ErrBlueprintExists):
		response.Err(w, http.StatusConflict, "ALREADY_EXISTS", fmt.Sprintf("A blueprint with id %q already exists", id), requestID)
	case errors.Is(err, ingest.ErrInternalInconsistency):
		slog.Error("ingestion hit an internal inconsistency", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_INCONSISTENCY", err.Error(), requestID)
	default:
		slog.Error("failed to ingest blueprint", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to ingest blueprint", requestID)
	}
}

func isChunked(r *http.Request) bool {
	for _, enc := range r.TransferEncoding {
		if enc == "chunked" {
			return true
		}
	}
	return false
}
