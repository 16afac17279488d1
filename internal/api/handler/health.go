package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/daap14/stencil/internal/api/middleware"
	"github.com/daap14/stencil/internal/api/response"
	"github.com/daap14/stencil/internal/store"
)

// DBPinger verifies metadata database connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      DBPinger
	layout  *store.Layout
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db DBPinger, layout *store.Layout, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		layout:  layout,
		version: version,
	}
}

type healthData struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database bool   `json:"database"`
	Store    bool   `json:"store"`
}

// ServeHTTP handles the health check request. The service is degraded when
// the metadata database is unreachable or the store root is missing.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	dbOK := h.db != nil && h.db.Ping(r.Context()) == nil

	storeOK := false
	if info, err := os.Stat(h.layout.Root); err == nil && info.IsDir() {
		storeOK = true
	}

	status := "healthy"
	if !dbOK || !storeOK {
		status = "degraded"
	}

	response.Success(w, http.StatusOK, healthData{
		Status:   status,
		Version:  h.version,
		Database: dbOK,
		Store:    storeOK,
	}, requestID)
}
