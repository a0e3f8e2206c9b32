package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/models"
)

// GPOHandler groups the group policy object handlers.
type GPOHandler struct {
	dir    *directory.Service
	logger *zap.Logger
}

// NewGPOHandler creates a new GPOHandler.
func NewGPOHandler(dir *directory.Service, logger *zap.Logger) *GPOHandler {
	return &GPOHandler{dir: dir, logger: logger.Named("gpo_handler")}
}

type gpoResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   uint32 `json:"version"`
	Enabled   bool   `json:"enabled"`
	Enforced  bool   `json:"enforced"`
	Order     uint32 `json:"order"`
	CreatedAt string `json:"created_at"`
}

func gpoToResponse(g *models.GroupPolicy) gpoResponse {
	return gpoResponse{
		ID:        g.ID.String(),
		Name:      g.Name,
		Version:   g.Version,
		Enabled:   g.Enabled,
		Enforced:  g.Enforced,
		Order:     g.Order,
		CreatedAt: g.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// createGPORequest is the JSON body expected by POST /api/gpos. A bare name
// creates an enabled, unenforced, version-1 policy targeting "All", matching
// models.NewGroupPolicy; Enforced lets the caller set it enforced up front.
type createGPORequest struct {
	Name     string `json:"name"`
	Enforced bool   `json:"enforced"`
}

// Create handles POST /api/gpos.
func (h *GPOHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGPORequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		ErrBadRequest(w, "name is required")
		return
	}

	gpo := models.NewGroupPolicy(req.Name)
	gpo.Enforced = req.Enforced

	if err := h.dir.CreateGPO(&gpo); err != nil {
		writeDirErr(w, err)
		return
	}
	Created(w, gpoToResponse(&gpo))
}
