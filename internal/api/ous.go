package api

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/models"
)

// OUHandler groups the organizational-unit handlers.
type OUHandler struct {
	dir    *directory.Service
	logger *zap.Logger
}

// NewOUHandler creates a new OUHandler.
func NewOUHandler(dir *directory.Service, logger *zap.Logger) *OUHandler {
	return &OUHandler{dir: dir, logger: logger.Named("ou_handler")}
}

type ouResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	DN               string `json:"dn"`
	Parent           string `json:"parent,omitempty"`
	BlockInheritance bool   `json:"block_inheritance"`
	Enforced         bool   `json:"enforced"`
	GPLink           string `json:"gp_link,omitempty"`
}

func ouToResponse(o *models.OrganizationalUnit) ouResponse {
	resp := ouResponse{
		ID:               o.ID.String(),
		Name:             o.Name,
		DN:               o.DN,
		BlockInheritance: o.BlockInheritance,
		Enforced:         o.Enforced,
		GPLink:           o.GPLink,
	}
	if o.Parent != nil {
		resp.Parent = o.Parent.String()
	}
	return resp
}

type listOUsResponse struct {
	Items []ouResponse `json:"items"`
}

// List handles GET /api/ous.
func (h *OUHandler) List(w http.ResponseWriter, r *http.Request) {
	ous, err := h.dir.GetAllOUs()
	if err != nil {
		writeDirErr(w, err)
		return
	}
	items := make([]ouResponse, len(ous))
	for i := range ous {
		items[i] = ouToResponse(&ous[i])
	}
	Ok(w, listOUsResponse{Items: items})
}

// createOURequest is the JSON body expected by POST /api/ous.
type createOURequest struct {
	Name   string  `json:"name"`
	DN     string  `json:"dn"`
	Parent *string `json:"parent"`
}

// Create handles POST /api/ous.
func (h *OUHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOURequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || req.DN == "" {
		ErrBadRequest(w, "name and dn are required")
		return
	}

	var parent *uuid.UUID
	if req.Parent != nil && *req.Parent != "" {
		id, err := uuid.Parse(*req.Parent)
		if err != nil {
			ErrBadRequest(w, "parent must be a valid UUID")
			return
		}
		parent = &id
	}

	ou := models.NewOU(req.Name, req.DN, parent)
	if err := h.dir.CreateOU(&ou); err != nil {
		writeDirErr(w, err)
		return
	}
	Created(w, ouToResponse(&ou))
}
