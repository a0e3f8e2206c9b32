package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/models"
)

// GroupHandler groups the security/distribution group handlers.
type GroupHandler struct {
	dir    *directory.Service
	logger *zap.Logger
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(dir *directory.Service, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{dir: dir, logger: logger.Named("group_handler")}
}

type groupResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	SAMAccountName string   `json:"sam_account_name"`
	DomainID       string   `json:"domain_id"`
	Scope          int      `json:"scope"`
	Members        []string `json:"members"`
	Description    *string  `json:"description,omitempty"`
}

func groupToResponse(g *models.Group) groupResponse {
	members := make([]string, len(g.Members))
	for i, m := range g.Members {
		members[i] = m.String()
	}
	return groupResponse{
		ID:             g.ID.String(),
		Name:           g.Name,
		SAMAccountName: g.SAMAccountName,
		DomainID:       g.DomainID.String(),
		Scope:          int(g.Scope),
		Members:        members,
		Description:    g.Description,
	}
}

type listGroupsResponse struct {
	Items []groupResponse `json:"items"`
}

// List handles GET /api/groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.dir.GetAllGroups()
	if err != nil {
		writeDirErr(w, err)
		return
	}
	items := make([]groupResponse, len(groups))
	for i := range groups {
		items[i] = groupToResponse(&groups[i])
	}
	Ok(w, listGroupsResponse{Items: items})
}

// createGroupRequest is the JSON body expected by POST /api/groups.
type createGroupRequest struct {
	Name           string `json:"name"`
	SAMAccountName string `json:"sam_account_name"`
	DomainID       string `json:"domain_id"`
	Scope          int    `json:"scope"`
	Security       bool   `json:"security"`
}

// Create handles POST /api/groups.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || req.SAMAccountName == "" {
		ErrBadRequest(w, "name and sam_account_name are required")
		return
	}
	domainID, err := uuid.Parse(req.DomainID)
	if err != nil {
		ErrBadRequest(w, "domain_id must be a valid UUID")
		return
	}

	flags := models.GroupTypeDistribution
	if req.Security {
		flags = models.GroupTypeSecurity
	}

	group := models.NewGroup(req.Name, req.SAMAccountName, domainID, flags, models.GroupScope(req.Scope))
	if err := h.dir.CreateGroup(&group); err != nil {
		writeDirErr(w, err)
		return
	}
	Created(w, groupToResponse(&group))
}

// Delete handles DELETE /api/groups/{sam}.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sam := chi.URLParam(r, "sam")
	group, err := h.dir.FindGroupBySAMAccountName(sam)
	if err != nil {
		writeDirErr(w, err)
		return
	}
	if group == nil {
		ErrNotFound(w)
		return
	}
	if err := h.dir.DeleteGroup(group.ID); err != nil {
		writeDirErr(w, err)
		return
	}
	NoContent(w)
}
