package api

import (
	"encoding/binary"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/models"
)

// ridFromUUID derives a SID sub-authority from a fresh UUID's low bytes,
// the same construction models.Group uses for its own SID.
func ridFromUUID(id uuid.UUID) uint32 {
	return binary.BigEndian.Uint32(id[12:16])
}

// UserHandler groups the user CRUD handlers, all reachable to any
// authenticated principal — this directory has no separate admin tier.
type UserHandler struct {
	dir    *directory.Service
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(dir *directory.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{dir: dir, logger: logger.Named("user_handler")}
}

// userResponse is the JSON representation of a user. PasswordHash is
// intentionally omitted — it is write-only and must never be exposed.
type userResponse struct {
	ID                string  `json:"id"`
	Username          string  `json:"username"`
	UserPrincipalName string  `json:"user_principal_name"`
	Email             *string `json:"email,omitempty"`
	DisplayName       *string `json:"display_name,omitempty"`
	GivenName         *string `json:"given_name,omitempty"`
	Surname           *string `json:"surname,omitempty"`
	Enabled           bool    `json:"enabled"`
	LastLogin         *string `json:"last_login,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

func userToResponse(u *models.User) userResponse {
	resp := userResponse{
		ID:                u.ID.String(),
		Username:          u.Username,
		UserPrincipalName: u.UserPrincipalName,
		Email:             u.Email,
		DisplayName:       u.DisplayName,
		GivenName:         u.GivenName,
		Surname:           u.Surname,
		Enabled:           u.Enabled,
		CreatedAt:         u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if u.LastLogin != nil {
		s := u.LastLogin.UTC().Format("2006-01-02T15:04:05Z")
		resp.LastLogin = &s
	}
	return resp
}

type listUsersResponse struct {
	Items []userResponse `json:"items"`
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.dir.GetAllUsers()
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		writeDirErr(w, err)
		return
	}

	items := make([]userResponse, len(users))
	for i := range users {
		items[i] = userToResponse(&users[i])
	}
	Ok(w, listUsersResponse{Items: items})
}

// createUserRequest is the JSON body expected by POST /api/users.
type createUserRequest struct {
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
	GivenName   *string `json:"given_name"`
	Surname     *string `json:"surname"`
}

// Create handles POST /api/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !models.ValidUsername(req.Username) {
		ErrBadRequest(w, "username is required and must be alphanumeric (plus '_'/'-'), at most 64 characters")
		return
	}
	if req.Password == "" {
		ErrBadRequest(w, "password is required")
		return
	}

	hash, err := models.NewBcryptPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		ErrInternal(w)
		return
	}

	id := uuid.New()
	now := time.Now().UTC()
	user := &models.User{
		ID:                 id,
		SID:                models.NewNTAuthoritySID(ridFromUUID(id)),
		Username:           req.Username,
		UserPrincipalName:  req.Username + "@" + "corp.acme.com",
		Email:              req.Email,
		DisplayName:        req.DisplayName,
		GivenName:          req.GivenName,
		Surname:            req.Surname,
		PasswordHash:       hash,
		LastPasswordChange: now,
		Enabled:            true,
		CreatedAt:          now,
		UpdatedAt:          now,
		Meta:               map[string]string{},
	}

	if err := h.dir.CreateUser(user); err != nil {
		writeDirErr(w, err)
		return
	}

	Created(w, userToResponse(user))
}

// Get handles GET /api/users/{username}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.dir.FindUserByUsername(username)
	if err != nil {
		h.logger.Error("failed to get user", zap.String("username", username), zap.Error(err))
		writeDirErr(w, err)
		return
	}
	if user == nil {
		ErrNotFound(w)
		return
	}
	Ok(w, userToResponse(user))
}

// updateUserRequest is the JSON body for PUT /api/users/{username}. All
// fields are optional; Password triggers a rehash if provided.
type updateUserRequest struct {
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email"`
	Enabled     *bool   `json:"enabled"`
	Password    *string `json:"password"`
}

// Update handles PUT /api/users/{username}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.dir.FindUserByUsername(username)
	if err != nil {
		writeDirErr(w, err)
		return
	}
	if user == nil {
		ErrNotFound(w)
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = req.DisplayName
	}
	if req.Email != nil {
		user.Email = req.Email
	}
	if req.Enabled != nil {
		user.Enabled = *req.Enabled
	}
	if req.Password != nil {
		if *req.Password == "" {
			ErrBadRequest(w, "password cannot be empty")
			return
		}
		hash, err := models.NewBcryptPassword(*req.Password)
		if err != nil {
			h.logger.Error("failed to hash password", zap.Error(err))
			ErrInternal(w)
			return
		}
		user.PasswordHash = hash
		user.LastPasswordChange = time.Now().UTC()
	}

	if err := h.dir.UpdateUser(user); err != nil {
		writeDirErr(w, err)
		return
	}
	Ok(w, userToResponse(user))
}

// Delete handles DELETE /api/users/{username}. A principal cannot delete
// its own account, to avoid locking every caller out at once.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.dir.FindUserByUsername(username)
	if err != nil {
		writeDirErr(w, err)
		return
	}
	if user == nil {
		ErrNotFound(w)
		return
	}

	if claims := claimsFromCtx(r.Context()); claims != nil && claims.Subject == user.ID.String() {
		ErrBadRequest(w, "cannot delete your own account")
		return
	}

	if err := h.dir.DeleteUser(user.ID); err != nil {
		writeDirErr(w, err)
		return
	}
	NoContent(w)
}
