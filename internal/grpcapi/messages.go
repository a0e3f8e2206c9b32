package grpcapi

// UserMessage is the wire shape of a directory user, the gRPC analogue of
// api.userResponse.
type UserMessage struct {
	Id                string `json:"id"`
	Username          string `json:"username"`
	UserPrincipalName string `json:"user_principal_name"`
	Email             string `json:"email,omitempty"`
	DisplayName       string `json:"display_name,omitempty"`
	Enabled           bool   `json:"enabled"`
}

// GetUserRequest requests a single user by username.
type GetUserRequest struct {
	Username string `json:"username"`
}

// GetUserResponse carries the resolved user.
type GetUserResponse struct {
	User UserMessage `json:"user"`
}

// ListUsersRequest has no fields; it lists every user in the directory.
type ListUsersRequest struct{}

// ListUsersResponse carries every user known to the directory.
type ListUsersResponse struct {
	Users []UserMessage `json:"users"`
}

// CreateUserRequest creates a new local user.
type CreateUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// CreateUserResponse carries the newly created user.
type CreateUserResponse struct {
	User UserMessage `json:"user"`
}

// LoginRequest authenticates a username/password pair.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued JWT.
type LoginResponse struct {
	Token string `json:"token"`
}

// ValidateTokenRequest asks whether a JWT is currently valid.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse reports the validation result and, if valid, the
// subject (user ID) the token was issued for.
type ValidateTokenResponse struct {
	Valid  bool   `json:"valid"`
	UserId string `json:"user_id,omitempty"`
}
