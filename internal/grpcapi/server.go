// Package grpcapi exposes the directory's user lookup and authentication
// operations over gRPC, as a second API surface alongside internal/api's
// REST handlers and internal/ldapserver's LDAP listener.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/nextdomen/mextdomen/internal/auth"
	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/models"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Config holds the gRPC listener configuration.
type Config struct {
	// ListenAddr is the address the gRPC server binds to (e.g. ":9090").
	ListenAddr string
}

// Server is the gRPC server implementing UserApi and AuthService.
type Server struct {
	dir    *directory.Service
	auth   *auth.Service
	logger *zap.Logger
}

// New creates a new Server over dir and authSvc.
func New(dir *directory.Service, authSvc *auth.Service, logger *zap.Logger) *Server {
	return &Server{dir: dir, auth: authSvc, logger: logger.Named("grpcapi")}
}

// ListenAndServe starts the gRPC server and blocks until ctx is cancelled or
// a fatal error occurs, gracefully draining in-flight RPCs on shutdown.
func (s *Server) ListenAndServe(ctx context.Context, cfg Config) error {
	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("grpcapi: failed to listen on %s: %w", cfg.ListenAddr, err)
	}

	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&userAPIServiceDesc, s)
	grpcServer.RegisterService(&authServiceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info("grpc server shutting down gracefully")
		grpcServer.GracefulStop()
	}()

	s.logger.Info("grpc server listening", zap.String("addr", cfg.ListenAddr))
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("grpcapi: server error: %w", err)
	}
	return nil
}

// ─── UserApi ──────────────────────────────────────────────────────────────

func userToMessage(u *models.User) UserMessage {
	msg := UserMessage{
		Id:                u.ID.String(),
		Username:          u.Username,
		UserPrincipalName: u.UserPrincipalName,
		Enabled:           u.Enabled,
	}
	if u.Email != nil {
		msg.Email = *u.Email
	}
	if u.DisplayName != nil {
		msg.DisplayName = *u.DisplayName
	}
	return msg
}

// GetUser looks up a single user by username.
func (s *Server) GetUser(ctx context.Context, req *GetUserRequest) (*GetUserResponse, error) {
	user, err := s.dir.FindUserByUsername(req.Username)
	if err != nil {
		return nil, dirStatus(err)
	}
	if user == nil {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return &GetUserResponse{User: userToMessage(user)}, nil
}

// ListUsers returns every user in the directory.
func (s *Server) ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error) {
	users, err := s.dir.GetAllUsers()
	if err != nil {
		return nil, dirStatus(err)
	}
	msgs := make([]UserMessage, len(users))
	for i := range users {
		msgs[i] = userToMessage(&users[i])
	}
	return &ListUsersResponse{Users: msgs}, nil
}

// CreateUser creates a new local user with a bcrypt-hashed password.
func (s *Server) CreateUser(ctx context.Context, req *CreateUserRequest) (*CreateUserResponse, error) {
	if !models.ValidUsername(req.Username) || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "username and password are required")
	}

	hash, err := models.NewBcryptPassword(req.Password)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:                 uuid.New(),
		SID:                models.NewNTAuthoritySID(1000),
		Username:           req.Username,
		UserPrincipalName:  req.Username + "@corp.acme.com",
		PasswordHash:       hash,
		LastPasswordChange: now,
		Enabled:            true,
		CreatedAt:          now,
		UpdatedAt:          now,
		Meta:               map[string]string{},
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if req.DisplayName != "" {
		user.DisplayName = &req.DisplayName
	}

	if err := s.dir.CreateUser(user); err != nil {
		return nil, dirStatus(err)
	}
	return &CreateUserResponse{User: userToMessage(user)}, nil
}

// ─── AuthService ──────────────────────────────────────────────────────────

// Login authenticates username/password and issues a JWT on success.
func (s *Server) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	token, _, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return nil, status.Error(codes.Unauthenticated, "invalid credentials")
		case errors.Is(err, auth.ErrAccountLocked):
			return nil, status.Error(codes.PermissionDenied, "account is locked out")
		case errors.Is(err, auth.ErrUserDisabled):
			return nil, status.Error(codes.PermissionDenied, "account is disabled")
		default:
			return nil, status.Error(codes.Internal, "login failed")
		}
	}
	return &LoginResponse{Token: token}, nil
}

// ValidateToken reports whether a JWT is currently valid.
func (s *Server) ValidateToken(ctx context.Context, req *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	claims, err := s.auth.ValidateToken(req.Token)
	if err != nil {
		return &ValidateTokenResponse{Valid: false}, nil
	}
	return &ValidateTokenResponse{Valid: true, UserId: claims.Subject}, nil
}

// dirStatus maps a directory.Error to the gRPC status the error-to-code
// table names: NotFound, AlreadyExists->AlreadyExists,
// InvalidInput/Serialization->InvalidArgument, DbError->Internal.
func dirStatus(err error) error {
	var derr *directory.Error
	if !errors.As(err, &derr) {
		return status.Error(codes.Internal, "internal error")
	}
	switch derr.Kind {
	case directory.ErrNotFound:
		return status.Error(codes.NotFound, derr.Msg)
	case directory.ErrAlreadyExists:
		return status.Error(codes.AlreadyExists, derr.Msg)
	case directory.ErrInvalidInput, directory.ErrSerialization:
		return status.Error(codes.InvalidArgument, derr.Msg)
	default:
		return status.Error(codes.Internal, derr.Msg)
	}
}
