package auth

import (
	"time"

	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/models"
)

// maxFailedLogins is the number of consecutive failed attempts before an
// account is locked out.
const maxFailedLogins = 5

// lockoutDuration is how long an account stays locked after tripping
// maxFailedLogins.
const lockoutDuration = 15 * time.Minute

// Service is the entry point for authentication: username/password
// verification against the directory plus JWT issuance.
type Service struct {
	dir        *directory.Service
	jwtManager *JWTManager
}

// NewService constructs a Service over dir, the directory holding user
// records, and jwtManager, used to sign and verify issued tokens.
func NewService(dir *directory.Service, jwtManager *JWTManager) *Service {
	return &Service{dir: dir, jwtManager: jwtManager}
}

// Login verifies username/password and, on success, issues a JWT. An unknown
// username and a wrong password both return ErrInvalidCredentials; an
// unknown username returns at once, without touching any user record.
func (s *Service) Login(username, password string) (token string, user *models.User, err error) {
	found, err := s.dir.FindUserByUsername(username)
	if err != nil {
		return "", nil, err
	}
	if found == nil {
		return "", nil, ErrInvalidCredentials
	}

	if found.LockoutUntil != nil && found.LockoutUntil.After(time.Now().UTC()) {
		return "", nil, ErrAccountLocked
	}
	if !found.Enabled {
		return "", nil, ErrUserDisabled
	}

	ok, verr := found.PasswordHash.Verify(password)
	if verr != nil {
		return "", nil, verr
	}
	if !ok {
		found.FailedLogins++
		if found.FailedLogins >= maxFailedLogins {
			until := time.Now().UTC().Add(lockoutDuration)
			found.LockoutUntil = &until
		}
		if uerr := s.dir.UpdateUser(found); uerr != nil {
			return "", nil, uerr
		}
		return "", nil, ErrInvalidCredentials
	}

	found.FailedLogins = 0
	found.LockoutUntil = nil
	now := time.Now().UTC()
	found.LastLogin = &now
	if err := s.dir.UpdateUser(found); err != nil {
		return "", nil, err
	}

	token, err = s.jwtManager.GenerateToken(found.ID.String())
	if err != nil {
		return "", nil, err
	}
	return token, found, nil
}

// ValidateToken parses and verifies a JWT issued by this service.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return s.jwtManager.ValidateToken(tokenString)
}
