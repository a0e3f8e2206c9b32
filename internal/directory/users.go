package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextdomen/mextdomen/internal/models"
)

func userKey(id uuid.UUID) string             { return "user:" + id.String() }
func usernameIndexKey(username string) string { return "username_index:" + strings.ToLower(username) }
func emailIndexKey(email string) string       { return "email_index:" + strings.ToLower(email) }

const allUsersIndexKey = "all_users_index"

// CreateUser stores user, rejecting a username or email collision with a
// different principal, and records the new ID in the all-users index.
func (s *Service) CreateUser(user *models.User) error {
	if existing, err := s.FindUserByUsername(user.Username); err != nil {
		return err
	} else if existing != nil && existing.ID != user.ID {
		return alreadyExists(fmt.Sprintf("user with username %s already exists", user.Username))
	}

	if user.Email != nil {
		if existing, err := s.FindUserByEmail(*user.Email); err != nil {
			return err
		} else if existing != nil && existing.ID != user.ID {
			return alreadyExists(fmt.Sprintf("user with email %s already exists", *user.Email))
		}
	}

	if err := s.store(userKey(user.ID), user); err != nil {
		return err
	}
	if err := s.store(usernameIndexKey(user.Username), user.ID); err != nil {
		return err
	}
	if user.Email != nil {
		if err := s.store(emailIndexKey(*user.Email), user.ID); err != nil {
			return err
		}
	}

	var allUsers []uuid.UUID
	if _, err := s.load(allUsersIndexKey, &allUsers); err != nil {
		return err
	}
	if !containsUUID(allUsers, user.ID) {
		allUsers = append(allUsers, user.ID)
		if err := s.store(allUsersIndexKey, allUsers); err != nil {
			return err
		}
	}

	s.logAction("create_user", "username:"+user.Username, &user.ID)
	return nil
}

// GetUser returns the user with id, or (nil, nil) if absent.
func (s *Service) GetUser(id uuid.UUID) (*models.User, error) {
	var user models.User
	ok, err := s.load(userKey(id), &user)
	if err != nil || !ok {
		return nil, err
	}
	return &user, nil
}

// FindUserByUsername looks up a user through the username index.
func (s *Service) FindUserByUsername(username string) (*models.User, error) {
	var id uuid.UUID
	ok, err := s.load(usernameIndexKey(username), &id)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetUser(id)
}

// FindUserByEmail looks up a user through the email index.
func (s *Service) FindUserByEmail(email string) (*models.User, error) {
	var id uuid.UUID
	ok, err := s.load(emailIndexKey(email), &id)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetUser(id)
}

// GetAllUsers returns every user known to the directory.
func (s *Service) GetAllUsers() ([]models.User, error) {
	var ids []uuid.UUID
	if _, err := s.load(allUsersIndexKey, &ids); err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.GetUser(id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users = append(users, *u)
		}
	}
	return users, nil
}

// DeleteUser removes user, its index entries, and its group memberships.
func (s *Service) DeleteUser(userID uuid.UUID) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return notFound("user not found")
	}

	groups, err := s.FindGroupsByMember(userID)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if err := s.RemoveMemberFromGroup(g.ID, userID); err != nil {
			return err
		}
	}

	var allUsers []uuid.UUID
	if _, err := s.load(allUsersIndexKey, &allUsers); err != nil {
		return err
	}
	allUsers = removeUUID(allUsers, userID)
	if err := s.store(allUsersIndexKey, allUsers); err != nil {
		return err
	}

	if _, err := s.db.Remove(userKey(userID)); err != nil {
		return dbErr(err)
	}
	if _, err := s.db.Remove(usernameIndexKey(user.Username)); err != nil {
		return dbErr(err)
	}
	if user.Email != nil {
		if _, err := s.db.Remove(emailIndexKey(*user.Email)); err != nil {
			return dbErr(err)
		}
	}

	s.logAction("delete_user", "username:"+user.Username, &userID)
	return nil
}

// RenameUser optionally changes a user's username and/or display name.
func (s *Service) RenameUser(userID uuid.UUID, newUsername, newDisplayName *string) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return notFound("user not found")
	}

	if newUsername != nil {
		if existing, err := s.FindUserByUsername(*newUsername); err != nil {
			return err
		} else if existing != nil && existing.ID != userID {
			return alreadyExists(fmt.Sprintf("username %q already taken", *newUsername))
		}
		if _, err := s.db.Remove(usernameIndexKey(user.Username)); err != nil {
			return dbErr(err)
		}
		if err := s.store(usernameIndexKey(*newUsername), userID); err != nil {
			return err
		}
		user.Username = *newUsername
	}

	if newDisplayName != nil {
		user.DisplayName = newDisplayName
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.UpdateUser(user); err != nil {
		return err
	}
	s.logAction("rename_user", "user_id:"+userID.String(), &userID)
	return nil
}

// UpdateUser persists changes to an existing user. It shares CreateUser's
// collision-checking path since both simply overwrite the stored record.
func (s *Service) UpdateUser(user *models.User) error {
	return s.CreateUser(user)
}

func containsUUID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func removeUUID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
