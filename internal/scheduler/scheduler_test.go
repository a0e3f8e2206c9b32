package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/models"
	"github.com/nextdomen/mextdomen/internal/raddb"
)

func newTestDir(t *testing.T) *directory.Service {
	t.Helper()
	key, err := raddb.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	dir, err := directory.Open(t.TempDir(), key, zap.NewNop())
	if err != nil {
		t.Fatalf("directory.Open: %v", err)
	}
	t.Cleanup(func() { dir.Close() })
	return dir
}

func newTestUser(t *testing.T, dir *directory.Service, username string) *models.User {
	t.Helper()
	hash, err := models.NewBcryptPassword("hunter222222")
	if err != nil {
		t.Fatalf("NewBcryptPassword: %v", err)
	}
	user := &models.User{
		ID:                 uuid.New(),
		SID:                models.NewNTAuthoritySID(1000),
		Username:           username,
		UserPrincipalName:  username + "@example.test",
		PasswordHash:       hash,
		Enabled:            true,
		LastPasswordChange: time.Now().UTC().AddDate(0, 0, -10),
	}
	if err := dir.CreateUser(user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestSweepPasswordExpiryStampsUnexpiredUsers(t *testing.T) {
	dir := newTestDir(t)
	user := newTestUser(t, dir, "alice")

	s, err := New(dir, Config{MaxAgeDays: 90}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.sweepPasswordExpiry()

	updated, err := dir.FindUserByUsername(user.Username)
	if err != nil {
		t.Fatalf("FindUserByUsername: %v", err)
	}
	if updated.PasswordExpires == nil {
		t.Fatal("expected PasswordExpires to be stamped")
	}
	want := user.LastPasswordChange.AddDate(0, 0, 90)
	if !updated.PasswordExpires.Equal(want) {
		t.Fatalf("PasswordExpires = %v, want %v", updated.PasswordExpires, want)
	}
}

func TestSweepPasswordExpiryDisabledByZeroMaxAge(t *testing.T) {
	dir := newTestDir(t)
	user := newTestUser(t, dir, "bob")

	s, err := New(dir, Config{MaxAgeDays: 0}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.sweepPasswordExpiry()

	updated, err := dir.FindUserByUsername(user.Username)
	if err != nil {
		t.Fatalf("FindUserByUsername: %v", err)
	}
	if updated.PasswordExpires != nil {
		t.Fatal("expected PasswordExpires to remain unset when MaxAgeDays is 0")
	}
}

func TestSweepLockoutsReleasesExpiredLockouts(t *testing.T) {
	dir := newTestDir(t)
	user := newTestUser(t, dir, "carol")

	past := time.Now().UTC().Add(-time.Minute)
	user.LockoutUntil = &past
	user.FailedLogins = 5
	if err := dir.UpdateUser(user); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	s, err := New(dir, Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.sweepLockouts()

	updated, err := dir.FindUserByUsername(user.Username)
	if err != nil {
		t.Fatalf("FindUserByUsername: %v", err)
	}
	if updated.LockoutUntil != nil {
		t.Fatal("expected LockoutUntil to be cleared")
	}
	if updated.FailedLogins != 0 {
		t.Fatalf("expected FailedLogins reset to 0, got %d", updated.FailedLogins)
	}
}

func TestSweepLockoutsLeavesActiveLockoutsAlone(t *testing.T) {
	dir := newTestDir(t)
	user := newTestUser(t, dir, "dave")

	future := time.Now().UTC().Add(time.Hour)
	user.LockoutUntil = &future
	user.FailedLogins = 5
	if err := dir.UpdateUser(user); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	s, err := New(dir, Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.sweepLockouts()

	updated, err := dir.FindUserByUsername(user.Username)
	if err != nil {
		t.Fatalf("FindUserByUsername: %v", err)
	}
	if updated.LockoutUntil == nil {
		t.Fatal("expected active LockoutUntil to remain set")
	}
}
