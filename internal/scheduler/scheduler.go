// Package scheduler runs the periodic housekeeping sweeps implied by the
// directory's password policy: stamping a password's expiry date once it is
// known, and releasing accounts whose lockout window has elapsed. Both run
// on a fixed interval via gocron rather than in the request path, the same
// way the teacher's backup scheduler kept per-policy ticks out of request
// handlers.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/directory"
)

// defaultSweepInterval is how often both sweeps run when Config.Interval is
// zero.
const defaultSweepInterval = 15 * time.Minute

// Config configures the housekeeping sweeps.
type Config struct {
	// MaxAgeDays is the password policy's maximum password age. A user's
	// PasswordExpires is derived from LastPasswordChange + MaxAgeDays.
	// Zero disables the password-expiry sweep.
	MaxAgeDays int

	// Interval is how often both sweeps tick. Defaults to 15 minutes.
	Interval time.Duration
}

// Scheduler wraps gocron and runs the directory's housekeeping jobs.
// The zero value is not usable — create instances with New.
type Scheduler struct {
	cron   gocron.Scheduler
	dir    *directory.Service
	cfg    Config
	logger *zap.Logger
}

// New creates and configures a new Scheduler. Call Start to begin ticking.
func New(dir *directory.Service, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSweepInterval
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		cron:   s,
		dir:    dir,
		cfg:    cfg,
		logger: logger.Named("scheduler"),
	}, nil
}

// Start registers both sweeps and starts the underlying gocron scheduler.
// Called once at server startup, after the directory is opened.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(s.sweepPasswordExpiry),
		gocron.WithTags("password-expiry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("failed to schedule password-expiry sweep: %w", err)
	}

	if _, err := s.cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(s.sweepLockouts),
		gocron.WithTags("lockout-release"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("failed to schedule lockout-release sweep: %w", err)
	}

	s.logger.Info("scheduler started", zap.Duration("interval", s.cfg.Interval))
	s.cron.Start()
	return nil
}

// Stop gracefully shuts down the underlying gocron scheduler, waiting for any
// currently running sweep to complete before returning.
func (s *Scheduler) Stop() error {
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown error: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// sweepPasswordExpiry stamps PasswordExpires on every enabled user whose
// password has a known change time but no expiry yet, using the configured
// MaxAgeDays, whether or not that date has already passed. Disabled users,
// users that already have an expiry, and every user when MaxAgeDays <= 0 are
// left untouched.
func (s *Scheduler) sweepPasswordExpiry() {
	if s.cfg.MaxAgeDays <= 0 {
		return
	}

	users, err := s.dir.GetAllUsers()
	if err != nil {
		s.logger.Error("password-expiry sweep: failed to list users", zap.Error(err))
		return
	}

	stamped := 0
	for i := range users {
		u := &users[i]
		if !u.Enabled || u.PasswordExpires != nil || u.LastPasswordChange.IsZero() {
			continue
		}
		expires := u.LastPasswordChange.AddDate(0, 0, s.cfg.MaxAgeDays)
		u.PasswordExpires = &expires
		u.UpdatedAt = time.Now().UTC()
		if err := s.dir.UpdateUser(u); err != nil {
			s.logger.Warn("password-expiry sweep: failed to update user",
				zap.String("username", u.Username), zap.Error(err))
			continue
		}
		stamped++
	}
	if stamped > 0 {
		s.logger.Info("password-expiry sweep complete", zap.Int("users_stamped", stamped))
	}
}

// sweepLockouts clears LockoutUntil and resets FailedLogins on every user
// whose lockout window has elapsed, so the next login attempt is evaluated
// fresh instead of waiting for auth.Service to notice at login time.
func (s *Scheduler) sweepLockouts() {
	users, err := s.dir.GetAllUsers()
	if err != nil {
		s.logger.Error("lockout-release sweep: failed to list users", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	released := 0
	for i := range users {
		u := &users[i]
		if u.LockoutUntil == nil || u.LockoutUntil.After(now) {
			continue
		}
		u.LockoutUntil = nil
		u.FailedLogins = 0
		u.UpdatedAt = now
		if err := s.dir.UpdateUser(u); err != nil {
			s.logger.Warn("lockout-release sweep: failed to update user",
				zap.String("username", u.Username), zap.Error(err))
			continue
		}
		released++
	}
	if released > 0 {
		s.logger.Info("lockout-release sweep complete", zap.Int("users_released", released))
	}
}
