package directory

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// auditLog is an append-only line-oriented action log. Opening the file is
// fatal to service construction, since a directory with no audit trail is
// not a directory this implementation is willing to run; a single failed
// write is downgraded to a logged warning instead, so a transient disk issue
// on the audit file never blocks a mutation that already committed to the
// store.
type auditLog struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

func openAuditLog(path string, logger *zap.Logger) (*auditLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, invalidInput(fmt.Sprintf("failed to open log file: %s", err))
	}
	return &auditLog{file: f, logger: logger}, nil
}

// record writes one "<RFC3339> | ACTION: <name> | DETAILS: <details> | USER: <Some(uuid)|None>"
// line to the log.
func (a *auditLog) record(action, details string, userID *uuid.UUID) {
	user := "None"
	if userID != nil {
		user = "Some(" + userID.String() + ")"
	}
	line := fmt.Sprintf("%s | ACTION: %s | DETAILS: %s | USER: %s\n",
		time.Now().UTC().Format(time.RFC3339), action, details, user)

	a.mu.Lock()
	_, err := a.file.WriteString(line)
	a.mu.Unlock()

	if err != nil && a.logger != nil {
		a.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func (a *auditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
