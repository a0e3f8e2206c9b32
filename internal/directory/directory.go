// Package directory implements the directory service facade: CRUD and index
// maintenance for users, groups, organizational units, domains and group
// policy objects, backed by an encrypted raddb.RadDB store.
package directory

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/events"
	"github.com/nextdomen/mextdomen/internal/raddb"
)

// Service is the directory's single entry point: every front end (LDAP,
// gRPC, REST, CLI) operates on it rather than touching the store directly.
type Service struct {
	db     *raddb.RadDB
	log    *auditLog
	logger *zap.Logger
	hub    *events.Hub
}

// Open opens the store at dataDir/raddb.db under key and the audit log at
// dataDir/mextdomen.log.
func Open(dataDir string, key raddb.MasterKey, logger *zap.Logger) (*Service, error) {
	db, err := raddb.Open(filepath.Join(dataDir, "raddb.db"), key)
	if err != nil {
		return nil, dbErr(err)
	}
	log, err := openAuditLog(filepath.Join(dataDir, "mextdomen.log"), logger)
	if err != nil {
		return nil, err
	}
	return &Service{db: db, log: log, logger: logger}, nil
}

// Close closes the audit log and flushes the store.
func (s *Service) Close() error {
	if err := s.log.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// store serializes value and writes it under key.
func (s *Service) store(key string, value any) error {
	data, err := gobEncode(value)
	if err != nil {
		return serErr(err)
	}
	if err := s.db.Set(key, data); err != nil {
		return dbErr(err)
	}
	return nil
}

// load reads the value under key into dst, reporting (false, nil) if absent.
func (s *Service) load(key string, dst any) (bool, error) {
	data, ok := s.db.Get(key)
	if !ok {
		return false, nil
	}
	if err := gobDecode(data, dst); err != nil {
		return false, serErr(err)
	}
	return true, nil
}

// SetEventHub attaches the hub future mutations are published to. Calling
// it is optional: a Service with no hub simply writes the file audit log.
func (s *Service) SetEventHub(hub *events.Hub) {
	s.hub = hub
}

// logAction appends one line to the audit log and, if an event hub is
// attached, publishes it for any live subscriber. userID is nil for actions
// not attributable to a specific principal.
func (s *Service) logAction(action, details string, userID *uuid.UUID) {
	s.log.record(action, details, userID)
	if s.hub == nil {
		return
	}
	s.hub.Publish(events.AuditEvent{
		ID:       uuid.New(),
		Action:   action,
		ActorID:  userID,
		Metadata: map[string]any{"details": details},
		Time:     time.Now().UTC(),
	})
}
