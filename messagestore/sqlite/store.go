// Package sqlite provides a SQLite-backed MessageStore and a unit-of-work
// provider mapped onto database transactions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/streamhaven/eventflow"
	"github.com/streamhaven/eventflow/messagestore/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Config controls how the store opens its database file.
type Config struct {
	// Path is the database file location.
	Path string `env:"EVENTFLOW_STORE_PATH" envDefault:"eventflow.db"`

	// BusyTimeout is how long writers wait on a locked database.
	BusyTimeout time.Duration `env:"EVENTFLOW_STORE_BUSY_TIMEOUT" envDefault:"5s"`
}

// ConfigFromEnv reads the store configuration from the environment.
func ConfigFromEnv() (Config, error) {
	return env.ParseAs[Config]()
}

// Store persists the message log in SQLite. It implements both the
// MessageStore interface and the UnitOfWork interface: scopes opened through
// Begin map directly onto database transactions.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite message store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	return OpenConfig(Config{Path: path, BusyTimeout: 5 * time.Second})
}

// OpenConfig opens a SQLite message store with explicit configuration.
func OpenConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(cfg.Path) + fmt.Sprintf(
		"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.BusyTimeout.Milliseconds(),
	)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close implements the MessageStore interface.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Begin implements the UnitOfWork interface. The returned scope wraps one
// database transaction; handlers retrieve it with ScopeFromContext and issue
// their writes through Tx.
func (s *Store) Begin(ctx context.Context) (eventflow.Scope, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &TxScope{tx: tx}, nil
}

// TxScope is a unit-of-work scope backed by a database transaction.
type TxScope struct {
	tx   *sql.Tx
	done bool
}

// Tx exposes the underlying transaction for persistence calls made inside
// the scope.
func (s *TxScope) Tx() *sql.Tx {
	return s.tx
}

// Commit implements the Scope interface.
func (s *TxScope) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Commit()
}

// Rollback implements the Scope interface.
func (s *TxScope) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Rollback()
}

// Append implements the MessageStore interface. The stream position is
// assigned inside the insert transaction, so positions stay gapless per
// stream; the global position is the autoincrement rowid.
func (s *Store) Append(ctx context.Context, msg eventflow.Message) (*eventflow.Record, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, eventflow.WrapStoreError(err)
	}
	defer func() { _ = tx.Rollback() }()

	var currentVersion uint64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM messages WHERE stream_name = ?`,
		msg.StreamName,
	).Scan(&currentVersion)
	if err != nil {
		return nil, eventflow.WrapStoreError(err)
	}

	if msg.ExpectedVersion != nil && *msg.ExpectedVersion != currentVersion {
		return nil, &eventflow.StreamRevisionConflictError{
			Stream:   msg.StreamName,
			Expected: *msg.ExpectedVersion,
			Actual:   currentVersion,
		}
	}

	msg.Position = currentVersion + 1
	created := time.Now().UTC()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO messages (
		   message_id, stream_name, type, kind, owner, schema_version,
		   payload, position, version, status, time, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageID.String(),
		msg.StreamName,
		msg.Type,
		string(msg.Metadata.Kind),
		msg.Metadata.Owner,
		msg.Metadata.SchemaVersion,
		string(msg.Data),
		msg.Position,
		1,
		string(eventflow.StatusNew),
		toMillis(msg.Time),
		toMillis(created),
		toMillis(created),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &eventflow.DuplicateIdentifierError{MessageID: msg.MessageID}
		}
		return nil, eventflow.WrapStoreError(err)
	}

	globalPosition, err := result.LastInsertId()
	if err != nil {
		return nil, eventflow.WrapStoreError(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, eventflow.WrapStoreError(err)
	}

	msg.GlobalPosition = uint64(globalPosition)
	return &eventflow.Record{
		Message:   msg,
		Status:    eventflow.StatusNew,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}

// NextToPublish implements the MessageStore interface.
func (s *Store) NextToPublish(ctx context.Context) (*eventflow.Record, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		selectRecord+` WHERE status = ? ORDER BY global_position ASC LIMIT 1`,
		string(eventflow.StatusNew),
	)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eventflow.WrapStoreError(err)
	}
	return rec, nil
}

// MarkPublished implements the MessageStore interface.
func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, eventflow.StatusNew, eventflow.StatusPublished)
}

// MarkConsumed implements the MessageStore interface.
func (s *Store) MarkConsumed(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, eventflow.StatusPublished, eventflow.StatusConsumed)
}

// transition advances a record's status with a conditional update, so
// concurrent callers racing on the same record see exactly one winner.
func (s *Store) transition(ctx context.Context, id uuid.UUID, from, to eventflow.Status) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE messages
		    SET status = ?, version = version + 1, updated_at = ?
		  WHERE message_id = ? AND status = ?`,
		string(to),
		toMillis(time.Now().UTC()),
		id.String(),
		string(from),
	)
	if err != nil {
		return eventflow.WrapStoreError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return eventflow.WrapStoreError(err)
	}
	if affected == 1 {
		return nil
	}

	var current string
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT status FROM messages WHERE message_id = ?`, id.String(),
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return eventflow.ErrMessageNotFound
	}
	if err != nil {
		return eventflow.WrapStoreError(err)
	}
	return &eventflow.StateTransitionError{
		MessageID: id,
		From:      eventflow.Status(current),
		To:        to,
	}
}

// ReadStream implements the MessageStore interface.
func (s *Store) ReadStream(ctx context.Context, streamName string) (*eventflow.Iterator[*eventflow.Record], error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		selectRecord+` WHERE stream_name = ? ORDER BY position ASC`,
		streamName,
	)
	if err != nil {
		return nil, eventflow.WrapStoreError(err)
	}

	records, err := collectRecords(rows)
	if err != nil {
		return nil, eventflow.WrapStoreError(err)
	}
	return eventflow.NewSliceIterator(records), nil
}

// MessagesByType implements the MessageStore interface.
func (s *Store) MessagesByType(ctx context.Context, typeName string) ([]*eventflow.Record, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		selectRecord+` WHERE type = ? ORDER BY created_at DESC, global_position DESC`,
		typeName,
	)
	if err != nil {
		return nil, eventflow.WrapStoreError(err)
	}

	records, err := collectRecords(rows)
	if err != nil {
		return nil, eventflow.WrapStoreError(err)
	}
	return records, nil
}

// MostRecentByType implements the MessageStore interface.
func (s *Store) MostRecentByType(ctx context.Context, typeName string) (*eventflow.Record, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		selectRecord+` WHERE type = ? ORDER BY created_at DESC, global_position DESC LIMIT 1`,
		typeName,
	)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eventflow.WrapStoreError(err)
	}
	return rec, nil
}

const selectRecord = `
SELECT message_id, stream_name, type, kind, owner, schema_version,
       payload, position, global_position, version, status, time,
       created_at, updated_at
  FROM messages`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*eventflow.Record, error) {
	var (
		messageID string
		payload   string
		kind      string
		status    string
		eventTime int64
		createdAt int64
		updatedAt int64
		rec       eventflow.Record
	)

	err := row.Scan(
		&messageID,
		&rec.StreamName,
		&rec.Type,
		&kind,
		&rec.Metadata.Owner,
		&rec.Metadata.SchemaVersion,
		&payload,
		&rec.Position,
		&rec.GlobalPosition,
		&rec.Version,
		&status,
		&eventTime,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.MessageID, err = uuid.Parse(messageID)
	if err != nil {
		return nil, fmt.Errorf("parse message id %q: %w", messageID, err)
	}
	rec.Metadata.Kind = eventflow.Kind(kind)
	rec.Status = eventflow.Status(status)
	if payload != "" {
		rec.Data = json.RawMessage(payload)
	}
	rec.Time = fromMillis(eventTime)
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*eventflow.Record, error) {
	defer rows.Close()

	var records []*eventflow.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return false
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
