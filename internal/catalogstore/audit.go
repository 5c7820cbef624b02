package catalogstore

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// AuditSink records a best-effort, append-only log of catalog
// mutations. It is secondary to the JSON files that remain the system
// of record (SPEC_FULL.md §4.2, §10): a sink outage degrades
// observability, never correctness.
type AuditSink interface {
	Record(collection, action, docID string) error
	Close() error
}

// SQLAuditSink persists audit records to a database/sql connection,
// grounded in the driver switch from internal/database/database.go
// (SQLite for single-operator deployments, Postgres when an operator
// points AUDIT_DB_DSN at one).
type SQLAuditSink struct {
	db *sql.DB
}

// OpenAuditSink opens dbType ("sqlite" or "postgres") at dsn and
// ensures the audit_log table exists.
func OpenAuditSink(dbType, dsn string) (*SQLAuditSink, error) {
	var driver string
	switch dbType {
	case "sqlite":
		driver = "sqlite3"
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("audit: creating db dir: %w", err)
			}
		}
	case "postgres":
		driver = "postgres"
	default:
		return nil, fmt.Errorf("audit: unsupported db type %q", dbType)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", dbType, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: pinging %s: %w", dbType, err)
	}

	schema := auditSchema(dbType)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: creating schema: %w", err)
	}

	log.Printf("audit sink ready (%s)", dbType)
	return &SQLAuditSink{db: db}, nil
}

func auditSchema(dbType string) string {
	if dbType == "postgres" {
		return `CREATE TABLE IF NOT EXISTS audit_log (
			id SERIAL PRIMARY KEY,
			collection TEXT NOT NULL,
			action TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)`
	}
	return `CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		action TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	)`
}

// Record inserts one audit row.
func (s *SQLAuditSink) Record(collection, action, docID string) error {
	_, err := s.db.Exec(
		"INSERT INTO audit_log (collection, action, doc_id, recorded_at) VALUES ($1, $2, $3, $4)",
		collection, action, docID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Close releases the underlying connection pool.
func (s *SQLAuditSink) Close() error {
	return s.db.Close()
}
