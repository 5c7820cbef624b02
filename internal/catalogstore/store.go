// Package catalogstore implements the Catalog Store: a set of named,
// in-memory document collections (User, Game, Version, Room, Review)
// durably mirrored one JSON file per collection under a data
// directory, each guarded by its own mutex for the full duration of a
// scan or mutation. This is grounded in original_source/server/database_server.py,
// generalized from the teacher's internal/database package (which used
// database/sql against SQLite/Postgres for a fixed relational schema)
// into a schema-less document store, since the spec's Catalog holds
// arbitrary JSON documents rather than typed SQL rows.
package catalogstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CollectionNames enumerates every collection the Catalog manages.
var CollectionNames = []string{"User", "Game", "Version", "Room", "Review"}

// Doc is a single stored document: a flat JSON object plus its id.
type Doc map[string]any

// Query is a flat key/value equality predicate, ANDed across all
// entries.
type Query map[string]any

// collection is one named document set: an in-memory map plus the
// mutex that serializes every operation against it, including the
// full-file rewrite on mutation.
type collection struct {
	mu   sync.Mutex
	docs map[string]Doc
	path string
}

// Store is the Catalog's full set of collections.
type Store struct {
	dataDir     string
	collections map[string]*collection

	// AuditSink, if set, receives a best-effort record of every
	// successful mutation. A failure here never rolls back or fails
	// the mutation itself (see SPEC_FULL.md §11, Open Question 1).
	AuditSink AuditSink
}

// Open loads (or creates) dataDir and every collection's backing JSON
// file.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("catalogstore: creating data dir: %w", err)
	}

	s := &Store{
		dataDir:     dataDir,
		collections: make(map[string]*collection, len(CollectionNames)),
	}

	for _, name := range CollectionNames {
		path := filepath.Join(dataDir, name+".json")
		docs, err := loadCollection(path)
		if err != nil {
			return nil, fmt.Errorf("catalogstore: loading %s: %w", name, err)
		}
		s.collections[name] = &collection{docs: docs, path: path}
	}

	return s, nil
}

func loadCollection(path string) (map[string]Doc, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]Doc), nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return make(map[string]Doc), nil
	}

	var docs map[string]Doc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return docs, nil
}

// saveLocked serializes c.docs to its JSON file using write-temp-then-
// rename, so the on-disk file is either the previous or the new
// serialization, never a partial one (per SPEC_FULL.md §4.2,
// strengthening the original's direct overwrite). A returned error is
// only logged by the mutating callers; their response still reports
// success. Caller must hold c.mu.
func (c *collection) saveLocked() error {
	data, err := json.MarshalIndent(c.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

func matches(doc Doc, q Query) bool {
	for key, want := range q {
		got, ok := doc[key]
		if !ok {
			return false
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares decoded-JSON values the way a round trip would:
// numbers as float64, so e.g. a query built from a Go int compares
// equal to a float64 loaded back from disk; everything else via direct
// equality, falling back to string formatting.
func valuesEqual(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Insert assigns a fresh id if data has none, stamps created_at, and
// persists the collection. Returns the assigned id.
func (s *Store) Insert(collectionName string, data Doc) (string, error) {
	c, ok := s.collections[collectionName]
	if !ok {
		return "", ErrInvalidCollection
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, _ := data["_id"].(string)
	if id == "" {
		id = uuid.New().String()
	}
	data["_id"] = id
	data["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	c.docs[id] = data

	err := c.saveLocked()
	s.audit(collectionName, "insert", id, err)
	// Per SPEC_FULL.md §11: a persistence failure is logged but does
	// not roll back the in-memory insert or fail the response.
	return id, nil
}

// Find returns every document matching query.
func (s *Store) Find(collectionName string, query Query) ([]Doc, error) {
	c, ok := s.collections[collectionName]
	if !ok {
		return nil, ErrInvalidCollection
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var results []Doc
	for _, doc := range c.docs {
		if matches(doc, query) {
			results = append(results, doc)
		}
	}
	return results, nil
}

// FindOne returns the first document matching query, or ErrNotFound.
func (s *Store) FindOne(collectionName string, query Query) (Doc, error) {
	c, ok := s.collections[collectionName]
	if !ok {
		return nil, ErrInvalidCollection
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.docs {
		if matches(doc, query) {
			return doc, nil
		}
	}
	return nil, ErrNotFound
}

// Update applies update to every document matching query, stamping
// updated_at on each, and persists the collection if anything changed.
// Returns the count of updated documents.
func (s *Store) Update(collectionName string, query Query, update Doc) (int, error) {
	c, ok := s.collections[collectionName]
	if !ok {
		return 0, ErrInvalidCollection
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	count := 0
	var lastID string
	for id, doc := range c.docs {
		if !matches(doc, query) {
			continue
		}
		for k, v := range update {
			doc[k] = v
		}
		doc["updated_at"] = now
		c.docs[id] = doc
		count++
		lastID = id
	}

	if count > 0 {
		err := c.saveLocked()
		s.audit(collectionName, "update", lastID, err)
	}
	return count, nil
}

// Delete removes every document matching query and persists the
// collection if anything was removed. Returns the count of removed
// documents.
func (s *Store) Delete(collectionName string, query Query) (int, error) {
	c, ok := s.collections[collectionName]
	if !ok {
		return 0, ErrInvalidCollection
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var toDelete []string
	for id, doc := range c.docs {
		if matches(doc, query) {
			toDelete = append(toDelete, id)
		}
	}
	for _, id := range toDelete {
		delete(c.docs, id)
	}

	if len(toDelete) > 0 {
		err := c.saveLocked()
		s.audit(collectionName, "delete", toDelete[len(toDelete)-1], err)
	}
	return len(toDelete), nil
}

func (s *Store) audit(collection, action, docID string, persistErr error) {
	if persistErr != nil {
		logPersistError(collection, action, docID, persistErr)
	}
	if s.AuditSink == nil {
		return
	}
	if err := s.AuditSink.Record(collection, action, docID); err != nil {
		logAuditError(collection, action, docID, err)
	}
}
