package catalogstore

import (
	"errors"
	"log"
)

// ErrInvalidCollection is returned when a caller names a collection
// the Catalog does not manage.
var ErrInvalidCollection = errors.New("catalogstore: invalid collection")

// ErrNotFound is returned by FindOne when no document matches.
var ErrNotFound = errors.New("catalogstore: document not found")

func logPersistError(collection, action, docID string, err error) {
	log.Printf("catalogstore: %s on %s (id=%s) failed to persist: %v", action, collection, docID, err)
}

func logAuditError(collection, action, docID string, err error) {
	log.Printf("catalogstore: audit record for %s %s (id=%s) failed: %v", action, collection, docID, err)
}
