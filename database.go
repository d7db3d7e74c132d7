package cppreflect

import (
	"fmt"
	"sync/atomic"

	"github.com/jward/cppreflect/internal/compdb"
)

// DatabaseEntry holds the embedded bytes of a compilation database.
type DatabaseEntry struct {
	blob   Blob
	parses atomic.Int32
}

func NewDatabaseEntry(b Blob) *DatabaseEntry {
	return &DatabaseEntry{blob: b}
}

func (e *DatabaseEntry) Blob() Blob { return e.blob }

// Parse decodes the database. It does not memoize; the Registry parses its
// entry once.
func (e *DatabaseEntry) Parse() (*Database, error) {
	e.parses.Add(1)
	db, err := compdb.Parse(e.blob.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}
	return db, nil
}
