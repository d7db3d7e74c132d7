// Package snapshot serializes a unit's semantic model to bytes and back.
//
// A snapshot is a msgpack envelope carrying identifying metadata (source
// path, dialect, invocation fingerprint) and a SQLite database payload in
// the internal/store schema. The payload is checksummed so truncated or
// altered blobs are rejected before SQLite sees them.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jward/cppreflect/internal/model"
	"github.com/jward/cppreflect/internal/store"
)

// Magic identifies a snapshot envelope.
const Magic = "CPPREFLECT-SNAP"

// Schema is the envelope version; bump it when Envelope or the store
// schema changes incompatibly.
const Schema uint16 = 1

var (
	// ErrCorrupt is returned for bytes that are not a well-formed snapshot.
	ErrCorrupt = errors.New("snapshot: corrupt")
	// ErrMismatch is returned when a snapshot does not belong to the session
	// it is loaded into.
	ErrMismatch = errors.New("snapshot: mismatch")
)

// Header is the identifying metadata of a snapshot.
type Header struct {
	Schema      uint16
	Source      string
	Language    string
	Standard    string
	Fingerprint string
}

// Envelope is the on-the-wire form of a snapshot.
type Envelope struct {
	Magic string
	Header
	Checksum [sha256.Size]byte
	Payload  []byte
}

const metaSchemaKey = "schema_version"

// Encode serializes m. tmpDir hosts the scratch database ("" for the
// system default); the scratch file is removed before Encode returns.
func Encode(m *model.Model, tmpDir string) ([]byte, error) {
	dir, err := os.MkdirTemp(tmpDir, "cppreflect-snap-*")
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	defer os.RemoveAll(dir)

	dbPath := filepath.Join(dir, "unit.db")
	if err := writeDatabase(m, dbPath); err != nil {
		return nil, fmt.Errorf("snapshot: encode %s: %w", m.Path, err)
	}
	payload, err := os.ReadFile(dbPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}

	env := Envelope{
		Magic: Magic,
		Header: Header{
			Schema:      Schema,
			Source:      m.Path,
			Language:    m.Language,
			Standard:    m.Standard,
			Fingerprint: m.Fingerprint,
		},
		Checksum: sha256.Sum256(payload),
		Payload:  payload,
	}
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&env); err != nil {
		return nil, fmt.Errorf("snapshot: encode envelope: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDatabase(m *model.Model, dbPath string) error {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	// Leaving WAL mode in Checkpoint needs the only connection.
	s.DB().SetMaxOpenConns(1)
	if err := s.Migrate(); err != nil {
		return err
	}
	if err := s.SetMeta(metaSchemaKey, strconv.Itoa(store.SchemaVersion)); err != nil {
		return err
	}
	unitID, err := s.InsertUnit(&store.Unit{
		Path:        m.Path,
		Language:    m.Language,
		Standard:    m.Standard,
		Fingerprint: m.Fingerprint,
		IndexedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	batch := store.NewBatchedStore()
	if err := Write(batch, unitID, m); err != nil {
		return err
	}
	if err := s.CommitBatch(batch); err != nil {
		return err
	}
	return s.Checkpoint()
}

func decodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Magic != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, env.Magic)
	}
	if env.Schema != Schema {
		return nil, fmt.Errorf("%w: schema %d, want %d", ErrCorrupt, env.Schema, Schema)
	}
	return &env, nil
}

// ReadHeader decodes only the envelope metadata, without verifying or
// opening the payload.
func ReadHeader(data []byte) (*Header, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	h := env.Header
	return &h, nil
}

// Decode rehydrates the model carried by data. The payload is written to a
// temporary file under tmpDir ("" for the system default) which is removed
// on every exit path.
func Decode(data []byte, tmpDir string) (*model.Model, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if sha256.Sum256(env.Payload) != env.Checksum {
		return nil, fmt.Errorf("%w: payload checksum mismatch", ErrCorrupt)
	}

	f, err := os.CreateTemp(tmpDir, "cppreflect-unit-*.db")
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(env.Payload); err != nil {
		f.Close()
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}

	s, err := store.OpenReadOnly(f.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer s.Close()

	if err := checkStoreSchema(s); err != nil {
		return nil, err
	}
	m, err := Read(s, env.Source)
	if err != nil {
		return nil, err
	}
	if m.Language != env.Language || m.Standard != env.Standard || m.Fingerprint != env.Fingerprint {
		return nil, fmt.Errorf("%w: envelope and payload disagree for %s", ErrCorrupt, env.Source)
	}
	return m, nil
}

func checkStoreSchema(s *store.Store) error {
	v, ok, err := s.Meta(metaSchemaKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !ok {
		return fmt.Errorf("%w: payload has no schema version", ErrCorrupt)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: schema version %q", ErrCorrupt, v)
	}
	got, err := safecast.Conv[uint16](n)
	if err != nil || int(got) != store.SchemaVersion {
		return fmt.Errorf("%w: payload schema %s, want %d", ErrCorrupt, v, store.SchemaVersion)
	}
	return nil
}
