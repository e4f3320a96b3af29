// Package store keeps uploaded chunks on disk with a bbolt index per session.
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/arc/v2"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/go-mediafix/internal/media"
)

const (
	loadConcurrency = 4
	// Chunks repaired against are loaded again for every upload of a session.
	cacheSize = 64
)

var (
	sessionsBucket = []byte("sessions")
	chunksBucket   = []byte("chunks")
	saneKey        = []byte("sane")

	sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

var (
	ErrInvalidSession = errors.New("invalid session name")
	ErrNotFound       = errors.New("chunk not found")
	ErrNoSane         = errors.New("session has no sane chunk")
)

// ChunkRecord is the index entry of a stored chunk.
type ChunkRecord struct {
	ID       string    `json:"id"`
	Session  string    `json:"session"`
	Seq      uint64    `json:"seq"`
	Format   string    `json:"format"`
	Size     int       `json:"size"`
	Path     string    `json:"path"`
	Debug    bool      `json:"debug"`
	Repaired bool      `json:"repaired"`
	Created  time.Time `json:"created"`
}

// Store is safe for concurrent use.
type Store struct {
	db  *bolt.DB
	dir string

	// chunk bytes by record ID, files are never rewritten
	cache *arc.ARCCache[string, []byte]
}

// Open opens or creates the index at dbPath. Chunk files go to dir.
func Open(dbPath, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create records dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("could not create database dir: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w: %v", err, dbPath)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create bucket: %w", err)
	}
	cache, err := arc.NewARC[string, []byte](cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create chunk cache: %w", err)
	}
	return &Store{db: db, dir: dir, cache: cache}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ValidSession reports whether name can be used as a session name.
func ValidSession(name string) bool {
	return sessionPattern.MatchString(name)
}

// Put writes data to a new chunk file and indexes it under session.
func (s *Store) Put(ctx context.Context, session string, format media.Format, data []byte, debug, repaired bool) (*ChunkRecord, error) {
	if !ValidSession(session) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSession, session)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := &ChunkRecord{
		ID:       uuid.NewString(),
		Session:  session,
		Format:   format.String(),
		Size:     len(data),
		Debug:    debug,
		Repaired: repaired,
		Created:  time.Now().UTC(),
	}
	name := session + "-" + rec.ID + "." + format.Extension()
	if debug {
		name = "debug-" + name
	}
	rec.Path = filepath.Join(s.dir, name)

	if err := os.WriteFile(rec.Path, data, 0o644); err != nil {
		return nil, fmt.Errorf("could not write chunk: %w", err)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		chunks, err := sessionChunks(tx, session)
		if err != nil {
			return err
		}
		seq, err := chunks.NextSequence()
		if err != nil {
			return err
		}
		rec.Seq = seq
		value, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return chunks.Put(encodeKey(seq), value)
	})
	if err != nil {
		os.Remove(rec.Path)
		return nil, fmt.Errorf("could not index chunk: %w", err)
	}
	return rec, nil
}

// List returns the records of session in upload order. An unknown session
// has no records.
func (s *Store) List(session string) ([]ChunkRecord, error) {
	if !ValidSession(session) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSession, session)
	}

	var records []ChunkRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket).Bucket([]byte(session))
		if b == nil {
			return nil
		}
		chunks := b.Bucket(chunksBucket)
		if chunks == nil {
			return nil
		}
		return chunks.ForEach(func(_, v []byte) error {
			var rec ChunkRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("could not unmarshal record: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Load reads the chunk file of rec. The returned slice may be shared with
// other callers and must not be modified.
func (s *Store) Load(rec ChunkRecord) ([]byte, error) {
	if data, ok := s.cache.Get(rec.ID); ok {
		return data, nil
	}
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return nil, fmt.Errorf("could not read chunk %s: %w", rec.ID, err)
	}
	s.cache.Add(rec.ID, data)
	return data, nil
}

// LoadAll reads the chunk files of recs concurrently. The result keeps the
// order of recs.
func (s *Store) LoadAll(ctx context.Context, recs []ChunkRecord) ([][]byte, error) {
	out := make([][]byte, len(recs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, rec := range recs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := s.Load(rec)
			if err != nil {
				return err
			}
			out[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetSane marks the chunk id as the one later chunks of session are repaired
// against.
func (s *Store) SetSane(session, id string) error {
	if !ValidSession(session) {
		return fmt.Errorf("%w: %q", ErrInvalidSession, session)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket).Bucket([]byte(session))
		if b == nil {
			return ErrNotFound
		}
		if _, err := findRecord(b, id); err != nil {
			return err
		}
		return b.Put(saneKey, []byte(id))
	})
}

// LastSane returns the chunk set by the latest SetSane call for session.
func (s *Store) LastSane(session string) (*ChunkRecord, error) {
	if !ValidSession(session) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSession, session)
	}
	var rec *ChunkRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket).Bucket([]byte(session))
		if b == nil {
			return ErrNoSane
		}
		id := b.Get(saneKey)
		if id == nil {
			return ErrNoSane
		}
		var err error
		rec, err = findRecord(b, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func sessionChunks(tx *bolt.Tx, session string) (*bolt.Bucket, error) {
	b, err := tx.Bucket(sessionsBucket).CreateBucketIfNotExists([]byte(session))
	if err != nil {
		return nil, err
	}
	return b.CreateBucketIfNotExists(chunksBucket)
}

// findRecord scans newest first, sane chunks are usually recent.
func findRecord(session *bolt.Bucket, id string) (*ChunkRecord, error) {
	chunks := session.Bucket(chunksBucket)
	if chunks == nil {
		return nil, ErrNotFound
	}
	c := chunks.Cursor()
	for k, v := c.Last(); k != nil; k, v = c.Prev() {
		var rec ChunkRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return nil, fmt.Errorf("could not unmarshal record: %w", err)
		}
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func encodeKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
