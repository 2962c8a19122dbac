package history

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/jamesainslie/qcheck/pkg/qcheck/logging"
)

var logger = logging.Get("history")

// ErrNotFound is returned when no record matches an ID.
var ErrNotFound = errors.New("history record not found")

// ErrAmbiguousID is returned when an ID prefix matches several records.
var ErrAmbiguousID = errors.New("ambiguous history id")

// Key layout:
//
//	r\x00<8-byte big-endian unix nanos>\x00<uuid>  -> encoded Record
//	i\x00<uuid>                                    -> record key
//
// Record keys sort chronologically; the index resolves IDs.
var (
	recordPrefix = []byte("r\x00")
	indexPrefix  = []byte("i\x00")
)

func recordKey(ts time.Time, id string) []byte {
	key := make([]byte, 0, len(recordPrefix)+8+1+len(id))
	key = append(key, recordPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(ts.UnixNano()))
	key = append(key, 0)
	return append(key, id...)
}

func indexKey(id string) []byte {
	return append(append([]byte{}, indexPrefix...), id...)
}

// recordTime extracts the timestamp from a record key.
func recordTime(key []byte) time.Time {
	n := len(recordPrefix)
	if len(key) < n+8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(key[n:n+8])))
}

// Store wraps Badger for run history.
type Store struct {
	db    *badger.DB
	codec *codec
	now   func() time.Time
}

// Open opens or creates a history database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	c, err := newCodec()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, codec: c, now: time.Now}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.codec.close()
	return s.db.Close()
}

// Put stores r, assigning an ID and timestamp when they are unset.
func (s *Store) Put(r *Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}

	value, err := s.codec.encode(r)
	if err != nil {
		return err
	}

	key := recordKey(r.Timestamp, r.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(indexKey(r.ID), key)
	})
	if err != nil {
		return fmt.Errorf("storing history record: %w", err)
	}

	logger.Debug("recorded run", "id", r.ID, "mode", r.Mode, "root", r.Root)
	return nil
}

// List returns up to limit records, newest first. A non-empty root keeps
// only runs against that root. limit <= 0 means no limit.
func (s *Store) List(root string, limit int) ([]Record, error) {
	var records []Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, recordPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(recordPrefix); it.Next() {
			var r Record
			if err := it.Item().Value(func(val []byte) error {
				return s.codec.decode(val, &r)
			}); err != nil {
				return err
			}
			if root != "" && r.Root != root {
				continue
			}
			records = append(records, r)
			if limit > 0 && len(records) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	return records, nil
}

// Get returns the record whose ID equals or starts with id.
func (s *Store) Get(id string) (*Record, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	var r Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := indexKey(id)
		var key []byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if key != nil {
				return fmt.Errorf("%w: %s", ErrAmbiguousID, id)
			}
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			key = v
		}
		if key == nil {
			return ErrNotFound
		}

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return s.codec.decode(val, &r)
		})
	})
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// Prune deletes records older than maxAge and returns how many were removed.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	removed := 0

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(recordPrefix); it.ValidForPrefix(recordPrefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if !recordTime(key).Before(cutoff) {
				break
			}

			sep := bytes.IndexByte(key[len(recordPrefix)+8:], 0)
			if sep >= 0 {
				id := key[len(recordPrefix)+8+sep+1:]
				if err := txn.Delete(indexKey(string(id))); err != nil {
					return err
				}
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}

	if removed > 0 {
		logger.Info("pruned history", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}
