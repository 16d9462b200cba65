package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"carechain/core/audit"
	"carechain/core/block"
	"carechain/core/consensus"
)

const (
	blockPrefix     = "block:"
	auditPrefix     = "audit:"
	delegatesKey    = "delegates"
	latestHeightKey = "latestHeight"
)

// Store is the persistence collaborator: a LevelDB-backed store for
// the serialized chain, the delegate roster, and the access log. The
// on-disk encoding is owned here, not by the core; the core only sees
// ordered block sequences.
type Store struct {
	db *leveldb.DB
}

// NewStore opens (or creates) a LevelDB database at path.
func NewStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// blockKey is zero-padded so lexicographic key order equals height order.
func blockKey(height uint64) []byte {
	return []byte(fmt.Sprintf("%s%016d", blockPrefix, height))
}

func auditKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%016d", auditPrefix, seq))
}

// SaveBlock persists one block under its height and advances the
// latest-height pointer.
func (s *Store) SaveBlock(b block.Block) error {
	data, err := b.Serialize()
	if err != nil {
		return err
	}
	enc, err := maybeEncrypt(data)
	if err != nil {
		return err
	}
	heightBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBytes, b.Index)

	batch := new(leveldb.Batch)
	batch.Put(blockKey(b.Index), enc)
	batch.Put([]byte(latestHeightKey), heightBytes)
	return s.db.Write(batch, nil)
}

// SaveChain persists an entire block sequence in one batch.
func (s *Store) SaveChain(blocks []block.Block) error {
	batch := new(leveldb.Batch)
	var latest uint64
	for _, b := range blocks {
		data, err := b.Serialize()
		if err != nil {
			return err
		}
		enc, err := maybeEncrypt(data)
		if err != nil {
			return err
		}
		batch.Put(blockKey(b.Index), enc)
		if b.Index >= latest {
			latest = b.Index
		}
	}
	heightBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBytes, latest)
	batch.Put([]byte(latestHeightKey), heightBytes)
	return s.db.Write(batch, nil)
}

// LoadChain returns the persisted blocks ordered by height. An empty
// store returns a nil slice and no error.
func (s *Store) LoadChain() ([]block.Block, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(blockPrefix)), nil)
	defer iter.Release()

	var blocks []block.Block
	for iter.Next() {
		data, err := maybeDecrypt(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", iter.Key(), err)
		}
		b, err := block.Deserialize(data)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", iter.Key(), err)
		}
		blocks = append(blocks, *b)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// HasChain reports whether at least one block is persisted.
func (s *Store) HasChain() (bool, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(blockPrefix)), nil)
	defer iter.Release()
	return iter.Next(), iter.Error()
}

// LatestHeight returns the height of the most recently saved block.
func (s *Store) LatestHeight() (uint64, error) {
	data, err := s.db.Get([]byte(latestHeightKey), nil)
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt latest-height record")
	}
	return binary.BigEndian.Uint64(data), nil
}

// SaveDelegates persists the roster snapshot in schedule order.
func (s *Store) SaveDelegates(roster []consensus.Delegate) error {
	data, err := json.Marshal(roster)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(delegatesKey), data, nil)
}

// LoadDelegates returns the persisted roster, or nil when none exists.
func (s *Store) LoadDelegates() ([]consensus.Delegate, error) {
	data, err := s.db.Get([]byte(delegatesKey), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var roster []consensus.Delegate
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// SaveAuditLog persists the access log entries in append order.
func (s *Store) SaveAuditLog(entries []audit.Entry) error {
	batch := new(leveldb.Batch)
	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		batch.Put(auditKey(uint64(i)), data)
	}
	return s.db.Write(batch, nil)
}

// LoadAuditLog returns the persisted access log in append order.
func (s *Store) LoadAuditLog() ([]audit.Entry, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(auditPrefix)), nil)
	defer iter.Release()

	var entries []audit.Entry
	for iter.Next() {
		var e audit.Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("audit entry %s: %w", iter.Key(), err)
		}
		entries = append(entries, e)
	}
	return entries, iter.Error()
}
