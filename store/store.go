package store

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/arcadia-network/arcadia/lib"
	"github.com/arcadia-network/arcadia/lib/crypto"
	"github.com/dgraph-io/badger/v4"
)

/*
	This package implements the append-only block store over BadgerDB.

	Every committed block is written in two synced phases: first the block
	record together with its integrity checksum, then the head pointer. A
	crash between the phases leaves a fully written record ahead of the head
	pointer; the recovery scan at open adopts it. A crash during the first
	phase leaves a torn record behind no head pointer; the recovery scan
	discards it. Either way the store reopens to a consistent chain.
*/

var (
	blockPrefix    = []byte("b/") // blockPrefix + bigEndian(height) -> cbor block record
	checksumPrefix = []byte("c/") // checksumPrefix + bigEndian(height) -> sha256 of the block record
	headKey        = []byte("h/") // -> bigEndian(height) of the last adopted block
)

// Store is a height-indexed, append-only, crash-safe ledger of committed blocks
type Store struct {
	mu       sync.RWMutex
	db       *badger.DB
	height   uint64 // height of the last adopted block, 0 means empty chain
	lastHash []byte // hash of the last adopted block, GenesisParentHash when empty
	log      lib.LoggerI
	metrics  *lib.Metrics
}

// New() opens (or creates) the block store at the configured path and runs the
// recovery scan before returning
func New(config lib.StoreConfig, metrics *lib.Metrics, log lib.LoggerI) (*Store, lib.ErrorI) {
	// sync writes so a committed badger transaction survives process death
	options := badger.DefaultOptions(filepath.Join(config.DataDirPath, config.DBName)).
		WithSyncWrites(true).WithLoggingLevel(badger.ERROR)
	if config.InMemory {
		options = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	s := &Store{db: db, lastHash: lib.GenesisParentHash, log: log, metrics: metrics}
	if err := s.recover(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Height() returns the height of the last adopted block; 0 means the chain is empty
func (s *Store) Height() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// LastHash() returns the hash of the last adopted block, or the genesis parent
// sentinel when the chain is empty
func (s *Store) LastHash() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastHash
}

// Append() durably adds a committed block to the chain
// the block must extend the head by exactly one height, reference the head's
// hash, and carry at least `quorum` valid distinct signatures
func (s *Store) Append(block *lib.Block, quorum int) lib.ErrorI {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	if err := block.CheckBasic(); err != nil {
		return err
	}
	// contiguity: exactly head+1
	if block.Header.Height != s.height+1 {
		return ErrHeightMismatch(block.Header.Height, s.height+1)
	}
	// chain link: the parent reference must match the head hash
	if !lib.BytesEqual(block.Header.PreviousHash, s.lastHash) {
		return ErrBrokenChain(block.Header.Height)
	}
	// quorum: enough distinct verified signatures over the sign bytes
	signers, err := block.SignerSet()
	if err != nil {
		return err
	}
	if len(signers) < quorum {
		return ErrQuorumNotMet(len(signers), quorum)
	}
	record, err := lib.Marshal(block)
	if err != nil {
		return err
	}
	key := lib.Uint64ToBigEndian(block.Header.Height)
	// phase one: block record plus checksum, synced
	if e := s.db.Update(func(txn *badger.Txn) error {
		if e := txn.Set(lib.Append(blockPrefix, key), record); e != nil {
			return e
		}
		return txn.Set(lib.Append(checksumPrefix, key), crypto.Hash(record))
	}); e != nil {
		return ErrCommitDB(e)
	}
	// phase two: advance the head pointer, synced
	if e := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(headKey, key)
	}); e != nil {
		return ErrCommitDB(e)
	}
	hash, err := block.Hash()
	if err != nil {
		return err
	}
	s.height, s.lastHash = block.Header.Height, hash
	s.metrics.ObserveAppend(start)
	s.log.Infof("Appended block %d (%s) with %d txs", block.Header.Height, lib.BytesToTruncatedString(hash), len(block.Transactions))
	return nil
}

// GetByHeight() returns the committed block at the given height
func (s *Store) GetByHeight(height uint64) (*lib.Block, lib.ErrorI) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if height == 0 || height > s.height {
		return nil, ErrBlockNotFound(height)
	}
	return s.readBlock(height)
}

// Head() returns the block at the tip of the chain
func (s *Store) Head() (*lib.Block, lib.ErrorI) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.height == 0 {
		return nil, ErrBlockNotFound(0)
	}
	return s.readBlock(s.height)
}

// Close() releases the underlying database
func (s *Store) Close() lib.ErrorI {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Close(); err != nil {
		return ErrCloseDB(err)
	}
	return nil
}

// readBlock() loads and decodes the record at the given height; callers hold the lock
func (s *Store) readBlock(height uint64) (*lib.Block, lib.ErrorI) {
	record, err := s.get(lib.Append(blockPrefix, lib.Uint64ToBigEndian(height)))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrBlockNotFound(height)
	}
	block := new(lib.Block)
	if err = lib.Unmarshal(record, block); err != nil {
		return nil, err
	}
	return block, nil
}

// recover() restores the in-memory head state from disk and resolves any
// partially written tail left behind by a crash mid-append
func (s *Store) recover() lib.ErrorI {
	headBytes, err := s.get(headKey)
	if err != nil {
		return err
	}
	if headBytes != nil {
		s.height = lib.BigEndianToUint64(headBytes)
	}
	// blocks at or below the head pointer were fully adopted before the
	// pointer moved; only the tail past the pointer may be torn
	if s.height != 0 {
		head, e := s.readBlock(s.height)
		if e != nil {
			return e
		}
		if s.lastHash, e = head.Hash(); e != nil {
			return e
		}
	}
	// walk forward adopting every fully written trailing record
	for next := s.height + 1; ; next++ {
		block, ok, e := s.validTrailingBlock(next)
		if e != nil {
			return e
		}
		if !ok {
			// drop the torn record, if any, then stop
			if e = s.discard(next); e != nil {
				return e
			}
			break
		}
		key := lib.Uint64ToBigEndian(next)
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(headKey, key)
		}); err != nil {
			return ErrCommitDB(err)
		}
		hash, e := block.Hash()
		if e != nil {
			return e
		}
		s.height, s.lastHash = next, hash
		s.log.Warnf("Recovery adopted trailing block %d (%s)", next, lib.BytesToTruncatedString(hash))
	}
	s.log.Infof("Block store open at height %d", s.height)
	return nil
}

// validTrailingBlock() reports whether the record at the given height is fully
// written: present, checksum intact, well formed, and linked to the current head
func (s *Store) validTrailingBlock(height uint64) (*lib.Block, bool, lib.ErrorI) {
	key := lib.Uint64ToBigEndian(height)
	record, err := s.get(lib.Append(blockPrefix, key))
	if err != nil || record == nil {
		return nil, false, err
	}
	checksum, err := s.get(lib.Append(checksumPrefix, key))
	if err != nil {
		return nil, false, err
	}
	if !lib.BytesEqual(checksum, crypto.Hash(record)) {
		s.log.Warnf("Recovery discarding block %d: %s", height, ErrChecksumMismatch(height).Error())
		return nil, false, nil
	}
	block := new(lib.Block)
	if e := lib.Unmarshal(record, block); e != nil {
		return nil, false, nil
	}
	if e := block.CheckBasic(); e != nil {
		return nil, false, nil
	}
	if block.Header.Height != height || !lib.BytesEqual(block.Header.PreviousHash, s.lastHash) {
		return nil, false, nil
	}
	return block, true, nil
}

// discard() deletes the record and checksum at the given height, if present
func (s *Store) discard(height uint64) lib.ErrorI {
	key := lib.Uint64ToBigEndian(height)
	if err := s.db.Update(func(txn *badger.Txn) error {
		if e := txn.Delete(lib.Append(blockPrefix, key)); e != nil {
			return e
		}
		return txn.Delete(lib.Append(checksumPrefix, key))
	}); err != nil {
		return ErrCommitDB(err)
	}
	return nil
}

// get() reads a single key, returning nil without error when the key is absent
func (s *Store) get(key []byte) ([]byte, lib.ErrorI) {
	var value []byte
	if err := s.db.View(func(txn *badger.Txn) error {
		item, e := txn.Get(key)
		if e != nil {
			if e == badger.ErrKeyNotFound {
				return nil
			}
			return e
		}
		value, e = item.ValueCopy(nil)
		return e
	}); err != nil {
		return nil, ErrStoreGet(err)
	}
	return value, nil
}
