package store

import (
	"testing"

	"github.com/arcadia-network/arcadia/lib"
	"github.com/arcadia-network/arcadia/lib/crypto"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	keys := newTestKeys(t, 4)
	tests := []struct {
		name     string
		detail   string
		build    func(t *testing.T, s *Store) *lib.Block
		quorum   int
		error    string
		expected uint64
	}{
		{
			name:   "valid first block",
			detail: "a well formed block at height 1 with quorum signatures is adopted",
			build: func(t *testing.T, s *Store) *lib.Block {
				return newTestBlock(t, 1, lib.GenesisParentHash, keys[:3])
			},
			quorum:   3,
			expected: 1,
		},
		{
			name:   "height gap",
			detail: "a block that skips a height is rejected",
			build: func(t *testing.T, s *Store) *lib.Block {
				return newTestBlock(t, 2, lib.GenesisParentHash, keys[:3])
			},
			quorum: 3,
			error:  "does not extend the chain",
		},
		{
			name:   "broken chain link",
			detail: "a block whose previous hash is not the head hash is rejected",
			build: func(t *testing.T, s *Store) *lib.Block {
				return newTestBlock(t, 1, crypto.Hash([]byte("wrong parent")), keys[:3])
			},
			quorum: 3,
			error:  "does not reference the previous block hash",
		},
		{
			name:   "quorum not met",
			detail: "a block with fewer valid signatures than the quorum is rejected",
			build: func(t *testing.T, s *Store) *lib.Block {
				return newTestBlock(t, 1, lib.GenesisParentHash, keys[:2])
			},
			quorum: 3,
			error:  "2 valid signatures but 3 are required",
		},
		{
			name:   "duplicate signer does not count twice",
			detail: "the same key signing twice still yields one distinct signer",
			build: func(t *testing.T, s *Store) *lib.Block {
				block := newTestBlock(t, 1, lib.GenesisParentHash, keys[:2])
				require.NoError(t, block.Sign(keys[0]))
				return block
			},
			quorum: 3,
			error:  "2 valid signatures but 3 are required",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newTestStore(t)
			defer func() { require.NoError(t, s.Close()) }()
			err := s.Append(test.build(t, s), test.quorum)
			if test.error != "" {
				require.ErrorContains(t, err, test.error)
				require.EqualValues(t, 0, s.Height())
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, s.Height())
		})
	}
}

func TestAppendAndGet(t *testing.T) {
	keys := newTestKeys(t, 4)
	s := newTestStore(t)
	defer func() { require.NoError(t, s.Close()) }()
	// build a three block chain
	parent := lib.GenesisParentHash
	for height := uint64(1); height <= 3; height++ {
		block := newTestBlock(t, height, parent, keys[:3])
		require.NoError(t, s.Append(block, 3))
		var err lib.ErrorI
		parent, err = block.Hash()
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, s.Height())
	require.Equal(t, parent, s.LastHash())
	// read each height back and confirm the link structure survived the codec
	prev := lib.GenesisParentHash
	for height := uint64(1); height <= 3; height++ {
		block, err := s.GetByHeight(height)
		require.NoError(t, err)
		require.Equal(t, height, block.Header.Height)
		require.Equal(t, prev, block.Header.PreviousHash)
		var e lib.ErrorI
		prev, e = block.Hash()
		require.NoError(t, e)
	}
	// the head accessor returns the tip
	head, err := s.Head()
	require.NoError(t, err)
	require.EqualValues(t, 3, head.Header.Height)
	// out of range reads fail
	_, err = s.GetByHeight(0)
	require.ErrorContains(t, err, "no block found")
	_, err = s.GetByHeight(4)
	require.ErrorContains(t, err, "no block found")
}

func TestRecoveryAdoptsFullyWrittenTail(t *testing.T) {
	keys := newTestKeys(t, 4)
	config := lib.StoreConfig{DataDirPath: t.TempDir(), DBName: "blocks"}
	log := lib.NewNullLogger()
	s, err := New(config, nil, log)
	require.NoError(t, err)
	block1 := newTestBlock(t, 1, lib.GenesisParentHash, keys[:3])
	require.NoError(t, s.Append(block1, 3))
	parent, err := block1.Hash()
	require.NoError(t, err)
	// simulate a crash after phase one of height 2: the record and checksum
	// are durable but the head pointer never moved
	block2 := newTestBlock(t, 2, parent, keys[:3])
	record, err := lib.Marshal(block2)
	require.NoError(t, err)
	key := lib.Uint64ToBigEndian(2)
	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		if e := txn.Set(lib.Append(blockPrefix, key), record); e != nil {
			return e
		}
		return txn.Set(lib.Append(checksumPrefix, key), crypto.Hash(record))
	}))
	require.NoError(t, s.Close())
	// reopen: recovery must adopt height 2
	s, err = New(config, nil, log)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()
	require.EqualValues(t, 2, s.Height())
	got, err := s.GetByHeight(2)
	require.NoError(t, err)
	require.Equal(t, parent, got.Header.PreviousHash)
	hash2, err := block2.Hash()
	require.NoError(t, err)
	require.Equal(t, hash2, s.LastHash())
}

func TestRecoveryDiscardsTornTail(t *testing.T) {
	keys := newTestKeys(t, 4)
	config := lib.StoreConfig{DataDirPath: t.TempDir(), DBName: "blocks"}
	log := lib.NewNullLogger()
	s, err := New(config, nil, log)
	require.NoError(t, err)
	block1 := newTestBlock(t, 1, lib.GenesisParentHash, keys[:3])
	require.NoError(t, s.Append(block1, 3))
	hash1, err := block1.Hash()
	require.NoError(t, err)
	// simulate a crash mid phase one: a record with no checksum
	key := lib.Uint64ToBigEndian(2)
	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(lib.Append(blockPrefix, key), []byte("torn record"))
	}))
	require.NoError(t, s.Close())
	// reopen: recovery must drop the torn record and keep the head at 1
	s, err = New(config, nil, log)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()
	require.EqualValues(t, 1, s.Height())
	require.Equal(t, hash1, s.LastHash())
	_, err = s.GetByHeight(2)
	require.ErrorContains(t, err, "no block found")
}

func TestRecoveryIsIdempotent(t *testing.T) {
	keys := newTestKeys(t, 4)
	config := lib.StoreConfig{DataDirPath: t.TempDir(), DBName: "blocks"}
	log := lib.NewNullLogger()
	s, err := New(config, nil, log)
	require.NoError(t, err)
	block1 := newTestBlock(t, 1, lib.GenesisParentHash, keys[:3])
	require.NoError(t, s.Append(block1, 3))
	hash1, err := block1.Hash()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	// reopening repeatedly must converge to the same head
	for i := 0; i < 3; i++ {
		s, err = New(config, nil, log)
		require.NoError(t, err)
		require.EqualValues(t, 1, s.Height())
		require.Equal(t, hash1, s.LastHash())
		require.NoError(t, s.Close())
	}
}

// newTestStore() returns an in-memory store ready for use
func newTestStore(t *testing.T) *Store {
	s, err := New(lib.StoreConfig{InMemory: true}, nil, lib.NewNullLogger())
	require.NoError(t, err)
	return s
}

// newTestKeys() generates n private keys
func newTestKeys(t *testing.T, n int) (keys []crypto.PrivateKeyI) {
	for i := 0; i < n; i++ {
		key, err := crypto.NewEd25519PrivateKey()
		require.NoError(t, err)
		keys = append(keys, key)
	}
	return
}

// newTestBlock() builds a block at the height and parent, signed by the signers
func newTestBlock(t *testing.T, height uint64, parent []byte, signers []crypto.PrivateKeyI) *lib.Block {
	block := &lib.Block{
		Header: &lib.BlockHeader{
			Height:       height,
			PreviousHash: parent,
			Time:         lib.TimeNowMicro(),
		},
	}
	for _, key := range signers {
		require.NoError(t, block.Sign(key))
	}
	return block
}
