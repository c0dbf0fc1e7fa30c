package lib

import (
	"testing"

	"github.com/arcadia-network/arcadia/lib/crypto"
	"github.com/stretchr/testify/require"
)

func testBlock() *Block {
	return &Block{Header: &BlockHeader{
		Height:       1,
		PreviousHash: GenesisParentHash,
		Time:         1_700_000_000_000_000,
	}}
}

// TestHashExcludesSignatures pins the property everything else leans on: votes
// may be appended to a block without altering the payload they endorse
func TestHashExcludesSignatures(t *testing.T) {
	key, err := crypto.NewEd25519PrivateKey()
	require.NoError(t, err)
	block := testBlock()
	before, err := block.Hash()
	require.NoError(t, err)
	require.NoError(t, block.Sign(key))
	require.NoError(t, block.Sign(key))
	after, err := block.Hash()
	require.NoError(t, err)
	require.Equal(t, before, after)
	// two identical payloads hash identically regardless of who signed what
	other := testBlock()
	otherHash, err := other.Hash()
	require.NoError(t, err)
	require.Equal(t, before, otherHash)
}

func TestCheckBasic(t *testing.T) {
	tests := []struct {
		name   string
		detail string
		block  func() *Block
		error  string
	}{
		{
			name:   "well formed",
			detail: "the minimal valid block passes",
			block:  testBlock,
		},
		{
			name:   "nil block",
			detail: "a nil block is caught before any dereference",
			block:  func() *Block { return nil },
			error:  "block is nil",
		},
		{
			name:   "nil header",
			detail: "a block without a header is structurally invalid",
			block:  func() *Block { return &Block{} },
			error:  "block.header is nil",
		},
		{
			name:   "short previous hash",
			detail: "the parent reference must be a full digest",
			block: func() *Block {
				b := testBlock()
				b.Header.PreviousHash = []byte{1, 2, 3}
				return b
			},
			error: "previous hash has the wrong length",
		},
		{
			name:   "zero time",
			detail: "a block must carry its proposal clock",
			block: func() *Block {
				b := testBlock()
				b.Header.Time = 0
				return b
			},
			error: "block time is nil",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.block().CheckBasic()
			if test.error != "" {
				require.ErrorContains(t, err, test.error)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSignerSet(t *testing.T) {
	key1, err := crypto.NewEd25519PrivateKey()
	require.NoError(t, err)
	key2, err := crypto.NewEd25519PrivateKey()
	require.NoError(t, err)
	block := testBlock()
	require.NoError(t, block.Sign(key1))
	require.NoError(t, block.Sign(key2))
	require.NoError(t, block.Sign(key1)) // duplicate signer
	// a signature over different bytes must not count
	block.Signatures = append(block.Signatures, &Signature{
		PublicKey: key2.PublicKey().Bytes(),
		Signature: key2.Sign([]byte("some other payload")),
	})
	// garbage identity bytes must not count either
	block.Signatures = append(block.Signatures, &Signature{
		PublicKey: []byte("not a key"),
		Signature: []byte("not a signature"),
	})
	signers, err := block.SignerSet()
	require.NoError(t, err)
	require.Len(t, signers, 2)
	require.Contains(t, signers, BytesToString(key1.PublicKey().Bytes()))
	require.Contains(t, signers, BytesToString(key2.PublicKey().Bytes()))
}

func TestExtractValidatorChange(t *testing.T) {
	t.Run("no change transactions", func(t *testing.T) {
		block := testBlock()
		block.Transactions = []*Transaction{{Payload: []byte("opaque"), CreatedTime: 1, TTLMicro: 1}}
		change, err := block.ExtractValidatorChange()
		require.NoError(t, err)
		require.Nil(t, change)
	})
	t.Run("the last change in the block wins", func(t *testing.T) {
		firstSet, lastSet := [][]byte{{1}, {2}}, [][]byte{{3}, {4}, {5}}
		first, err := NewValidatorChangeTx(firstSet, 1, 1)
		require.NoError(t, err)
		last, err := NewValidatorChangeTx(lastSet, 2, 1)
		require.NoError(t, err)
		block := testBlock()
		block.Transactions = []*Transaction{first, last}
		change, err := block.ExtractValidatorChange()
		require.NoError(t, err)
		require.Equal(t, lastSet, change.Validators)
	})
	t.Run("an undecodable change surfaces an error", func(t *testing.T) {
		block := testBlock()
		block.Transactions = []*Transaction{{
			Payload:     []byte("not a validator change"),
			Kind:        TxKindValidatorChange,
			CreatedTime: 1,
			TTLMicro:    1,
		}}
		_, err := block.ExtractValidatorChange()
		require.Error(t, err)
	})
}
