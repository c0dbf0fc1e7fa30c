package lib

import (
	"bytes"

	"github.com/arcadia-network/arcadia/lib/crypto"
)

/*
	This file defines the Block: the foundational unit of the chain. A block is a
	header over an ordered list of transactions plus the signatures collected
	during voting. The hash of a block covers the header and transactions but
	never the signatures, so votes may be appended without altering the signed payload.
*/

// GenesisParentHash is the previous-hash sentinel of the block at height 1
var GenesisParentHash = bytes.Repeat([]byte{0}, crypto.HashSize)

// BlockHeader holds the consensus metadata of a block; it is the hashed and signed portion (together with the transactions)
type BlockHeader struct {
	Height          uint64 `cbor:"1,keyasint" json:"height"`                // strictly increasing, 1 is the first block after genesis
	PreviousHash    []byte `cbor:"2,keyasint" json:"previousHash"`          // hash of the preceding committed block; GenesisParentHash at height 1
	ViewChangeIndex uint32 `cbor:"3,keyasint" json:"viewChangeIndex"`       // leader rotations consumed to commit this height; 0 means the first choice leader succeeded
	Time            uint64 `cbor:"4,keyasint" json:"time"`                  // wall clock capture at proposal time, unix microseconds
	ProposerKey     []byte `cbor:"5,keyasint,omitempty" json:"proposerKey"` // the public key of the proposer that built this block
}

// Block is a header, the ordered transactions, and the votes that committed it
type Block struct {
	Header       *BlockHeader   `cbor:"1,keyasint" json:"header"`
	Transactions []*Transaction `cbor:"2,keyasint,omitempty" json:"transactions,omitempty"` // insertion order is the committed execution order; may be empty
	Signatures   []*Signature   `cbor:"3,keyasint,omitempty" json:"signatures,omitempty"`   // one per voting validator; a block commits once these reach quorum
}

// Signature is a (validator identity, signature) pair
type Signature struct {
	PublicKey []byte `cbor:"1,keyasint" json:"publicKey"`
	Signature []byte `cbor:"2,keyasint" json:"signature"`
}

// SignBytes() returns the canonical byte representation of the block without its
// signatures; this is what validators hash and sign
func (x *Block) SignBytes() (signBytes []byte, err ErrorI) {
	return Marshal(&Block{
		Header:       x.Header,
		Transactions: x.Transactions,
	})
}

// Hash() computes the block hash over the signatureless payload
func (x *Block) Hash() ([]byte, ErrorI) {
	bz, err := x.SignBytes()
	if err != nil {
		return nil, err
	}
	return crypto.Hash(bz), nil
}

// CheckBasic() performs stateless sanity checks on the block
func (x *Block) CheckBasic() ErrorI {
	if x == nil {
		return ErrNilBlock()
	}
	if x.Header == nil {
		return ErrNilBlockHeader()
	}
	if len(x.Header.PreviousHash) != crypto.HashSize {
		return ErrWrongLengthPrevHash()
	}
	if x.Header.Time == 0 {
		return ErrNilBlockTime()
	}
	return nil
}

// Sign() appends the signature of the private key over the block's sign bytes
func (x *Block) Sign(privateKey crypto.PrivateKeyI) ErrorI {
	bz, err := x.SignBytes()
	if err != nil {
		return err
	}
	x.Signatures = append(x.Signatures, &Signature{
		PublicKey: privateKey.PublicKey().Bytes(),
		Signature: privateKey.Sign(bz),
	})
	return nil
}

// SignerSet() returns the distinct signer identities on the block, discarding
// duplicates and signatures that do not verify against the sign bytes
func (x *Block) SignerSet() (signers map[string]struct{}, err ErrorI) {
	bz, err := x.SignBytes()
	if err != nil {
		return nil, err
	}
	signers = make(map[string]struct{})
	for _, sig := range x.Signatures {
		publicKey, e := crypto.BytesToED25519Public(sig.PublicKey)
		if e != nil {
			continue
		}
		if !publicKey.VerifyBytes(bz, sig.Signature) {
			continue
		}
		signers[BytesToString(sig.PublicKey)] = struct{}{}
	}
	return
}

// TRANSACTION CODE BELOW

// TxKind tags the interpretation of a transaction payload
type TxKind uint32

const (
	TxKindOpaque          TxKind = iota // payload handed through to the external execution collaborator
	TxKindValidatorChange               // payload is a ValidatorChange applied by the Topology at the commit boundary
)

// Transaction is opaque to the core beyond its hash, timestamps, and kind tag
type Transaction struct {
	Payload     []byte `cbor:"1,keyasint" json:"payload"`                  // already validated payload bytes
	Kind        TxKind `cbor:"2,keyasint,omitempty" json:"kind,omitempty"` // payload interpretation tag
	CreatedTime uint64 `cbor:"3,keyasint" json:"createdTime"`              // client wall clock capture, unix microseconds
	TTLMicro    uint64 `cbor:"4,keyasint" json:"ttlMicro"`                 // time to live measured from CreatedTime
}

// Hash() content-addresses the transaction, used for dedup and expiry
func (x *Transaction) Hash() ([]byte, ErrorI) {
	bz, err := Marshal(x)
	if err != nil {
		return nil, err
	}
	return crypto.Hash(bz), nil
}

// ValidatorChange is the payload of a TxKindValidatorChange transaction: the
// replacement validator set taking effect at the next height boundary
type ValidatorChange struct {
	Validators [][]byte `cbor:"1,keyasint" json:"validators"` // the ordered replacement identities
}

// NewValidatorChangeTx() builds a validator-set-change transaction
func NewValidatorChangeTx(validators [][]byte, now, ttl uint64) (*Transaction, ErrorI) {
	payload, err := Marshal(&ValidatorChange{Validators: validators})
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Payload:     payload,
		Kind:        TxKindValidatorChange,
		CreatedTime: now,
		TTLMicro:    ttl,
	}, nil
}

// ExtractValidatorChange() returns the last validator-set-change carried by the
// block, or nil if the block carries none. Later instructions supersede earlier
// ones within the same block.
func (x *Block) ExtractValidatorChange() (change *ValidatorChange, err ErrorI) {
	for _, tx := range x.Transactions {
		if tx.Kind != TxKindValidatorChange {
			continue
		}
		vc := new(ValidatorChange)
		if err = Unmarshal(tx.Payload, vc); err != nil {
			return nil, err
		}
		change = vc
	}
	return
}
