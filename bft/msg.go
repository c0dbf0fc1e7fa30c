package bft

import (
	"github.com/arcadia-network/arcadia/lib"
	"github.com/arcadia-network/arcadia/lib/crypto"
)

/*
	This file defines the wire messages exchanged by the consensus engine and
	their stateless validation. Three kinds flow between validators:

	PROPOSAL: the round proposer broadcasts its candidate block
	VOTE: a validator endorses a candidate by signing its payload; the very same
	      signature later becomes the commit certificate on the stored block
	VIEW_CHANGE: a validator whose round deadline elapsed votes to rotate leaders

	Vote and view-change signatures are self authenticating, so a message is
	accepted based on the key that signed it rather than the peer that relayed it.
*/

// MessageType discriminates the consensus wire messages
type MessageType uint32

const (
	MsgProposal   MessageType = iota + 1 // a candidate block for the round
	MsgVote                              // an endorsement of a candidate block
	MsgViewChange                        // a vote to rotate to a later view
)

// Message is the single envelope for all consensus traffic
type Message struct {
	Type      MessageType    `cbor:"1,keyasint"`
	Height    uint64         `cbor:"2,keyasint"`
	View      uint32         `cbor:"3,keyasint"`           // proposals and votes: the active view; view-changes: the view to rotate to
	Block     *lib.Block     `cbor:"4,keyasint,omitempty"` // proposal only
	BlockHash []byte         `cbor:"5,keyasint,omitempty"` // vote only: the endorsed candidate
	Signature *lib.Signature `cbor:"6,keyasint,omitempty"` // vote: over the candidate payload; view-change: over the message sign bytes
}

// NewProposal() wraps a candidate block for the given round
func NewProposal(height uint64, view uint32, block *lib.Block) *Message {
	return &Message{Type: MsgProposal, Height: height, View: view, Block: block}
}

// NewVote() endorses a candidate block: the signature covers the block's own
// sign bytes so a quorum of votes doubles as the stored commit certificate
func NewVote(height uint64, view uint32, block *lib.Block, key crypto.PrivateKeyI) (*Message, lib.ErrorI) {
	hash, err := block.Hash()
	if err != nil {
		return nil, err
	}
	signBytes, err := block.SignBytes()
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      MsgVote,
		Height:    height,
		View:      view,
		BlockHash: hash,
		Signature: &lib.Signature{
			PublicKey: key.PublicKey().Bytes(),
			Signature: key.Sign(signBytes),
		},
	}, nil
}

// NewViewChange() votes to rotate the round to the target view
func NewViewChange(height uint64, targetView uint32, key crypto.PrivateKeyI) (*Message, lib.ErrorI) {
	msg := &Message{Type: MsgViewChange, Height: height, View: targetView}
	signBytes, err := msg.SignBytes()
	if err != nil {
		return nil, err
	}
	msg.Signature = &lib.Signature{
		PublicKey: key.PublicKey().Bytes(),
		Signature: key.Sign(signBytes),
	}
	return msg, nil
}

// SignBytes() returns the canonical signed portion of a view-change message
func (x *Message) SignBytes() ([]byte, lib.ErrorI) {
	return lib.Marshal(&Message{Type: x.Type, Height: x.Height, View: x.View})
}

// CheckBasic() performs stateless validation of the envelope
func (x *Message) CheckBasic() lib.ErrorI {
	if x == nil {
		return ErrEmptyMessage()
	}
	switch x.Type {
	case MsgProposal:
		if x.Block == nil {
			return ErrEmptyMessage()
		}
		return x.Block.CheckBasic()
	case MsgVote:
		if len(x.BlockHash) != crypto.HashSize {
			return lib.ErrWrongLengthHash()
		}
		return x.checkSignature()
	case MsgViewChange:
		return x.checkSignature()
	default:
		return ErrUnknownMessageType(x.Type)
	}
}

// CheckViewChangeSignature() verifies a view-change signature against its
// embedded public key
func (x *Message) CheckViewChangeSignature() lib.ErrorI {
	publicKey, err := crypto.BytesToED25519Public(x.Signature.PublicKey)
	if err != nil {
		return lib.ErrPubKeyFromBytes(err)
	}
	signBytes, e := x.SignBytes()
	if e != nil {
		return e
	}
	if !publicKey.VerifyBytes(signBytes, x.Signature.Signature) {
		return ErrInvalidSignature()
	}
	return nil
}

// checkSignature() ensures the signature envelope is structurally complete
func (x *Message) checkSignature() lib.ErrorI {
	if x.Signature == nil || len(x.Signature.PublicKey) == 0 || len(x.Signature.Signature) == 0 {
		return ErrPartialSignature()
	}
	return nil
}

// MarshalMessage() serializes a consensus message for the transport
func MarshalMessage(msg *Message) ([]byte, lib.ErrorI) { return lib.Marshal(msg) }

// UnmarshalMessage() deserializes a consensus message from the transport
func UnmarshalMessage(data []byte) (*Message, lib.ErrorI) {
	msg := new(Message)
	if err := lib.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
