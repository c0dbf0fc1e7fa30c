package bft

import (
	"fmt"

	"github.com/arcadia-network/arcadia/lib"
)

// consensus module error codes
const (
	CodeUnknownMessageType  lib.ErrorCode = 1
	CodeEmptyMessage        lib.ErrorCode = 2
	CodeWrongHeight         lib.ErrorCode = 3
	CodeWrongView           lib.ErrorCode = 4
	CodeUnexpectedProposer  lib.ErrorCode = 5
	CodePartialSignature    lib.ErrorCode = 6
	CodeInvalidSignature    lib.ErrorCode = 7
	CodeMismatchBlockHash   lib.ErrorCode = 8
	CodeMissingProposerSig  lib.ErrorCode = 9
	CodeStaleViewChange     lib.ErrorCode = 10
	CodeInvalidBlockPayload lib.ErrorCode = 11
)

func ErrUnknownMessageType(t MessageType) lib.ErrorI {
	return lib.NewError(CodeUnknownMessageType, lib.ConsensusModule, fmt.Sprintf("unknown consensus message type: %d", t))
}

func ErrEmptyMessage() lib.ErrorI {
	return lib.NewError(CodeEmptyMessage, lib.ConsensusModule, "consensus message is empty")
}

func ErrWrongHeight(got, want uint64) lib.ErrorI {
	return lib.NewError(CodeWrongHeight, lib.ConsensusModule, fmt.Sprintf("message height %d does not match the active height %d", got, want))
}

func ErrWrongView(got, want uint32) lib.ErrorI {
	return lib.NewError(CodeWrongView, lib.ConsensusModule, fmt.Sprintf("message view %d does not match the active view %d", got, want))
}

func ErrUnexpectedProposer(publicKey []byte) lib.ErrorI {
	return lib.NewError(CodeUnexpectedProposer, lib.ConsensusModule, fmt.Sprintf("%s is not the proposer of this round", lib.BytesToTruncatedString(publicKey)))
}

func ErrPartialSignature() lib.ErrorI {
	return lib.NewError(CodePartialSignature, lib.ConsensusModule, "message signature is incomplete")
}

func ErrInvalidSignature() lib.ErrorI {
	return lib.NewError(CodeInvalidSignature, lib.ConsensusModule, "message signature does not verify")
}

func ErrMismatchBlockHash() lib.ErrorI {
	return lib.NewError(CodeMismatchBlockHash, lib.ConsensusModule, "block hash does not match the candidate")
}

func ErrMissingProposerSig() lib.ErrorI {
	return lib.NewError(CodeMissingProposerSig, lib.ConsensusModule, "proposal block is not signed by its proposer")
}

func ErrStaleViewChange(target, view uint32) lib.ErrorI {
	return lib.NewError(CodeStaleViewChange, lib.ConsensusModule, fmt.Sprintf("view-change target %d is not past the active view %d", target, view))
}

func ErrInvalidBlockPayload(err error) lib.ErrorI {
	return lib.NewError(CodeInvalidBlockPayload, lib.ConsensusModule, fmt.Sprintf("proposal block failed validation: %s", err.Error()))
}
