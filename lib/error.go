package lib

import (
	"fmt"
	"math"
)

/* This file defines the error type shared by every module of the node: a code + module pair with a human readable message */

// ErrorI is the error interface used across the codebase
type ErrorI interface {
	Code() ErrorCode     // Returns the error code
	Module() ErrorModule // Returns the error module
	error                // Implements the built-in error interface
}

var _ ErrorI = &Error{} // Ensures *Error implements ErrorI

type ErrorCode uint32 // Defines a type for error codes

type ErrorModule string // Defines a type for error modules

// Error is the concrete implementation of ErrorI
type Error struct {
	ECode   ErrorCode   `json:"code"`   // Error code
	EModule ErrorModule `json:"module"` // Error module
	Msg     string      `json:"msg"`    // Error message
}

// NewError() constructs a new Error instance
func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	return &Error{ECode: code, EModule: module, Msg: msg}
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns module field
func (p *Error) Module() ErrorModule { return p.EModule }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a formatted string including module, code, and message
func (p *Error) Error() string {
	return fmt.Sprintf("\nModule:  %s\nCode:    %d\nMessage: %s", p.EModule, p.ECode, p.Msg)
}

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeMarshal             ErrorCode = 1
	CodeUnmarshal           ErrorCode = 2
	CodeJSONMarshal         ErrorCode = 3
	CodeJSONUnmarshal       ErrorCode = 4
	CodeNilBlock            ErrorCode = 5
	CodeNilBlockHeader      ErrorCode = 6
	CodeWrongLengthHash     ErrorCode = 7
	CodeWrongLengthPrevHash ErrorCode = 8
	CodeNilBlockTime        ErrorCode = 9
	CodeNoValidators        ErrorCode = 10
	CodeDuplicateValidator  ErrorCode = 11
	CodeInvalidQuorum       ErrorCode = 12
	CodeValidatorNotInSet   ErrorCode = 13
	CodeWriteFile           ErrorCode = 14
	CodeReadFile            ErrorCode = 15
	CodePubKeyFromBytes     ErrorCode = 16
	CodeUnequalBlockHash    ErrorCode = 17
	CodeNilGenesis          ErrorCode = 18

	// Queue Module
	QueueModule ErrorModule = "queue"

	// Queue Module Error Codes
	CodeTxFoundInQueue     ErrorCode = 1
	CodeTxAlreadyCommitted ErrorCode = 2
	CodeTxExpired          ErrorCode = 3
	CodeTxInFuture         ErrorCode = 4
	CodeQueueFull          ErrorCode = 5
	CodeMaxTxSize          ErrorCode = 6
	CodeTxRejected         ErrorCode = 7

	// Consensus Module
	ConsensusModule ErrorModule = "consensus"

	// Store Module
	StoreModule ErrorModule = "store"

	// RPC Module
	RPCModule ErrorModule = "rpc"
)

// main module errors below

func ErrMarshal(err error) ErrorI {
	return NewError(CodeMarshal, MainModule, fmt.Sprintf("marshal() failed with err: %s", err.Error()))
}

func ErrUnmarshal(err error) ErrorI {
	return NewError(CodeUnmarshal, MainModule, fmt.Sprintf("unmarshal() failed with err: %s", err.Error()))
}

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("json.marshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("json.unmarshal() failed with err: %s", err.Error()))
}

func ErrNilBlock() ErrorI {
	return NewError(CodeNilBlock, MainModule, "block is nil")
}

func ErrNilBlockHeader() ErrorI {
	return NewError(CodeNilBlockHeader, MainModule, "block.header is nil")
}

func ErrWrongLengthHash() ErrorI {
	return NewError(CodeWrongLengthHash, MainModule, "hash has the wrong length")
}

func ErrWrongLengthPrevHash() ErrorI {
	return NewError(CodeWrongLengthPrevHash, MainModule, "previous hash has the wrong length")
}

func ErrNilBlockTime() ErrorI {
	return NewError(CodeNilBlockTime, MainModule, "block time is nil")
}

func ErrNoValidators() ErrorI {
	return NewError(CodeNoValidators, MainModule, "validator set is empty")
}

func ErrDuplicateValidator(id string) ErrorI {
	return NewError(CodeDuplicateValidator, MainModule, fmt.Sprintf("validator %s appears more than once", id))
}

func ErrInvalidQuorum(quorum, numValidators int) ErrorI {
	return NewError(CodeInvalidQuorum, MainModule, fmt.Sprintf("quorum %d is invalid for a set of %d validators", quorum, numValidators))
}

func ErrValidatorNotInSet(publicKey []byte) ErrorI {
	return NewError(CodeValidatorNotInSet, MainModule, fmt.Sprintf("validator %s is not in the set", BytesToTruncatedString(publicKey)))
}

func ErrWriteFile(err error) ErrorI {
	return NewError(CodeWriteFile, MainModule, fmt.Sprintf("os.WriteFile() failed with err: %s", err.Error()))
}

func ErrReadFile(err error) ErrorI {
	return NewError(CodeReadFile, MainModule, fmt.Sprintf("os.ReadFile() failed with err: %s", err.Error()))
}

func ErrPubKeyFromBytes(err error) ErrorI {
	return NewError(CodePubKeyFromBytes, MainModule, fmt.Sprintf("publicKeyFromBytes() failed with err: %s", err.Error()))
}

func ErrUnequalBlockHash() ErrorI {
	return NewError(CodeUnequalBlockHash, MainModule, "block hash is unequal")
}

func ErrNilGenesis() ErrorI {
	return NewError(CodeNilGenesis, MainModule, "genesis document is nil or empty")
}

// queue module errors below

func ErrTxFoundInQueue(hash string) ErrorI {
	return NewError(CodeTxFoundInQueue, QueueModule, fmt.Sprintf("tx %s already pending in the queue", hash))
}

func ErrTxAlreadyCommitted(hash string) ErrorI {
	return NewError(CodeTxAlreadyCommitted, QueueModule, fmt.Sprintf("tx %s was recently committed", hash))
}

func ErrTxExpired(hash string) ErrorI {
	return NewError(CodeTxExpired, QueueModule, fmt.Sprintf("tx %s time to live elapsed", hash))
}

func ErrTxInFuture(hash string) ErrorI {
	return NewError(CodeTxInFuture, QueueModule, fmt.Sprintf("tx %s has a timestamp too far in the future", hash))
}

func ErrQueueFull() ErrorI {
	return NewError(CodeQueueFull, QueueModule, "queue is full")
}

func ErrMaxTxSize() ErrorI {
	return NewError(CodeMaxTxSize, QueueModule, "tx exceeds the individual size limit")
}

func ErrTxRejected(reason error) ErrorI {
	return NewError(CodeTxRejected, QueueModule, fmt.Sprintf("tx rejected by the validator: %s", reason.Error()))
}
