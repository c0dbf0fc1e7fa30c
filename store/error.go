package store

import (
	"fmt"

	"github.com/arcadia-network/arcadia/lib"
)

// store module error codes
const (
	CodeOpenDB           lib.ErrorCode = 1
	CodeCloseDB          lib.ErrorCode = 2
	CodeStoreGet         lib.ErrorCode = 3
	CodeStoreSet         lib.ErrorCode = 4
	CodeStoreDelete      lib.ErrorCode = 5
	CodeCommitDB         lib.ErrorCode = 6
	CodeHeightMismatch   lib.ErrorCode = 7
	CodeBrokenChain      lib.ErrorCode = 8
	CodeQuorumNotMet     lib.ErrorCode = 9
	CodeBlockNotFound    lib.ErrorCode = 10
	CodeChecksumMismatch lib.ErrorCode = 11
)

func ErrOpenDB(err error) lib.ErrorI {
	return lib.NewError(CodeOpenDB, lib.StoreModule, fmt.Sprintf("openDB() failed with err: %s", err.Error()))
}

func ErrCloseDB(err error) lib.ErrorI {
	return lib.NewError(CodeCloseDB, lib.StoreModule, fmt.Sprintf("closeDB() failed with err: %s", err.Error()))
}

func ErrStoreGet(err error) lib.ErrorI {
	return lib.NewError(CodeStoreGet, lib.StoreModule, fmt.Sprintf("store.Get() failed with err: %s", err.Error()))
}

func ErrStoreSet(err error) lib.ErrorI {
	return lib.NewError(CodeStoreSet, lib.StoreModule, fmt.Sprintf("store.Set() failed with err: %s", err.Error()))
}

func ErrStoreDelete(err error) lib.ErrorI {
	return lib.NewError(CodeStoreDelete, lib.StoreModule, fmt.Sprintf("store.Delete() failed with err: %s", err.Error()))
}

func ErrCommitDB(err error) lib.ErrorI {
	return lib.NewError(CodeCommitDB, lib.StoreModule, fmt.Sprintf("commitDB() failed with err: %s", err.Error()))
}

func ErrHeightMismatch(got, want uint64) lib.ErrorI {
	return lib.NewError(CodeHeightMismatch, lib.StoreModule, fmt.Sprintf("block height %d does not extend the chain at height %d", got, want-1))
}

func ErrBrokenChain(height uint64) lib.ErrorI {
	return lib.NewError(CodeBrokenChain, lib.StoreModule, fmt.Sprintf("block at height %d does not reference the previous block hash", height))
}

func ErrQuorumNotMet(got, want int) lib.ErrorI {
	return lib.NewError(CodeQuorumNotMet, lib.StoreModule, fmt.Sprintf("block carries %d valid signatures but %d are required", got, want))
}

func ErrBlockNotFound(height uint64) lib.ErrorI {
	return lib.NewError(CodeBlockNotFound, lib.StoreModule, fmt.Sprintf("no block found at height %d", height))
}

func ErrChecksumMismatch(height uint64) lib.ErrorI {
	return lib.NewError(CodeChecksumMismatch, lib.StoreModule, fmt.Sprintf("block record at height %d fails its checksum", height))
}
