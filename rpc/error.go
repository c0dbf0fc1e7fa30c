package rpc

import (
	"fmt"

	"github.com/arcadia-network/arcadia/lib"
)

// rpc module error codes
const (
	CodeServerTimeout lib.ErrorCode = 1
	CodeInvalidParams lib.ErrorCode = 2
	CodeReadBody      lib.ErrorCode = 3
)

func ErrServerTimeout() lib.ErrorI {
	return lib.NewError(CodeServerTimeout, lib.RPCModule, "server timeout")
}

func ErrInvalidParams(err error) lib.ErrorI {
	return lib.NewError(CodeInvalidParams, lib.RPCModule, fmt.Sprintf("invalid request params: %s", err.Error()))
}

func ErrReadBody(err error) lib.ErrorI {
	return lib.NewError(CodeReadBody, lib.RPCModule, fmt.Sprintf("reading the request body failed: %s", err.Error()))
}
