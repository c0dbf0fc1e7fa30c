package lib

import (
	"github.com/fxamacker/cbor/v2"
)

/*
	This file implements the binary codec used for persisted and wire objects.
	Core-deterministic CBOR is used so that the encoding of a signing payload is
	identical on every peer, which is required for the hash and signature contract.
*/

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core Deterministic Encoding: map keys sorted, shortest-form integers
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal() serializes an object into deterministic CBOR bytes
func Marshal(message any) ([]byte, ErrorI) {
	bz, err := encMode.Marshal(message)
	if err != nil {
		return nil, ErrMarshal(err)
	}
	return bz, nil
}

// Unmarshal() populates an object reference from CBOR bytes
func Unmarshal(data []byte, ptr any) ErrorI {
	if err := decMode.Unmarshal(data, ptr); err != nil {
		return ErrUnmarshal(err)
	}
	return nil
}
