package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	HashSize = sha256.Size
)

/*
	Hash is the content addressing function of the chain: block hashes, transaction
	hashes, and the chain linkage all use the same fixed-width digest
*/

// Hash() executes the global hashing algorithm on input bytes
func Hash(msg []byte) []byte {
	h := sha256.Sum256(msg)
	return h[:]
}

// HashString() returns the hex version of a hash
func HashString(msg []byte) string { return hex.EncodeToString(Hash(msg)) }

// crypto module errors below

// ErrInvalidPublicKeySize() is returned when public key bytes are not the expected width
func ErrInvalidPublicKeySize(got int) error {
	return fmt.Errorf("invalid public key size: got %d, wanted %d", got, Ed25519PubKeySize)
}
