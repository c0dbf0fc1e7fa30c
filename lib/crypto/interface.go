package crypto

/* This file defines the abstract sign/verify capability the node consumes; the consensus and queue logic never references a concrete curve */

// PrivateKeyI is the model of the local node's signing key
type PrivateKeyI interface {
	Bytes() []byte           // the raw private key bytes
	Sign(msg []byte) []byte  // produce a digital signature over the message
	PublicKey() PublicKeyI   // the corresponding public key
	Equals(i PrivateKeyI) bool
	String() string // hex representation
}

// PublicKeyI is the model of a validator identity
type PublicKeyI interface {
	Bytes() []byte                        // the raw public key bytes
	VerifyBytes(msg, sig []byte) bool     // check a digital signature over the message
	Equals(i PublicKeyI) bool
	String() string // hex representation
}
