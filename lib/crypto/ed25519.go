package crypto

import (
	"bytes"
	ed25519 "crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
)

const (
	Ed25519PrivKeySize   = ed25519.PrivateKeySize
	Ed25519PubKeySize    = ed25519.PublicKeySize
	Ed25519SignatureSize = ed25519.SignatureSize
)

// Private Key Below

var _ PrivateKeyI = &ED25519PrivateKey{}

// ED25519PrivateKey is the private half of an Ed25519 key pair, used to create digital signatures over consensus payloads
type ED25519PrivateKey struct{ ed25519.PrivateKey }

// NewEd25519PrivateKey() generates a new ED25519 private key
func NewEd25519PrivateKey() (PrivateKeyI, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &ED25519PrivateKey{PrivateKey: priv}, nil
}

// BytesToED25519Private() creates a new PrivateKeyI interface from ED25519 bytes
func BytesToED25519Private(bz []byte) PrivateKeyI {
	return &ED25519PrivateKey{PrivateKey: bz}
}

// StringToED25519Private() creates a new PrivateKeyI interface from an ED25519 hex string
func StringToED25519Private(hexString string) (PrivateKeyI, error) {
	bz, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, err
	}
	return BytesToED25519Private(bz), nil
}

// String() returns the hex string representation of the private key
func (p *ED25519PrivateKey) String() string { return hex.EncodeToString(p.Bytes()) }

// Bytes() casts the private key to bytes
func (p *ED25519PrivateKey) Bytes() []byte { return p.PrivateKey }

// Sign() returns the digital signature over the message
func (p *ED25519PrivateKey) Sign(msg []byte) []byte { return ed25519.Sign(p.PrivateKey, msg) }

// PublicKey() returns the corresponding public key of the private key
func (p *ED25519PrivateKey) PublicKey() PublicKeyI {
	return &ED25519PublicKey{PublicKey: p.PrivateKey.Public().(ed25519.PublicKey)}
}

// Equals() compares two private keys byte for byte
func (p *ED25519PrivateKey) Equals(i PrivateKeyI) bool { return bytes.Equal(p.Bytes(), i.Bytes()) }

// MarshalJSON() satisfies the json.Marshaler interface
func (p *ED25519PrivateKey) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

// UnmarshalJSON() satisfies the json.Unmarshaler interface
func (p *ED25519PrivateKey) UnmarshalJSON(b []byte) (err error) {
	var hexString string
	if err = json.Unmarshal(b, &hexString); err != nil {
		return
	}
	bz, err := hex.DecodeString(hexString)
	if err != nil {
		return
	}
	p.PrivateKey = bz
	return
}

// Public Key Below

var _ PublicKeyI = &ED25519PublicKey{}

// ED25519PublicKey is the public half of an Ed25519 key pair; its bytes are the validator identity on the network
type ED25519PublicKey struct{ ed25519.PublicKey }

// BytesToED25519Public() creates a new PublicKeyI interface from ED25519 bytes
func BytesToED25519Public(bz []byte) (PublicKeyI, error) {
	if len(bz) != Ed25519PubKeySize {
		return nil, ErrInvalidPublicKeySize(len(bz))
	}
	return &ED25519PublicKey{PublicKey: bz}, nil
}

// String() returns the hex string representation of the public key
func (p *ED25519PublicKey) String() string { return hex.EncodeToString(p.Bytes()) }

// Bytes() casts the public key to bytes
func (p *ED25519PublicKey) Bytes() []byte { return p.PublicKey }

// VerifyBytes() checks the digital signature over the message
func (p *ED25519PublicKey) VerifyBytes(msg, sig []byte) bool {
	if len(sig) != Ed25519SignatureSize {
		return false
	}
	return ed25519.Verify(p.PublicKey, msg, sig)
}

// Equals() compares two public keys byte for byte
func (p *ED25519PublicKey) Equals(i PublicKeyI) bool { return bytes.Equal(p.Bytes(), i.Bytes()) }

// KEY FILE CODE BELOW

// KeyFile is the json structure of the validator key file in the data directory
type KeyFile struct {
	PrivateKey string `json:"privateKey"` // hex encoded ed25519 private key
}

// PrivateKeyFromFile() loads the node private key from a json key file
func PrivateKeyFromFile(path string) (PrivateKeyI, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	kf := new(KeyFile)
	if err = json.Unmarshal(bz, kf); err != nil {
		return nil, err
	}
	return StringToED25519Private(kf.PrivateKey)
}

// PrivateKeyToFile() persists the node private key to a json key file
func PrivateKeyToFile(key PrivateKeyI, path string) error {
	bz, err := json.MarshalIndent(&KeyFile{PrivateKey: key.String()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bz, 0o600)
}
