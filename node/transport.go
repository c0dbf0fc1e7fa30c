package node

import (
	"github.com/arcadia-network/arcadia/lib"
)

// SoloTransport is the peer transport of a single-validator deployment: there
// are no peers, so sends vanish and nothing ever arrives. A one-member
// topology reaches its quorum of one alone, so the chain advances normally.
type SoloTransport struct {
	inbox chan lib.InboundMessage
}

var _ lib.TransportI = &SoloTransport{}

// NewSoloTransport() creates a transport with no peers behind it
func NewSoloTransport() *SoloTransport {
	return &SoloTransport{inbox: make(chan lib.InboundMessage)}
}

// Send() discards the message, there is no one to receive it
func (t *SoloTransport) Send(_ []byte, _ []byte) {}

// Broadcast() discards the message, there is no one to receive it
func (t *SoloTransport) Broadcast(_ []byte) {}

// Receive() returns a channel that never delivers
func (t *SoloTransport) Receive() <-chan lib.InboundMessage { return t.inbox }
