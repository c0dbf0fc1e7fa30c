package lib

/*
	This file defines the abstract peer transport the consensus engine consumes.
	Connection management, discovery, and authentication live outside the core:
	the engine only requires an authenticated, ordered message channel per peer.
	Messages from a given peer arrive in the order that peer sent them; no global
	ordering across peers is assumed.
*/

// InboundMessage pairs a serialized consensus message with its sender identity
type InboundMessage struct {
	Sender []byte // the authenticated public key of the sending peer
	Data   []byte // the serialized consensus message
}

// TransportI is the model of the peer message channel
type TransportI interface {
	// Send() delivers the serialized message to the named peer; delivery is best
	// effort, the consensus protocol tolerates loss
	Send(peer []byte, data []byte)
	// Broadcast() delivers the serialized message to every known peer
	Broadcast(data []byte)
	// Receive() returns the infinite inbound sequence of (sender, message)
	Receive() <-chan InboundMessage
}
