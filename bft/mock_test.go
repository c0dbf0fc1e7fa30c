package bft

import (
	"sync"
	"testing"
	"time"

	"github.com/arcadia-network/arcadia/lib"
	"github.com/arcadia-network/arcadia/lib/crypto"
	"github.com/arcadia-network/arcadia/store"
	"github.com/stretchr/testify/require"
)

/* In-memory test doubles: a channel-backed network fabric wiring engines together */

// testNetwork is an in-process message fabric connecting mock transports by identity
type testNetwork struct {
	mu    sync.Mutex
	nodes map[string]*mockTransport
}

func newTestNetwork() *testNetwork {
	return &testNetwork{nodes: make(map[string]*mockTransport)}
}

// transport() registers (or returns) the transport for the identity
func (n *testNetwork) transport(self []byte) *mockTransport {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := lib.BytesToString(self)
	if t, ok := n.nodes[key]; ok {
		return t
	}
	t := &mockTransport{net: n, self: self, inbox: make(chan lib.InboundMessage, 1024)}
	n.nodes[key] = t
	return t
}

// deliver() places a message in the named peer's inbox, dropping on overflow
func (n *testNetwork) deliver(to string, msg lib.InboundMessage) {
	n.mu.Lock()
	peer, ok := n.nodes[to]
	n.mu.Unlock()
	if !ok {
		return
	}
	select {
	case peer.inbox <- msg:
	default:
	}
}

// mockTransport satisfies lib.TransportI over the test fabric
type mockTransport struct {
	net   *testNetwork
	self  []byte
	inbox chan lib.InboundMessage
}

func (m *mockTransport) Send(peer []byte, data []byte) {
	m.net.deliver(lib.BytesToString(peer), lib.InboundMessage{Sender: m.self, Data: data})
}

func (m *mockTransport) Broadcast(data []byte) {
	m.net.mu.Lock()
	peers := make([]string, 0, len(m.net.nodes))
	for key := range m.net.nodes {
		peers = append(peers, key)
	}
	m.net.mu.Unlock()
	selfKey := lib.BytesToString(m.self)
	for _, key := range peers {
		if key == selfKey {
			continue
		}
		m.net.deliver(key, lib.InboundMessage{Sender: m.self, Data: data})
	}
}

func (m *mockTransport) Receive() <-chan lib.InboundMessage { return m.inbox }

// testNode bundles one validator's full consensus stack
type testNode struct {
	key    crypto.PrivateKeyI
	store  *store.Store
	queue  *lib.Queue
	engine *BFT
	events <-chan lib.Event
}

// testConsensusConfig() shrinks the round timing so scenarios finish quickly
func testConsensusConfig() lib.ConsensusConfig {
	return lib.ConsensusConfig{
		RoundTimeoutMS:       500,
		EmptyBlockIntervalMS: 50,
		SweepIntervalMS:      100,
		MaxBlockTxs:          100,
		MaxBlockBytes:        1 << 20,
	}
}

// newTestNodes() builds n validators sharing one fabric and one genesis ordering
func newTestNodes(t *testing.T, n int) (nodes []*testNode, validators [][]byte, net *testNetwork) {
	net = newTestNetwork()
	keys := make([]crypto.PrivateKeyI, n)
	for i := 0; i < n; i++ {
		key, err := crypto.NewEd25519PrivateKey()
		require.NoError(t, err)
		keys[i] = key
		validators = append(validators, key.PublicKey().Bytes())
	}
	log := lib.NewNullLogger()
	for i := 0; i < n; i++ {
		topology, err := lib.NewTopology(validators, 1)
		require.NoError(t, err)
		s, err := store.New(lib.StoreConfig{InMemory: true}, nil, log)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		queue := lib.NewQueue(lib.DefaultQueueConfig(), nil, log)
		feed := lib.NewEventFeed()
		node := &testNode{
			key:    keys[i],
			store:  s,
			queue:  queue,
			events: feed.Subscribe(),
		}
		node.engine = New(testConsensusConfig(), keys[i], topology, s, queue,
			net.transport(validators[i]), feed, nil, log)
		nodes = append(nodes, node)
	}
	return
}

// start() launches the engine loops and registers their shutdown
func start(t *testing.T, nodes ...*testNode) {
	for _, node := range nodes {
		n := node
		go n.engine.Start()
		t.Cleanup(n.engine.Stop)
	}
}

// waitFor() blocks until the node emits the event or the timeout elapses
func waitFor(t *testing.T, node *testNode, status lib.EventStatus, height uint64, timeout time.Duration) {
	deadline := time.After(timeout)
	for {
		select {
		case e := <-node.events:
			if e.Status == status && e.Height == height {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s at height %d", status, height)
		}
	}
}
