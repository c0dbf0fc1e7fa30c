package node

import (
	"context"

	"github.com/arcadia-network/arcadia/bft"
	"github.com/arcadia-network/arcadia/lib"
	"github.com/arcadia-network/arcadia/lib/crypto"
	"github.com/arcadia-network/arcadia/rpc"
	"github.com/arcadia-network/arcadia/store"
	"golang.org/x/sync/errgroup"
)

/*
	This package assembles a full validator node: block store, transaction
	queue, consensus engine, telemetry, and the HTTP API, wired over whatever
	peer transport the deployment supplies.
*/

// Node is one validator's complete stack
type Node struct {
	config  lib.Config
	key     crypto.PrivateKeyI
	store   *store.Store
	queue   *lib.Queue
	engine  *bft.BFT
	rpc     *rpc.Server
	feed    *lib.EventFeed
	metrics *lib.Metrics
	log     lib.LoggerI
}

// New() builds a node from its configuration, identity, genesis document, and
// peer transport; the store is opened (and recovered) before this returns
func New(config lib.Config, privateKey crypto.PrivateKeyI, genesis *lib.GenesisDoc,
	transport lib.TransportI, validate lib.TxValidator, log lib.LoggerI) (*Node, lib.ErrorI) {
	metrics := lib.NewMetrics(config.MetricsConfig, log)
	s, err := store.New(config.StoreConfig, metrics, log)
	if err != nil {
		return nil, err
	}
	topology, err := buildTopology(genesis, s)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	queue := lib.NewQueue(config.QueueConfig, validate, log)
	feed := lib.NewEventFeed()
	engine := bft.New(config.ConsensusConfig, privateKey, topology, s, queue, transport, feed, metrics, log)
	return &Node{
		config:  config,
		key:     privateKey,
		store:   s,
		queue:   queue,
		engine:  engine,
		rpc:     rpc.NewServer(config, s, engine, queue, log),
		feed:    feed,
		metrics: metrics,
		log:     log,
	}, nil
}

// Start() runs the node until the context is canceled
func (n *Node) Start(ctx context.Context) error {
	// a blank port disables the HTTP API
	if n.config.RPCPort != "" {
		n.rpc.Start()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n.engine.Start()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		n.engine.Stop()
		return n.store.Close()
	})
	return g.Wait()
}

// Queue() exposes the pending pool for local transaction submission
func (n *Node) Queue() *lib.Queue { return n.queue }

// Store() exposes the block store for local chain queries
func (n *Node) Store() *store.Store { return n.store }

// Events() subscribes to the consensus progress feed
func (n *Node) Events() <-chan lib.Event { return n.feed.Subscribe() }

// buildTopology() derives the validator ordering active at the next height:
// the genesis set, then every validator-set change the chain has committed
// since, replayed in order. The replay independently re-verifies that every
// stored block carries a quorum of member signatures under the topology that
// was active at its height, so a tampered data directory is refused at boot.
func buildTopology(genesis *lib.GenesisDoc, s *store.Store) (*lib.Topology, lib.ErrorI) {
	topology, err := genesis.Topology()
	if err != nil {
		return nil, err
	}
	for height := uint64(1); height <= s.Height(); height++ {
		block, e := s.GetByHeight(height)
		if e != nil {
			return nil, e
		}
		if e = verifyQuorum(block, topology); e != nil {
			return nil, e
		}
		change, e := block.ExtractValidatorChange()
		if e != nil {
			return nil, e
		}
		if topology, e = topology.AdvanceHeight(change); e != nil {
			return nil, e
		}
	}
	return topology, nil
}

// verifyQuorum() counts the block's verified signers that are members of the
// given topology against its quorum size
func verifyQuorum(block *lib.Block, topology *lib.Topology) lib.ErrorI {
	signers, err := block.SignerSet()
	if err != nil {
		return err
	}
	members := 0
	for _, v := range topology.Validators() {
		if _, ok := signers[lib.BytesToString(v)]; ok {
			members++
		}
	}
	if quorum := topology.QuorumSize(); members < quorum {
		return store.ErrQuorumNotMet(members, quorum)
	}
	return nil
}
