package node

import (
	"context"
	"testing"
	"time"

	"github.com/arcadia-network/arcadia/lib"
	"github.com/arcadia-network/arcadia/lib/crypto"
	"github.com/stretchr/testify/require"
)

// newSoloNode() builds a single-validator node over an in-memory store
func newSoloNode(t *testing.T, dataDir string) (*Node, crypto.PrivateKeyI) {
	key, err := crypto.NewEd25519PrivateKey()
	require.NoError(t, err)
	config := lib.DefaultConfig()
	config.ConsensusConfig = lib.ConsensusConfig{
		RoundTimeoutMS:       500,
		EmptyBlockIntervalMS: 50,
		SweepIntervalMS:      100,
		MaxBlockTxs:          100,
		MaxBlockBytes:        1 << 20,
	}
	config.MetricsConfig.Enabled = false
	config.RPCConfig.RPCPort = "" // no HTTP API under test
	if dataDir == "" {
		config.StoreConfig = lib.StoreConfig{InMemory: true}
	} else {
		config.StoreConfig = lib.StoreConfig{DataDirPath: dataDir, DBName: "blocks"}
	}
	genesis := &lib.GenesisDoc{
		ChainId:    1,
		Validators: []string{key.PublicKey().String()},
	}
	n, e := New(config, key, genesis, NewSoloTransport(), nil, lib.NewNullLogger())
	require.NoError(t, e)
	return n, key
}

// TestSoloNodeCommits runs a one-validator chain and confirms it advances on
// its own quorum of one
func TestSoloNodeCommits(t *testing.T) {
	n, _ := newSoloNode(t, "")
	events := n.Events()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Start(ctx) }()
	// a submitted transaction must land in a committed block
	tx := &lib.Transaction{
		Payload:     []byte("solo payload"),
		CreatedTime: lib.TimeNowMicro(),
		TTLMicro:    60_000_000,
	}
	require.NoError(t, n.Queue().Enqueue(tx))
	deadline := time.After(10 * time.Second)
	committed := uint64(0)
	for committed < 2 {
		select {
		case e := <-events:
			if e.Status == lib.EventCommitted {
				committed = e.Height
			}
		case <-deadline:
			t.Fatal("timed out waiting for the solo chain to advance")
		}
	}
	cancel()
	require.NoError(t, <-done)
	block1, err := n.Store().GetByHeight(1)
	require.NoError(t, err)
	require.Len(t, block1.Transactions, 1)
	require.Equal(t, tx.Payload, block1.Transactions[0].Payload)
	require.Zero(t, n.Queue().TxCount())
}

// TestNodeRestartResumesChain stops a disk-backed node and confirms a fresh
// start picks the chain up where it left off
func TestNodeRestartResumesChain(t *testing.T) {
	dataDir := t.TempDir()
	n, key := newSoloNode(t, dataDir)
	events := n.Events()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Start(ctx) }()
	deadline := time.After(10 * time.Second)
	for advanced := false; !advanced; {
		select {
		case e := <-events:
			advanced = e.Status == lib.EventCommitted && e.Height >= 2
		case <-deadline:
			t.Fatal("timed out waiting for the chain to advance")
		}
	}
	cancel()
	require.NoError(t, <-done)
	// reopen against the same data directory with the same identity
	config := lib.DefaultConfig()
	config.MetricsConfig.Enabled = false
	config.StoreConfig = lib.StoreConfig{DataDirPath: dataDir, DBName: "blocks"}
	genesis := &lib.GenesisDoc{ChainId: 1, Validators: []string{key.PublicKey().String()}}
	restarted, err := New(config, key, genesis, NewSoloTransport(), nil, lib.NewNullLogger())
	require.NoError(t, err)
	require.GreaterOrEqual(t, restarted.Store().Height(), uint64(2))
	require.NoError(t, restarted.Store().Close())
}
