package bft

import (
	"sync"
	"time"

	"github.com/arcadia-network/arcadia/lib"
	"github.com/arcadia-network/arcadia/lib/crypto"
)

/*
	This package implements the consensus engine: the per-height state machine
	that drives a fixed validator set from proposal through voting to a durably
	committed block, rotating leaders by view change when a round stalls.

	All state transitions happen on a single goroutine inside Start(); the
	select loop multiplexes the inbound transport, the round deadline timer, the
	empty-block proposal timer, and the queue expiry sweep. Nothing outside that
	goroutine mutates engine state, so the core logic carries no locks beyond
	the one guarding the topology pointer for external readers.
*/

// Phase is the engine's position within the current height
type Phase uint8

const (
	PhaseIdle       Phase = iota // between rounds
	PhasePropose                 // this node is the proposer and is building a candidate
	PhaseVote                    // waiting on or weighing a candidate
	PhaseCommit                  // quorum reached, persisting the block
	PhaseViewChange              // the round stalled, rotating leaders
)

// String() names the phase for logs
func (p Phase) String() string {
	switch p {
	case PhasePropose:
		return "PROPOSE"
	case PhaseVote:
		return "VOTE"
	case PhaseCommit:
		return "COMMIT"
	case PhaseViewChange:
		return "VIEW_CHANGE"
	default:
		return "IDLE"
	}
}

// StoreI is the slice of the block store the engine depends on
type StoreI interface {
	Height() uint64                                // height of the last committed block
	LastHash() []byte                              // hash of the last committed block
	Append(block *lib.Block, quorum int) lib.ErrorI // durably extend the chain
}

// BFT is the consensus engine for a single validator
type BFT struct {
	config     lib.ConsensusConfig
	privateKey crypto.PrivateKeyI
	publicKey  []byte

	store     StoreI
	queue     lib.QueueI
	transport lib.TransportI
	feed      *lib.EventFeed
	metrics   *lib.Metrics
	log       lib.LoggerI

	// round state, owned by the Start() goroutine
	phase              Phase
	candidate          *lib.Block // the proposal under vote this round, nil until one arrives
	candidateHash      []byte
	candidateSignBytes []byte
	votes              *voteSet       // block votes for this (height, view)
	viewChanges        *viewChangeSet // leader rotation votes for this height
	proposed           bool           // whether this node already proposed this round

	roundTimer   *time.Timer // fires the view-change deadline
	proposeTimer *time.Timer // fires the empty-block proposal

	stateMu  sync.RWMutex  // guards topology for readers outside the loop
	topology *lib.Topology // active validator ordering for the current height

	stop chan struct{}
	done chan struct{}
}

// New() creates a consensus engine ready to Start()
func New(config lib.ConsensusConfig, privateKey crypto.PrivateKeyI, topology *lib.Topology,
	store StoreI, queue lib.QueueI, transport lib.TransportI, feed *lib.EventFeed,
	metrics *lib.Metrics, log lib.LoggerI) *BFT {
	return &BFT{
		config:       config,
		privateKey:   privateKey,
		publicKey:    privateKey.PublicKey().Bytes(),
		store:        store,
		queue:        queue,
		transport:    transport,
		feed:         feed,
		metrics:      metrics,
		log:          log,
		votes:        newVoteSet(),
		viewChanges:  newViewChangeSet(),
		roundTimer:   lib.NewTimer(),
		proposeTimer: lib.NewTimer(),
		topology:     topology,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start() runs the engine loop until Stop(); it owns all round state
func (b *BFT) Start() {
	defer close(b.done)
	sweep := time.NewTicker(time.Duration(b.config.SweepIntervalMS) * time.Millisecond)
	defer sweep.Stop()
	b.log.Infof("Consensus engine started at height %d as %s", b.topology.Height(), lib.BytesToTruncatedString(b.publicKey))
	b.enterRound()
	for {
		select {
		case <-b.stop:
			return
		case inbound, ok := <-b.transport.Receive():
			if !ok {
				return
			}
			b.handleMessage(inbound)
		case <-b.roundTimer.C:
			b.onRoundDeadline()
		case <-b.proposeTimer.C:
			b.propose()
		case t := <-sweep.C:
			b.queue.SweepExpired(t)
			b.metrics.SetQueueDepth(b.queue.TxCount())
		}
	}
}

// Stop() halts the engine loop and waits for it to exit
func (b *BFT) Stop() {
	close(b.stop)
	<-b.done
}

// Height() returns the height the engine is working to commit
func (b *BFT) Height() uint64 {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.topology.Height()
}

// View() returns the leader rotation counter of the active round
func (b *BFT) View() uint32 {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.topology.View()
}

// PublicKey() returns this validator's identity
func (b *BFT) PublicKey() []byte { return b.publicKey }

// enterRound() arms the timers and kicks off the (height, view) round
func (b *BFT) enterRound() {
	b.candidate, b.candidateHash, b.candidateSignBytes = nil, nil, nil
	b.votes, b.proposed = newVoteSet(), false
	height, view := b.topology.Height(), b.topology.View()
	lib.ResetTimer(b.roundTimer, b.roundDeadline(view))
	if !b.topology.IsProposer(b.publicKey) {
		b.phase = PhaseVote
		lib.StopTimer(b.proposeTimer)
		b.log.Debugf("Entered round (H:%d, V:%d) as voter, proposer is %s",
			height, view, lib.BytesToTruncatedString(b.topology.Proposer()))
		return
	}
	b.phase = PhasePropose
	b.log.Debugf("Entered round (H:%d, V:%d) as proposer", height, view)
	// propose immediately when work is pending, otherwise hold the round open
	// briefly so the block isn't needlessly empty
	if b.queue.TxCount() > 0 {
		b.propose()
		return
	}
	lib.ResetTimer(b.proposeTimer, time.Duration(b.config.EmptyBlockIntervalMS)*time.Millisecond)
}

// roundDeadline() returns the view-change deadline for the view: linear growth
// in the view keeps every peer's deadline schedule identical without clock
// exchange, while still widening the window when consecutive rounds fail
func (b *BFT) roundDeadline(view uint32) time.Duration {
	return time.Duration(b.config.RoundTimeoutMS*(2*int(view)+1)) * time.Millisecond
}

// propose() builds, signs, and broadcasts this round's candidate block
func (b *BFT) propose() {
	if b.proposed || !b.topology.IsProposer(b.publicKey) {
		return
	}
	b.proposed = true
	height, view := b.topology.Height(), b.topology.View()
	block := &lib.Block{
		Header: &lib.BlockHeader{
			Height:          height,
			PreviousHash:    b.store.LastHash(),
			ViewChangeIndex: view,
			Time:            lib.TimeNowMicro(),
			ProposerKey:     b.publicKey,
		},
		Transactions: b.queue.NextBatch(b.config.MaxBlockTxs, b.config.MaxBlockBytes),
	}
	// a candidate this node would not vote for must never leave this node;
	// fall back to an empty block rather than stall the round
	if err := b.validateCandidate(block); err != nil {
		b.log.Errorf("Dropping proposal batch: %s", err.Error())
		block.Transactions = nil
	}
	if err := block.Sign(b.privateKey); err != nil {
		b.log.Errorf("Signing proposal failed: %s", err.Error())
		return
	}
	if err := b.broadcast(NewProposal(height, view, block)); err != nil {
		b.log.Errorf("Broadcasting proposal failed: %s", err.Error())
		return
	}
	b.log.Infof("Proposed block (H:%d, V:%d) with %d txs", height, view, len(block.Transactions))
	b.adoptCandidate(block)
	b.castVote()
}

// handleMessage() decodes and dispatches one inbound consensus message;
// stale and malformed traffic is dropped with a debug line, never answered
func (b *BFT) handleMessage(inbound lib.InboundMessage) {
	msg, err := UnmarshalMessage(inbound.Data)
	if err != nil {
		b.log.Debugf("Dropping undecodable message from %s", lib.BytesToTruncatedString(inbound.Sender))
		return
	}
	if err = msg.CheckBasic(); err != nil {
		b.log.Debugf("Dropping malformed message: %s", err.Error())
		return
	}
	if msg.Height != b.topology.Height() {
		b.log.Debugf("Dropping message at height %d, active height is %d", msg.Height, b.topology.Height())
		return
	}
	switch msg.Type {
	case MsgProposal:
		b.handleProposal(msg)
	case MsgVote:
		b.handleVote(msg)
	case MsgViewChange:
		b.handleViewChange(msg)
	}
}

// handleProposal() weighs a candidate block from the round proposer
func (b *BFT) handleProposal(msg *Message) {
	if msg.View != b.topology.View() {
		b.log.Debugf("Dropping proposal for view %d, active view is %d", msg.View, b.topology.View())
		return
	}
	// one candidate per round: a second proposal is equivocation, the first
	// stands and vote keying by hash keeps a split from ever committing twice
	if b.candidate != nil {
		b.log.Debugf("Dropping extra proposal for round (H:%d, V:%d)", msg.Height, msg.View)
		return
	}
	if err := b.validateProposal(msg); err != nil {
		b.log.Debugf("Dropping invalid proposal: %s", err.Error())
		return
	}
	b.phase = PhaseVote
	b.adoptCandidate(msg.Block)
	b.castVote()
}

// validateProposal() checks a candidate against the round it claims
func (b *BFT) validateProposal(msg *Message) lib.ErrorI {
	header := msg.Block.Header
	if header.Height != msg.Height {
		return ErrWrongHeight(header.Height, msg.Height)
	}
	if header.ViewChangeIndex != msg.View {
		return ErrWrongView(header.ViewChangeIndex, msg.View)
	}
	if !b.topology.IsProposer(header.ProposerKey) {
		return ErrUnexpectedProposer(header.ProposerKey)
	}
	// the proposer must have signed its own candidate
	signers, err := msg.Block.SignerSet()
	if err != nil {
		return err
	}
	if _, ok := signers[lib.BytesToString(header.ProposerKey)]; !ok {
		return ErrMissingProposerSig()
	}
	return b.validateCandidate(msg.Block)
}

// validateCandidate() checks the round-independent portion of a candidate:
// chain linkage and payload well-formedness
func (b *BFT) validateCandidate(block *lib.Block) lib.ErrorI {
	if err := block.CheckBasic(); err != nil {
		return err
	}
	if block.Header.Height != b.store.Height()+1 {
		return ErrWrongHeight(block.Header.Height, b.store.Height()+1)
	}
	if !lib.BytesEqual(block.Header.PreviousHash, b.store.LastHash()) {
		return ErrMismatchBlockHash()
	}
	// a validator-set change must yield a usable next topology
	change, err := block.ExtractValidatorChange()
	if err != nil {
		return ErrInvalidBlockPayload(err)
	}
	if change != nil {
		if _, err = lib.NewTopology(change.Validators, block.Header.Height+1); err != nil {
			return ErrInvalidBlockPayload(err)
		}
	}
	return nil
}

// adoptCandidate() installs the round's candidate and settles any votes that
// arrived ahead of it
func (b *BFT) adoptCandidate(block *lib.Block) {
	hash, err := block.Hash()
	if err != nil {
		b.log.Errorf("Hashing candidate failed: %s", err.Error())
		return
	}
	signBytes, err := block.SignBytes()
	if err != nil {
		b.log.Errorf("Serializing candidate failed: %s", err.Error())
		return
	}
	b.candidate, b.candidateHash, b.candidateSignBytes = block, hash, signBytes
	b.feed.Publish(lib.Event{Height: block.Header.Height, Status: lib.EventProposed})
	if tally := b.votes.adoptCandidate(hash, signBytes); tally >= b.topology.QuorumSize() {
		b.commit()
	}
}

// castVote() signs and broadcasts this node's endorsement of the candidate
func (b *BFT) castVote() {
	if b.candidate == nil {
		return
	}
	vote, err := NewVote(b.topology.Height(), b.topology.View(), b.candidate, b.privateKey)
	if err != nil {
		b.log.Errorf("Building vote failed: %s", err.Error())
		return
	}
	if err = b.broadcast(vote); err != nil {
		b.log.Errorf("Broadcasting vote failed: %s", err.Error())
		return
	}
	if tally := b.votes.addVote(b.candidateHash, vote.Signature, b.candidateSignBytes); tally >= b.topology.QuorumSize() {
		b.commit()
	}
}

// handleVote() tallies a candidate endorsement from a fellow validator
func (b *BFT) handleVote(msg *Message) {
	if msg.View != b.topology.View() {
		b.log.Debugf("Dropping vote for view %d, active view is %d", msg.View, b.topology.View())
		return
	}
	if !b.topology.IsValidator(msg.Signature.PublicKey) {
		b.log.Debugf("Dropping vote from non-validator %s", lib.BytesToTruncatedString(msg.Signature.PublicKey))
		return
	}
	// verification needs the candidate payload; a vote racing ahead of its
	// proposal is parked until the proposal lands
	var signBytes []byte
	if b.candidate != nil && lib.BytesEqual(msg.BlockHash, b.candidateHash) {
		signBytes = b.candidateSignBytes
	}
	tally := b.votes.addVote(msg.BlockHash, msg.Signature, signBytes)
	if b.candidate != nil && lib.BytesEqual(msg.BlockHash, b.candidateHash) && tally >= b.topology.QuorumSize() {
		b.commit()
	}
}

// commit() persists the candidate with its quorum certificate and moves the
// engine to the next height
func (b *BFT) commit() {
	if b.phase == PhaseCommit {
		return
	}
	b.phase = PhaseCommit
	quorum := b.topology.QuorumSize()
	block := &lib.Block{
		Header:       b.candidate.Header,
		Transactions: b.candidate.Transactions,
		Signatures:   b.votes.signatures(b.candidateHash),
	}
	// a store that cannot persist a quorum-certified block cannot be trusted
	// with the chain: halt rather than diverge
	if err := b.store.Append(block, quorum); err != nil {
		b.log.Fatalf("Appending committed block %d failed: %s", block.Header.Height, err.Error())
	}
	b.removeCommittedTxs(block)
	change, err := block.ExtractValidatorChange()
	if err != nil {
		b.log.Fatalf("Committed block %d carries an undecodable validator change: %s", block.Header.Height, err.Error())
	}
	next, err := b.topology.AdvanceHeight(change)
	if err != nil {
		b.log.Fatalf("Committed block %d yields an unusable validator set: %s", block.Header.Height, err.Error())
	}
	b.metrics.IncCommitted()
	b.metrics.UpdateConsensus(block.Header.Height, 0)
	b.feed.Publish(lib.Event{Height: block.Header.Height, Status: lib.EventCommitted})
	b.log.Infof("Committed block (H:%d, V:%d) with %d txs and %d signatures",
		block.Header.Height, block.Header.ViewChangeIndex, len(block.Transactions), len(block.Signatures))
	b.setTopology(next)
	b.viewChanges = newViewChangeSet()
	b.enterRound()
}

// removeCommittedTxs() clears the committed transactions from the pending pool
func (b *BFT) removeCommittedTxs(block *lib.Block) {
	hashes := make([][]byte, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		hash, err := tx.Hash()
		if err != nil {
			continue
		}
		hashes = append(hashes, hash)
	}
	b.queue.RemoveCommitted(hashes)
	b.metrics.SetQueueDepth(b.queue.TxCount())
}

// onRoundDeadline() fires when the round stalls: vote to rotate the leader and
// re-arm the timer on the widened schedule so the vote is re-broadcast if the
// rotation itself stalls
func (b *BFT) onRoundDeadline() {
	b.phase = PhaseViewChange
	height, target := b.topology.Height(), b.topology.View()+1
	b.log.Warnf("Round deadline elapsed (H:%d, V:%d), voting to rotate to view %d", height, target-1, target)
	msg, err := NewViewChange(height, target, b.privateKey)
	if err != nil {
		b.log.Errorf("Building view-change vote failed: %s", err.Error())
		return
	}
	if err = b.broadcast(msg); err != nil {
		b.log.Errorf("Broadcasting view-change vote failed: %s", err.Error())
		return
	}
	lib.ResetTimer(b.roundTimer, b.roundDeadline(target))
	if tally := b.viewChanges.addVote(target, b.publicKey); tally >= b.topology.QuorumSize() {
		b.advanceToView(target)
	}
}

// handleViewChange() tallies a leader rotation vote from a fellow validator
func (b *BFT) handleViewChange(msg *Message) {
	if msg.View <= b.topology.View() {
		b.log.Debugf("Dropping stale view-change: %s", ErrStaleViewChange(msg.View, b.topology.View()).Error())
		return
	}
	if !b.topology.IsValidator(msg.Signature.PublicKey) {
		b.log.Debugf("Dropping view-change from non-validator %s", lib.BytesToTruncatedString(msg.Signature.PublicKey))
		return
	}
	if err := msg.CheckViewChangeSignature(); err != nil {
		b.log.Debugf("Dropping view-change with bad signature: %s", err.Error())
		return
	}
	if tally := b.viewChanges.addVote(msg.View, msg.Signature.PublicKey); tally >= b.topology.QuorumSize() {
		b.advanceToView(msg.View)
	}
}

// advanceToView() rotates the round to the agreed view at the same height
func (b *BFT) advanceToView(target uint32) {
	next := b.topology
	for next.View() < target {
		next = next.AdvanceView()
	}
	b.setTopology(next)
	b.metrics.IncViewChanges()
	b.metrics.UpdateConsensus(b.store.Height(), target)
	b.feed.Publish(lib.Event{Height: next.Height(), Status: lib.EventViewChanged})
	b.log.Infof("Rotated to view %d at height %d, proposer is %s",
		target, next.Height(), lib.BytesToTruncatedString(next.Proposer()))
	b.enterRound()
}

// broadcast() serializes and fans a message out to every peer
func (b *BFT) broadcast(msg *Message) lib.ErrorI {
	data, err := MarshalMessage(msg)
	if err != nil {
		return err
	}
	b.transport.Broadcast(data)
	return nil
}

// setTopology() swaps the active topology under the reader lock
func (b *BFT) setTopology(t *lib.Topology) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.topology = t
}
