package lib

import (
	"bytes"
)

/*
	This file implements the Topology: the deterministic, shared total ordering of
	validator identities for a given height and view. Every honest peer computes
	the same proposer and quorum from the same inputs without communication.

	A Topology value is immutable: AdvanceView() and AdvanceHeight() return copies,
	so a round in flight always computes quorum against the topology active when
	that round started.
*/

// Topology is the ordered validator set plus the current view counter
type Topology struct {
	validators [][]byte            // ordered validator identities, no duplicates
	index      map[string]int      // identity -> position for O(1) membership
	height     uint64              // the height this topology is active for
	view       uint32              // leader rotation counter within the height
}

// NewTopology() validates and builds a topology for the given height.
// An empty set or a degenerate quorum is configuration-fatal: the node refuses to run.
func NewTopology(validators [][]byte, height uint64) (*Topology, ErrorI) {
	if len(validators) == 0 {
		return nil, ErrNoValidators()
	}
	index := make(map[string]int, len(validators))
	for i, v := range validators {
		key := BytesToString(v)
		if _, ok := index[key]; ok {
			return nil, ErrDuplicateValidator(BytesToTruncatedString(v))
		}
		index[key] = i
	}
	t := &Topology{validators: validators, index: index, height: height}
	if q := t.QuorumSize(); q == 0 || q > len(validators) {
		return nil, ErrInvalidQuorum(q, len(validators))
	}
	return t, nil
}

// ProposerFor() returns the single legitimate proposer for the (height, view)
// round: validators[(height + view) mod n]. Pure function of its inputs.
func (t *Topology) ProposerFor(height uint64, view uint32) []byte {
	n := uint64(len(t.validators))
	return t.validators[(height+uint64(view))%n]
}

// Proposer() returns the proposer of the topology's own (height, view)
func (t *Topology) Proposer() []byte { return t.ProposerFor(t.height, t.view) }

// QuorumSize() returns floor(2n/3)+1: the minimum distinct signatures that make
// a block or view-change binding, tolerating floor((n-1)/3) faulty validators
func (t *Topology) QuorumSize() int { return 2*len(t.validators)/3 + 1 }

// FaultTolerance() returns the number of faulty validators the set tolerates
func (t *Topology) FaultTolerance() int { return (len(t.validators) - 1) / 3 }

// NumValidators() returns the size of the validator set
func (t *Topology) NumValidators() int { return len(t.validators) }

// Height() returns the height this topology is active for
func (t *Topology) Height() uint64 { return t.height }

// View() returns the current leader rotation counter
func (t *Topology) View() uint32 { return t.view }

// Validators() returns a copy of the ordered identity list
func (t *Topology) Validators() (out [][]byte) {
	out = make([][]byte, len(t.validators))
	copy(out, t.validators)
	return
}

// IsValidator() reports whether the identity is a member of the set
func (t *Topology) IsValidator(publicKey []byte) bool {
	_, ok := t.index[BytesToString(publicKey)]
	return ok
}

// IsProposer() reports whether the identity is the proposer of the current round
func (t *Topology) IsProposer(publicKey []byte) bool {
	return bytes.Equal(publicKey, t.Proposer())
}

// AdvanceView() returns a copy with the view incremented; validators and height
// are unchanged. Called only after a quorum of view-change votes.
func (t *Topology) AdvanceView() *Topology {
	return &Topology{
		validators: t.validators,
		index:      t.index,
		height:     t.height,
		view:       t.view + 1,
	}
}

// AdvanceHeight() returns a copy for the next height with the view reset to 0.
// If the committed block carried a validator-set-change, the replacement set
// takes effect here and not retroactively; a nil change keeps the current set.
func (t *Topology) AdvanceHeight(change *ValidatorChange) (*Topology, ErrorI) {
	if change == nil {
		return &Topology{
			validators: t.validators,
			index:      t.index,
			height:     t.height + 1,
		}, nil
	}
	return NewTopology(change.Validators, t.height+1)
}
