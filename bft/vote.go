package bft

import (
	"github.com/arcadia-network/arcadia/lib"
	"github.com/arcadia-network/arcadia/lib/crypto"
)

/*
	This file implements the per-round vote bookkeeping. Votes are keyed by the
	candidate block hash they endorse, so two conflicting candidates in the same
	round split the tally and at most one of them can ever reach quorum. A vote
	arriving before its candidate block is parked unverified; it only counts once
	the candidate is known and the signature checks out against its payload.
*/

// voteSet tallies block votes for a single (height, view) round
type voteSet struct {
	verified map[string]map[string]*lib.Signature // blockHash -> signer -> verified signature
	parked   map[string][]*lib.Signature          // blockHash -> votes waiting on their candidate
}

// newVoteSet() creates an empty tally
func newVoteSet() *voteSet {
	return &voteSet{
		verified: make(map[string]map[string]*lib.Signature),
		parked:   make(map[string][]*lib.Signature),
	}
}

// addVote() records a vote for the candidate hash. When the candidate block is
// known the signature is verified immediately; otherwise the vote is parked
// until adoptCandidate() supplies the payload. Returns the verified tally for
// the hash.
func (v *voteSet) addVote(blockHash []byte, sig *lib.Signature, candidateSignBytes []byte) int {
	hash := lib.BytesToString(blockHash)
	if candidateSignBytes == nil {
		v.parked[hash] = append(v.parked[hash], sig)
		return len(v.verified[hash])
	}
	v.verify(hash, sig, candidateSignBytes)
	return len(v.verified[hash])
}

// adoptCandidate() verifies every parked vote against the now-known candidate
// payload and returns the verified tally for the hash
func (v *voteSet) adoptCandidate(blockHash, candidateSignBytes []byte) int {
	hash := lib.BytesToString(blockHash)
	for _, sig := range v.parked[hash] {
		v.verify(hash, sig, candidateSignBytes)
	}
	delete(v.parked, hash)
	return len(v.verified[hash])
}

// signatures() returns the verified commit certificate for the candidate hash
func (v *voteSet) signatures(blockHash []byte) (sigs []*lib.Signature) {
	for _, sig := range v.verified[lib.BytesToString(blockHash)] {
		sigs = append(sigs, sig)
	}
	return
}

// verify() validates a single vote signature and files it under its signer;
// forged or duplicate votes fall away here and never inflate the tally
func (v *voteSet) verify(hash string, sig *lib.Signature, candidateSignBytes []byte) {
	publicKey, err := crypto.BytesToED25519Public(sig.PublicKey)
	if err != nil {
		return
	}
	if !publicKey.VerifyBytes(candidateSignBytes, sig.Signature) {
		return
	}
	if v.verified[hash] == nil {
		v.verified[hash] = make(map[string]*lib.Signature)
	}
	v.verified[hash][lib.BytesToString(sig.PublicKey)] = sig
}

// viewChangeSet tallies view-change votes for a single height, keyed by the
// view each vote wants to rotate to
type viewChangeSet struct {
	votes map[uint32]map[string]struct{} // targetView -> distinct signers
}

// newViewChangeSet() creates an empty tally
func newViewChangeSet() *viewChangeSet {
	return &viewChangeSet{votes: make(map[uint32]map[string]struct{})}
}

// addVote() records a verified view-change vote and returns the tally for the
// target view
func (v *viewChangeSet) addVote(targetView uint32, signer []byte) int {
	if v.votes[targetView] == nil {
		v.votes[targetView] = make(map[string]struct{})
	}
	v.votes[targetView][lib.BytesToString(signer)] = struct{}{}
	return len(v.votes[targetView])
}
