package lib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testValidators(n int) (validators [][]byte) {
	for i := 0; i < n; i++ {
		// identities only need to be distinct byte strings for ordering logic
		validators = append(validators, []byte{byte(i), 0xAA, 0xBB})
	}
	return
}

func TestNewTopology(t *testing.T) {
	tests := []struct {
		name       string
		detail     string
		validators [][]byte
		error      string
	}{
		{
			name:       "empty set",
			detail:     "a ledger with no validators cannot run",
			validators: nil,
			error:      "validator set is empty",
		},
		{
			name:       "duplicate identity",
			detail:     "the ordering must be a set, not a multiset",
			validators: [][]byte{{1}, {2}, {1}},
			error:      "appears more than once",
		},
		{
			name:       "single validator",
			detail:     "a solo chain is degenerate but valid, quorum of one",
			validators: testValidators(1),
		},
		{
			name:       "four validators",
			detail:     "the standard minimal fault tolerant set",
			validators: testValidators(4),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			topology, err := NewTopology(test.validators, 1)
			if test.error != "" {
				require.ErrorContains(t, err, test.error)
				return
			}
			require.NoError(t, err)
			require.Equal(t, len(test.validators), topology.NumValidators())
		})
	}
}

func TestProposerRotation(t *testing.T) {
	validators := testValidators(4)
	topology, err := NewTopology(validators, 1)
	require.NoError(t, err)
	tests := []struct {
		name     string
		detail   string
		height   uint64
		view     uint32
		expected int
	}{
		{
			name:     "first height first view",
			detail:   "(1+0) mod 4",
			height:   1,
			view:     0,
			expected: 1,
		},
		{
			name:     "view advances the proposer",
			detail:   "(1+1) mod 4",
			height:   1,
			view:     1,
			expected: 2,
		},
		{
			name:     "rotation wraps the set",
			detail:   "(1+3) mod 4",
			height:   1,
			view:     3,
			expected: 0,
		},
		{
			name:     "height advances the proposer",
			detail:   "(2+0) mod 4",
			height:   2,
			view:     0,
			expected: 2,
		},
		{
			name:     "large inputs stay in range",
			detail:   "(1000000+7) mod 4",
			height:   1000000,
			view:     7,
			expected: 3,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, validators[test.expected], topology.ProposerFor(test.height, test.view))
		})
	}
}

func TestQuorumAndFaultTolerance(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		quorum    int
		tolerated int
	}{
		{name: "one validator", n: 1, quorum: 1, tolerated: 0},
		{name: "three validators", n: 3, quorum: 3, tolerated: 0},
		{name: "four validators", n: 4, quorum: 3, tolerated: 1},
		{name: "seven validators", n: 7, quorum: 5, tolerated: 2},
		{name: "ten validators", n: 10, quorum: 7, tolerated: 3},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			topology, err := NewTopology(testValidators(test.n), 1)
			require.NoError(t, err)
			require.Equal(t, test.quorum, topology.QuorumSize())
			require.Equal(t, test.tolerated, topology.FaultTolerance())
			// a quorum always outnumbers two disjoint faulty minorities
			require.Greater(t, 2*test.quorum, test.n+test.tolerated)
		})
	}
}

func TestAdvanceViewIsImmutable(t *testing.T) {
	topology, err := NewTopology(testValidators(4), 5)
	require.NoError(t, err)
	next := topology.AdvanceView()
	// the original is untouched, rounds in flight keep their arithmetic
	require.EqualValues(t, 0, topology.View())
	require.EqualValues(t, 1, next.View())
	require.Equal(t, topology.Height(), next.Height())
	require.Equal(t, topology.Validators(), next.Validators())
}

func TestAdvanceHeight(t *testing.T) {
	validators := testValidators(4)
	topology, err := NewTopology(validators, 3)
	require.NoError(t, err)
	topology = topology.AdvanceView() // consume a rotation first
	t.Run("no change keeps the set and resets the view", func(t *testing.T) {
		next, e := topology.AdvanceHeight(nil)
		require.NoError(t, e)
		require.EqualValues(t, 4, next.Height())
		require.EqualValues(t, 0, next.View())
		require.Equal(t, validators, next.Validators())
	})
	t.Run("a change replaces the set at the boundary", func(t *testing.T) {
		replacement := testValidators(7)
		next, e := topology.AdvanceHeight(&ValidatorChange{Validators: replacement})
		require.NoError(t, e)
		require.EqualValues(t, 4, next.Height())
		require.Equal(t, replacement, next.Validators())
		// the pre-change topology still answers for its own height
		require.Equal(t, 4, topology.NumValidators())
	})
	t.Run("an invalid change is refused", func(t *testing.T) {
		_, e := topology.AdvanceHeight(&ValidatorChange{Validators: [][]byte{{1}, {1}}})
		require.ErrorContains(t, e, "appears more than once")
	})
}

func TestMembership(t *testing.T) {
	validators := testValidators(4)
	topology, err := NewTopology(validators, 1)
	require.NoError(t, err)
	require.True(t, topology.IsValidator(validators[2]))
	require.False(t, topology.IsValidator([]byte("stranger")))
	require.True(t, topology.IsProposer(validators[1]))
	require.False(t, topology.IsProposer(validators[0]))
}
