package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

func testNode(id shared.NodeID, orderIndex int) *catalog.SkillNode {
	return &catalog.SkillNode{ID: id, TreeID: 1, OrderIndex: orderIndex}
}

// chainOf builds a linear chain of n nodes with IDs 1..n at order
// indexes 0..n-1.
func chainOf(n int) []*catalog.SkillNode {
	nodes := make([]*catalog.SkillNode, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, testNode(shared.NodeID(i+1), i))
	}
	return nodes
}

func TestNewCompletionSet_OnlyCompletedRecords(t *testing.T) {
	done, err := NewNodeProgress("u-1", 1, 1)
	require.NoError(t, err)
	require.NoError(t, done.Complete(5, nil))

	started, err := NewNodeProgress("u-1", 2, 1)
	require.NoError(t, err)

	set := NewCompletionSet([]*NodeProgress{done, started})
	assert.True(t, set.Contains(1))
	assert.False(t, set.Contains(2))
}

func TestCompletionSet_WithDoesNotMutate(t *testing.T) {
	set := CompletionSet{1: true}
	next := set.With(2)

	assert.True(t, next.Contains(1))
	assert.True(t, next.Contains(2))
	assert.False(t, set.Contains(2))
}

func TestIsNodeLocked_FirstNodeIsUnlocked(t *testing.T) {
	nodes := chainOf(3)
	assert.False(t, IsNodeLocked(nodes[0], nodes, CompletionSet{}))
}

func TestIsNodeLocked_AdminLockOverridesPrerequisites(t *testing.T) {
	nodes := chainOf(3)

	// Admin lock holds even with every prerequisite completed.
	nodes[2].AdminLocked = true
	completed := CompletionSet{1: true, 2: true}
	assert.True(t, IsNodeLocked(nodes[2], nodes, completed))
}

func TestIsNodeLocked_FirstNodeIgnoresAdminLock(t *testing.T) {
	nodes := chainOf(3)
	nodes[0].AdminLocked = true

	assert.False(t, IsNodeLocked(nodes[0], nodes, CompletionSet{}))
}

func TestIsNodeLocked_PredecessorGatesTheNode(t *testing.T) {
	nodes := chainOf(3)

	assert.True(t, IsNodeLocked(nodes[1], nodes, CompletionSet{}))
	assert.False(t, IsNodeLocked(nodes[1], nodes, CompletionSet{1: true}))

	// Third node stays locked until the second is done too.
	assert.True(t, IsNodeLocked(nodes[2], nodes, CompletionSet{1: true}))
	assert.False(t, IsNodeLocked(nodes[2], nodes, CompletionSet{1: true, 2: true}))
}

func TestIsNodeLocked_OrderGapMeansNoPredecessor(t *testing.T) {
	nodes := []*catalog.SkillNode{
		testNode(1, 0),
		testNode(2, 5),
	}

	assert.False(t, IsNodeLocked(nodes[1], nodes, CompletionSet{}))
}

func TestAvailableNodes(t *testing.T) {
	nodes := chainOf(4)

	// Fresh user: only the first node.
	assert.Equal(t, []shared.NodeID{1}, AvailableNodes(nodes, CompletionSet{}))

	// First done: the second opens up, the first drops out.
	assert.Equal(t, []shared.NodeID{2}, AvailableNodes(nodes, CompletionSet{1: true}))

	// Everything done: nothing left.
	all := CompletionSet{1: true, 2: true, 3: true, 4: true}
	assert.Empty(t, AvailableNodes(nodes, all))
}

func TestAvailableNodes_SortedByOrderIndex(t *testing.T) {
	nodes := []*catalog.SkillNode{
		testNode(30, 2),
		testNode(10, 0),
		testNode(20, 1),
	}
	completed := CompletionSet{10: true, 20: true}

	// Node 30 is the only one left; order holds with unordered input.
	assert.Equal(t, []shared.NodeID{30}, AvailableNodes(nodes, completed))

	ids := AvailableNodes(nodes, CompletionSet{})
	assert.Equal(t, []shared.NodeID{10}, ids)
}

func TestNewlyUnlocked(t *testing.T) {
	nodes := chainOf(3)

	unlocked := NewlyUnlocked(nodes, CompletionSet{}, 1)
	assert.Equal(t, []shared.NodeID{2}, unlocked)

	unlocked = NewlyUnlocked(nodes, CompletionSet{1: true}, 2)
	assert.Equal(t, []shared.NodeID{3}, unlocked)

	// Completing the last node opens nothing.
	unlocked = NewlyUnlocked(nodes, CompletionSet{1: true, 2: true}, 3)
	assert.Empty(t, unlocked)
}

func TestNewlyUnlocked_AdminLockedStaysClosed(t *testing.T) {
	nodes := chainOf(3)
	nodes[1].AdminLocked = true

	unlocked := NewlyUnlocked(nodes, CompletionSet{}, 1)
	assert.Empty(t, unlocked)
}
