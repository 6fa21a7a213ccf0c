package enrollment

import (
	"sort"

	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK RESOLVER
// Pure computation over a tree's ordered node chain and a user's completion
// set. No unlock state is stored per user; it is derived on demand.
// ══════════════════════════════════════════════════════════════════════════════

// CompletionSet is the set of node IDs a user has completed.
type CompletionSet map[shared.NodeID]bool

// NewCompletionSet builds a CompletionSet from progress records,
// counting only completed ones.
func NewCompletionSet(records []*NodeProgress) CompletionSet {
	set := make(CompletionSet, len(records))
	for _, r := range records {
		if r.Completed {
			set[r.NodeID] = true
		}
	}
	return set
}

// Contains checks membership.
func (c CompletionSet) Contains(id shared.NodeID) bool {
	return c[id]
}

// With returns a copy of the set with the given node added.
func (c CompletionSet) With(id shared.NodeID) CompletionSet {
	next := make(CompletionSet, len(c)+1)
	for k := range c {
		next[k] = true
	}
	next[id] = true
	return next
}

// IsNodeLocked resolves whether a node is locked for a user.
//
// Rules, in order of precedence:
//  1. The first node of the chain (order index 0) is unlocked, always —
//     the entry point stays reachable even under an administrative lock.
//  2. An administratively locked node is locked for everyone.
//  3. Otherwise the node is locked exactly when its predecessor (the node
//     at order index - 1) exists and is not completed. A gap in the order
//     indexes means no predecessor, which leaves the node unlocked.
func IsNodeLocked(node *catalog.SkillNode, nodes []*catalog.SkillNode, completed CompletionSet) bool {
	if node.OrderIndex == 0 {
		return false
	}
	if node.AdminLocked {
		return true
	}

	for _, candidate := range nodes {
		if candidate.OrderIndex == node.OrderIndex-1 {
			return !completed.Contains(candidate.ID)
		}
	}

	// No predecessor at orderIndex-1: treat as unlocked.
	return false
}

// AvailableNodes returns the IDs of nodes the user can work on right now:
// unlocked and not yet completed, ordered by order index.
func AvailableNodes(nodes []*catalog.SkillNode, completed CompletionSet) []shared.NodeID {
	var available []*catalog.SkillNode
	for _, node := range nodes {
		if completed.Contains(node.ID) {
			continue
		}
		if IsNodeLocked(node, nodes, completed) {
			continue
		}
		available = append(available, node)
	}

	sort.Slice(available, func(i, j int) bool {
		return available[i].OrderIndex < available[j].OrderIndex
	})

	ids := make([]shared.NodeID, 0, len(available))
	for _, node := range available {
		ids = append(ids, node.ID)
	}
	return ids
}

// NewlyUnlocked returns the IDs of nodes that became available because the
// given node was completed: available with the completion, not available
// without it.
func NewlyUnlocked(nodes []*catalog.SkillNode, completedBefore CompletionSet, justCompleted shared.NodeID) []shared.NodeID {
	before := make(map[shared.NodeID]bool)
	for _, id := range AvailableNodes(nodes, completedBefore) {
		before[id] = true
	}

	after := AvailableNodes(nodes, completedBefore.With(justCompleted))

	unlocked := make([]shared.NodeID, 0, len(after))
	for _, id := range after {
		if !before[id] {
			unlocked = append(unlocked, id)
		}
	}
	return unlocked
}
