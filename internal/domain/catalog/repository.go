package catalog

import (
	"context"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// TreeRepository defines read operations over the skill tree catalog.
type TreeRepository interface {
	// GetByID returns a tree by ID.
	// Returns shared.ErrTreeNotFound if no such tree exists.
	GetByID(ctx context.Context, id shared.TreeID) (*SkillTree, error)

	// GetAll returns the whole catalog ordered by title.
	GetAll(ctx context.Context, page shared.Pagination) ([]*SkillTree, error)

	// GetByCategory returns trees in the given category.
	GetByCategory(ctx context.Context, category string, page shared.Pagination) ([]*SkillTree, error)

	// Count returns the number of trees in the catalog.
	Count(ctx context.Context) (int, error)
}

// NodeRepository defines read operations over skill nodes.
type NodeRepository interface {
	// GetByID returns a node by ID.
	// Returns shared.ErrNodeNotFound if no such node exists.
	GetByID(ctx context.Context, id shared.NodeID) (*SkillNode, error)

	// GetByTreeID returns every node of a tree ordered by order index.
	GetByTreeID(ctx context.Context, treeID shared.TreeID) ([]*SkillNode, error)

	// CountByTreeID returns the number of nodes in a tree.
	CountByTreeID(ctx context.Context, treeID shared.TreeID) (int, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// TreeWithNodes bundles a tree with its ordered nodes for caching.
type TreeWithNodes struct {
	Tree  *SkillTree   `json:"tree"`
	Nodes []*SkillNode `json:"nodes"`
}

// Cache defines read-side caching for the catalog.
type Cache interface {
	// GetTree fetches a cached tree with nodes. Returns shared.ErrNotFound on a miss.
	GetTree(ctx context.Context, treeID shared.TreeID) (*TreeWithNodes, error)

	// SetTree stores a tree with nodes in the cache.
	SetTree(ctx context.Context, tw *TreeWithNodes, ttl time.Duration) error

	// InvalidateTree removes a cached tree.
	InvalidateTree(ctx context.Context, treeID shared.TreeID) error
}
