// Package catalog contains the skill tree catalog: the shared, read-mostly
// definition of trees and their ordered nodes. Per-user state lives in the
// enrollment package; the catalog itself is the same for every user.
package catalog

import (
	"strings"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Difficulty classifies how demanding a skill tree is.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// IsValid checks that the difficulty is one of the known values.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// NodeType classifies the kind of work a node represents.
type NodeType string

const (
	NodeTypeLesson    NodeType = "lesson"
	NodeTypeProject   NodeType = "project"
	NodeTypeQuiz      NodeType = "quiz"
	NodeTypeChallenge NodeType = "challenge"
)

// IsValid checks that the node type is one of the known values.
func (n NodeType) IsValid() bool {
	switch n {
	case NodeTypeLesson, NodeTypeProject, NodeTypeQuiz, NodeTypeChallenge:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// SkillTree is a named, ordered collection of skill nodes.
type SkillTree struct {
	// ID - catalog identifier.
	ID shared.TreeID

	// Title - display title.
	Title string

	// Description - what the tree teaches.
	Description string

	// Category - grouping label, e.g. "backend", "frontend".
	Category string

	// ThumbnailURL - optional catalog artwork.
	ThumbnailURL string

	// TotalNodes - number of nodes in the tree. Kept denormalized so
	// progress math does not need a node count query.
	TotalNodes int

	// EstimatedHours - rough total effort.
	EstimatedHours int

	// Difficulty - tree difficulty band.
	Difficulty Difficulty

	// CreatedAt - record creation time.
	CreatedAt time.Time

	// UpdatedAt - last update time.
	UpdatedAt time.Time
}

// DefaultNodeXPReward is granted for nodes without an explicit reward.
const DefaultNodeXPReward = 10

// SkillNode is a single unit of work inside a skill tree.
type SkillNode struct {
	// ID - catalog identifier.
	ID shared.NodeID

	// TreeID - owning tree.
	TreeID shared.TreeID

	// Title - display title.
	Title string

	// Description - what to do.
	Description string

	// OrderIndex - position in the tree's linear chain, starting at 0.
	OrderIndex int

	// ParentNodeID - reserved for future DAG-shaped prerequisites.
	// Unlock resolution today only looks at OrderIndex.
	ParentNodeID *shared.NodeID

	// XPReward - XP granted on completion.
	XPReward int

	// EstimatedMinutes - rough effort for this node.
	EstimatedMinutes int

	// Type - kind of work.
	Type NodeType

	// AdminLocked - administrative lock. A locked node stays locked for
	// every user regardless of their progress.
	AdminLocked bool

	// CreatedAt - record creation time.
	CreatedAt time.Time
}

// EffectiveXPReward returns the node's reward, falling back to the default
// when no positive reward is configured.
func (n *SkillNode) EffectiveXPReward() int {
	if n.XPReward <= 0 {
		return DefaultNodeXPReward
	}
	return n.XPReward
}

// BelongsTo checks that the node is part of the given tree.
func (n *SkillNode) BelongsTo(treeID shared.TreeID) bool {
	return n.TreeID == treeID
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORIES
// ══════════════════════════════════════════════════════════════════════════════

// NewTreeParams contains parameters for creating a skill tree.
type NewTreeParams struct {
	ID             shared.TreeID
	Title          string
	Description    string
	Category       string
	ThumbnailURL   string
	TotalNodes     int
	EstimatedHours int
	Difficulty     Difficulty
}

// NewTree creates a skill tree with validation.
func NewTree(params NewTreeParams) (*SkillTree, error) {
	if !params.ID.IsValid() {
		return nil, shared.ErrInvalidTreeID
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, shared.NewDomainError("catalog", "NewTree", shared.ErrEmptyValue, "tree title is required")
	}

	if params.TotalNodes < 0 {
		return nil, shared.NewDomainError("catalog", "NewTree", shared.ErrNegativeValue, "total nodes cannot be negative")
	}

	if !params.Difficulty.IsValid() {
		return nil, shared.NewDomainError("catalog", "NewTree", shared.ErrInvalidInput, "invalid difficulty")
	}

	now := time.Now().UTC()

	return &SkillTree{
		ID:             params.ID,
		Title:          title,
		Description:    params.Description,
		Category:       params.Category,
		ThumbnailURL:   params.ThumbnailURL,
		TotalNodes:     params.TotalNodes,
		EstimatedHours: params.EstimatedHours,
		Difficulty:     params.Difficulty,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NewNodeParams contains parameters for creating a skill node.
type NewNodeParams struct {
	ID               shared.NodeID
	TreeID           shared.TreeID
	Title            string
	Description      string
	OrderIndex       int
	ParentNodeID     *shared.NodeID
	XPReward         int
	EstimatedMinutes int
	Type             NodeType
	AdminLocked      bool
}

// NewNode creates a skill node with validation.
func NewNode(params NewNodeParams) (*SkillNode, error) {
	if !params.ID.IsValid() {
		return nil, shared.ErrInvalidNodeID
	}

	if !params.TreeID.IsValid() {
		return nil, shared.ErrInvalidTreeID
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, shared.NewDomainError("catalog", "NewNode", shared.ErrEmptyValue, "node title is required")
	}

	if params.OrderIndex < 0 {
		return nil, shared.NewDomainError("catalog", "NewNode", shared.ErrNegativeValue, "order index cannot be negative")
	}

	if !params.Type.IsValid() {
		return nil, shared.NewDomainError("catalog", "NewNode", shared.ErrInvalidInput, "invalid node type")
	}

	xpReward := params.XPReward
	if xpReward <= 0 {
		xpReward = DefaultNodeXPReward
	}

	return &SkillNode{
		ID:               params.ID,
		TreeID:           params.TreeID,
		Title:            title,
		Description:      params.Description,
		OrderIndex:       params.OrderIndex,
		ParentNodeID:     params.ParentNodeID,
		XPReward:         xpReward,
		EstimatedMinutes: params.EstimatedMinutes,
		Type:             params.Type,
		AdminLocked:      params.AdminLocked,
		CreatedAt:        time.Now().UTC(),
	}, nil
}
