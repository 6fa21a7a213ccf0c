package query

import (
	"context"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TREE DETAIL QUERY
// Returns a skill tree with its nodes. When a user is given, each node is
// overlaid with that user's state: completed, locked, or available.
// The tree itself is user-independent and cache-aside; the overlay is
// computed fresh from the user's progress records.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultTreeCacheTTL bounds how stale a cached catalog tree can get.
const DefaultTreeCacheTTL = 15 * time.Minute

// GetTreeDetailQuery contains parameters for the tree lookup.
type GetTreeDetailQuery struct {
	// TreeID - the tree to fetch.
	TreeID int64

	// UserID - optional; adds the per-user overlay when set.
	UserID string
}

// Validate checks the query parameters.
func (q GetTreeDetailQuery) Validate() error {
	if q.TreeID <= 0 {
		return shared.ErrInvalidTreeID
	}
	return nil
}

// TreeDTO is the read model for a skill tree.
type TreeDTO struct {
	// ID - tree identifier.
	ID int64 `json:"id"`

	// Title - display title.
	Title string `json:"title"`

	// Description - what the tree teaches.
	Description string `json:"description,omitempty"`

	// Category - catalog grouping.
	Category string `json:"category,omitempty"`

	// ThumbnailURL - cover image.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`

	// TotalNodes - number of nodes in the tree.
	TotalNodes int `json:"total_nodes"`

	// EstimatedHours - rough effort estimate.
	EstimatedHours int `json:"estimated_hours,omitempty"`

	// Difficulty - beginner, intermediate, or advanced.
	Difficulty string `json:"difficulty"`
}

// NodeDTO is the read model for a skill node with the user overlay.
type NodeDTO struct {
	// ID - node identifier.
	ID int64 `json:"id"`

	// Title - display title.
	Title string `json:"title"`

	// Description - what the node covers.
	Description string `json:"description,omitempty"`

	// OrderIndex - position within the tree's chain.
	OrderIndex int `json:"order_index"`

	// XPReward - XP granted on completion.
	XPReward int `json:"xp_reward"`

	// EstimatedMinutes - rough effort estimate.
	EstimatedMinutes int `json:"estimated_minutes,omitempty"`

	// Type - lesson, project, quiz, or challenge.
	Type string `json:"type"`

	// Completed - true if the user finished this node.
	Completed bool `json:"completed"`

	// Locked - true if the node is not yet available to the user.
	Locked bool `json:"locked"`

	// Started - true if the user has an open progress record.
	Started bool `json:"started"`

	// CompletedAt - when the user finished the node.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TreeEnrollmentDTO summarizes the user's enrollment in the tree.
type TreeEnrollmentDTO struct {
	// Status - active, completed, or paused.
	Status string `json:"status"`

	// NodesCompleted - completed node count.
	NodesCompleted int `json:"nodes_completed"`

	// ProgressPercentage - completion ratio, rounded to two decimals.
	ProgressPercentage float64 `json:"progress_percentage"`

	// XPEarned - XP earned within this tree.
	XPEarned int `json:"xp_earned"`

	// EnrolledAt - when the user enrolled.
	EnrolledAt time.Time `json:"enrolled_at"`
}

// GetTreeDetailResult contains the query result.
type GetTreeDetailResult struct {
	// Tree - the tree read model.
	Tree TreeDTO `json:"tree"`

	// Nodes - ordered nodes with the user overlay.
	Nodes []NodeDTO `json:"nodes"`

	// Enrollment - present when the requesting user is enrolled.
	Enrollment *TreeEnrollmentDTO `json:"enrollment,omitempty"`
}

// GetTreeDetailHandler handles tree detail lookups.
type GetTreeDetailHandler struct {
	treeRepo       catalog.TreeRepository
	nodeRepo       catalog.NodeRepository
	cache          catalog.Cache
	enrollmentRepo enrollment.Repository
	progressRepo   enrollment.ProgressRepository
	cacheTTL       time.Duration
}

// NewGetTreeDetailHandler creates a new handler. Cache may be nil.
func NewGetTreeDetailHandler(
	treeRepo catalog.TreeRepository,
	nodeRepo catalog.NodeRepository,
	cache catalog.Cache,
	enrollmentRepo enrollment.Repository,
	progressRepo enrollment.ProgressRepository,
	cacheTTL time.Duration,
) *GetTreeDetailHandler {
	if cacheTTL <= 0 {
		cacheTTL = DefaultTreeCacheTTL
	}
	return &GetTreeDetailHandler{
		treeRepo:       treeRepo,
		nodeRepo:       nodeRepo,
		cache:          cache,
		enrollmentRepo: enrollmentRepo,
		progressRepo:   progressRepo,
		cacheTTL:       cacheTTL,
	}
}

// Handle executes the query.
func (h *GetTreeDetailHandler) Handle(ctx context.Context, query GetTreeDetailQuery) (*GetTreeDetailResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetTreeDetail", shared.ErrValidation, err.Error(), err)
	}

	treeID := shared.TreeID(query.TreeID)

	tw, err := h.loadTree(ctx, treeID)
	if err != nil {
		return nil, err
	}

	result := &GetTreeDetailResult{
		Tree:  toTreeDTO(tw.Tree),
		Nodes: make([]NodeDTO, 0, len(tw.Nodes)),
	}

	// Without a user everything reads as unstarted; only admin locks and
	// the chain's own ordering apply.
	completed := enrollment.CompletionSet{}
	var records []*enrollment.NodeProgress

	if query.UserID != "" {
		userID := shared.UserID(query.UserID)

		records, err = h.progressRepo.GetByUserAndTree(ctx, userID, treeID)
		if err != nil {
			return nil, err
		}
		completed = enrollment.NewCompletionSet(records)

		enr, err := h.enrollmentRepo.GetByUserAndTree(ctx, userID, treeID)
		if err == nil {
			result.Enrollment = &TreeEnrollmentDTO{
				Status:             string(enr.Status),
				NodesCompleted:     enr.NodesCompleted,
				ProgressPercentage: float64(enr.ProgressPercentage),
				XPEarned:           enr.XPEarned,
				EnrolledAt:         enr.EnrolledAt,
			}
		} else if !shared.IsNotFound(err) {
			return nil, err
		}
	}

	byNode := make(map[shared.NodeID]*enrollment.NodeProgress, len(records))
	for _, rec := range records {
		byNode[rec.NodeID] = rec
	}

	for _, node := range tw.Nodes {
		dto := NodeDTO{
			ID:               node.ID.Int64(),
			Title:            node.Title,
			Description:      node.Description,
			OrderIndex:       node.OrderIndex,
			XPReward:         node.EffectiveXPReward(),
			EstimatedMinutes: node.EstimatedMinutes,
			Type:             string(node.Type),
			Completed:        completed.Contains(node.ID),
			Locked:           enrollment.IsNodeLocked(node, tw.Nodes, completed),
		}

		if rec, ok := byNode[node.ID]; ok {
			dto.Started = true
			dto.CompletedAt = rec.CompletedAt
		}

		result.Nodes = append(result.Nodes, dto)
	}

	return result, nil
}

// loadTree fetches the tree with nodes, cache-aside.
func (h *GetTreeDetailHandler) loadTree(ctx context.Context, treeID shared.TreeID) (*catalog.TreeWithNodes, error) {
	if h.cache != nil {
		if cached, err := h.cache.GetTree(ctx, treeID); err == nil {
			return cached, nil
		}
	}

	tree, err := h.treeRepo.GetByID(ctx, treeID)
	if err != nil {
		return nil, err
	}

	nodes, err := h.nodeRepo.GetByTreeID(ctx, treeID)
	if err != nil {
		return nil, err
	}

	tw := &catalog.TreeWithNodes{Tree: tree, Nodes: nodes}
	if h.cache != nil {
		_ = h.cache.SetTree(ctx, tw, h.cacheTTL)
	}
	return tw, nil
}

// toTreeDTO maps the catalog entity to its read model.
func toTreeDTO(t *catalog.SkillTree) TreeDTO {
	return TreeDTO{
		ID:             t.ID.Int64(),
		Title:          t.Title,
		Description:    t.Description,
		Category:       t.Category,
		ThumbnailURL:   t.ThumbnailURL,
		TotalNodes:     t.TotalNodes,
		EstimatedHours: t.EstimatedHours,
		Difficulty:     string(t.Difficulty),
	}
}
