package postgres

import (
	"context"
	"fmt"

	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG REPOSITORY IMPLEMENTATION
// Trees and nodes are authored through admin tooling and read-mostly at
// runtime, so both repositories only expose reads.
// ══════════════════════════════════════════════════════════════════════════════

// TreeRepository implements catalog.TreeRepository for PostgreSQL.
type TreeRepository struct {
	db Querier
}

// NewTreeRepository creates a new TreeRepository.
func NewTreeRepository(conn *Connection) *TreeRepository {
	return &TreeRepository{db: conn}
}

const treeColumns = `
	id, title, description, category, thumbnail_url, total_nodes,
	estimated_hours, difficulty, created_at, updated_at
`

// GetByID returns a tree by ID.
func (r *TreeRepository) GetByID(ctx context.Context, id shared.TreeID) (*catalog.SkillTree, error) {
	query := `SELECT ` + treeColumns + ` FROM skill_trees WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id.Int64())
	return scanTree(row)
}

// GetAll returns the whole catalog ordered by title.
func (r *TreeRepository) GetAll(ctx context.Context, page shared.Pagination) ([]*catalog.SkillTree, error) {
	query := `SELECT ` + treeColumns + ` FROM skill_trees ORDER BY title LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query trees: %w", err)
	}
	defer rows.Close()

	return scanTrees(rows)
}

// GetByCategory returns trees in the given category.
func (r *TreeRepository) GetByCategory(ctx context.Context, category string, page shared.Pagination) ([]*catalog.SkillTree, error) {
	query := `SELECT ` + treeColumns + ` FROM skill_trees WHERE category = $1 ORDER BY title LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, category, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query trees by category: %w", err)
	}
	defer rows.Close()

	return scanTrees(rows)
}

// Count returns the number of trees in the catalog.
func (r *TreeRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM skill_trees`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trees: %w", err)
	}
	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NODE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NodeRepository implements catalog.NodeRepository for PostgreSQL.
type NodeRepository struct {
	db Querier
}

// NewNodeRepository creates a new NodeRepository.
func NewNodeRepository(conn *Connection) *NodeRepository {
	return &NodeRepository{db: conn}
}

const nodeColumns = `
	id, tree_id, title, description, order_index, parent_node_id,
	xp_reward, estimated_minutes, node_type, admin_locked, created_at
`

// GetByID returns a node by ID.
func (r *NodeRepository) GetByID(ctx context.Context, id shared.NodeID) (*catalog.SkillNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM skill_nodes WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id.Int64())
	return scanNode(row)
}

// GetByTreeID returns every node of a tree ordered by order index.
func (r *NodeRepository) GetByTreeID(ctx context.Context, treeID shared.TreeID) ([]*catalog.SkillNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM skill_nodes WHERE tree_id = $1 ORDER BY order_index`

	rows, err := r.db.Query(ctx, query, treeID.Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]*catalog.SkillNode, 0)
	for rows.Next() {
		node, err := scanNodeRow(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}

// CountByTreeID returns the number of nodes in a tree.
func (r *NodeRepository) CountByTreeID(ctx context.Context, treeID shared.TreeID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM skill_nodes WHERE tree_id = $1`, treeID.Int64()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row Mapping
// ─────────────────────────────────────────────────────────────────────────────

func scanTree(row pgx.Row) (*catalog.SkillTree, error) {
	var t catalog.SkillTree
	var id int64
	var difficulty string

	err := row.Scan(
		&id,
		&t.Title,
		&t.Description,
		&t.Category,
		&t.ThumbnailURL,
		&t.TotalNodes,
		&t.EstimatedHours,
		&difficulty,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTreeNotFound
		}
		return nil, fmt.Errorf("failed to scan tree: %w", err)
	}

	t.ID = shared.TreeID(id)
	t.Difficulty = catalog.Difficulty(difficulty)
	return &t, nil
}

func scanTrees(rows pgx.Rows) ([]*catalog.SkillTree, error) {
	trees := make([]*catalog.SkillTree, 0)
	for rows.Next() {
		tree, err := scanTree(rows)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return trees, rows.Err()
}

func scanNode(row pgx.Row) (*catalog.SkillNode, error) {
	node, err := scanNodeRow(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNodeNotFound
		}
		return nil, err
	}
	return node, nil
}

func scanNodeRow(row pgx.Row) (*catalog.SkillNode, error) {
	var n catalog.SkillNode
	var id, treeID int64
	var parentID *int64
	var nodeType string

	err := row.Scan(
		&id,
		&treeID,
		&n.Title,
		&n.Description,
		&n.OrderIndex,
		&parentID,
		&n.XPReward,
		&n.EstimatedMinutes,
		&nodeType,
		&n.AdminLocked,
		&n.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan node: %w", err)
	}

	n.ID = shared.NodeID(id)
	n.TreeID = shared.TreeID(treeID)
	n.Type = catalog.NodeType(nodeType)
	if parentID != nil {
		pid := shared.NodeID(*parentID)
		n.ParentNodeID = &pid
	}

	return &n, nil
}
