package query

import (
	"context"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST TREES QUERY
// Returns the skill tree catalog, optionally narrowed to a category or to
// the requesting user's enrollments, with per-tree progress overlaid.
// ══════════════════════════════════════════════════════════════════════════════

// ListTreesQuery contains parameters for the catalog listing.
type ListTreesQuery struct {
	// UserID - optional; adds the enrollment overlay when set.
	UserID string

	// Category - optional category filter.
	Category string

	// EnrolledOnly - only trees the user is enrolled in. Requires UserID.
	EnrolledOnly bool

	// Page - 1-based page number.
	Page int

	// PageSize - items per page.
	PageSize int
}

// Validate checks the query parameters.
func (q *ListTreesQuery) Validate() error {
	if q.EnrolledOnly && q.UserID == "" {
		return shared.ErrInvalidUserID
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = shared.DefaultPageSize
	}
	if q.PageSize > shared.MaxPageSize {
		q.PageSize = shared.MaxPageSize
	}
	return nil
}

// TreeSummaryDTO is a catalog entry with the user's enrollment state.
type TreeSummaryDTO struct {
	TreeDTO

	// Enrolled - true if the user is enrolled in this tree.
	Enrolled bool `json:"enrolled"`

	// EnrollmentStatus - active, completed, or paused; empty if not enrolled.
	EnrollmentStatus string `json:"enrollment_status,omitempty"`

	// NodesCompleted - completed nodes within the tree.
	NodesCompleted int `json:"nodes_completed,omitempty"`

	// ProgressPercentage - completion ratio, rounded to two decimals.
	ProgressPercentage float64 `json:"progress_percentage,omitempty"`
}

// ListTreesResult contains the query result.
type ListTreesResult struct {
	// Trees - catalog entries for the requested page.
	Trees []TreeSummaryDTO `json:"trees"`

	// TotalCount - total trees matching the filter (before paging).
	TotalCount int `json:"total_count"`

	// Page - the returned page.
	Page int `json:"page"`

	// PageSize - items per page.
	PageSize int `json:"page_size"`

	// GeneratedAt - when the listing was produced.
	GeneratedAt time.Time `json:"generated_at"`
}

// ListTreesHandler handles catalog listings.
type ListTreesHandler struct {
	treeRepo       catalog.TreeRepository
	enrollmentRepo enrollment.Repository
}

// NewListTreesHandler creates a new handler.
func NewListTreesHandler(treeRepo catalog.TreeRepository, enrollmentRepo enrollment.Repository) *ListTreesHandler {
	return &ListTreesHandler{
		treeRepo:       treeRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// Handle executes the query.
func (h *ListTreesHandler) Handle(ctx context.Context, query ListTreesQuery) (*ListTreesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "ListTrees", shared.ErrValidation, err.Error(), err)
	}

	page := shared.Pagination{Page: query.Page, PageSize: query.PageSize}

	var trees []*catalog.SkillTree
	var err error
	if query.Category != "" {
		trees, err = h.treeRepo.GetByCategory(ctx, query.Category, page)
	} else {
		trees, err = h.treeRepo.GetAll(ctx, page)
	}
	if err != nil {
		return nil, err
	}

	totalCount, err := h.treeRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	// One pass over the user's enrollments covers every tree on the page.
	enrollments := map[shared.TreeID]*enrollment.Enrollment{}
	if query.UserID != "" {
		userEnrollments, err := h.enrollmentRepo.GetByUser(ctx, shared.UserID(query.UserID))
		if err != nil {
			return nil, err
		}
		for _, enr := range userEnrollments {
			enrollments[enr.TreeID] = enr
		}
	}

	result := &ListTreesResult{
		Trees:       make([]TreeSummaryDTO, 0, len(trees)),
		TotalCount:  totalCount,
		Page:        query.Page,
		PageSize:    query.PageSize,
		GeneratedAt: time.Now().UTC(),
	}

	for _, tree := range trees {
		enr, enrolled := enrollments[tree.ID]
		if query.EnrolledOnly && !enrolled {
			continue
		}

		summary := TreeSummaryDTO{
			TreeDTO:  toTreeDTO(tree),
			Enrolled: enrolled,
		}
		if enrolled {
			summary.EnrollmentStatus = string(enr.Status)
			summary.NodesCompleted = enr.NodesCompleted
			summary.ProgressPercentage = float64(enr.ProgressPercentage)
		}

		result.Trees = append(result.Trees, summary)
	}

	return result, nil
}
