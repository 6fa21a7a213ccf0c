// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID identifies a user. Identity itself is managed externally; the
// engine only keys progression state by this opaque identifier.
type UserID string

// User ID format: an external account identifier (e.g. "u-1042", "alice").
var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// IsValid checks if the user ID is valid.
func (u UserID) IsValid() bool {
	return userIDRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if !uid.IsValid() {
		return "", ErrInvalidUserID
	}
	return uid, nil
}

// TreeID identifies a skill tree in the catalog.
type TreeID int64

// IsValid checks if the tree ID is valid (positive number).
func (t TreeID) IsValid() bool {
	return t > 0
}

// Int64 returns the underlying int64 value.
func (t TreeID) Int64() int64 {
	return int64(t)
}

// String returns the string representation.
func (t TreeID) String() string {
	return fmt.Sprintf("%d", t)
}

// NewTreeID creates a new TreeID with validation.
func NewTreeID(id int64) (TreeID, error) {
	if id <= 0 {
		return 0, ErrInvalidTreeID
	}
	return TreeID(id), nil
}

// NodeID identifies a skill node within a tree.
type NodeID int64

// IsValid checks if the node ID is valid (positive number).
func (n NodeID) IsValid() bool {
	return n > 0
}

// Int64 returns the underlying int64 value.
func (n NodeID) Int64() int64 {
	return int64(n)
}

// String returns the string representation.
func (n NodeID) String() string {
	return fmt.Sprintf("%d", n)
}

// NewNodeID creates a new NodeID with validation.
func NewNodeID(id int64) (NodeID, error) {
	if id <= 0 {
		return 0, ErrInvalidNodeID
	}
	return NodeID(id), nil
}

// AchievementID identifies an achievement in the catalog.
type AchievementID int64

// IsValid checks if the achievement ID is valid (positive number).
func (a AchievementID) IsValid() bool {
	return a > 0
}

// Int64 returns the underlying int64 value.
func (a AchievementID) Int64() int64 {
	return int64(a)
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a user.
type XP int

const (
	// XP boundaries
	MinXP XP = 0
	MaxXP XP = 10000000 // 10 million XP cap
)

// IsValid checks if the XP value is within valid range.
func (x XP) IsValid() bool {
	return x >= MinXP && x <= MaxXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds XP and returns the result, capped at MaxXP.
func (x XP) Add(amount int) XP {
	result := XP(int(x) + amount)
	if result > MaxXP {
		return MaxXP
	}
	if result < MinXP {
		return MinXP
	}
	return result
}

// NewXP creates a new XP value with validation.
func NewXP(amount int) (XP, error) {
	if amount < int(MinXP) {
		return 0, NewDomainError("shared", "NewXP", ErrNegativeValue, "XP cannot be negative")
	}
	if amount > int(MaxXP) {
		return MaxXP, nil // Cap at max
	}
	return XP(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a user's level.
type Level int

const (
	MinLevel Level = 1
	MaxLevel Level = 999
)

// IsValid checks if the level is within valid range.
func (l Level) IsValid() bool {
	return l >= MinLevel && l <= MaxLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// XPToNext returns the XP required to advance from this level to the next.
// The progression is linear: level 1 needs 100, each level after adds 50.
func (l Level) XPToNext() int {
	if l < MinLevel {
		l = MinLevel
	}
	return 100 + (int(l)-1)*50
}

// Next returns the following level, capped at MaxLevel.
func (l Level) Next() Level {
	if l >= MaxLevel {
		return MaxLevel
	}
	return l + 1
}

// Title returns a human-readable title for the level.
func (l Level) Title() string {
	switch {
	case l >= 50:
		return "Master Builder"
	case l >= 40:
		return "Expert Coder"
	case l >= 30:
		return "Senior Developer"
	case l >= 20:
		return "Skilled Craftsman"
	case l >= 10:
		return "Aspiring Developer"
	case l >= 5:
		return "Eager Learner"
	default:
		return "Novice Learner"
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Percentage Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Percentage represents a progress percentage (0.00 - 100.00),
// rounded to two decimal places.
type Percentage float64

// Float64 returns the underlying float64 value.
func (p Percentage) Float64() float64 {
	return float64(p)
}

// IsComplete checks if the percentage represents full completion.
func (p Percentage) IsComplete() bool {
	return p >= 100
}

// NewPercentage computes the percentage of done over total,
// rounded to two decimals. A zero total yields zero.
func NewPercentage(done, total int) Percentage {
	if total <= 0 {
		return 0
	}
	raw := float64(done) / float64(total) * 100
	return Percentage(math.Round(raw*100) / 100)
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
