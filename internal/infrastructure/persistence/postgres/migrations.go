// Package postgres implements the PostgreSQL persistence layer for the
// progression engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PROFILES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create user profile ledger
-- Version: 001

CREATE TABLE IF NOT EXISTS user_profiles (
    user_id VARCHAR(64) PRIMARY KEY,
    display_name VARCHAR(100) NOT NULL DEFAULT '',
    level INTEGER NOT NULL DEFAULT 1,
    total_xp INTEGER NOT NULL DEFAULT 0,
    current_xp INTEGER NOT NULL DEFAULT 0,
    xp_to_next_level INTEGER NOT NULL DEFAULT 100,
    title VARCHAR(50) NOT NULL DEFAULT 'Novice Learner',
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_activity_date DATE,
    total_time_spent_minutes INTEGER NOT NULL DEFAULT 0,
    achievements_count INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Constraints for data integrity
    CONSTRAINT valid_level CHECK (level >= 1),
    CONSTRAINT valid_total_xp CHECK (total_xp >= 0),
    CONSTRAINT valid_current_xp CHECK (current_xp >= 0),
    CONSTRAINT valid_streaks CHECK (current_streak >= 0 AND longest_streak >= current_streak)
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_user_profiles_total_xp ON user_profiles(total_xp DESC);
CREATE INDEX IF NOT EXISTS idx_user_profiles_level ON user_profiles(level DESC);
CREATE INDEX IF NOT EXISTS idx_user_profiles_last_activity ON user_profiles(last_activity_date);
`

const migration001Down = `
DROP TABLE IF EXISTS user_profiles;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create skill tree catalog
-- Version: 002

CREATE TABLE IF NOT EXISTS skill_trees (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category VARCHAR(50) NOT NULL DEFAULT '',
    thumbnail_url TEXT NOT NULL DEFAULT '',
    total_nodes INTEGER NOT NULL DEFAULT 0,
    estimated_hours INTEGER NOT NULL DEFAULT 0,
    difficulty VARCHAR(20) NOT NULL DEFAULT 'beginner',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_difficulty CHECK (difficulty IN ('beginner', 'intermediate', 'advanced')),
    CONSTRAINT valid_total_nodes CHECK (total_nodes >= 0)
);

CREATE INDEX IF NOT EXISTS idx_skill_trees_category ON skill_trees(category);
CREATE INDEX IF NOT EXISTS idx_skill_trees_title ON skill_trees(title);

CREATE TABLE IF NOT EXISTS skill_nodes (
    id BIGSERIAL PRIMARY KEY,
    tree_id BIGINT NOT NULL REFERENCES skill_trees(id) ON DELETE CASCADE,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    order_index INTEGER NOT NULL,
    parent_node_id BIGINT REFERENCES skill_nodes(id),
    xp_reward INTEGER NOT NULL DEFAULT 10,
    estimated_minutes INTEGER NOT NULL DEFAULT 0,
    node_type VARCHAR(20) NOT NULL DEFAULT 'lesson',
    admin_locked BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_order_index CHECK (order_index >= 0),
    CONSTRAINT valid_node_type CHECK (node_type IN ('lesson', 'project', 'quiz', 'challenge')),
    UNIQUE(tree_id, order_index)
);

CREATE INDEX IF NOT EXISTS idx_skill_nodes_tree_order ON skill_nodes(tree_id, order_index);
`

const migration002Down = `
DROP TABLE IF EXISTS skill_nodes;
DROP TABLE IF EXISTS skill_trees;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create enrollments and per-node progress
-- Version: 003

CREATE TABLE IF NOT EXISTS enrollments (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL REFERENCES user_profiles(user_id) ON DELETE CASCADE,
    tree_id BIGINT NOT NULL REFERENCES skill_trees(id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    nodes_completed INTEGER NOT NULL DEFAULT 0,
    progress_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    last_accessed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    version INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_status CHECK (status IN ('active', 'completed', 'paused')),
    CONSTRAINT valid_nodes_completed CHECK (nodes_completed >= 0),
    CONSTRAINT valid_progress CHECK (progress_percentage >= 0 AND progress_percentage <= 100),
    UNIQUE(user_id, tree_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_user ON enrollments(user_id, last_accessed_at DESC);
CREATE INDEX IF NOT EXISTS idx_enrollments_user_status ON enrollments(user_id, status);

CREATE TABLE IF NOT EXISTS node_progress (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL REFERENCES user_profiles(user_id) ON DELETE CASCADE,
    node_id BIGINT NOT NULL REFERENCES skill_nodes(id) ON DELETE CASCADE,
    tree_id BIGINT NOT NULL REFERENCES skill_trees(id) ON DELETE CASCADE,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP WITH TIME ZONE,
    time_spent_minutes INTEGER NOT NULL DEFAULT 0,
    score INTEGER,

    CONSTRAINT valid_time_spent CHECK (time_spent_minutes >= 0),
    UNIQUE(user_id, node_id)
);

CREATE INDEX IF NOT EXISTS idx_node_progress_user_tree ON node_progress(user_id, tree_id);
CREATE INDEX IF NOT EXISTS idx_node_progress_completed ON node_progress(user_id) WHERE completed;
`

const migration003Down = `
DROP TABLE IF EXISTS node_progress;
DROP TABLE IF EXISTS enrollments;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create achievement catalog and unlock records
-- Version: 004

CREATE TABLE IF NOT EXISTS achievements (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    icon_name VARCHAR(50) NOT NULL DEFAULT '',
    criteria TEXT NOT NULL,
    xp_reward INTEGER NOT NULL DEFAULT 50,
    rarity VARCHAR(20) NOT NULL DEFAULT 'common',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_rarity CHECK (rarity IN ('common', 'rare', 'epic', 'legendary')),
    CONSTRAINT valid_xp_reward CHECK (xp_reward >= 0)
);

CREATE TABLE IF NOT EXISTS user_achievements (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL REFERENCES user_profiles(user_id) ON DELETE CASCADE,
    achievement_id BIGINT NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_user_achievements_user ON user_achievements(user_id, unlocked_at DESC);
`

const migration004Down = `
DROP TABLE IF EXISTS user_achievements;
DROP TABLE IF EXISTS achievements;
`
