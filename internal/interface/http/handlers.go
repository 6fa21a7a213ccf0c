package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/skillsphere/progression-engine/internal/application/command"
	"github.com/skillsphere/progression-engine/internal/application/query"
	"github.com/skillsphere/progression-engine/internal/application/saga"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Progression Engine API",
		"version":     "v1",
		"description": "REST API for the SkillSphere learning progression engine",
		"endpoints": map[string]string{
			"health":       "/health",
			"profiles":     "/api/v1/profiles",
			"trees":        "/api/v1/trees",
			"achievements": "/api/v1/profiles/{id}/achievements",
			"journey":      "/api/v1/profiles/{id}/journey",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// createProfileRequest is the body for POST /api/v1/profiles.
type createProfileRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// handleCreateProfile handles POST /api/v1/profiles
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.CreateProfileHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Profile handler not configured")
		return
	}

	var req createProfileRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	cmd := command.CreateProfileCommand{
		UserID:        req.UserID,
		DisplayName:   req.DisplayName,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.CreateProfileHandler.Handle(r.Context(), cmd)
	if err != nil {
		if shared.IsAlreadyExists(err) {
			writeJSONError(w, http.StatusConflict, "already_exists", "Profile already exists")
			return
		}
		s.logger.Error("failed to create profile", logger.Err(err), logger.String("user_id", req.UserID))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to create profile")
		return
	}

	writeJSON(w, http.StatusCreated, query.NewProfileDTO(result.Profile))
}

// handleGetProfile handles GET /api/v1/profiles/{id}
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.GetProfileHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Profile handler not configured")
		return
	}

	result, err := s.deps.GetProfileHandler.Handle(r.Context(), query.GetProfileQuery{UserID: userID})
	if err != nil {
		if shared.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Profile not found")
			return
		}
		s.logger.Error("failed to get profile", logger.Err(err), logger.String("user_id", userID))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, result.Profile)
}

// handleGetJourney handles GET /api/v1/profiles/{id}/journey
func (s *Server) handleGetJourney(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.GetJourneyHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Journey handler not configured")
		return
	}

	result, err := s.deps.GetJourneyHandler.Handle(r.Context(), query.GetJourneyQuery{UserID: userID})
	if err != nil {
		if shared.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Profile not found")
			return
		}
		s.logger.Error("failed to get journey", logger.Err(err), logger.String("user_id", userID))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to get journey")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAchievements handles GET /api/v1/profiles/{id}/achievements
func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.GetAchievementsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Achievements handler not configured")
		return
	}

	q := query.GetAchievementsQuery{
		UserID:       userID,
		UnlockedOnly: getQueryParamBool(r, "unlocked_only"),
	}

	result, err := s.deps.GetAchievementsHandler.Handle(r.Context(), q)
	if err != nil {
		if shared.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Profile not found")
			return
		}
		s.logger.Error("failed to get achievements", logger.Err(err), logger.String("user_id", userID))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to get achievements")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// unlockAchievementResponse describes a granted achievement unlock.
type unlockAchievementResponse struct {
	AchievementID     int64     `json:"achievement_id"`
	Title             string    `json:"title"`
	Rarity            string    `json:"rarity"`
	XPAwarded         int       `json:"xp_awarded"`
	NewLevel          int       `json:"new_level"`
	LeveledUp         bool      `json:"leveled_up"`
	AchievementsCount int       `json:"achievements_count"`
	UnlockedAt        time.Time `json:"unlocked_at"`
}

// handleUnlockAchievement handles
// POST /api/v1/profiles/{id}/achievements/{achievementID}/unlock (admin only).
func (s *Server) handleUnlockAchievement(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}
	achievementID, err := pathValueInt64(r, "achievementID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Achievement ID must be a positive integer")
		return
	}

	if s.deps.UnlockAchievementHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Achievement handler not configured")
		return
	}

	cmd := command.UnlockAchievementCommand{
		UserID:        userID,
		AchievementID: achievementID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.UnlockAchievementHandler.Handle(r.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrAlreadyUnlocked):
			writeJSONError(w, http.StatusConflict, "already_unlocked", "User already holds this achievement")
		case shared.IsNotFound(err):
			writeJSONError(w, http.StatusNotFound, "not_found", "Achievement or profile not found")
		default:
			s.logger.Error("failed to unlock achievement",
				logger.Err(err),
				logger.String("user_id", userID),
				logger.Int64("achievement_id", achievementID))
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to unlock achievement")
		}
		return
	}

	writeJSON(w, http.StatusCreated, unlockAchievementResponse{
		AchievementID:     result.Achievement.ID.Int64(),
		Title:             result.Achievement.Title,
		Rarity:            string(result.Achievement.Rarity),
		XPAwarded:         result.XPAwarded,
		NewLevel:          result.Profile.Level.Int(),
		LeveledUp:         result.LeveledUp,
		AchievementsCount: result.Profile.AchievementsCount,
		UnlockedAt:        result.UnlockedAt,
	})
}

// checkAchievementsResponse reports the outcome of an on-demand evaluation.
type checkAchievementsResponse struct {
	UserID          string                 `json:"user_id"`
	NewAchievements []query.AchievementDTO `json:"new_achievements"`
	TotalXPBonus    int                    `json:"total_xp_bonus"`
	LeveledUp       bool                   `json:"leveled_up"`
	CheckedAt       time.Time              `json:"checked_at"`
}

// handleCheckAchievements handles POST /api/v1/profiles/{id}/achievements/check
func (s *Server) handleCheckAchievements(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.AchievementUnlockSaga == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Achievement saga not configured")
		return
	}

	result, err := s.deps.AchievementUnlockSaga.Execute(r.Context(), saga.AchievementCheckInput{
		UserID:        userID,
		TriggerEvent:  "manual_check",
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		if shared.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Profile not found")
			return
		}
		s.logger.Error("failed to check achievements", logger.Err(err), logger.String("user_id", userID))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to check achievements")
		return
	}

	resp := checkAchievementsResponse{
		UserID:          result.UserID,
		NewAchievements: make([]query.AchievementDTO, 0, len(result.NewAchievements)),
		TotalXPBonus:    result.TotalXPBonus,
		LeveledUp:       result.LeveledUp,
		CheckedAt:       result.ProcessedAt,
	}
	for _, a := range result.NewAchievements {
		unlockedAt := result.ProcessedAt
		resp.NewAchievements = append(resp.NewAchievements, query.AchievementDTO{
			ID:          a.ID.Int64(),
			Title:       a.Title,
			Description: a.Description,
			IconName:    a.IconName,
			Criteria:    a.Criteria.String(),
			XPReward:    a.EffectiveXPReward(),
			Rarity:      string(a.Rarity),
			Unlocked:    true,
			UnlockedAt:  &unlockedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// awardXPRequest is the body for POST /api/v1/profiles/{id}/xp.
type awardXPRequest struct {
	Amount int    `json:"amount"`
	Source string `json:"source"`
}

// awardXPResponse reports the level movement caused by an XP grant.
type awardXPResponse struct {
	Profile   query.ProfileDTO `json:"profile"`
	Amount    int              `json:"amount"`
	OldLevel  int              `json:"old_level"`
	NewLevel  int              `json:"new_level"`
	LeveledUp bool             `json:"leveled_up"`
	AwardedAt time.Time        `json:"awarded_at"`
}

// handleAwardXP handles POST /api/v1/profiles/{id}/xp (admin only).
func (s *Server) handleAwardXP(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.AwardXPHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "XP handler not configured")
		return
	}

	var req awardXPRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Amount < 1 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "amount must be at least 1")
		return
	}
	if req.Source == "" {
		req.Source = "manual_grant"
	}

	cmd := command.AwardXPCommand{
		UserID:        userID,
		Amount:        req.Amount,
		Source:        req.Source,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.AwardXPHandler.Handle(r.Context(), cmd)
	if err != nil {
		if shared.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Profile not found")
			return
		}
		s.logger.Error("failed to award XP", logger.Err(err), logger.String("user_id", userID))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to award XP")
		return
	}

	writeJSON(w, http.StatusOK, awardXPResponse{
		Profile:   query.NewProfileDTO(result.Profile),
		Amount:    result.Award.Amount,
		OldLevel:  result.Award.OldLevel.Int(),
		NewLevel:  result.Award.NewLevel.Int(),
		LeveledUp: result.Award.LeveledUp,
		AwardedAt: result.AwardedAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// TREE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListTrees handles GET /api/v1/trees
func (s *Server) handleListTrees(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListTreesHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Tree handler not configured")
		return
	}

	q := query.ListTreesQuery{
		UserID:       getQueryParam(r, "user_id", ""),
		Category:     getQueryParam(r, "category", ""),
		EnrolledOnly: getQueryParamBool(r, "enrolled_only"),
		Page:         getQueryParamInt(r, "page", 1),
		PageSize:     getQueryParamInt(r, "page_size", 20),
	}

	result, err := s.deps.ListTreesHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to list trees", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to list trees")
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.TotalCount,
		Page:       result.Page,
		PageSize:   result.PageSize,
		HasMore:    result.Page*result.PageSize < result.TotalCount,
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// handleGetTreeDetail handles GET /api/v1/trees/{id}
func (s *Server) handleGetTreeDetail(w http.ResponseWriter, r *http.Request) {
	treeID, err := pathValueInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Tree ID must be a positive integer")
		return
	}

	if s.deps.GetTreeDetailHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Tree handler not configured")
		return
	}

	q := query.GetTreeDetailQuery{
		TreeID: treeID,
		UserID: getQueryParam(r, "user_id", ""),
	}

	result, err := s.deps.GetTreeDetailHandler.Handle(r.Context(), q)
	if err != nil {
		if shared.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Tree not found")
			return
		}
		s.logger.Error("failed to get tree", logger.Err(err), logger.Int64("tree_id", treeID))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to get tree")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetEnrollment handles GET /api/v1/trees/{id}/enrollment
func (s *Server) handleGetEnrollment(w http.ResponseWriter, r *http.Request) {
	treeID, err := pathValueInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Tree ID must be a positive integer")
		return
	}
	userID := getQueryParam(r, "user_id", "")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	if s.deps.GetEnrollmentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment handler not configured")
		return
	}

	result, err := s.deps.GetEnrollmentHandler.Handle(r.Context(), query.GetEnrollmentQuery{
		UserID: userID,
		TreeID: treeID,
	})
	if err != nil {
		if shared.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Enrollment not found")
			return
		}
		s.logger.Error("failed to get enrollment",
			logger.Err(err),
			logger.String("user_id", userID),
			logger.Int64("tree_id", treeID))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to get enrollment")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// enrollRequest is the body for POST /api/v1/trees/{id}/enroll.
type enrollRequest struct {
	UserID string `json:"user_id"`
}

// enrollResponse describes a freshly created enrollment.
type enrollResponse struct {
	EnrollmentID int64     `json:"enrollment_id"`
	UserID       string    `json:"user_id"`
	TreeID       int64     `json:"tree_id"`
	TreeTitle    string    `json:"tree_title"`
	TotalNodes   int       `json:"total_nodes"`
	Status       string    `json:"status"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

// handleEnrollTree handles POST /api/v1/trees/{id}/enroll
func (s *Server) handleEnrollTree(w http.ResponseWriter, r *http.Request) {
	treeID, err := pathValueInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Tree ID must be a positive integer")
		return
	}

	if s.deps.EnrollTreeHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment handler not configured")
		return
	}

	var req enrollRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	cmd := command.EnrollTreeCommand{
		UserID:        req.UserID,
		TreeID:        treeID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.EnrollTreeHandler.Handle(r.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrAlreadyEnrolled) || shared.IsAlreadyExists(err):
			writeJSONError(w, http.StatusConflict, "already_enrolled", "User is already enrolled in this tree")
		case shared.IsNotFound(err):
			writeJSONError(w, http.StatusNotFound, "not_found", "Tree or profile not found")
		default:
			s.logger.Error("failed to enroll",
				logger.Err(err),
				logger.String("user_id", req.UserID),
				logger.Int64("tree_id", treeID))
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to enroll")
		}
		return
	}

	writeJSON(w, http.StatusCreated, enrollResponse{
		EnrollmentID: result.Enrollment.ID,
		UserID:       result.Enrollment.UserID.String(),
		TreeID:       result.Enrollment.TreeID.Int64(),
		TreeTitle:    result.Tree.Title,
		TotalNodes:   result.Tree.TotalNodes,
		Status:       string(result.Enrollment.Status),
		EnrolledAt:   result.EnrolledAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// NODE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// startNodeRequest is the body for POST /api/v1/nodes/{id}/start.
type startNodeRequest struct {
	UserID string `json:"user_id"`
}

// startNodeResponse describes a started node.
type startNodeResponse struct {
	NodeID         int64     `json:"node_id"`
	TreeID         int64     `json:"tree_id"`
	AlreadyStarted bool      `json:"already_started"`
	StartedAt      time.Time `json:"started_at"`
}

// handleStartNode handles POST /api/v1/nodes/{id}/start
func (s *Server) handleStartNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathValueInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Node ID must be a positive integer")
		return
	}

	if s.deps.StartNodeHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Node handler not configured")
		return
	}

	var req startNodeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	cmd := command.StartNodeCommand{
		UserID:        req.UserID,
		NodeID:        nodeID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.StartNodeHandler.Handle(r.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNodeLocked):
			writeJSONError(w, http.StatusConflict, "node_locked", "Node is locked; complete its predecessor first")
		case errors.Is(err, shared.ErrNotEnrolled):
			writeJSONError(w, http.StatusConflict, "not_enrolled", "User is not enrolled in this node's tree")
		case shared.IsNotFound(err):
			writeJSONError(w, http.StatusNotFound, "not_found", "Node not found")
		default:
			s.logger.Error("failed to start node",
				logger.Err(err),
				logger.String("user_id", req.UserID),
				logger.Int64("node_id", nodeID))
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to start node")
		}
		return
	}

	status := http.StatusCreated
	if result.AlreadyStarted {
		status = http.StatusOK
	}

	writeJSON(w, status, startNodeResponse{
		NodeID:         result.Progress.NodeID.Int64(),
		TreeID:         result.Progress.TreeID.Int64(),
		AlreadyStarted: result.AlreadyStarted,
		StartedAt:      result.StartedAt,
	})
}

// completeNodeRequest is the body for POST /api/v1/nodes/{id}/complete.
type completeNodeRequest struct {
	UserID           string `json:"user_id"`
	TimeSpentMinutes int    `json:"time_spent_minutes"`
	Score            *int   `json:"score,omitempty"`
}

// completeNodeResponse is the full outcome of a node completion:
// the XP grant, tree progress movement, newly reachable nodes, and any
// achievements the follow-up check unlocked.
type completeNodeResponse struct {
	NodeID             int64                  `json:"node_id"`
	TreeID             int64                  `json:"tree_id"`
	XPEarned           int                    `json:"xp_earned"`
	NewLevel           int                    `json:"new_level"`
	LeveledUp          bool                   `json:"leveled_up"`
	NodesCompleted     int                    `json:"nodes_completed"`
	TotalNodes         int                    `json:"total_nodes"`
	ProgressPercentage float64                `json:"progress_percentage"`
	TreeCompleted      bool                   `json:"tree_completed"`
	UnlockedNodeIDs    []int64                `json:"unlocked_node_ids"`
	NewAchievements    []query.AchievementDTO `json:"new_achievements"`
	CompletedAt        time.Time              `json:"completed_at"`
}

// handleCompleteNode handles POST /api/v1/nodes/{id}/complete
func (s *Server) handleCompleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathValueInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Node ID must be a positive integer")
		return
	}

	if s.deps.CompleteNodeSaga == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Completion saga not configured")
		return
	}

	var req completeNodeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	if req.TimeSpentMinutes < 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "time_spent_minutes must be non-negative")
		return
	}

	input := saga.CompleteNodeInput{
		UserID:           req.UserID,
		NodeID:           nodeID,
		TimeSpentMinutes: req.TimeSpentMinutes,
		Score:            req.Score,
		CorrelationID:    getRequestID(r.Context()),
	}

	result, err := s.deps.CompleteNodeSaga.Execute(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNodeAlreadyCompleted):
			writeJSONError(w, http.StatusConflict, "already_completed", "Node is already completed")
		case errors.Is(err, shared.ErrNodeLocked):
			writeJSONError(w, http.StatusConflict, "node_locked", "Node is locked; complete its predecessor first")
		case errors.Is(err, shared.ErrNotEnrolled):
			writeJSONError(w, http.StatusConflict, "not_enrolled", "User is not enrolled in this node's tree")
		case shared.IsNotFound(err):
			writeJSONError(w, http.StatusNotFound, "not_found", "Node not found")
		case shared.IsConflict(err):
			writeJSONError(w, http.StatusConflict, "conflict", "Completion conflicts with current state")
		default:
			s.logger.Error("failed to complete node",
				logger.Err(err),
				logger.String("user_id", req.UserID),
				logger.Int64("node_id", nodeID))
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to complete node")
		}
		return
	}

	resp := completeNodeResponse{
		NodeID:             result.NodeID,
		TreeID:             result.TreeID,
		XPEarned:           result.XPEarned,
		NewLevel:           result.NewLevel,
		LeveledUp:          result.LeveledUp,
		NodesCompleted:     result.NodesCompleted,
		TotalNodes:         result.TotalNodes,
		ProgressPercentage: result.ProgressPercentage,
		TreeCompleted:      result.TreeCompleted,
		UnlockedNodeIDs:    result.UnlockedNodeIDs,
		NewAchievements:    make([]query.AchievementDTO, 0, len(result.NewAchievements)),
		CompletedAt:        result.CompletedAt,
	}
	if resp.UnlockedNodeIDs == nil {
		resp.UnlockedNodeIDs = []int64{}
	}
	now := time.Now().UTC()
	for _, a := range result.NewAchievements {
		unlockedAt := now
		resp.NewAchievements = append(resp.NewAchievements, query.AchievementDTO{
			ID:          a.ID.Int64(),
			Title:       a.Title,
			Description: a.Description,
			IconName:    a.IconName,
			Criteria:    a.Criteria.String(),
			XPReward:    a.EffectiveXPReward(),
			Rarity:      string(a.Rarity),
			Unlocked:    true,
			UnlockedAt:  &unlockedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// maxBodySize limits request bodies to 1MB.
const maxBodySize = 1 << 20

var errInvalidPathID = errors.New("path id must be a positive integer")

// decodeJSONBody decodes a JSON request body with a size limit.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	return dec.Decode(dst)
}

// pathValueInt64 parses a positive integer path segment.
func pathValueInt64(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidPathID
	}
	return id, nil
}
