package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"wordparty/middleware"
	redis_models "wordparty/models/redis"
	"wordparty/services/game"
	gameerrors "wordparty/services/game/errors"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Service *game.GameService
}

// sessionSummary is the lobby listing shape
func sessionSummary(s *redis_models.GameSession) gin.H {
	return gin.H{
		"session_id":   s.ID,
		"game_id":      s.GameID,
		"game_name":    s.GameName,
		"session_name": s.SessionName,
		"lobby_code":   s.LobbyCode,
		"status":       s.Status,
		"player_count": len(s.ActivePlayers()),
		"max_players":  s.MaxPlayers,
	}
}

// respondError maps engine error kinds onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var gameErr *gameerrors.Error
	if !errors.As(err, &gameErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch gameErr.Kind {
	case gameerrors.KindValidation:
		status = http.StatusBadRequest
	case gameerrors.KindStateConflict:
		status = http.StatusConflict
	case gameerrors.KindNotFound:
		status = http.StatusNotFound
	case gameerrors.KindCapacity:
		status = http.StatusConflict
	case gameerrors.KindCodeSpaceExhausted:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": gameErr.Reason, "kind": gameErr.Kind})
}

func identity(c *gin.Context) (string, string) {
	return c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextUsername)
}

// CreateSession opens a new lobby with the caller as host
func (sc *SessionController) CreateSession(c *gin.Context) {
	userID, username := identity(c)

	var body struct {
		GameID      string                 `json:"game_id" binding:"required"`
		SessionName string                 `json:"session_name"`
		IsPrivate   bool                   `json:"is_private"`
		TotalRounds int                    `json:"total_rounds"`
		Settings    map[string]interface{} `json:"settings"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	session, err := sc.Service.CreateSession(game.CreateSessionRequest{
		GameID:      body.GameID,
		SessionName: body.SessionName,
		HostUserID:  userID,
		HostName:    username,
		IsPrivate:   body.IsPrivate,
		TotalRounds: body.TotalRounds,
		Settings:    body.Settings,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"lobby_code": session.LobbyCode,
		"message":    "Session created successfully",
	})
}

// JoinSession seats the caller in a lobby, by lobby code
func (sc *SessionController) JoinSession(c *gin.Context) {
	userID, username := identity(c)
	code := c.Param("code")

	session, err := sc.Service.JoinSessionByCode(code, userID, username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"message":    "Joined session successfully",
	})
}

// LeaveSession removes the caller from a session
func (sc *SessionController) LeaveSession(c *gin.Context) {
	userID, _ := identity(c)
	sessionID := c.Param("session_id")

	session, err := sc.Service.LeaveSession(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  session.Status,
		"message": "Left session",
	})
}

// ToggleReady flips the caller's ready flag
func (sc *SessionController) ToggleReady(c *gin.Context) {
	userID, _ := identity(c)
	sessionID := c.Param("session_id")

	session, err := sc.Service.ToggleReady(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	player := session.FindPlayer(userID)
	c.JSON(http.StatusOK, gin.H{
		"is_ready": player != nil && player.IsReady,
		"status":   session.Status,
	})
}

// StartSession begins play (host only)
func (sc *SessionController) StartSession(c *gin.Context) {
	userID, _ := identity(c)
	sessionID := c.Param("session_id")

	session, err := sc.Service.StartSession(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        session.Status,
		"current_round": session.CurrentRound + 1,
		"total_rounds":  session.TotalRounds,
	})
}

// SubmitAction is the single intake for every in-game action
func (sc *SessionController) SubmitAction(c *gin.Context) {
	userID, _ := identity(c)
	sessionID := c.Param("session_id")

	var body struct {
		ActionType string          `json:"action_type" binding:"required"`
		Payload    json.RawMessage `json:"payload"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	session, err := sc.Service.SubmitAction(sessionID, userID, body.ActionType, body.Payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        session.Status,
		"current_round": session.CurrentRound + 1,
		"message":       "Action accepted",
	})
}

// GetPlayerView returns the caller's redacted view of a session
func (sc *SessionController) GetPlayerView(c *gin.Context) {
	userID, _ := identity(c)
	sessionID := c.Param("session_id")

	view, err := sc.Service.GetPlayerView(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListPublicSessions returns joinable public lobbies
func (sc *SessionController) ListPublicSessions(c *gin.Context) {
	sessions, err := sc.Service.ListPublicSessions()
	if err != nil {
		respondError(c, err)
		return
	}
	list := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, sessionSummary(s))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}
