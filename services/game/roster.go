package game

import (
	"log"
	"time"

	redis_models "wordparty/models/redis"
	gameerrors "wordparty/services/game/errors"
)

// AddPlayer seats a user in the session. A previously-left player is
// reactivated instead of duplicated, so one userID never holds two roster
// slots.
func AddPlayer(session *redis_models.GameSession, userID, username string) error {
	if existing := session.FindPlayer(userID); existing != nil {
		if existing.IsActive {
			return gameerrors.StateConflict("player %s is already in session %s", userID, session.ID)
		}
		existing.IsActive = true
		existing.LeftAt = nil
		existing.IsReady = false
		session.Touch()
		log.Printf("[ROSTER-REJOIN] Player %s rejoined session %s", userID, session.ID)
		return nil
	}

	if len(session.ActivePlayers()) >= session.MaxPlayers {
		return gameerrors.Capacity("session %s is full (%d players)", session.ID, session.MaxPlayers)
	}

	session.Players = append(session.Players, redis_models.Player{
		UserID:   userID,
		Username: username,
		JoinedAt: time.Now(),
		IsActive: true,
	})
	session.Touch()
	log.Printf("[ROSTER-JOIN] Player %s joined session %s", userID, session.ID)
	return nil
}

// RemovePlayer marks a player inactive. The host role moves to the first
// remaining active player by join order; an emptied session is cancelled.
func RemovePlayer(session *redis_models.GameSession, userID string) error {
	player := session.FindPlayer(userID)
	if player == nil {
		return gameerrors.NotFound("player %s not found in session %s", userID, session.ID)
	}
	if !player.IsActive {
		return gameerrors.NotFound("player %s already left session %s", userID, session.ID)
	}

	now := time.Now()
	player.IsActive = false
	player.LeftAt = &now
	wasHost := player.IsHost
	player.IsHost = false
	session.Touch()

	remaining := session.ActivePlayers()
	if len(remaining) == 0 {
		session.Status = redis_models.SessionStatusCancelled
		session.EndedAt = &now
		log.Printf("[ROSTER-LEAVE] Last player %s left, session %s cancelled", userID, session.ID)
		return nil
	}
	if wasHost {
		remaining[0].IsHost = true
		session.HostUserID = remaining[0].UserID
		log.Printf("[ROSTER-HOST] Host role in session %s moved to %s", session.ID, remaining[0].UserID)
	}
	log.Printf("[ROSTER-LEAVE] Player %s left session %s", userID, session.ID)
	return nil
}

// TogglePlayerReady flips a player's lobby ready flag.
func TogglePlayerReady(session *redis_models.GameSession, userID string) error {
	player := session.FindPlayer(userID)
	if player == nil || !player.IsActive {
		return gameerrors.NotFound("player %s not found in session %s", userID, session.ID)
	}
	player.IsReady = !player.IsReady
	session.Touch()
	return nil
}
