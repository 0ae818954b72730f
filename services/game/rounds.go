package game

import (
	"log"
	"time"

	redis_models "wordparty/models/redis"
	gameerrors "wordparty/services/game/errors"
)

// startSession drives the lobby -> playing edge: round one is appended and
// initialized by the session's variant. Caller holds the session lock.
func (gs *GameService) startSession(session *redis_models.GameSession) error {
	if !session.CanStart() {
		ready := session.ActiveReadyCount()
		if session.Status != redis_models.SessionStatusLobby {
			return gameerrors.StateConflict("session %s already started", session.ID)
		}
		return gameerrors.Capacity("session %s needs %d-%d ready players, has %d",
			session.ID, session.MinPlayers, session.MaxPlayers, ready)
	}

	machine, err := gs.registry.Lookup(session.GameID)
	if err != nil {
		return err
	}

	now := time.Now()
	session.Status = redis_models.SessionStatusPlaying
	session.StartedAt = &now

	session.AppendRound()
	session.CurrentRound = len(session.Rounds) - 1
	if err := machine.InitializeRound(session, gs.supply); err != nil {
		return err
	}

	// The code is only needed to find a lobby; playing sessions drop it.
	if err := gs.store.ReleaseLobbyCode(session.LobbyCode); err != nil {
		log.Printf("[ROUND-START] Error releasing lobby code %s: %v", session.LobbyCode, err)
	}

	log.Printf("[ROUND-START] Session %s started round 1 of %d", session.ID, session.TotalRounds)
	return nil
}

// advanceOrFinish runs after a variant reports its round complete: either the
// next round is appended and initialized, or the session finishes. Caller
// holds the session lock; this is the only path to the finished state, which
// keeps finalization from firing twice.
func (gs *GameService) advanceOrFinish(session *redis_models.GameSession) error {
	if session.Status != redis_models.SessionStatusPlaying {
		return gameerrors.StateConflict("session %s is not in play", session.ID)
	}

	if session.CurrentRound < session.TotalRounds-1 {
		machine, err := gs.registry.Lookup(session.GameID)
		if err != nil {
			return err
		}
		session.AppendRound()
		session.CurrentRound = len(session.Rounds) - 1
		if err := machine.InitializeRound(session, gs.supply); err != nil {
			return err
		}
		log.Printf("[ROUND-ADVANCE] Session %s advanced to round %d of %d",
			session.ID, session.CurrentRound+1, session.TotalRounds)
		return nil
	}

	now := time.Now()
	session.Status = redis_models.SessionStatusFinished
	session.EndedAt = &now
	session.FinalizeStatistics()
	log.Printf("[ROUND-FINISH] Session %s finished after %d rounds", session.ID, session.TotalRounds)

	// Stat deltas are applied by withSession once the finishing save commits.
	// Applying them here would re-run the increments on a CAS retry.
	return nil
}
