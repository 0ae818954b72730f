// Package game is the session engine: lobby lifecycle, roster management,
// round control and scoring for every game variant. It is transport-agnostic;
// the HTTP controllers are just a thin shell over this package.
package game

import (
	"encoding/json"
	"errors"
	"log"

	postgres_models "wordparty/models/postgres"
	redis_models "wordparty/models/redis"
	gameerrors "wordparty/services/game/errors"
	"wordparty/services/game/variants"
	appsync "wordparty/sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStore is the repository boundary over Redis.
type SessionStore interface {
	SaveGameSession(session *redis_models.GameSession) error
	SaveGameSessionCAS(session *redis_models.GameSession) error
	GetGameSession(sessionId string) (*redis_models.GameSession, error)
	DeleteGameSession(session *redis_models.GameSession) error
	ClaimLobbyCode(code string, sessionId string) (bool, error)
	ReleaseLobbyCode(code string) error
	GetSessionIDByCode(code string) (string, error)
	ListPublicSessions() ([]*redis_models.GameSession, error)
}

// Catalog resolves game definitions from PostgreSQL.
type Catalog interface {
	FindActiveGameDefinition(gameID string) (*postgres_models.GameDefinition, error)
}

// StatsSink receives the batched per-player stat deltas of a finished
// session.
type StatsSink interface {
	ApplyStatDeltas(deltas []postgres_models.UserStatsDelta) error
}

type GameService struct {
	store    SessionStore
	catalog  Catalog
	supply   variants.ContentSource
	registry *variants.Registry
	locks    *appsync.SessionLocks
	stats    StatsSink
}

func NewGameService(store SessionStore, catalog Catalog, supply variants.ContentSource, registry *variants.Registry, locks *appsync.SessionLocks, stats StatsSink) *GameService {
	return &GameService{
		store:    store,
		catalog:  catalog,
		supply:   supply,
		registry: registry,
		locks:    locks,
		stats:    stats,
	}
}

// CreateSessionRequest carries everything needed to open a new lobby.
type CreateSessionRequest struct {
	GameID      string
	SessionName string
	HostUserID  string
	HostName    string
	IsPrivate   bool
	TotalRounds int
	Settings    map[string]interface{}
}

// CreateSession opens a new lobby: validates the game and settings against
// the catalog, allocates a unique lobby code and seats the host as the first
// player.
func (gs *GameService) CreateSession(req CreateSessionRequest) (*redis_models.GameSession, error) {
	def, err := gs.catalog.FindActiveGameDefinition(req.GameID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gameerrors.NotFound("game %s not found", req.GameID)
	}
	if err != nil {
		return nil, gameerrors.Internal("error loading game definition: %v", err)
	}

	if _, err := gs.registry.Lookup(req.GameID); err != nil {
		return nil, err
	}

	settings, err := def.MergedSettings(req.Settings)
	if err != nil {
		return nil, gameerrors.Validation("%v", err)
	}

	totalRounds := req.TotalRounds
	if totalRounds <= 0 {
		totalRounds = def.DefaultRounds
	}

	session := redis_models.NewGameSession(req.GameID, def.Name, req.SessionName, req.HostUserID, settings)
	session.ID = uuid.NewString()
	session.IsPrivate = req.IsPrivate
	session.TotalRounds = totalRounds
	session.MinPlayers = def.MinPlayers
	session.MaxPlayers = def.MaxPlayers

	code, err := gs.allocateLobbyCode(session.ID)
	if err != nil {
		return nil, err
	}
	session.LobbyCode = code

	if err := AddPlayer(session, req.HostUserID, req.HostName); err != nil {
		return nil, err
	}
	session.Players[0].IsHost = true

	if err := gs.store.SaveGameSession(session); err != nil {
		return nil, gameerrors.Internal("error saving new session: %v", err)
	}

	log.Printf("[SESSION-CREATE] Session %s created (game=%s, code=%s, host=%s)",
		session.ID, session.GameID, session.LobbyCode, req.HostUserID)
	return session, nil
}

// JoinSessionByCode seats a player in the lobby that owns the given code.
func (gs *GameService) JoinSessionByCode(code, userID, username string) (*redis_models.GameSession, error) {
	sessionId, err := gs.store.GetSessionIDByCode(code)
	if err != nil {
		return nil, err
	}
	return gs.JoinSession(sessionId, userID, username)
}

// JoinSession seats a player in a lobby by session ID.
func (gs *GameService) JoinSession(sessionId, userID, username string) (*redis_models.GameSession, error) {
	return gs.withSession(sessionId, func(session *redis_models.GameSession) error {
		if session.Status != redis_models.SessionStatusLobby {
			return gameerrors.StateConflict("session %s is not accepting players", sessionId)
		}
		return AddPlayer(session, userID, username)
	})
}

// LeaveSession marks a player inactive, reassigning the host role or
// cancelling the session when it empties out.
func (gs *GameService) LeaveSession(sessionId, userID string) (*redis_models.GameSession, error) {
	session, err := gs.withSession(sessionId, func(session *redis_models.GameSession) error {
		return RemovePlayer(session, userID)
	})
	if err != nil {
		return nil, err
	}
	if session.Status == redis_models.SessionStatusCancelled {
		// Nobody left; free the code and the lock eagerly.
		if err := gs.store.ReleaseLobbyCode(session.LobbyCode); err != nil {
			log.Printf("[SESSION-LEAVE] Error releasing code %s: %v", session.LobbyCode, err)
		}
		gs.locks.Forget(sessionId)
	}
	return session, nil
}

// ToggleReady flips a player's ready flag. When the autoStart setting is on
// and the lobby becomes startable with every active player ready, the session
// starts without waiting for the host.
func (gs *GameService) ToggleReady(sessionId, userID string) (*redis_models.GameSession, error) {
	return gs.withSession(sessionId, func(session *redis_models.GameSession) error {
		if err := TogglePlayerReady(session, userID); err != nil {
			return err
		}
		if session.SettingBool("autoStart") &&
			session.CanStart() &&
			session.ActiveReadyCount() == len(session.ActivePlayers()) {
			log.Printf("[SESSION-AUTOSTART] Session %s auto-starting", sessionId)
			return gs.startSession(session)
		}
		return nil
	})
}

// StartSession begins play. Host only.
func (gs *GameService) StartSession(sessionId, userID string) (*redis_models.GameSession, error) {
	return gs.withSession(sessionId, func(session *redis_models.GameSession) error {
		player := session.FindPlayer(userID)
		if player == nil || !player.IsActive {
			return gameerrors.NotFound("player %s is not in session %s", userID, sessionId)
		}
		if !player.IsHost {
			return gameerrors.StateConflict("only the host can start the session")
		}
		return gs.startSession(session)
	})
}

// SubmitAction is the single intake for in-game actions. The action is
// appended to the audit log before the variant sees it; a semantic rejection
// keeps the audit record but reports the error to the caller.
func (gs *GameService) SubmitAction(sessionId, userID, actionType string, payload json.RawMessage) (*redis_models.GameSession, error) {
	var semanticErr error

	session, err := gs.withSession(sessionId, func(session *redis_models.GameSession) error {
		semanticErr = nil

		player := session.FindPlayer(userID)
		if player == nil || !player.IsActive {
			return gameerrors.NotFound("player %s is not an active member of session %s", userID, sessionId)
		}
		if session.Status != redis_models.SessionStatusPlaying {
			return gameerrors.StateConflict("session %s is not in play", sessionId)
		}
		round := session.GetCurrentRound()
		if round == nil || round.Status != redis_models.RoundStatusActive {
			return gameerrors.StateConflict("session %s has no active round", sessionId)
		}

		machine, err := gs.registry.Lookup(session.GameID)
		if err != nil {
			return err
		}

		session.AppendAction(userID, actionType, payload)

		outcome, err := machine.HandleAction(session, round, userID, actionType, payload)
		if err != nil {
			kind := gameerrors.KindOf(err)
			if kind == gameerrors.KindValidation || kind == gameerrors.KindStateConflict {
				// Keep the audit append, surface the rejection.
				semanticErr = err
				return nil
			}
			return err
		}

		if outcome.RoundComplete {
			return gs.advanceOrFinish(session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if semanticErr != nil {
		return session, semanticErr
	}
	return session, nil
}

// GetSession returns the raw stored session.
func (gs *GameService) GetSession(sessionId string) (*redis_models.GameSession, error) {
	return gs.store.GetGameSession(sessionId)
}

// ListPublicSessions returns joinable public lobbies.
func (gs *GameService) ListPublicSessions() ([]*redis_models.GameSession, error) {
	return gs.store.ListPublicSessions()
}

// maxSaveRetries caps CAS retry loops. Conflicts only happen when two
// handlers race on one session, so a handful of retries is plenty.
const maxSaveRetries = 5

// withSession serializes a read-modify-write cycle on one session: a
// per-session lock on this instance plus a versioned CAS save against Redis.
// fn errors abort without saving, so a rejected action leaves the stored
// session untouched.
func (gs *GameService) withSession(sessionId string, fn func(*redis_models.GameSession) error) (*redis_models.GameSession, error) {
	lock := gs.locks.Get(sessionId)
	lock.Lock()
	defer lock.Unlock()

	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		session, err := gs.store.GetGameSession(sessionId)
		if err != nil {
			return nil, err
		}
		prevStatus := session.Status
		if err := fn(session); err != nil {
			return nil, err
		}
		err = gs.store.SaveGameSessionCAS(session)
		if err == nil {
			// Stat increments are not idempotent, so they run exactly once,
			// after the finishing save commits. A lost CAS race replays fn on
			// a fresh load and never reaches this point.
			if prevStatus != redis_models.SessionStatusFinished &&
				session.Status == redis_models.SessionStatusFinished {
				gs.flushStats(session)
			}
			return session, nil
		}
		if !errors.Is(err, gameerrors.ErrVersionConflict) {
			return nil, gameerrors.Internal("error saving session %s: %v", sessionId, err)
		}
		log.Printf("[SESSION-CAS] Version conflict on session %s, retrying (%d)", sessionId, attempt+1)
	}
	return nil, gameerrors.Internal("session %s kept conflicting after %d attempts", sessionId, maxSaveRetries)
}

// flushStats pushes a finished session's stat deltas downstream. Failures are
// logged, not returned: the finished transition already committed and must
// not be undone by a stats outage.
func (gs *GameService) flushStats(session *redis_models.GameSession) {
	deltas := ComputeStatDeltas(session)
	if err := gs.stats.ApplyStatDeltas(deltas); err != nil {
		log.Printf("[ROUND-FINISH] Error applying stat deltas for session %s: %v", session.ID, err)
	}
}
