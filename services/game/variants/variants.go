// Package variants contains the per-game state machines. Each variant owns
// the phase enum embedded in its round data and is the only code allowed to
// interpret it.
package variants

import (
	"encoding/json"
	"time"

	redis_models "wordparty/models/redis"
	gameerrors "wordparty/services/game/errors"
)

// Phase shared by every variant: terminal phase of a scored round.
const PhaseResults = "results"

// Prompt kinds understood by the content supply.
const (
	PromptKindChainStart  = "chain_start"
	PromptKindStoryPrompt = "story_prompt"
	PromptKindDrawWord    = "draw_word"
)

// WordPair is one common/intruder word drawing.
type WordPair struct {
	CommonWord   string `json:"common_word"`
	IntruderWord string `json:"intruder_word"`
}

// ContentSource is the read-only word/prompt supply consumed at round
// initialization.
type ContentSource interface {
	DrawRandomWordPairs(n int) ([]WordPair, error)
	DrawRandomPrompt(kind string) (string, error)
}

// Outcome is the result of a handled action.
type Outcome struct {
	// RoundComplete signals that the variant computed the round results and
	// the lifecycle controller must advance or finish the session.
	RoundComplete bool
}

// Machine is the common interface of the four variant state machines.
type Machine interface {
	GameID() string
	// InitializeRound sets up the session's current round: draws content,
	// assigns roles, writes the initial round data and activates the round.
	InitializeRound(session *redis_models.GameSession, supply ContentSource) error
	// HandleAction validates the action against the round's phase and applies
	// it. The audit append has already happened; a returned error only rejects
	// the semantic effect.
	HandleAction(session *redis_models.GameSession, round *redis_models.Round, userID, actionType string, payload json.RawMessage) (Outcome, error)
}

// Registry dispatches sessions to their variant machine by gameId.
type Registry struct {
	machines map[string]Machine
}

func NewRegistry(machines ...Machine) *Registry {
	r := &Registry{machines: make(map[string]Machine, len(machines))}
	for _, m := range machines {
		r.machines[m.GameID()] = m
	}
	return r
}

// DefaultRegistry registers all four shipped variants.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewWordIntruder(),
		NewWordChain(),
		NewStoryBuilder(),
		NewQuickDraw(),
	)
}

func (r *Registry) Lookup(gameID string) (Machine, error) {
	m, ok := r.machines[gameID]
	if !ok {
		return nil, gameerrors.NotFound("no variant registered for game %q", gameID)
	}
	return m, nil
}

// decodePayload unmarshals an action payload into dst, mapping failures to
// validation errors.
func decodePayload(payload json.RawMessage, dst interface{}) error {
	if len(payload) == 0 {
		return gameerrors.Validation("missing action payload")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return gameerrors.Validation("malformed action payload: %v", err)
	}
	return nil
}

func writeRoundData(round *redis_models.Round, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return gameerrors.Internal("error marshaling round data: %v", err)
	}
	round.Data = raw
	return nil
}

func readRoundData(round *redis_models.Round, dst interface{}) error {
	if len(round.Data) == 0 {
		return gameerrors.Internal("round has no data")
	}
	if err := json.Unmarshal(round.Data, dst); err != nil {
		return gameerrors.Internal("error unmarshaling round data: %v", err)
	}
	return nil
}

func writeResults(round *redis_models.Round, results interface{}) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return gameerrors.Internal("error marshaling round results: %v", err)
	}
	round.Results = raw
	return nil
}

// activateRound flips a waiting round to active and stamps its start time.
func activateRound(round *redis_models.Round) {
	now := time.Now()
	round.Status = redis_models.RoundStatusActive
	round.StartTime = &now
}

// closeRound marks the round finished and stamps its end time.
func closeRound(round *redis_models.Round) {
	now := time.Now()
	round.Status = redis_models.RoundStatusFinished
	round.EndTime = &now
}

// nextActive returns the active player following userID in join order,
// wrapping around, together with the wrapped flag.
func nextActive(session *redis_models.GameSession, userID string) (*redis_models.Player, bool) {
	active := session.ActivePlayers()
	if len(active) == 0 {
		return nil, false
	}
	idx := 0
	for i, p := range active {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	next := (idx + 1) % len(active)
	return active[next], next == 0
}

// requirePhase rejects actions submitted outside their valid phase.
func requirePhase(actionType, current, expected string) error {
	if current != expected {
		return gameerrors.StateConflict("action %q is only allowed during the %s phase (current phase: %s)",
			actionType, expected, current)
	}
	return nil
}

// requireHost rejects host-only actions from anyone else.
func requireHost(session *redis_models.GameSession, userID, actionType string) error {
	player := session.FindPlayer(userID)
	if player == nil || !player.IsActive || !player.IsHost {
		return gameerrors.StateConflict("only the host can perform %q", actionType)
	}
	return nil
}
