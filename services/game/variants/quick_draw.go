package variants

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	game_constants "wordparty/constants/game"
	redis_models "wordparty/models/redis"
	gameerrors "wordparty/services/game/errors"
)

const PhaseGuessing = "guessing"

type GuessEntry struct {
	UserID      string    `json:"user_id"`
	Guess       string    `json:"guess"`
	Correct     bool      `json:"correct"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// DrawRoundData is the Draw & Guess round payload. The drawer rotates with
// the round number; everyone else races to name the target word.
type DrawRoundData struct {
	Phase      string       `json:"phase"`
	DrawerID   string       `json:"drawer_id"`
	TargetWord string       `json:"target_word"`
	Guesses    []GuessEntry `json:"guesses"`
	WinnerID   string       `json:"winner_id,omitempty"`
}

type DrawResults struct {
	WinnerID    string       `json:"winner_id,omitempty"`
	TargetWord  string       `json:"target_word"`
	RoundScores []RoundScore `json:"round_scores"`
}

func DecodeDrawRound(round *redis_models.Round) (*DrawRoundData, error) {
	var data DrawRoundData
	if err := readRoundData(round, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

type QuickDraw struct{}

func NewQuickDraw() *QuickDraw { return &QuickDraw{} }

func (q *QuickDraw) GameID() string { return game_constants.GameQuickDraw }

func (q *QuickDraw) InitializeRound(session *redis_models.GameSession, supply ContentSource) error {
	round := session.GetCurrentRound()
	if round == nil {
		return gameerrors.Internal("session %s has no current round", session.ID)
	}

	word, err := supply.DrawRandomPrompt(PromptKindDrawWord)
	if err != nil {
		return gameerrors.Internal("error drawing target word: %v", err)
	}

	active := session.ActivePlayers()
	drawer := active[(round.RoundNumber-1)%len(active)]

	data := DrawRoundData{
		Phase:      PhaseGuessing,
		DrawerID:   drawer.UserID,
		TargetWord: word,
		Guesses:    []GuessEntry{},
	}
	if err := writeRoundData(round, &data); err != nil {
		return err
	}
	activateRound(round)

	session.UpdateGameState(map[string]interface{}{
		"current_phase": PhaseGuessing,
		"drawer_id":     drawer.UserID,
	})

	log.Printf("[DRAW-INIT] Round %d initialized for session %s (drawer=%s)",
		round.RoundNumber, session.ID, drawer.UserID)
	return nil
}

func (q *QuickDraw) HandleAction(session *redis_models.GameSession, round *redis_models.Round, userID, actionType string, payload json.RawMessage) (Outcome, error) {
	if actionType != "submit_guess" {
		return Outcome{}, gameerrors.Validation("unknown action %q for game %s", actionType, q.GameID())
	}

	var data DrawRoundData
	if err := readRoundData(round, &data); err != nil {
		return Outcome{}, err
	}
	if err := requirePhase(actionType, data.Phase, PhaseGuessing); err != nil {
		return Outcome{}, err
	}
	if userID == data.DrawerID {
		return Outcome{}, gameerrors.StateConflict("the drawer cannot guess their own word")
	}

	var req struct {
		Guess string `json:"guess"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return Outcome{}, err
	}
	guess := strings.TrimSpace(req.Guess)
	if guess == "" {
		return Outcome{}, gameerrors.Validation("guess must not be empty")
	}

	correct := strings.EqualFold(guess, data.TargetWord)
	data.Guesses = append(data.Guesses, GuessEntry{UserID: userID, Guess: guess, Correct: correct, SubmittedAt: time.Now()})

	if !correct {
		if err := writeRoundData(round, &data); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, nil
	}

	// First correct guess wins the round outright.
	data.Phase = PhaseResults
	data.WinnerID = userID
	if err := writeRoundData(round, &data); err != nil {
		return Outcome{}, err
	}

	scores := []RoundScore{{UserID: userID, Points: game_constants.DrawGuessBonus, Reason: ReasonCorrectGuess}}
	ApplyScores(session, scores)
	if err := writeResults(round, &DrawResults{WinnerID: userID, TargetWord: data.TargetWord, RoundScores: scores}); err != nil {
		return Outcome{}, err
	}
	closeRound(round)
	session.UpdateGameState(map[string]interface{}{"current_phase": PhaseResults})

	log.Printf("[DRAW-RESULTS] Session %s round %d won by %s", session.ID, round.RoundNumber, userID)
	return Outcome{RoundComplete: true}, nil
}
