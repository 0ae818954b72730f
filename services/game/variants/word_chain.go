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

const PhaseWordPrompt = "word_prompt"

type ChainEntry struct {
	UserID      string    `json:"user_id"`
	Word        string    `json:"word"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ChainRoundData is the Word Chain round payload: a seed word plus the chain
// built on top of it. There is no turn rotation; chain order is submission
// order.
type ChainRoundData struct {
	Phase       string       `json:"phase"`
	StartWord   string       `json:"start_word"`
	Chain       []ChainEntry `json:"chain"`
	ChainLength int          `json:"chain_length"`
}

type ChainResults struct {
	FinalChain  []string     `json:"final_chain"`
	RoundScores []RoundScore `json:"round_scores"`
}

func DecodeChainRound(round *redis_models.Round) (*ChainRoundData, error) {
	var data ChainRoundData
	if err := readRoundData(round, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

type WordChain struct{}

func NewWordChain() *WordChain { return &WordChain{} }

func (w *WordChain) GameID() string { return game_constants.GameWordChain }

func (w *WordChain) InitializeRound(session *redis_models.GameSession, supply ContentSource) error {
	round := session.GetCurrentRound()
	if round == nil {
		return gameerrors.Internal("session %s has no current round", session.ID)
	}

	start, err := supply.DrawRandomPrompt(PromptKindChainStart)
	if err != nil {
		return gameerrors.Internal("error drawing chain start word: %v", err)
	}

	chainLength := session.SettingInt("chainLength")
	if chainLength <= 0 {
		chainLength = 5
	}

	data := ChainRoundData{
		Phase:       PhaseWordPrompt,
		StartWord:   start,
		Chain:       []ChainEntry{},
		ChainLength: chainLength,
	}
	if err := writeRoundData(round, &data); err != nil {
		return err
	}
	activateRound(round)

	session.UpdateGameState(map[string]interface{}{
		"current_phase": PhaseWordPrompt,
		"start_word":    start,
	})

	log.Printf("[CHAIN-INIT] Round %d initialized for session %s (start=%q, length=%d)",
		round.RoundNumber, session.ID, start, chainLength)
	return nil
}

func (w *WordChain) HandleAction(session *redis_models.GameSession, round *redis_models.Round, userID, actionType string, payload json.RawMessage) (Outcome, error) {
	if actionType != "submit_word" {
		return Outcome{}, gameerrors.Validation("unknown action %q for game %s", actionType, w.GameID())
	}

	var data ChainRoundData
	if err := readRoundData(round, &data); err != nil {
		return Outcome{}, err
	}
	if err := requirePhase(actionType, data.Phase, PhaseWordPrompt); err != nil {
		return Outcome{}, err
	}

	var req struct {
		Word string `json:"word"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return Outcome{}, err
	}
	word := strings.TrimSpace(req.Word)
	if word == "" {
		return Outcome{}, gameerrors.Validation("word must not be empty")
	}

	// Earlier links in the chain score more than later ones.
	position := len(data.Chain)
	ApplyScores(session, []RoundScore{{
		UserID: userID,
		Points: WordChainScore(position),
		Reason: ReasonWordPosition,
	}})
	data.Chain = append(data.Chain, ChainEntry{UserID: userID, Word: word, SubmittedAt: time.Now()})

	if len(data.Chain) >= data.ChainLength {
		data.Phase = PhaseResults
		if err := writeRoundData(round, &data); err != nil {
			return Outcome{}, err
		}

		final := make([]string, 0, len(data.Chain)+1)
		final = append(final, data.StartWord)
		scores := make([]RoundScore, 0, len(data.Chain))
		for i, entry := range data.Chain {
			final = append(final, entry.Word)
			scores = append(scores, RoundScore{UserID: entry.UserID, Points: WordChainScore(i), Reason: ReasonWordPosition})
		}
		if err := writeResults(round, &ChainResults{FinalChain: final, RoundScores: scores}); err != nil {
			return Outcome{}, err
		}
		closeRound(round)
		session.UpdateGameState(map[string]interface{}{"current_phase": PhaseResults})
		return Outcome{RoundComplete: true}, nil
	}

	if err := writeRoundData(round, &data); err != nil {
		return Outcome{}, err
	}
	return Outcome{}, nil
}
