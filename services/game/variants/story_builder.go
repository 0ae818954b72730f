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

const PhaseStoryBuilding = "story_building"

type SentenceEntry struct {
	UserID      string    `json:"user_id"`
	Sentence    string    `json:"sentence"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// StoryRoundData is the Collaborative Story round payload. Each sentence keeps
// its author so scoring credits whoever actually submitted it, regardless of
// roster order.
type StoryRoundData struct {
	Phase       string          `json:"phase"`
	Prompt      string          `json:"prompt"`
	Sentences   []SentenceEntry `json:"sentences"`
	StoryLength int             `json:"story_length"`
}

type StoryResults struct {
	FullStory   string       `json:"full_story"`
	RoundScores []RoundScore `json:"round_scores"`
}

func DecodeStoryRound(round *redis_models.Round) (*StoryRoundData, error) {
	var data StoryRoundData
	if err := readRoundData(round, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

type StoryBuilder struct{}

func NewStoryBuilder() *StoryBuilder { return &StoryBuilder{} }

func (s *StoryBuilder) GameID() string { return game_constants.GameStoryBuilder }

func (s *StoryBuilder) InitializeRound(session *redis_models.GameSession, supply ContentSource) error {
	round := session.GetCurrentRound()
	if round == nil {
		return gameerrors.Internal("session %s has no current round", session.ID)
	}

	prompt, err := supply.DrawRandomPrompt(PromptKindStoryPrompt)
	if err != nil {
		return gameerrors.Internal("error drawing story prompt: %v", err)
	}

	storyLength := session.SettingInt("storyLength")
	if storyLength <= 0 {
		storyLength = 5
	}

	data := StoryRoundData{
		Phase:       PhaseStoryBuilding,
		Prompt:      prompt,
		Sentences:   []SentenceEntry{},
		StoryLength: storyLength,
	}
	if err := writeRoundData(round, &data); err != nil {
		return err
	}
	activateRound(round)

	session.UpdateGameState(map[string]interface{}{
		"current_phase": PhaseStoryBuilding,
		"story_prompt":  prompt,
	})

	log.Printf("[STORY-INIT] Round %d initialized for session %s (length=%d)",
		round.RoundNumber, session.ID, storyLength)
	return nil
}

func (s *StoryBuilder) HandleAction(session *redis_models.GameSession, round *redis_models.Round, userID, actionType string, payload json.RawMessage) (Outcome, error) {
	if actionType != "submit_sentence" {
		return Outcome{}, gameerrors.Validation("unknown action %q for game %s", actionType, s.GameID())
	}

	var data StoryRoundData
	if err := readRoundData(round, &data); err != nil {
		return Outcome{}, err
	}
	if err := requirePhase(actionType, data.Phase, PhaseStoryBuilding); err != nil {
		return Outcome{}, err
	}

	var req struct {
		Sentence string `json:"sentence"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return Outcome{}, err
	}
	sentence := strings.TrimSpace(req.Sentence)
	if sentence == "" {
		return Outcome{}, gameerrors.Validation("sentence must not be empty")
	}

	data.Sentences = append(data.Sentences, SentenceEntry{UserID: userID, Sentence: sentence, SubmittedAt: time.Now()})
	ApplyScores(session, []RoundScore{{
		UserID: userID,
		Points: game_constants.StoryPointsPerSentence,
		Reason: ReasonSentence,
	}})

	if len(data.Sentences) >= data.StoryLength {
		data.Phase = PhaseResults
		if err := writeRoundData(round, &data); err != nil {
			return Outcome{}, err
		}

		parts := make([]string, 0, len(data.Sentences)+1)
		parts = append(parts, data.Prompt)
		scores := make([]RoundScore, 0, len(data.Sentences))
		for _, entry := range data.Sentences {
			parts = append(parts, entry.Sentence)
			scores = append(scores, RoundScore{UserID: entry.UserID, Points: game_constants.StoryPointsPerSentence, Reason: ReasonSentence})
		}
		if err := writeResults(round, &StoryResults{FullStory: strings.Join(parts, " "), RoundScores: scores}); err != nil {
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
