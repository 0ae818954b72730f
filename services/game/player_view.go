package game

import (
	"encoding/json"

	game_constants "wordparty/constants/game"
	redis_models "wordparty/models/redis"
	gameerrors "wordparty/services/game/errors"
	"wordparty/services/game/variants"
)

// PlayerSummary is the roster entry shape exposed to clients.
type PlayerSummary struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsHost   bool   `json:"is_host"`
	IsReady  bool   `json:"is_ready"`
	IsActive bool   `json:"is_active"`
	Score    int    `json:"score"`
}

// PlayerView is one player's redacted window into a session: hidden-role and
// hidden-word material belonging to other players never leaves the engine.
type PlayerView struct {
	SessionID    string                 `json:"session_id"`
	GameID       string                 `json:"game_id"`
	GameName     string                 `json:"game_name"`
	SessionName  string                 `json:"session_name"`
	LobbyCode    string                 `json:"lobby_code,omitempty"`
	Status       string                 `json:"status"`
	Players      []PlayerSummary        `json:"players"`
	Settings     map[string]interface{} `json:"settings"`
	CurrentRound int                    `json:"current_round"`
	TotalRounds  int                    `json:"total_rounds"`
	GameState    json.RawMessage        `json:"game_state,omitempty"`
	Round        map[string]interface{} `json:"round,omitempty"`
}

// GetPlayerView builds the view of a session as one member may see it.
func (gs *GameService) GetPlayerView(sessionId, userID string) (*PlayerView, error) {
	session, err := gs.store.GetGameSession(sessionId)
	if err != nil {
		return nil, err
	}
	player := session.FindPlayer(userID)
	if player == nil {
		return nil, gameerrors.NotFound("player %s is not a member of session %s", userID, sessionId)
	}

	view := &PlayerView{
		SessionID:    session.ID,
		GameID:       session.GameID,
		GameName:     session.GameName,
		SessionName:  session.SessionName,
		Status:       string(session.Status),
		Settings:     session.Settings,
		CurrentRound: session.CurrentRound,
		TotalRounds:  session.TotalRounds,
		GameState:    session.GameState,
	}
	if session.Status == redis_models.SessionStatusLobby {
		view.LobbyCode = session.LobbyCode
	}
	for i := range session.Players {
		p := &session.Players[i]
		view.Players = append(view.Players, PlayerSummary{
			UserID:   p.UserID,
			Username: p.Username,
			IsHost:   p.IsHost,
			IsReady:  p.IsReady,
			IsActive: p.IsActive,
			Score:    p.Score,
		})
	}

	round := session.GetCurrentRound()
	if round != nil {
		roundView, err := redactRound(session, round, userID)
		if err != nil {
			return nil, err
		}
		view.Round = roundView
	}
	return view, nil
}

// redactRound strips round data down to what the requesting player may know
// in the current phase.
func redactRound(session *redis_models.GameSession, round *redis_models.Round, userID string) (map[string]interface{}, error) {
	view := map[string]interface{}{
		"round_number": round.RoundNumber,
		"status":       round.Status,
	}
	if len(round.Results) > 0 {
		view["results"] = round.Results
	}

	switch session.GameID {
	case game_constants.GameWordIntruder:
		data, err := variants.DecodeIntruderRound(round)
		if err != nil {
			return nil, err
		}
		view["phase"] = data.Phase
		view["game_mode"] = data.GameMode
		view["clues"] = data.Clues
		view["votes_submitted"] = len(data.Votes)
		view["current_clue_giver"] = data.CurrentClueGiver
		view["current_word_reader"] = data.CurrentWordReader
		// Your own word only; the intruder's identity stays hidden until the
		// round resolves.
		for _, entry := range data.PlayerWords {
			if entry.UserID == userID {
				view["your_word"] = entry.Word
			}
		}
		if data.Phase == variants.PhaseResults {
			view["intruder_id"] = data.IntruderID
			view["votes"] = data.Votes
			view["common_word"] = data.CommonWord
			view["intruder_word"] = data.IntruderWord
		}
		// The single-device host runs assignment and scoring, so they see
		// the full deal.
		if host := session.FindPlayer(userID); host != nil && host.IsHost && data.GameMode == variants.ModeSingleDevice {
			view["player_words"] = data.PlayerWords
			view["intruder_id"] = data.IntruderID
		}

	case game_constants.GameWordChain:
		data, err := variants.DecodeChainRound(round)
		if err != nil {
			return nil, err
		}
		view["phase"] = data.Phase
		view["start_word"] = data.StartWord
		view["chain"] = data.Chain
		view["chain_length"] = data.ChainLength

	case game_constants.GameStoryBuilder:
		data, err := variants.DecodeStoryRound(round)
		if err != nil {
			return nil, err
		}
		view["phase"] = data.Phase
		view["prompt"] = data.Prompt
		view["sentences"] = data.Sentences
		view["story_length"] = data.StoryLength

	case game_constants.GameQuickDraw:
		data, err := variants.DecodeDrawRound(round)
		if err != nil {
			return nil, err
		}
		view["phase"] = data.Phase
		view["drawer_id"] = data.DrawerID
		view["guesses"] = data.Guesses
		// Only the drawer knows the word mid-round.
		if userID == data.DrawerID || data.Phase == variants.PhaseResults {
			view["target_word"] = data.TargetWord
		}
		if data.WinnerID != "" {
			view["winner_id"] = data.WinnerID
		}
	}
	return view, nil
}
