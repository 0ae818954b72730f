package variants

import (
	"encoding/json"
	"log"
	"math/rand"
	"strings"
	"time"

	game_constants "wordparty/constants/game"
	redis_models "wordparty/models/redis"
	gameerrors "wordparty/services/game/errors"
)

// Word-Intruder phases. The single-device sub-mode passes one shared device
// around, so it adds the word_assignment/word_reading/manual_scoring phases.
const (
	PhaseWordReveal     = "word_reveal"
	PhaseWordAssignment = "word_assignment"
	PhaseWordReading    = "word_reading"
	PhaseClueGathering  = "clue_gathering"
	PhaseVoting         = "voting"
	PhaseManualScoring  = "manual_scoring"
)

const (
	ModeSingleDevice = "single_device"
	ModeMultiDevice  = "multi_device"
)

// WordAssignmentEntry records which word a player was dealt.
type WordAssignmentEntry struct {
	UserID     string `json:"user_id"`
	Word       string `json:"word"`
	IsIntruder bool   `json:"is_intruder"`
	Revealed   bool   `json:"revealed,omitempty"`
}

type ClueEntry struct {
	UserID      string    `json:"user_id"`
	Clue        string    `json:"clue"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type VoteEntry struct {
	VoterID     string    `json:"voter_id"`
	VotedForID  string    `json:"voted_for_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// IntruderRoundData is the Word-Intruder round payload for both sub-modes.
type IntruderRoundData struct {
	Phase              string                `json:"phase"`
	GameMode           string                `json:"game_mode"`
	CommonWord         string                `json:"common_word"`
	IntruderWord       string                `json:"intruder_word"`
	PlayerWords        []WordAssignmentEntry `json:"player_words"`
	IntruderID         string                `json:"intruder_id,omitempty"`
	ClueStartPlayer    string                `json:"clue_start_player,omitempty"`
	CurrentClueGiver   string                `json:"current_clue_giver,omitempty"`
	CurrentWordReader  string                `json:"current_word_reader,omitempty"`
	ReadyPlayers       []string              `json:"ready_players,omitempty"`
	Clues              []ClueEntry           `json:"clues"`
	Votes              []VoteEntry           `json:"votes"`
	ManualScoring      bool                  `json:"manual_scoring,omitempty"`
	HostAssignedPoints map[string]int        `json:"host_assigned_points,omitempty"`
}

// IntruderResults is the scoring breakdown written to round.Results.
type IntruderResults struct {
	IntruderCaught bool         `json:"intruder_caught"`
	MostVotedFor   string       `json:"most_voted_for"`
	RoundScores    []RoundScore `json:"round_scores"`
	Manual         bool         `json:"manual,omitempty"`
}

// DecodeIntruderRound reads the Word-Intruder payload of a round. Used by the
// statistics aggregator when replaying finished sessions.
func DecodeIntruderRound(round *redis_models.Round) (*IntruderRoundData, error) {
	var data IntruderRoundData
	if err := readRoundData(round, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

type WordIntruder struct{}

func NewWordIntruder() *WordIntruder { return &WordIntruder{} }

func (w *WordIntruder) GameID() string { return game_constants.GameWordIntruder }

func (w *WordIntruder) InitializeRound(session *redis_models.GameSession, supply ContentSource) error {
	round := session.GetCurrentRound()
	if round == nil {
		return gameerrors.Internal("session %s has no current round", session.ID)
	}

	pairs, err := supply.DrawRandomWordPairs(game_constants.WordPairDrawCount)
	if err != nil {
		return gameerrors.Internal("error drawing word pairs: %v", err)
	}
	if len(pairs) == 0 {
		return gameerrors.Internal("word pair supply is empty")
	}
	pair := pairs[rand.Intn(len(pairs))]

	active := session.ActivePlayers()
	mode := session.SettingString("gameMode")
	if mode == "" {
		mode = ModeMultiDevice
	}

	intruderID := ""
	if session.SettingBool("autoAssignIntruder") {
		intruderID = active[rand.Intn(len(active))].UserID
	}

	playerWords := make([]WordAssignmentEntry, 0, len(active))
	for _, player := range active {
		entry := WordAssignmentEntry{UserID: player.UserID, Word: pair.CommonWord}
		if intruderID != "" && player.UserID == intruderID {
			entry.Word = pair.IntruderWord
			entry.IsIntruder = true
		}
		playerWords = append(playerWords, entry)
	}

	clueStart := clueStartPlayer(session, active)

	phase := PhaseWordAssignment
	if mode == ModeMultiDevice && intruderID != "" {
		phase = PhaseWordReveal
	}

	data := IntruderRoundData{
		Phase:            phase,
		GameMode:         mode,
		CommonWord:       pair.CommonWord,
		IntruderWord:     pair.IntruderWord,
		PlayerWords:      playerWords,
		IntruderID:       intruderID,
		ClueStartPlayer:  clueStart,
		CurrentClueGiver: clueStart,
		Clues:            []ClueEntry{},
		Votes:            []VoteEntry{},
		ManualScoring:    session.SettingBool("manualScoring"),
	}
	if err := writeRoundData(round, &data); err != nil {
		return err
	}
	activateRound(round)

	session.UpdateGameState(map[string]interface{}{
		"current_phase":     phase,
		"game_mode":         mode,
		"intruder_id":       intruderID,
		"clue_start_player": clueStart,
	})

	log.Printf("[INTRUDER-INIT] Round %d initialized for session %s (mode=%s, phase=%s)",
		round.RoundNumber, session.ID, mode, phase)
	return nil
}

// clueStartPlayer honors the clueStartPlayer setting override when it names
// an active player, and picks at random otherwise.
func clueStartPlayer(session *redis_models.GameSession, active []*redis_models.Player) string {
	if preferred := session.SettingString("clueStartPlayer"); preferred != "" {
		for _, p := range active {
			if p.UserID == preferred {
				return preferred
			}
		}
	}
	return active[rand.Intn(len(active))].UserID
}

// ensureActiveTurn moves a turn pointer off a player who left mid-round so
// the rotation cannot strand on them. Walks the roster in join order.
func ensureActiveTurn(session *redis_models.GameSession, holder string) string {
	if p := session.FindPlayer(holder); p != nil && p.IsActive {
		return holder
	}
	start := -1
	for i := range session.Players {
		if session.Players[i].UserID == holder {
			start = i
			break
		}
	}
	n := len(session.Players)
	for off := 1; off <= n; off++ {
		p := &session.Players[(start+off+n)%n]
		if p.IsActive {
			return p.UserID
		}
	}
	return holder
}

// countFromActive counts the entries whose owner is still an active player,
// so departed players never hold up a phase transition.
func countFromActive(session *redis_models.GameSession, userIDs ...string) int {
	count := 0
	for _, id := range userIDs {
		if p := session.FindPlayer(id); p != nil && p.IsActive {
			count++
		}
	}
	return count
}

func (w *WordIntruder) HandleAction(session *redis_models.GameSession, round *redis_models.Round, userID, actionType string, payload json.RawMessage) (Outcome, error) {
	var data IntruderRoundData
	if err := readRoundData(round, &data); err != nil {
		return Outcome{}, err
	}

	// assign_intruder is shared by both sub-modes: when auto-assignment is
	// disabled the host must place the intruder before play proceeds.
	if actionType == "assign_intruder" {
		if err := w.assignIntruder(session, round, &data, userID, payload); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, nil
	}

	if data.GameMode == ModeSingleDevice {
		return w.handleSingleDevice(session, round, &data, userID, actionType, payload)
	}
	return w.handleMultiDevice(session, round, &data, userID, actionType, payload)
}

func (w *WordIntruder) assignIntruder(session *redis_models.GameSession, round *redis_models.Round, data *IntruderRoundData, userID string, payload json.RawMessage) error {
	if err := requireHost(session, userID, "assign_intruder"); err != nil {
		return err
	}
	if err := requirePhase("assign_intruder", data.Phase, PhaseWordAssignment); err != nil {
		return err
	}

	var req struct {
		IntruderID string `json:"intruder_id"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	target := session.FindPlayer(req.IntruderID)
	if target == nil || !target.IsActive {
		return gameerrors.Validation("intruder %q is not an active player", req.IntruderID)
	}

	data.IntruderID = req.IntruderID
	for i := range data.PlayerWords {
		isIntruder := data.PlayerWords[i].UserID == req.IntruderID
		data.PlayerWords[i].IsIntruder = isIntruder
		if isIntruder {
			data.PlayerWords[i].Word = data.IntruderWord
		} else {
			data.PlayerWords[i].Word = data.CommonWord
		}
	}
	if data.GameMode == ModeMultiDevice {
		data.Phase = PhaseWordReveal
	}

	if err := writeRoundData(round, data); err != nil {
		return err
	}
	session.UpdateGameState(map[string]interface{}{
		"current_phase": data.Phase,
		"intruder_id":   data.IntruderID,
	})
	return nil
}

func (w *WordIntruder) handleMultiDevice(session *redis_models.GameSession, round *redis_models.Round, data *IntruderRoundData, userID, actionType string, payload json.RawMessage) (Outcome, error) {
	active := session.ActivePlayers()

	switch actionType {
	case "reveal_word":
		if err := requirePhase(actionType, data.Phase, PhaseWordReveal); err != nil {
			return Outcome{}, err
		}
		for i := range data.PlayerWords {
			if data.PlayerWords[i].UserID == userID {
				data.PlayerWords[i].Revealed = true
			}
		}
		if err := writeRoundData(round, data); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, nil

	case "ready_for_clues":
		if err := requirePhase(actionType, data.Phase, PhaseWordReveal); err != nil {
			return Outcome{}, err
		}
		for _, ready := range data.ReadyPlayers {
			if ready == userID {
				return Outcome{}, nil
			}
		}
		data.ReadyPlayers = append(data.ReadyPlayers, userID)
		if countFromActive(session, data.ReadyPlayers...) >= len(active) {
			data.Phase = PhaseClueGathering
			data.CurrentClueGiver = ensureActiveTurn(session, data.ClueStartPlayer)
			session.UpdateGameState(map[string]interface{}{
				"current_phase":      PhaseClueGathering,
				"current_clue_giver": data.CurrentClueGiver,
			})
		}
		if err := writeRoundData(round, data); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, nil

	case "submit_clue":
		if err := w.submitClue(session, round, data, userID, payload); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, nil

	case "submit_vote":
		done, err := w.submitVote(session, round, data, userID, payload)
		if err != nil {
			return Outcome{}, err
		}
		if !done {
			return Outcome{}, nil
		}
		// All votes in: multi-device always scores automatically.
		if err := w.finishWithAutomaticScores(session, round, data); err != nil {
			return Outcome{}, err
		}
		return Outcome{RoundComplete: true}, nil

	default:
		return Outcome{}, gameerrors.Validation("unknown action %q for game %s", actionType, w.GameID())
	}
}

func (w *WordIntruder) handleSingleDevice(session *redis_models.GameSession, round *redis_models.Round, data *IntruderRoundData, userID, actionType string, payload json.RawMessage) (Outcome, error) {
	switch actionType {
	case "ready_to_read_word":
		if err := requirePhase(actionType, data.Phase, PhaseWordAssignment); err != nil {
			return Outcome{}, err
		}
		if data.IntruderID == "" {
			return Outcome{}, gameerrors.StateConflict("intruder must be assigned before word reading starts")
		}
		data.Phase = PhaseWordReading
		data.CurrentWordReader = userID
		if err := writeRoundData(round, data); err != nil {
			return Outcome{}, err
		}
		session.UpdateGameState(map[string]interface{}{
			"current_phase":       PhaseWordReading,
			"current_word_reader": userID,
		})
		return Outcome{}, nil

	case "word_read":
		if err := requirePhase(actionType, data.Phase, PhaseWordReading); err != nil {
			return Outcome{}, err
		}
		data.CurrentWordReader = ensureActiveTurn(session, data.CurrentWordReader)
		if userID != data.CurrentWordReader {
			return Outcome{}, gameerrors.StateConflict("it is not your turn to read the word")
		}
		next, wrapped := nextActive(session, userID)
		if wrapped || next == nil {
			// Everyone has seen their word; the shared device moves to clues.
			data.Phase = PhaseClueGathering
			data.CurrentWordReader = ""
			data.CurrentClueGiver = data.ClueStartPlayer
			session.UpdateGameState(map[string]interface{}{
				"current_phase":      PhaseClueGathering,
				"current_clue_giver": data.CurrentClueGiver,
			})
		} else {
			data.CurrentWordReader = next.UserID
			session.UpdateGameState(map[string]interface{}{
				"current_phase":       PhaseWordReading,
				"current_word_reader": next.UserID,
			})
		}
		if err := writeRoundData(round, data); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, nil

	case "submit_clue":
		if err := w.submitClue(session, round, data, userID, payload); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, nil

	case "submit_vote":
		done, err := w.submitVote(session, round, data, userID, payload)
		if err != nil {
			return Outcome{}, err
		}
		if !done {
			return Outcome{}, nil
		}
		if data.ManualScoring {
			data.Phase = PhaseManualScoring
			if err := writeRoundData(round, data); err != nil {
				return Outcome{}, err
			}
			session.UpdateGameState(map[string]interface{}{"current_phase": PhaseManualScoring})
			return Outcome{}, nil
		}
		if err := w.finishWithAutomaticScores(session, round, data); err != nil {
			return Outcome{}, err
		}
		return Outcome{RoundComplete: true}, nil

	case "set_manual_points":
		if err := requireHost(session, userID, "set_manual_points"); err != nil {
			return Outcome{}, err
		}
		if err := requirePhase(actionType, data.Phase, PhaseManualScoring); err != nil {
			return Outcome{}, err
		}
		var req struct {
			Points map[string]int `json:"points"`
		}
		if err := decodePayload(payload, &req); err != nil {
			return Outcome{}, err
		}
		scores := make([]RoundScore, 0, len(req.Points))
		for playerID, points := range req.Points {
			if points < 0 {
				return Outcome{}, gameerrors.Validation("manual points for %q must not be negative", playerID)
			}
			if p := session.FindPlayer(playerID); p == nil {
				return Outcome{}, gameerrors.Validation("unknown player %q in manual points", playerID)
			}
			scores = append(scores, RoundScore{UserID: playerID, Points: points, Reason: ReasonManual})
		}
		ApplyScores(session, scores)
		data.HostAssignedPoints = req.Points
		data.Phase = PhaseResults
		if err := writeRoundData(round, data); err != nil {
			return Outcome{}, err
		}
		if err := writeResults(round, &IntruderResults{RoundScores: scores, Manual: true}); err != nil {
			return Outcome{}, err
		}
		closeRound(round)
		session.UpdateGameState(map[string]interface{}{"current_phase": PhaseResults})
		return Outcome{RoundComplete: true}, nil

	default:
		return Outcome{}, gameerrors.Validation("unknown action %q for game %s", actionType, w.GameID())
	}
}

// submitClue appends the current clue giver's clue and rotates the turn; the
// round moves to voting once every active player has given one.
func (w *WordIntruder) submitClue(session *redis_models.GameSession, round *redis_models.Round, data *IntruderRoundData, userID string, payload json.RawMessage) error {
	if err := requirePhase("submit_clue", data.Phase, PhaseClueGathering); err != nil {
		return err
	}
	data.CurrentClueGiver = ensureActiveTurn(session, data.CurrentClueGiver)
	if userID != data.CurrentClueGiver {
		return gameerrors.StateConflict("it is not your turn to give a clue")
	}

	var req struct {
		Clue string `json:"clue"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	clue := strings.TrimSpace(req.Clue)
	if clue == "" {
		return gameerrors.Validation("clue must not be empty")
	}

	data.Clues = append(data.Clues, ClueEntry{UserID: userID, Clue: clue, SubmittedAt: time.Now()})

	clueGivers := make([]string, 0, len(data.Clues))
	for _, c := range data.Clues {
		clueGivers = append(clueGivers, c.UserID)
	}
	if countFromActive(session, clueGivers...) >= len(session.ActivePlayers()) {
		data.Phase = PhaseVoting
		data.CurrentClueGiver = ""
		session.UpdateGameState(map[string]interface{}{"current_phase": PhaseVoting})
	} else {
		next, _ := nextActive(session, userID)
		if next != nil {
			data.CurrentClueGiver = next.UserID
		}
		session.UpdateGameState(map[string]interface{}{
			"current_phase":      PhaseClueGathering,
			"current_clue_giver": data.CurrentClueGiver,
		})
	}
	return writeRoundData(round, data)
}

// submitVote records a simultaneous-phase vote. Reports true once the vote
// count equals the active player count.
func (w *WordIntruder) submitVote(session *redis_models.GameSession, round *redis_models.Round, data *IntruderRoundData, userID string, payload json.RawMessage) (bool, error) {
	if err := requirePhase("submit_vote", data.Phase, PhaseVoting); err != nil {
		return false, err
	}
	for _, vote := range data.Votes {
		if vote.VoterID == userID {
			return false, gameerrors.StateConflict("you have already voted this round")
		}
	}

	var req struct {
		VotedForID string `json:"voted_for_id"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return false, err
	}
	target := session.FindPlayer(req.VotedForID)
	if target == nil || !target.IsActive {
		return false, gameerrors.Validation("vote target %q is not an active player", req.VotedForID)
	}

	data.Votes = append(data.Votes, VoteEntry{VoterID: userID, VotedForID: req.VotedForID, SubmittedAt: time.Now()})
	if err := writeRoundData(round, data); err != nil {
		return false, err
	}
	voters := make([]string, 0, len(data.Votes))
	for _, vote := range data.Votes {
		voters = append(voters, vote.VoterID)
	}
	return countFromActive(session, voters...) >= len(session.ActivePlayers()), nil
}

func (w *WordIntruder) finishWithAutomaticScores(session *redis_models.GameSession, round *redis_models.Round, data *IntruderRoundData) error {
	scores, mostVotedFor, caught := ComputeIntruderScores(session.ActivePlayers(), data.Votes, data.IntruderID)
	ApplyScores(session, scores)

	data.Phase = PhaseResults
	if err := writeRoundData(round, data); err != nil {
		return err
	}
	if err := writeResults(round, &IntruderResults{
		IntruderCaught: caught,
		MostVotedFor:   mostVotedFor,
		RoundScores:    scores,
	}); err != nil {
		return err
	}
	closeRound(round)
	session.UpdateGameState(map[string]interface{}{"current_phase": PhaseResults})

	log.Printf("[INTRUDER-RESULTS] Session %s round %d: intruder_caught=%t most_voted=%s",
		session.ID, round.RoundNumber, caught, mostVotedFor)
	return nil
}
