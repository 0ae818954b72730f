package variants

import (
	game_constants "wordparty/constants/game"
	redis_models "wordparty/models/redis"
)

// Score reasons recorded on round results.
const (
	ReasonFooledEveryone = "fooled_everyone"
	ReasonCaught         = "caught"
	ReasonCorrectGuess   = "correct_guess"
	ReasonWrongGuess     = "wrong_guess"
	ReasonWordPosition   = "word_position"
	ReasonSentence       = "sentence"
	ReasonManual         = "manual"
)

// RoundScore is one player's point delta for a finished round.
type RoundScore struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`
	Reason string `json:"reason,omitempty"`
}

// ApplyScores adds the round deltas to the roster. Scores are monotonically
// non-decreasing once a session starts; callers validate deltas before
// applying.
func ApplyScores(session *redis_models.GameSession, scores []RoundScore) {
	for _, score := range scores {
		if player := session.FindPlayer(score.UserID); player != nil {
			player.Score += score.Points
		}
	}
}

// ComputeIntruderScores implements the automatic Word-Intruder scoring rule.
//
// mostVotedFor is the strict-plurality winner; ties break to the first
// candidate reaching the max count in vote-submission order. If the intruder
// received zero votes they fooled everyone and score 3. Otherwise, if the
// intruder is the plurality winner, every non-intruder who voted for them
// scores 1 and the intruder scores 0; in all other cases everyone scores 0.
func ComputeIntruderScores(players []*redis_models.Player, votes []VoteEntry, intruderID string) ([]RoundScore, string, bool) {
	voteCounts := make(map[string]int)
	mostVotedFor := ""
	bestCount := 0
	for _, vote := range votes {
		voteCounts[vote.VotedForID]++
		if voteCounts[vote.VotedForID] > bestCount {
			bestCount = voteCounts[vote.VotedForID]
			mostVotedFor = vote.VotedForID
		}
	}

	intruderCaught := mostVotedFor == intruderID
	fooledEveryone := voteCounts[intruderID] == 0

	votedForIntruder := make(map[string]bool)
	for _, vote := range votes {
		if vote.VotedForID == intruderID {
			votedForIntruder[vote.VoterID] = true
		}
	}

	scores := make([]RoundScore, 0, len(players))
	for _, player := range players {
		score := RoundScore{UserID: player.UserID}
		switch {
		case player.UserID == intruderID && fooledEveryone:
			score.Points = game_constants.IntruderEscapePoints
			score.Reason = ReasonFooledEveryone
		case player.UserID == intruderID:
			score.Reason = ReasonCaught
		case intruderCaught && votedForIntruder[player.UserID]:
			score.Points = game_constants.IntruderCatchPoints
			score.Reason = ReasonCorrectGuess
		default:
			score.Reason = ReasonWrongGuess
		}
		scores = append(scores, score)
	}

	return scores, mostVotedFor, intruderCaught
}

// WordChainScore returns the points for the word at the given 0-indexed chain
// position: earlier contributions score more, clamped at the minimum.
func WordChainScore(position int) int {
	points := game_constants.WordChainMaxPoints - position
	if points < game_constants.WordChainMinPoints {
		return game_constants.WordChainMinPoints
	}
	return points
}
