package game

import (
	"log"

	game_constants "wordparty/constants/game"
	postgres_models "wordparty/models/postgres"
	redis_models "wordparty/models/redis"
	"wordparty/services/game/variants"
)

// ComputeStatDeltas replays a finished session's rounds into one batched
// stats delta per player. A pure read: the session is never mutated here.
func ComputeStatDeltas(session *redis_models.GameSession) []postgres_models.UserStatsDelta {
	if session.Status != redis_models.SessionStatusFinished {
		return nil
	}

	deltas := make(map[string]*postgres_models.UserStatsDelta)
	delta := func(userID string) *postgres_models.UserStatsDelta {
		d, ok := deltas[userID]
		if !ok {
			d = &postgres_models.UserStatsDelta{UserID: userID, GameID: session.GameID}
			deltas[userID] = d
		}
		return d
	}

	topScore := 0
	for i := range session.Players {
		if session.Players[i].Score > topScore {
			topScore = session.Players[i].Score
		}
	}

	for i := range session.Players {
		p := &session.Players[i]
		d := delta(p.UserID)
		d.GamesPlayed = 1
		d.TotalScore = p.Score
		d.BestScore = p.Score
		if topScore > 0 && p.Score == topScore {
			d.GamesWon = 1
		}
	}

	for i := range session.Rounds {
		round := &session.Rounds[i]
		if round.Status != redis_models.RoundStatusFinished {
			continue
		}
		for userID := range roundParticipants(round) {
			delta(userID).RoundsPlayed++
		}
		replayRound(session.GameID, round, delta)
	}

	out := make([]postgres_models.UserStatsDelta, 0, len(deltas))
	for _, d := range deltas {
		out = append(out, *d)
	}
	return out
}

func roundParticipants(round *redis_models.Round) map[string]struct{} {
	seen := make(map[string]struct{})
	for i := range round.Actions {
		seen[round.Actions[i].UserID] = struct{}{}
	}
	return seen
}

// replayRound extracts the variant-specific counters from one round's data.
func replayRound(gameID string, round *redis_models.Round, delta func(string) *postgres_models.UserStatsDelta) {
	switch gameID {
	case game_constants.GameWordIntruder:
		data, err := variants.DecodeIntruderRound(round)
		if err != nil {
			log.Printf("[STATS-REPLAY] Skipping unreadable intruder round %d: %v", round.RoundNumber, err)
			return
		}
		if data.IntruderID == "" {
			return
		}
		delta(data.IntruderID).TimesIntruder++
		votedForIntruder := 0
		for _, vote := range data.Votes {
			if vote.VotedForID == data.IntruderID {
				delta(vote.VoterID).CorrectVotes++
				votedForIntruder++
			}
		}
		if votedForIntruder == 0 {
			delta(data.IntruderID).IntruderEscapes++
		}

	case game_constants.GameWordChain:
		data, err := variants.DecodeChainRound(round)
		if err != nil {
			log.Printf("[STATS-REPLAY] Skipping unreadable chain round %d: %v", round.RoundNumber, err)
			return
		}
		for _, entry := range data.Chain {
			delta(entry.UserID).WordsContributed++
		}

	case game_constants.GameStoryBuilder:
		data, err := variants.DecodeStoryRound(round)
		if err != nil {
			log.Printf("[STATS-REPLAY] Skipping unreadable story round %d: %v", round.RoundNumber, err)
			return
		}
		for _, entry := range data.Sentences {
			delta(entry.UserID).SentencesWritten++
		}

	case game_constants.GameQuickDraw:
		data, err := variants.DecodeDrawRound(round)
		if err != nil {
			log.Printf("[STATS-REPLAY] Skipping unreadable draw round %d: %v", round.RoundNumber, err)
			return
		}
		if data.WinnerID != "" {
			delta(data.WinnerID).CorrectGuesses++
		}
	}
}
