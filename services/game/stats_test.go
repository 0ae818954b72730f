package game

import (
	"encoding/json"
	"testing"
	"time"

	game_constants "wordparty/constants/game"
	postgres_models "wordparty/models/postgres"
	redis_models "wordparty/models/redis"
	"wordparty/services/game/variants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedSession(t *testing.T, gameID string, scores map[string]int) *redis_models.GameSession {
	t.Helper()
	session := redis_models.NewGameSession(gameID, gameID, "stats test", "alice", map[string]interface{}{})
	session.ID = "stats-session"
	session.Status = redis_models.SessionStatusFinished
	start := time.Now().Add(-5 * time.Minute)
	end := time.Now()
	session.StartedAt = &start
	session.EndedAt = &end
	for user, score := range scores {
		session.Players = append(session.Players, redis_models.Player{
			UserID: user, Username: user, IsActive: true, Score: score,
		})
	}
	return session
}

func addFinishedRound(t *testing.T, session *redis_models.GameSession, data interface{}, actors ...string) {
	t.Helper()
	round := session.AppendRound()
	session.CurrentRound = len(session.Rounds) - 1
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	round.Data = raw
	round.Status = redis_models.RoundStatusFinished
	for _, actor := range actors {
		session.AppendAction(actor, "test_action", nil)
	}
}

func TestComputeStatDeltasIntruder(t *testing.T) {
	session := finishedSession(t, game_constants.GameWordIntruder,
		map[string]int{"alice": 2, "bob": 1, "carol": 3})

	// Round 1: carol is the intruder and escapes unvoted.
	addFinishedRound(t, session, variants.IntruderRoundData{
		Phase:      variants.PhaseResults,
		IntruderID: "carol",
		Votes: []variants.VoteEntry{
			{VoterID: "alice", VotedForID: "bob"},
			{VoterID: "bob", VotedForID: "alice"},
			{VoterID: "carol", VotedForID: "bob"},
		},
	}, "alice", "bob", "carol")

	// Round 2: bob is the intruder and gets caught by alice.
	addFinishedRound(t, session, variants.IntruderRoundData{
		Phase:      variants.PhaseResults,
		IntruderID: "bob",
		Votes: []variants.VoteEntry{
			{VoterID: "alice", VotedForID: "bob"},
			{VoterID: "bob", VotedForID: "carol"},
			{VoterID: "carol", VotedForID: "bob"},
		},
	}, "alice", "bob", "carol")

	deltas := ComputeStatDeltas(session)
	byUser := make(map[string]postgres_models.UserStatsDelta)
	for _, d := range deltas {
		byUser[d.UserID] = d
	}

	require.Len(t, byUser, 3)
	assert.Equal(t, 1, byUser["carol"].TimesIntruder)
	assert.Equal(t, 1, byUser["carol"].IntruderEscapes)
	assert.Equal(t, 1, byUser["bob"].TimesIntruder)
	assert.Equal(t, 0, byUser["bob"].IntruderEscapes)
	assert.Equal(t, 2, byUser["alice"].CorrectVotes, "alice found the intruder both rounds")
	assert.Equal(t, 1, byUser["carol"].CorrectVotes)

	assert.Equal(t, 1, byUser["carol"].GamesWon, "top score wins")
	assert.Equal(t, 0, byUser["alice"].GamesWon)
	assert.Equal(t, 3, byUser["carol"].TotalScore)
	assert.Equal(t, 3, byUser["carol"].BestScore)
	assert.Equal(t, 2, byUser["alice"].RoundsPlayed)
}

func TestComputeStatDeltasOnlyForFinishedSessions(t *testing.T) {
	session := finishedSession(t, game_constants.GameWordChain, map[string]int{"alice": 5})
	session.Status = redis_models.SessionStatusPlaying
	assert.Nil(t, ComputeStatDeltas(session))
}

func TestComputeStatDeltasSkipsUnfinishedRounds(t *testing.T) {
	session := finishedSession(t, game_constants.GameWordChain, map[string]int{"alice": 10, "bob": 10})
	addFinishedRound(t, session, variants.ChainRoundData{
		Phase: variants.PhaseResults,
		Chain: []variants.ChainEntry{
			{UserID: "alice", Word: "wave"},
			{UserID: "bob", Word: "surf"},
		},
	}, "alice", "bob")

	// An abandoned in-flight round must not count.
	round := session.AppendRound()
	session.CurrentRound = len(session.Rounds) - 1
	round.Status = redis_models.RoundStatusActive
	session.AppendAction("alice", "submit_word", nil)

	deltas := ComputeStatDeltas(session)
	byUser := make(map[string]postgres_models.UserStatsDelta)
	for _, d := range deltas {
		byUser[d.UserID] = d
	}

	assert.Equal(t, 1, byUser["alice"].RoundsPlayed)
	assert.Equal(t, 1, byUser["alice"].WordsContributed)
	assert.Equal(t, 1, byUser["bob"].WordsContributed)
	// Both players share the top score; both count a win.
	assert.Equal(t, 1, byUser["alice"].GamesWon)
	assert.Equal(t, 1, byUser["bob"].GamesWon)
}
