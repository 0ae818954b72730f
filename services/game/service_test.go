package game

import (
	"encoding/json"
	"fmt"
	"regexp"
	stdsync "sync"
	"testing"

	game_constants "wordparty/constants/game"
	postgres_models "wordparty/models/postgres"
	redis_models "wordparty/models/redis"
	gameerrors "wordparty/services/game/errors"
	"wordparty/services/game/variants"
	appsync "wordparty/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// memStore is an in-memory SessionStore with the same CAS semantics as the
// Redis client.
type memStore struct {
	mu        stdsync.Mutex
	sessions  map[string][]byte
	codes     map[string]string
	denyCodes bool
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string][]byte),
		codes:    make(map[string]string),
	}
}

func (m *memStore) SaveGameSession(session *redis_models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	m.sessions[session.ID] = data
	return nil
}

func (m *memStore) SaveGameSessionCAS(session *redis_models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.sessions[session.ID]; ok {
		var current redis_models.GameSession
		if err := json.Unmarshal(stored, &current); err != nil {
			return err
		}
		if current.Version != session.Version {
			return gameerrors.ErrVersionConflict
		}
	}
	session.Version++
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	m.sessions[session.ID] = data
	return nil
}

func (m *memStore) GetGameSession(sessionId string) (*redis_models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[sessionId]
	if !ok {
		return nil, gameerrors.NotFound("session %s not found", sessionId)
	}
	var session redis_models.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (m *memStore) DeleteGameSession(session *redis_models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, session.ID)
	delete(m.codes, session.LobbyCode)
	return nil
}

func (m *memStore) ClaimLobbyCode(code string, sessionId string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denyCodes {
		return false, nil
	}
	if _, taken := m.codes[code]; taken {
		return false, nil
	}
	m.codes[code] = sessionId
	return true, nil
}

func (m *memStore) ReleaseLobbyCode(code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, code)
	return nil
}

func (m *memStore) GetSessionIDByCode(code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionId, ok := m.codes[code]
	if !ok {
		return "", gameerrors.NotFound("no session with lobby code %s", code)
	}
	return sessionId, nil
}

func (m *memStore) ListPublicSessions() ([]*redis_models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*redis_models.GameSession
	for _, data := range m.sessions {
		var session redis_models.GameSession
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, err
		}
		if !session.IsPrivate && session.Status == redis_models.SessionStatusLobby {
			out = append(out, &session)
		}
	}
	return out, nil
}

type memCatalog struct {
	defs map[string]*postgres_models.GameDefinition
}

func (m *memCatalog) FindActiveGameDefinition(gameID string) (*postgres_models.GameDefinition, error) {
	def, ok := m.defs[gameID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return def, nil
}

type memSupply struct {
	pair   variants.WordPair
	prompt string
}

func (m *memSupply) DrawRandomWordPairs(n int) ([]variants.WordPair, error) {
	return []variants.WordPair{m.pair}, nil
}

func (m *memSupply) DrawRandomPrompt(kind string) (string, error) {
	return m.prompt, nil
}

type memStats struct {
	mu     stdsync.Mutex
	deltas []postgres_models.UserStatsDelta
}

func (m *memStats) ApplyStatDeltas(deltas []postgres_models.UserStatsDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deltas = append(m.deltas, deltas...)
	return nil
}

func (m *memStats) byUser() map[string]postgres_models.UserStatsDelta {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]postgres_models.UserStatsDelta)
	for _, d := range m.deltas {
		out[d.UserID] = d
	}
	return out
}

func mustJSON(t *testing.T, v interface{}) datatypes.JSON {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return datatypes.JSON(data)
}

func chainDefinition(t *testing.T) *postgres_models.GameDefinition {
	min, max := 3.0, 10.0
	return &postgres_models.GameDefinition{
		ID:            game_constants.GameWordChain,
		Name:          "Word Chain",
		MinPlayers:    2,
		MaxPlayers:    4,
		DefaultRounds: 10,
		SettingsSchema: mustJSON(t, map[string]postgres_models.SettingField{
			"chainLength": {Type: "number", Default: 5.0, Min: &min, Max: &max},
			"autoStart":   {Type: "boolean", Default: false},
		}),
		DefaultSettings: mustJSON(t, map[string]interface{}{
			"chainLength": 5,
			"autoStart":   false,
		}),
		IsActive: true,
	}
}

func newTestService(t *testing.T) (*GameService, *memStore, *memStats) {
	store := newMemStore()
	stats := &memStats{}
	catalog := &memCatalog{defs: map[string]*postgres_models.GameDefinition{
		game_constants.GameWordChain: chainDefinition(t),
	}}
	supply := &memSupply{prompt: "ocean", pair: variants.WordPair{CommonWord: "beach", IntruderWord: "desert"}}
	svc := NewGameService(store, catalog, supply, variants.DefaultRegistry(), appsync.NewSessionLocks(), stats)
	return svc, store, stats
}

func createChainSession(t *testing.T, svc *GameService, rounds, chainLength int) *redis_models.GameSession {
	t.Helper()
	session, err := svc.CreateSession(CreateSessionRequest{
		GameID:      game_constants.GameWordChain,
		SessionName: "friday night",
		HostUserID:  "alice",
		HostName:    "Alice",
		TotalRounds: rounds,
		Settings:    map[string]interface{}{"chainLength": chainLength},
	})
	require.NoError(t, err)
	return session
}

func TestCreateSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	session := createChainSession(t, svc, 2, 3)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), session.LobbyCode)
	assert.Equal(t, redis_models.SessionStatusLobby, session.Status)
	assert.Equal(t, 2, session.TotalRounds)
	assert.Equal(t, 2, session.MinPlayers)
	assert.Equal(t, 4, session.MaxPlayers)

	require.Len(t, session.Players, 1)
	assert.True(t, session.Players[0].IsHost)
	assert.False(t, session.Players[0].IsReady)

	// Overrides land on top of catalog defaults.
	assert.Equal(t, 3, session.SettingInt("chainLength"))
	assert.False(t, session.SettingBool("autoStart"))

	t.Run("unknown game", func(t *testing.T) {
		_, err := svc.CreateSession(CreateSessionRequest{GameID: "chess", HostUserID: "alice", HostName: "Alice"})
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindNotFound))
	})

	t.Run("unknown setting key", func(t *testing.T) {
		_, err := svc.CreateSession(CreateSessionRequest{
			GameID:     game_constants.GameWordChain,
			HostUserID: "alice", HostName: "Alice",
			Settings: map[string]interface{}{"turboMode": true},
		})
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindValidation))
	})

	t.Run("setting out of declared bounds", func(t *testing.T) {
		_, err := svc.CreateSession(CreateSessionRequest{
			GameID:     game_constants.GameWordChain,
			HostUserID: "alice", HostName: "Alice",
			Settings: map[string]interface{}{"chainLength": 50},
		})
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindValidation))
	})

	t.Run("default rounds from the catalog", func(t *testing.T) {
		s, err := svc.CreateSession(CreateSessionRequest{
			GameID:     game_constants.GameWordChain,
			HostUserID: "bob", HostName: "Bob",
		})
		require.NoError(t, err)
		assert.Equal(t, 10, s.TotalRounds)
	})
}

func TestJoinLeaveAndReady(t *testing.T) {
	svc, _, _ := newTestService(t)
	session := createChainSession(t, svc, 2, 3)

	_, err := svc.JoinSessionByCode(session.LobbyCode, "bob", "Bob")
	require.NoError(t, err)

	t.Run("joining twice conflicts", func(t *testing.T) {
		_, err := svc.JoinSession(session.ID, "bob", "Bob")
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindStateConflict))
	})

	t.Run("unknown lobby code", func(t *testing.T) {
		_, err := svc.JoinSessionByCode("ZZZZZZ", "carol", "Carol")
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindNotFound))
	})

	t.Run("session full", func(t *testing.T) {
		_, err := svc.JoinSession(session.ID, "carol", "Carol")
		require.NoError(t, err)
		_, err = svc.JoinSession(session.ID, "dave", "Dave")
		require.NoError(t, err)
		_, err = svc.JoinSession(session.ID, "erin", "Erin")
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindCapacity))
	})

	t.Run("leaving reassigns the host by join order", func(t *testing.T) {
		updated, err := svc.LeaveSession(session.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, "bob", updated.HostUserID)
		bob := updated.FindPlayer("bob")
		require.NotNil(t, bob)
		assert.True(t, bob.IsHost)
	})

	t.Run("a left player can rejoin into their old slot", func(t *testing.T) {
		updated, err := svc.JoinSession(session.ID, "alice", "Alice")
		require.NoError(t, err)
		alice := updated.FindPlayer("alice")
		require.NotNil(t, alice)
		assert.True(t, alice.IsActive)
		assert.Nil(t, alice.LeftAt)
		assert.False(t, alice.IsHost, "host role stays with bob")
		assert.Len(t, updated.Players, 4, "no duplicate roster entry")
	})

	t.Run("toggle ready flips the flag", func(t *testing.T) {
		updated, err := svc.ToggleReady(session.ID, "bob")
		require.NoError(t, err)
		assert.True(t, updated.FindPlayer("bob").IsReady)

		updated, err = svc.ToggleReady(session.ID, "bob")
		require.NoError(t, err)
		assert.False(t, updated.FindPlayer("bob").IsReady)
	})

	t.Run("last player leaving cancels the session", func(t *testing.T) {
		fresh := createChainSession(t, svc, 2, 3)
		updated, err := svc.LeaveSession(fresh.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, redis_models.SessionStatusCancelled, updated.Status)
		assert.NotNil(t, updated.EndedAt)
	})
}

func TestStartSession(t *testing.T) {
	svc, store, _ := newTestService(t)
	session := createChainSession(t, svc, 2, 3)
	_, err := svc.JoinSession(session.ID, "bob", "Bob")
	require.NoError(t, err)

	t.Run("below minimum ready count", func(t *testing.T) {
		_, err := svc.StartSession(session.ID, "alice")
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindCapacity))
	})

	_, err = svc.ToggleReady(session.ID, "alice")
	require.NoError(t, err)
	_, err = svc.ToggleReady(session.ID, "bob")
	require.NoError(t, err)

	t.Run("only the host starts", func(t *testing.T) {
		_, err := svc.StartSession(session.ID, "bob")
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindStateConflict))
	})

	started, err := svc.StartSession(session.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, redis_models.SessionStatusPlaying, started.Status)
	assert.NotNil(t, started.StartedAt)
	require.Len(t, started.Rounds, 1)
	assert.Equal(t, redis_models.RoundStatusActive, started.Rounds[0].Status)

	// The code points nowhere once play begins.
	_, err = store.GetSessionIDByCode(session.LobbyCode)
	assert.True(t, gameerrors.IsKind(err, gameerrors.KindNotFound))

	t.Run("double start conflicts", func(t *testing.T) {
		_, err := svc.StartSession(session.ID, "alice")
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindStateConflict))
	})
}

func TestAutoStart(t *testing.T) {
	svc, _, _ := newTestService(t)
	session, err := svc.CreateSession(CreateSessionRequest{
		GameID:      game_constants.GameWordChain,
		HostUserID:  "alice",
		HostName:    "Alice",
		TotalRounds: 2,
		Settings:    map[string]interface{}{"autoStart": true},
	})
	require.NoError(t, err)
	_, err = svc.JoinSession(session.ID, "bob", "Bob")
	require.NoError(t, err)

	updated, err := svc.ToggleReady(session.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, redis_models.SessionStatusLobby, updated.Status, "one unready player holds the lobby")

	updated, err = svc.ToggleReady(session.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, redis_models.SessionStatusPlaying, updated.Status, "last ready toggle starts the session")
}

func submitWord(t *testing.T, svc *GameService, sessionId, userID, word string) *redis_models.GameSession {
	t.Helper()
	session, err := svc.SubmitAction(sessionId, userID, "submit_word",
		json.RawMessage(fmt.Sprintf(`{"word":%q}`, word)))
	require.NoError(t, err)
	return session
}

func startedChainSession(t *testing.T, svc *GameService, rounds, chainLength int, users ...string) *redis_models.GameSession {
	t.Helper()
	session := createChainSession(t, svc, rounds, chainLength)
	for _, user := range users[1:] {
		_, err := svc.JoinSession(session.ID, user, user)
		require.NoError(t, err)
	}
	for _, user := range users {
		_, err := svc.ToggleReady(session.ID, user)
		require.NoError(t, err)
	}
	started, err := svc.StartSession(session.ID, users[0])
	require.NoError(t, err)
	return started
}

func TestFullGameToFinish(t *testing.T) {
	svc, _, stats := newTestService(t)
	session := startedChainSession(t, svc, 2, 3, "alice", "bob")

	// Round 1: alice opens, bob closes.
	submitWord(t, svc, session.ID, "alice", "wave")
	submitWord(t, svc, session.ID, "bob", "surf")
	updated := submitWord(t, svc, session.ID, "alice", "board")

	assert.Equal(t, redis_models.SessionStatusPlaying, updated.Status)
	assert.Equal(t, 1, updated.CurrentRound, "round 2 active after round 1 completes")
	require.Len(t, updated.Rounds, 2)
	assert.Equal(t, redis_models.RoundStatusActive, updated.Rounds[1].Status)

	// Round 2: bob takes everything.
	submitWord(t, svc, session.ID, "bob", "salt")
	submitWord(t, svc, session.ID, "bob", "shore")
	final := submitWord(t, svc, session.ID, "bob", "tide")

	assert.Equal(t, redis_models.SessionStatusFinished, final.Status)
	assert.NotNil(t, final.EndedAt)
	// Round 1: alice 10+8, bob 9. Round 2: bob 10+9+8.
	assert.Equal(t, 18, final.FindPlayer("alice").Score)
	assert.Equal(t, 36, final.FindPlayer("bob").Score)

	byUser := stats.byUser()
	require.Contains(t, byUser, "alice")
	require.Contains(t, byUser, "bob")
	assert.Equal(t, 1, byUser["bob"].GamesPlayed)
	assert.Equal(t, 1, byUser["bob"].GamesWon)
	assert.Equal(t, 0, byUser["alice"].GamesWon)
	assert.Equal(t, 36, byUser["bob"].TotalScore)
	assert.Equal(t, 2, byUser["bob"].RoundsPlayed)
	assert.Equal(t, 4, byUser["bob"].WordsContributed)
	assert.Equal(t, 2, byUser["alice"].WordsContributed)

	t.Run("actions after finish conflict", func(t *testing.T) {
		_, err := svc.SubmitAction(session.ID, "alice", "submit_word", json.RawMessage(`{"word":"late"}`))
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindStateConflict))
	})
}

func TestSubmitActionAuditTrail(t *testing.T) {
	svc, store, _ := newTestService(t)
	session := startedChainSession(t, svc, 1, 3, "alice", "bob")

	t.Run("non-members are rejected without an audit entry", func(t *testing.T) {
		_, err := svc.SubmitAction(session.ID, "mallory", "submit_word", json.RawMessage(`{"word":"x"}`))
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindNotFound))

		stored, err := store.GetGameSession(session.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Rounds[0].Actions)
	})

	t.Run("semantic rejection keeps the audit append", func(t *testing.T) {
		_, err := svc.SubmitAction(session.ID, "alice", "submit_word", json.RawMessage(`{"word":"  "}`))
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindValidation))

		stored, err := store.GetGameSession(session.ID)
		require.NoError(t, err)
		require.Len(t, stored.Rounds[0].Actions, 1, "rejected action still audited")
		assert.Equal(t, "submit_word", stored.Rounds[0].Actions[0].ActionType)

		data, err := variants.DecodeChainRound(&stored.Rounds[0])
		require.NoError(t, err)
		assert.Empty(t, data.Chain, "no semantic effect from the rejected action")
	})
}

func TestConcurrentSubmissionsLoseNothing(t *testing.T) {
	svc, store, _ := newTestService(t)
	users := []string{"alice", "bob", "carol", "dave"}
	session := startedChainSession(t, svc, 1, 8, users...)

	var wg stdsync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(user, word string) {
			defer wg.Done()
			_, err := svc.SubmitAction(session.ID, user, "submit_word",
				json.RawMessage(fmt.Sprintf(`{"word":%q}`, word)))
			assert.NoError(t, err)
		}(user, fmt.Sprintf("word%d", i))
	}
	wg.Wait()

	stored, err := store.GetGameSession(session.ID)
	require.NoError(t, err)
	data, err := variants.DecodeChainRound(&stored.Rounds[0])
	require.NoError(t, err)
	assert.Len(t, data.Chain, len(users), "every concurrent submission must be recorded")
	assert.Len(t, stored.Rounds[0].Actions, len(users))
}

func TestLobbyCodes(t *testing.T) {
	t.Run("codes use the unambiguous alphabet", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), randomLobbyCode())
		}
	})

	t.Run("saturation fails with code space exhausted", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.denyCodes = true
		_, err := svc.CreateSession(CreateSessionRequest{
			GameID:     game_constants.GameWordChain,
			HostUserID: "alice", HostName: "Alice",
		})
		assert.True(t, gameerrors.IsKind(err, gameerrors.KindCodeSpaceExhausted))
	})
}

// conflictOnFinishStore makes the first save of a finished session lose the
// version race, the way a concurrent writer on another instance would.
type conflictOnFinishStore struct {
	*memStore
	conflicted bool
}

func (s *conflictOnFinishStore) SaveGameSessionCAS(session *redis_models.GameSession) error {
	if !s.conflicted && session.Status == redis_models.SessionStatusFinished {
		s.conflicted = true
		return gameerrors.ErrVersionConflict
	}
	return s.memStore.SaveGameSessionCAS(session)
}

func TestStatDeltasApplyOnceDespiteSaveRetry(t *testing.T) {
	store := &conflictOnFinishStore{memStore: newMemStore()}
	stats := &memStats{}
	catalog := &memCatalog{defs: map[string]*postgres_models.GameDefinition{
		game_constants.GameWordChain: chainDefinition(t),
	}}
	supply := &memSupply{prompt: "ocean"}
	svc := NewGameService(store, catalog, supply, variants.DefaultRegistry(), appsync.NewSessionLocks(), stats)

	session := startedChainSession(t, svc, 1, 3, "alice", "bob")
	submitWord(t, svc, session.ID, "alice", "wave")
	submitWord(t, svc, session.ID, "bob", "surf")
	final := submitWord(t, svc, session.ID, "alice", "board")

	require.True(t, store.conflicted, "finishing save must have been retried")
	assert.Equal(t, redis_models.SessionStatusFinished, final.Status)

	// The increments are not idempotent, so each player gets exactly one
	// batch no matter how many times the finishing save was attempted.
	batches := make(map[string]int)
	stats.mu.Lock()
	for _, d := range stats.deltas {
		batches[d.UserID]++
	}
	stats.mu.Unlock()
	assert.Equal(t, map[string]int{"alice": 1, "bob": 1}, batches)
}
