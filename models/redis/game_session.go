package redis

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	SessionStatusLobby     SessionStatus = "lobby"
	SessionStatusPlaying   SessionStatus = "playing"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusFinished  SessionStatus = "finished"
	SessionStatusCancelled SessionStatus = "cancelled"
)

type RoundStatus string

const (
	RoundStatusWaiting  RoundStatus = "waiting"
	RoundStatusActive   RoundStatus = "active"
	RoundStatusPaused   RoundStatus = "paused"
	RoundStatusFinished RoundStatus = "finished"
)

// Player is one roster entry of a session. Players are never removed from the
// slice; leaving only flips IsActive so a rejoin can reactivate the same entry.
type Player struct {
	UserID   string          `json:"user_id"`
	Username string          `json:"username"`
	JoinedAt time.Time       `json:"joined_at"`
	LeftAt   *time.Time      `json:"left_at,omitempty"`
	IsReady  bool            `json:"is_ready"`
	IsHost   bool            `json:"is_host"`
	IsActive bool            `json:"is_active"`
	Score    int             `json:"score"`
	GameData json.RawMessage `json:"game_data,omitempty"` // variant-scoped player data
}

// Action is an immutable append-only audit record. Once appended it is never
// mutated or removed, even when the variant rejects its semantic effect.
type Action struct {
	UserID     string          `json:"user_id"`
	ActionType string          `json:"action_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Round is one scored unit of play. Data carries the variant-specific payload
// (phase tag included); only the active variant state machine interprets it.
type Round struct {
	RoundNumber int             `json:"round_number"` // 1-based, contiguous
	Status      RoundStatus     `json:"status"`
	StartTime   *time.Time      `json:"start_time,omitempty"`
	EndTime     *time.Time      `json:"end_time,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Actions     []Action        `json:"actions"`
	Results     json.RawMessage `json:"results,omitempty"`
}

// SessionStatistics are running counters kept on the session itself.
type SessionStatistics struct {
	TotalPlayTime    int `json:"total_play_time"` // seconds
	AverageRoundTime int `json:"average_round_time"`
	TotalActions     int `json:"total_actions"`
}

// GameSession is the full live state of one play session, stored in Redis as
// a single JSON blob. Version is the optimistic concurrency counter checked
// by the compare-and-save write.
type GameSession struct {
	ID          string        `json:"id"`
	GameID      string        `json:"game_id"`
	GameName    string        `json:"game_name"`
	SessionName string        `json:"session_name"`
	LobbyCode   string        `json:"lobby_code"`
	Status      SessionStatus `json:"status"`
	HostUserID  string        `json:"host_user_id"`

	Players []Player `json:"players"`

	// Settings are resolved once at creation: catalog defaults overridden by
	// the session-specific values. Never re-validated per action.
	Settings map[string]interface{} `json:"settings"`

	CurrentRound int     `json:"current_round"` // index into Rounds
	TotalRounds  int     `json:"total_rounds"`
	Rounds       []Round `json:"rounds"`

	// GameState is a free-form latest-phase summary kept for client views.
	GameState json.RawMessage `json:"game_state,omitempty"`

	Statistics SessionStatistics `json:"statistics"`

	IsPrivate  bool `json:"is_private"`
	MinPlayers int  `json:"min_players"` // denormalized from the catalog at creation
	MaxPlayers int  `json:"max_players"`

	Version int64 `json:"version"`

	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

// NewGameSession builds a fresh lobby-state session. The caller assigns the
// ID, lobby code and catalog-derived player bounds.
func NewGameSession(gameID, gameName, sessionName, hostUserID string, settings map[string]interface{}) *GameSession {
	now := time.Now()
	return &GameSession{
		GameID:         gameID,
		GameName:       gameName,
		SessionName:    sessionName,
		Status:         SessionStatusLobby,
		HostUserID:     hostUserID,
		Players:        []Player{},
		Settings:       settings,
		CurrentRound:   -1,
		Rounds:         []Round{},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// ActivePlayers returns pointers to the roster entries still in the session,
// in join order.
func (s *GameSession) ActivePlayers() []*Player {
	active := make([]*Player, 0, len(s.Players))
	for i := range s.Players {
		if s.Players[i].IsActive {
			active = append(active, &s.Players[i])
		}
	}
	return active
}

// ActiveReadyCount counts players that are both active and ready.
func (s *GameSession) ActiveReadyCount() int {
	count := 0
	for i := range s.Players {
		if s.Players[i].IsActive && s.Players[i].IsReady {
			count++
		}
	}
	return count
}

// FindPlayer returns the roster entry for userID, active or not.
func (s *GameSession) FindPlayer(userID string) *Player {
	for i := range s.Players {
		if s.Players[i].UserID == userID {
			return &s.Players[i]
		}
	}
	return nil
}

// GetCurrentRound returns the round indexed by CurrentRound, or nil before
// the session has started.
func (s *GameSession) GetCurrentRound() *Round {
	if s.CurrentRound < 0 || s.CurrentRound >= len(s.Rounds) {
		return nil
	}
	return &s.Rounds[s.CurrentRound]
}

// CanStart reports whether the session may transition lobby -> playing.
func (s *GameSession) CanStart() bool {
	ready := s.ActiveReadyCount()
	return s.Status == SessionStatusLobby &&
		ready >= s.MinPlayers &&
		ready <= s.MaxPlayers
}

// AppendRound appends a new waiting round with the next contiguous number.
func (s *GameSession) AppendRound() *Round {
	s.Rounds = append(s.Rounds, Round{
		RoundNumber: len(s.Rounds) + 1,
		Status:      RoundStatusWaiting,
		Actions:     []Action{},
	})
	return &s.Rounds[len(s.Rounds)-1]
}

// AppendAction appends an audit record to the current round and bumps the
// running action counter.
func (s *GameSession) AppendAction(userID, actionType string, payload json.RawMessage) *Action {
	round := s.GetCurrentRound()
	if round == nil {
		return nil
	}
	round.Actions = append(round.Actions, Action{
		UserID:     userID,
		ActionType: actionType,
		Payload:    payload,
		Timestamp:  time.Now(),
	})
	s.Statistics.TotalActions++
	s.Touch()
	return &round.Actions[len(round.Actions)-1]
}

// UpdateGameState merges the given fields into the free-form game state
// projection.
func (s *GameSession) UpdateGameState(fields map[string]interface{}) {
	state := make(map[string]interface{})
	if len(s.GameState) > 0 {
		// A broken projection is not worth failing an action over; start fresh.
		_ = json.Unmarshal(s.GameState, &state)
	}
	for k, v := range fields {
		state[k] = v
	}
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	s.GameState = data
	s.Touch()
}

// Touch stamps the last-activity time.
func (s *GameSession) Touch() {
	s.LastActivityAt = time.Now()
}

// FinalizeStatistics computes the end-of-session statistics. Called exactly
// once, on the playing -> finished edge.
func (s *GameSession) FinalizeStatistics() {
	if s.StartedAt == nil || s.EndedAt == nil {
		return
	}
	s.Statistics.TotalPlayTime = int(s.EndedAt.Sub(*s.StartedAt).Seconds())

	totalRoundTime := 0.0
	finished := 0
	for i := range s.Rounds {
		r := &s.Rounds[i]
		if r.StartTime != nil && r.EndTime != nil {
			totalRoundTime += r.EndTime.Sub(*r.StartTime).Seconds()
			finished++
		}
	}
	if finished > 0 {
		s.Statistics.AverageRoundTime = int(totalRoundTime) / finished
	}
}

// SettingString reads a string-typed session setting.
func (s *GameSession) SettingString(key string) string {
	if v, ok := s.Settings[key].(string); ok {
		return v
	}
	return ""
}

// SettingBool reads a boolean-typed session setting.
func (s *GameSession) SettingBool(key string) bool {
	if v, ok := s.Settings[key].(bool); ok {
		return v
	}
	return false
}

// SettingInt reads a number-typed session setting, returning 0 when unset.
// JSON round-trips store numbers as float64, so both are accepted.
func (s *GameSession) SettingInt(key string) int {
	switch v := s.Settings[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
