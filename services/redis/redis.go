package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	redis_models "wordparty/models/redis"
	gameerrors "wordparty/services/game/errors"
	redis_utils "wordparty/services/redis/utils"

	"github.com/redis/go-redis/v9"
)

// SessionTTL is how long an untouched session survives in Redis. Every save
// refreshes it, so only abandoned sessions expire.
const SessionTTL = 24 * time.Hour

// RedisClient handles Redis operations
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient creates a new Redis client instance
func NewRedisClient(Addr string, DB int) *RedisClient {
	var client *redis.Client
	if Addr != "localhost:6379" {
		log.Println("Connecting to remote Redis...")
		opt, err := redis.ParseURL(Addr)
		if err != nil {
			panic("Error parsing Redis URL")
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: Addr,
			DB:   DB,
		})
	}
	return &RedisClient{
		client: client,
		ctx:    context.Background(),
	}
}

// SaveGameSession stores a session unconditionally, for brand new sessions
// that cannot conflict with anything yet.
// Key format: "game_session:{id}"
func (rc *RedisClient) SaveGameSession(session *redis_models.GameSession) error {
	key := redis_utils.FormatGameSessionKey(session.ID)
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("error marshaling game session: %v", err)
	}
	return rc.client.Set(rc.ctx, key, data, SessionTTL).Err()
}

// SaveGameSessionCAS bumps the session version and stores it, but only if the
// stored version still matches the one this session was loaded with. Lost
// races return gameerrors.ErrVersionConflict so callers can reload and retry.
func (rc *RedisClient) SaveGameSessionCAS(session *redis_models.GameSession) error {
	key := redis_utils.FormatGameSessionKey(session.ID)
	expectedVersion := session.Version

	err := rc.client.Watch(rc.ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(rc.ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("error reading session for CAS save: %v", err)
		}
		if err == nil {
			var stored redis_models.GameSession
			if err := json.Unmarshal(data, &stored); err != nil {
				return fmt.Errorf("error unmarshaling stored session: %v", err)
			}
			if stored.Version != expectedVersion {
				return gameerrors.ErrVersionConflict
			}
		}

		session.Version = expectedVersion + 1
		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("error marshaling game session: %v", err)
		}

		_, err = tx.TxPipelined(rc.ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(rc.ctx, key, payload, SessionTTL)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Someone else touched the key between WATCH and EXEC.
		session.Version = expectedVersion
		return gameerrors.ErrVersionConflict
	}
	if errors.Is(err, gameerrors.ErrVersionConflict) {
		session.Version = expectedVersion
		return gameerrors.ErrVersionConflict
	}
	return err
}

// GetGameSession retrieves a session by its ID
func (rc *RedisClient) GetGameSession(sessionId string) (*redis_models.GameSession, error) {
	key := redis_utils.FormatGameSessionKey(sessionId)
	data, err := rc.client.Get(rc.ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gameerrors.NotFound("session %s not found", sessionId)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting game session: %v", err)
	}

	var session redis_models.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("error unmarshaling game session: %v", err)
	}
	return &session, nil
}

// DeleteGameSession removes a session and its lobby code mapping
func (rc *RedisClient) DeleteGameSession(session *redis_models.GameSession) error {
	keys := []string{redis_utils.FormatGameSessionKey(session.ID)}
	if session.LobbyCode != "" {
		keys = append(keys, redis_utils.FormatLobbyCodeKey(session.LobbyCode))
	}
	return rc.CleanupKeys(keys)
}

// ClaimLobbyCode maps a lobby code to a session ID, failing if the code is
// already taken. SETNX keeps two concurrent creators from sharing a code.
func (rc *RedisClient) ClaimLobbyCode(code string, sessionId string) (bool, error) {
	key := redis_utils.FormatLobbyCodeKey(code)
	ok, err := rc.client.SetNX(rc.ctx, key, sessionId, SessionTTL).Result()
	if err != nil {
		return false, fmt.Errorf("error claiming lobby code: %v", err)
	}
	return ok, nil
}

// ReleaseLobbyCode frees a lobby code once its session leaves the lobby state
func (rc *RedisClient) ReleaseLobbyCode(code string) error {
	if code == "" {
		return nil
	}
	return rc.client.Del(rc.ctx, redis_utils.FormatLobbyCodeKey(code)).Err()
}

// GetSessionIDByCode resolves a lobby code to its session ID
func (rc *RedisClient) GetSessionIDByCode(code string) (string, error) {
	key := redis_utils.FormatLobbyCodeKey(code)
	sessionId, err := rc.client.Get(rc.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", gameerrors.NotFound("no session with lobby code %s", code)
	}
	if err != nil {
		return "", fmt.Errorf("error resolving lobby code: %v", err)
	}
	return sessionId, nil
}

// ListPublicSessions scans for joinable public lobbies. SCAN instead of KEYS
// so a busy instance doesn't block Redis.
func (rc *RedisClient) ListPublicSessions() ([]*redis_models.GameSession, error) {
	var sessions []*redis_models.GameSession
	iter := rc.client.Scan(rc.ctx, 0, redis_utils.GameSessionKeyPattern, 100).Iterator()
	for iter.Next(rc.ctx) {
		data, err := rc.client.Get(rc.ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, fmt.Errorf("error reading session %s: %v", iter.Val(), err)
		}
		var session redis_models.GameSession
		if err := json.Unmarshal(data, &session); err != nil {
			log.Printf("[REDIS-SCAN] Skipping malformed session at %s: %v", iter.Val(), err)
			continue
		}
		if !session.IsPrivate && session.Status == redis_models.SessionStatusLobby {
			sessions = append(sessions, &session)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning sessions: %v", err)
	}
	return sessions, nil
}
