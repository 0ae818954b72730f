// Package sync moves finished-session results from Redis into PostgreSQL and
// owns the per-session locks that serialize mutations on a single instance.
package sync

import (
	"fmt"
	"log"
	"sync"
	"time"

	postgres_models "wordparty/models/postgres"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionLocks hands out one mutex per session ID. The lock serializes
// mutations on this instance; the Redis CAS save catches races across
// instances.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sync.Mutex)}
}

// Get returns the mutex for a session, creating it on first use.
func (sl *SessionLocks) Get(sessionId string) *sync.Mutex {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	lock, ok := sl.locks[sessionId]
	if !ok {
		lock = &sync.Mutex{}
		sl.locks[sessionId] = lock
	}
	return lock
}

// Forget drops the mutex of a finished session so the map doesn't grow
// forever.
func (sl *SessionLocks) Forget(sessionId string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	delete(sl.locks, sessionId)
}

type SyncManager struct {
	db *gorm.DB
}

// NewSyncManager creates a new instance of the synchronization manager
func NewSyncManager(db *gorm.DB) *SyncManager {
	return &SyncManager{db: db}
}

// ApplyStatDeltas folds one finished session's deltas into the user_stats
// rows, all inside a single transaction so a crash can't apply half a
// session.
func (sm *SyncManager) ApplyStatDeltas(deltas []postgres_models.UserStatsDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	err := sm.db.Transaction(func(tx *gorm.DB) error {
		for _, delta := range deltas {
			row := postgres_models.UserStats{
				UserID: delta.UserID,
				GameID: delta.GameID,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("error ensuring stats row for %s/%s: %v", delta.UserID, delta.GameID, err)
			}

			updates := map[string]interface{}{
				"games_played":      gorm.Expr("games_played + ?", delta.GamesPlayed),
				"games_won":         gorm.Expr("games_won + ?", delta.GamesWon),
				"total_score":       gorm.Expr("total_score + ?", delta.TotalScore),
				"best_score":        gorm.Expr("GREATEST(best_score, ?)", delta.BestScore),
				"rounds_played":     gorm.Expr("rounds_played + ?", delta.RoundsPlayed),
				"times_intruder":    gorm.Expr("times_intruder + ?", delta.TimesIntruder),
				"intruder_escapes":  gorm.Expr("intruder_escapes + ?", delta.IntruderEscapes),
				"correct_votes":     gorm.Expr("correct_votes + ?", delta.CorrectVotes),
				"words_contributed": gorm.Expr("words_contributed + ?", delta.WordsContributed),
				"sentences_written": gorm.Expr("sentences_written + ?", delta.SentencesWritten),
				"correct_guesses":   gorm.Expr("correct_guesses + ?", delta.CorrectGuesses),
				"last_played_at":    time.Now(),
			}
			if err := tx.Model(&postgres_models.UserStats{}).
				Where("user_id = ? AND game_id = ?", delta.UserID, delta.GameID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("error updating stats for %s/%s: %v", delta.UserID, delta.GameID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[SYNC-STATS] Applied %d stat deltas", len(deltas))
	return nil
}
