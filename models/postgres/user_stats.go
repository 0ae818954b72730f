package postgres

import "time"

/*
 * 'UserStats' is the per-user per-game aggregate row. Live sessions only
 * touch redis; these rows are updated once, when a session finishes.
 */
type UserStats struct {
	UserID           string    `gorm:"primaryKey;size:50;not null"`
	GameID           string    `gorm:"primaryKey;size:50;not null"`
	GamesPlayed      int       `gorm:"default:0"`
	GamesWon         int       `gorm:"default:0"`
	TotalScore       int       `gorm:"default:0"`
	BestScore        int       `gorm:"default:0"`
	RoundsPlayed     int       `gorm:"default:0"`
	TimesIntruder    int       `gorm:"default:0"`
	IntruderEscapes  int       `gorm:"default:0"`
	CorrectVotes     int       `gorm:"default:0"`
	WordsContributed int       `gorm:"default:0"`
	SentencesWritten int       `gorm:"default:0"`
	CorrectGuesses   int       `gorm:"default:0"`
	LastPlayedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// UserStatsDelta is one finished session's contribution to a UserStats row.
// Produced by replaying the session's rounds, applied in a single transaction.
type UserStatsDelta struct {
	UserID           string
	GameID           string
	GamesPlayed      int
	GamesWon         int
	TotalScore       int
	BestScore        int
	RoundsPlayed     int
	TimesIntruder    int
	IntruderEscapes  int
	CorrectVotes     int
	WordsContributed int
	SentencesWritten int
	CorrectGuesses   int
}
