package postgres

import "time"

/*
 * 'WordPair' is the Word-Intruder content unit: a common word everyone gets
 * and a close-but-different intruder word.
 */
type WordPair struct {
	ID           uint      `gorm:"primaryKey"`
	CommonWord   string    `gorm:"size:100;not null"`
	IntruderWord string    `gorm:"size:100;not null"`
	Category     string    `gorm:"size:50;index:idx_word_pairs_category"`
	Difficulty   string    `gorm:"size:20;default:'medium'"`
	IsActive     bool      `gorm:"default:true"`
	UsageCount   int       `gorm:"default:0"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}
