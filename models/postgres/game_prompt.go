package postgres

import "time"

// Prompt kinds. Each non-intruder game draws its round content from one of
// these pools.
const (
	PromptKindChainStart  = "chain_start"
	PromptKindStoryPrompt = "story_prompt"
	PromptKindDrawWord    = "draw_word"
)

/*
 * 'GamePrompt' holds round seed content for Word Chain, Collaborative Story
 * and Draw & Guess (start words, story openers and drawable words).
 */
type GamePrompt struct {
	ID         uint      `gorm:"primaryKey"`
	Kind       string    `gorm:"size:30;not null;index:idx_game_prompts_kind"`
	Text       string    `gorm:"size:500;not null"`
	Category   string    `gorm:"size:50"`
	Difficulty string    `gorm:"size:20;default:'medium'"`
	IsActive   bool      `gorm:"default:true"`
	UsageCount int       `gorm:"default:0"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}
