// Package content serves round seed material (word pairs and prompts) from
// PostgreSQL. It implements the variants.ContentSource interface.
package content

import (
	"fmt"

	postgres_models "wordparty/models/postgres"
	"wordparty/services/game/variants"

	"gorm.io/gorm"
)

type Supply struct {
	db *gorm.DB
}

func NewSupply(db *gorm.DB) *Supply {
	return &Supply{db: db}
}

// DrawRandomWordPairs picks n random active word pairs and bumps their usage
// counters so seldom-seen content can be reported on later.
func (s *Supply) DrawRandomWordPairs(n int) ([]variants.WordPair, error) {
	var rows []postgres_models.WordPair
	if err := s.db.Where("is_active = ?", true).Order("RANDOM()").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error drawing word pairs: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no word pairs available")
	}

	ids := make([]uint, 0, len(rows))
	pairs := make([]variants.WordPair, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		pairs = append(pairs, variants.WordPair{
			CommonWord:   row.CommonWord,
			IntruderWord: row.IntruderWord,
		})
	}
	if err := s.db.Model(&postgres_models.WordPair{}).
		Where("id IN ?", ids).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
		return nil, fmt.Errorf("error updating word pair usage: %w", err)
	}
	return pairs, nil
}

// FindActiveGameDefinition looks up a playable catalog entry by game ID.
// Inactive entries are hidden from session creation.
func (s *Supply) FindActiveGameDefinition(gameID string) (*postgres_models.GameDefinition, error) {
	var def postgres_models.GameDefinition
	if err := s.db.Where("id = ? AND is_active = ?", gameID, true).First(&def).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

// DrawRandomPrompt picks one random active prompt of the given kind.
func (s *Supply) DrawRandomPrompt(kind string) (string, error) {
	var row postgres_models.GamePrompt
	err := s.db.Where("kind = ? AND is_active = ?", kind, true).Order("RANDOM()").First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return "", fmt.Errorf("no prompts available for kind %s", kind)
	}
	if err != nil {
		return "", fmt.Errorf("error drawing prompt: %w", err)
	}
	if err := s.db.Model(&postgres_models.GamePrompt{}).
		Where("id = ?", row.ID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
		return "", fmt.Errorf("error updating prompt usage: %w", err)
	}
	return row.Text, nil
}
