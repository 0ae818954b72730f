// Seeds the PostgreSQL catalog: game definitions, word pairs and prompts.
// Safe to run repeatedly; existing rows are left alone.
package main

import (
	"encoding/json"
	"log"

	"wordparty/config"
	game_constants "wordparty/constants/game"
	"wordparty/models/postgres"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func mustJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		log.Fatalf("Error marshaling seed data: %v", err)
	}
	return datatypes.JSON(data)
}

func numField(def float64, min, max float64, description string) postgres.SettingField {
	return postgres.SettingField{
		Type:        "number",
		Default:     def,
		Min:         &min,
		Max:         &max,
		Description: description,
	}
}

func boolField(def bool, description string) postgres.SettingField {
	return postgres.SettingField{Type: "boolean", Default: def, Description: description}
}

func gameDefinitions() []postgres.GameDefinition {
	return []postgres.GameDefinition{
		{
			ID:            game_constants.GameWordIntruder,
			Name:          "One Word Unites",
			Description:   "Everyone shares a word except one intruder. Give clues, then vote the intruder out.",
			MinPlayers:    3,
			MaxPlayers:    8,
			DefaultRounds: 5,
			SettingsSchema: mustJSON(map[string]postgres.SettingField{
				"gameMode": {
					Type:        "string",
					Default:     "multi_device",
					Options:     []interface{}{"single_device", "multi_device"},
					Description: "One shared device passed around, or one device per player",
				},
				"clueTimeLimit":      numField(30, 10, 120, "Seconds per clue"),
				"votingTimeLimit":    numField(20, 10, 60, "Seconds for the voting phase"),
				"autoStart":          boolField(false, "Start automatically when everyone is ready"),
				"difficulty":         {Type: "string", Default: "medium", Options: []interface{}{"easy", "medium", "hard"}},
				"manualScoring":      boolField(false, "Host assigns points by hand (single device only)"),
				"autoAssignIntruder": boolField(true, "Pick the intruder at random"),
				"showWordButton":     boolField(true, "Players tap to reveal their word"),
				"autoAdvanceClues":   boolField(false, "Advance the clue turn on the timer"),
				"clueStartPlayer":    {Type: "string", Description: "User ID of the player who gives the first clue"},
			}),
			DefaultSettings: mustJSON(map[string]interface{}{
				"gameMode":           "multi_device",
				"clueTimeLimit":      30,
				"votingTimeLimit":    20,
				"autoStart":          false,
				"difficulty":         "medium",
				"manualScoring":      false,
				"autoAssignIntruder": true,
				"showWordButton":     true,
				"autoAdvanceClues":   false,
			}),
			IsActive: true,
		},
		{
			ID:            game_constants.GameWordChain,
			Name:          "Word Chain",
			Description:   "Build a chain of associated words from a random starting word.",
			MinPlayers:    2,
			MaxPlayers:    10,
			DefaultRounds: 10,
			SettingsSchema: mustJSON(map[string]postgres.SettingField{
				"wordTimeLimit": numField(15, 5, 30, "Seconds per word"),
				"chainLength":   numField(5, 3, 10, "Words per chain"),
				"autoStart":     boolField(false, "Start automatically when everyone is ready"),
				"difficulty":    {Type: "string", Default: "medium", Options: []interface{}{"easy", "medium", "hard"}},
			}),
			DefaultSettings: mustJSON(map[string]interface{}{
				"wordTimeLimit": 15,
				"chainLength":   5,
				"autoStart":     false,
				"difficulty":    "medium",
			}),
			IsActive: true,
		},
		{
			ID:            game_constants.GameStoryBuilder,
			Name:          "Story Builder",
			Description:   "Write a story together, one sentence at a time.",
			MinPlayers:    3,
			MaxPlayers:    8,
			DefaultRounds: 3,
			SettingsSchema: mustJSON(map[string]postgres.SettingField{
				"sentenceTimeLimit": numField(45, 20, 90, "Seconds per sentence"),
				"storyLength":       numField(5, 3, 8, "Sentences per story"),
				"autoStart":         boolField(false, "Start automatically when everyone is ready"),
			}),
			DefaultSettings: mustJSON(map[string]interface{}{
				"sentenceTimeLimit": 45,
				"storyLength":       5,
				"autoStart":         false,
			}),
			IsActive: true,
		},
		{
			ID:            game_constants.GameQuickDraw,
			Name:          "Quick Draw",
			Description:   "One player draws a secret word, everyone else races to guess it.",
			MinPlayers:    2,
			MaxPlayers:    6,
			DefaultRounds: 8,
			SettingsSchema: mustJSON(map[string]postgres.SettingField{
				"drawTimeLimit":  numField(60, 30, 120, "Seconds to draw"),
				"guessTimeLimit": numField(30, 15, 60, "Seconds to guess"),
				"autoStart":      boolField(false, "Start automatically when everyone is ready"),
			}),
			DefaultSettings: mustJSON(map[string]interface{}{
				"drawTimeLimit":  60,
				"guessTimeLimit": 30,
				"autoStart":      false,
			}),
			IsActive: true,
		},
	}
}

func wordPairs() []postgres.WordPair {
	return []postgres.WordPair{
		{CommonWord: "beach", IntruderWord: "desert", Category: "places", Difficulty: "easy", IsActive: true},
		{CommonWord: "coffee", IntruderWord: "tea", Category: "drinks", Difficulty: "easy", IsActive: true},
		{CommonWord: "cat", IntruderWord: "fox", Category: "animals", Difficulty: "easy", IsActive: true},
		{CommonWord: "guitar", IntruderWord: "violin", Category: "music", Difficulty: "medium", IsActive: true},
		{CommonWord: "pizza", IntruderWord: "lasagna", Category: "food", Difficulty: "medium", IsActive: true},
		{CommonWord: "winter", IntruderWord: "autumn", Category: "seasons", Difficulty: "medium", IsActive: true},
		{CommonWord: "library", IntruderWord: "bookstore", Category: "places", Difficulty: "hard", IsActive: true},
		{CommonWord: "astronaut", IntruderWord: "pilot", Category: "jobs", Difficulty: "hard", IsActive: true},
		{CommonWord: "mirror", IntruderWord: "window", Category: "objects", Difficulty: "hard", IsActive: true},
		{CommonWord: "river", IntruderWord: "lake", Category: "nature", Difficulty: "easy", IsActive: true},
	}
}

func gamePrompts() []postgres.GamePrompt {
	return []postgres.GamePrompt{
		{Kind: postgres.PromptKindChainStart, Text: "ocean", Category: "nature", Difficulty: "easy", IsActive: true},
		{Kind: postgres.PromptKindChainStart, Text: "fire", Category: "nature", Difficulty: "easy", IsActive: true},
		{Kind: postgres.PromptKindChainStart, Text: "music", Category: "culture", Difficulty: "medium", IsActive: true},
		{Kind: postgres.PromptKindChainStart, Text: "journey", Category: "abstract", Difficulty: "hard", IsActive: true},
		{Kind: postgres.PromptKindStoryPrompt, Text: "The lights went out just as the train left the station.", Difficulty: "medium", IsActive: true},
		{Kind: postgres.PromptKindStoryPrompt, Text: "Nobody believed her when she said the garden gnome moved.", Difficulty: "easy", IsActive: true},
		{Kind: postgres.PromptKindStoryPrompt, Text: "The last message from the ship arrived forty years late.", Difficulty: "hard", IsActive: true},
		{Kind: postgres.PromptKindDrawWord, Text: "lighthouse", Difficulty: "medium", IsActive: true},
		{Kind: postgres.PromptKindDrawWord, Text: "bicycle", Difficulty: "easy", IsActive: true},
		{Kind: postgres.PromptKindDrawWord, Text: "volcano", Difficulty: "easy", IsActive: true},
		{Kind: postgres.PromptKindDrawWord, Text: "orchestra", Difficulty: "hard", IsActive: true},
	}
}

func main() {
	godotenv.Load()

	db, err := config.ConnectGORM()
	if err != nil {
		log.Fatalf("Error connecting to PostgreSQL: %v", err)
	}
	if err := config.MigrateDatabase(db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	defs := gameDefinitions()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defs).Error; err != nil {
		log.Fatalf("Error seeding game definitions: %v", err)
	}

	seedIfEmpty(db, &postgres.WordPair{}, func() error {
		pairs := wordPairs()
		return db.Create(&pairs).Error
	})
	seedIfEmpty(db, &postgres.GamePrompt{}, func() error {
		prompts := gamePrompts()
		return db.Create(&prompts).Error
	})

	log.Println("Seed complete")
}

func seedIfEmpty(db *gorm.DB, model interface{}, insert func() error) {
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		log.Fatalf("Error counting rows: %v", err)
	}
	if count > 0 {
		return
	}
	if err := insert(); err != nil {
		log.Fatalf("Error seeding rows: %v", err)
	}
}
