package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

/*
 * 'GameDefinition' is the catalog entry of a playable game variant. The
 * per-variant settings schema lives here as JSON so new settings don't need
 * a migration.
 */
type GameDefinition struct {
	ID              string         `gorm:"primaryKey;size:50;not null"`
	Name            string         `gorm:"size:100;not null"`
	Description     string         `gorm:"size:500"`
	MinPlayers      int            `gorm:"not null"`
	MaxPlayers      int            `gorm:"not null"`
	DefaultRounds   int            `gorm:"default:5"`
	SettingsSchema  datatypes.JSON `gorm:"type:jsonb"`
	DefaultSettings datatypes.JSON `gorm:"type:jsonb"`
	IsActive        bool           `gorm:"default:true;index:idx_game_definitions_active"`
	CreatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time
}

// SettingField describes one entry of a game's settings schema.
type SettingField struct {
	Type        string        `json:"type"` // "string", "number", "boolean"
	Default     interface{}   `json:"default,omitempty"`
	Min         *float64      `json:"min,omitempty"`
	Max         *float64      `json:"max,omitempty"`
	Options     []interface{} `json:"options,omitempty"`
	Required    bool          `json:"required,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Schema decodes the stored settings schema.
func (g *GameDefinition) Schema() (map[string]SettingField, error) {
	schema := map[string]SettingField{}
	if len(g.SettingsSchema) == 0 {
		return schema, nil
	}
	if err := json.Unmarshal(g.SettingsSchema, &schema); err != nil {
		return nil, fmt.Errorf("invalid settings schema for game %s: %w", g.ID, err)
	}
	return schema, nil
}

// MergedSettings overlays the caller's settings on the stored defaults.
// Unknown keys and out-of-range values are rejected via ValidateSettings.
func (g *GameDefinition) MergedSettings(overrides map[string]interface{}) (map[string]interface{}, error) {
	merged := map[string]interface{}{}
	if len(g.DefaultSettings) > 0 {
		if err := json.Unmarshal(g.DefaultSettings, &merged); err != nil {
			return nil, fmt.Errorf("invalid default settings for game %s: %w", g.ID, err)
		}
	}
	if err := g.ValidateSettings(overrides); err != nil {
		return nil, err
	}
	for key, value := range overrides {
		merged[key] = value
	}
	return merged, nil
}

// ValidateSettings checks the given settings against the schema: known keys,
// matching types, numeric ranges and enum options.
func (g *GameDefinition) ValidateSettings(settings map[string]interface{}) error {
	schema, err := g.Schema()
	if err != nil {
		return err
	}
	for key, value := range settings {
		field, ok := schema[key]
		if !ok {
			return fmt.Errorf("unknown setting %q for game %s", key, g.ID)
		}
		if err := field.check(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (f SettingField) check(key string, value interface{}) error {
	switch f.Type {
	case "number":
		num, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("setting %q must be a number", key)
		}
		if f.Min != nil && num < *f.Min {
			return fmt.Errorf("setting %q must be at least %v", key, *f.Min)
		}
		if f.Max != nil && num > *f.Max {
			return fmt.Errorf("setting %q must be at most %v", key, *f.Max)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("setting %q must be a boolean", key)
		}
	case "string":
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("setting %q must be a string", key)
		}
		if len(f.Options) > 0 {
			for _, option := range f.Options {
				if opt, ok := option.(string); ok && opt == str {
					return nil
				}
			}
			return fmt.Errorf("setting %q has invalid option %q", key, str)
		}
	}
	return nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
