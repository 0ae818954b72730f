package postgres_test

import (
	"encoding/json"
	"testing"

	"wordparty/models/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func testDefinition(t *testing.T) *postgres.GameDefinition {
	t.Helper()
	min, max := 3.0, 10.0
	schema := map[string]postgres.SettingField{
		"chainLength": {Type: "number", Default: 5.0, Min: &min, Max: &max},
		"autoStart":   {Type: "boolean", Default: false},
		"difficulty":  {Type: "string", Default: "medium", Options: []interface{}{"easy", "medium", "hard"}},
	}
	schemaJSON, err := json.Marshal(schema)
	require.NoError(t, err)
	defaultsJSON, err := json.Marshal(map[string]interface{}{
		"chainLength": 5,
		"autoStart":   false,
		"difficulty":  "medium",
	})
	require.NoError(t, err)

	return &postgres.GameDefinition{
		ID:              "word_association",
		Name:            "Word Chain",
		MinPlayers:      2,
		MaxPlayers:      10,
		SettingsSchema:  datatypes.JSON(schemaJSON),
		DefaultSettings: datatypes.JSON(defaultsJSON),
	}
}

func TestValidateSettings(t *testing.T) {
	def := testDefinition(t)

	t.Run("valid settings pass", func(t *testing.T) {
		err := def.ValidateSettings(map[string]interface{}{
			"chainLength": 7,
			"autoStart":   true,
			"difficulty":  "hard",
		})
		assert.NoError(t, err)
	})

	t.Run("unknown key", func(t *testing.T) {
		err := def.ValidateSettings(map[string]interface{}{"turboMode": true})
		assert.ErrorContains(t, err, "unknown setting")
	})

	t.Run("number below minimum", func(t *testing.T) {
		err := def.ValidateSettings(map[string]interface{}{"chainLength": 1})
		assert.ErrorContains(t, err, "at least")
	})

	t.Run("number above maximum", func(t *testing.T) {
		err := def.ValidateSettings(map[string]interface{}{"chainLength": 99})
		assert.ErrorContains(t, err, "at most")
	})

	t.Run("wrong type", func(t *testing.T) {
		err := def.ValidateSettings(map[string]interface{}{"autoStart": "yes"})
		assert.ErrorContains(t, err, "must be a boolean")
	})

	t.Run("invalid enum option", func(t *testing.T) {
		err := def.ValidateSettings(map[string]interface{}{"difficulty": "impossible"})
		assert.ErrorContains(t, err, "invalid option")
	})

	t.Run("float values accepted for numbers", func(t *testing.T) {
		err := def.ValidateSettings(map[string]interface{}{"chainLength": 7.0})
		assert.NoError(t, err)
	})
}

func TestMergedSettings(t *testing.T) {
	def := testDefinition(t)

	t.Run("overrides land on top of defaults", func(t *testing.T) {
		merged, err := def.MergedSettings(map[string]interface{}{"chainLength": 8})
		require.NoError(t, err)
		assert.Equal(t, 8, merged["chainLength"])
		assert.Equal(t, "medium", merged["difficulty"])
		assert.Equal(t, false, merged["autoStart"])
	})

	t.Run("no overrides returns the defaults", func(t *testing.T) {
		merged, err := def.MergedSettings(nil)
		require.NoError(t, err)
		assert.Equal(t, float64(5), merged["chainLength"])
	})

	t.Run("invalid override rejected", func(t *testing.T) {
		_, err := def.MergedSettings(map[string]interface{}{"chainLength": 0})
		assert.Error(t, err)
	})

	t.Run("empty schema accepts nothing but empty settings", func(t *testing.T) {
		bare := &postgres.GameDefinition{ID: "bare"}
		merged, err := bare.MergedSettings(nil)
		require.NoError(t, err)
		assert.Empty(t, merged)

		_, err = bare.MergedSettings(map[string]interface{}{"anything": 1})
		assert.Error(t, err)
	})
}
