package controllers

import (
	"net/http"

	"wordparty/models/postgres"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Ping is the health check endpoint
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// ListGames returns the playable game catalog
func ListGames(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var games []postgres.GameDefinition
		if err := db.Where("is_active = ?", true).Order("id").Find(&games).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing games"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"games": games})
	}
}

// GetGameInfo returns one catalog entry, including its settings schema
func GetGameInfo(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID := c.Param("game_id")

		var game postgres.GameDefinition
		if err := db.Where("id = ? AND is_active = ?", gameID, true).First(&game).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying game"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"game": game})
	}
}
