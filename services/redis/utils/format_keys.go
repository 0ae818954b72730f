package utils

/**
 * This file contains utility functions to format the keys for Redis
 * (key, value) pairs. It avoids having to call "fmt.Sprintf(...)"
 * with the same format spec every time, potentially confusing the key format.
 */

import "fmt"

func FormatGameSessionKey(sessionId string) string {
	return fmt.Sprintf("game_session:%s", sessionId)
}

func FormatLobbyCodeKey(code string) string {
	return fmt.Sprintf("lobby_code:%s", code)
}

// GameSessionKeyPattern matches every stored session, used when scanning
// for public lobbies.
const GameSessionKeyPattern = "game_session:*"
