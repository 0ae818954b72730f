package game

import (
	"math/rand"

	gameerrors "wordparty/services/game/errors"
)

// Lobby codes are what players type on their phones, so the alphabet skips
// nothing: 36^6 codes is far more than we will ever hold live.
const (
	lobbyCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	lobbyCodeLength   = 6
	lobbyCodeRetries  = 25
)

func randomLobbyCode() string {
	b := make([]byte, lobbyCodeLength)
	for i := range b {
		b[i] = lobbyCodeAlphabet[rand.Intn(len(lobbyCodeAlphabet))]
	}
	return string(b)
}

// allocateLobbyCode claims a currently-unused code for the session. The
// claim is atomic in the store, so two sessions can never share a code even
// across instances.
func (gs *GameService) allocateLobbyCode(sessionId string) (string, error) {
	for i := 0; i < lobbyCodeRetries; i++ {
		code := randomLobbyCode()
		ok, err := gs.store.ClaimLobbyCode(code, sessionId)
		if err != nil {
			return "", gameerrors.Internal("error claiming lobby code: %v", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", gameerrors.CodeSpaceExhausted("could not allocate a lobby code after %d attempts", lobbyCodeRetries)
}
