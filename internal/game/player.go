package game

import "fmt"

// PlayerInfo identifies a seated player. Bots get synthetic player IDs
// so the rest of the system never special-cases them.
type PlayerInfo struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Seat     int    `json:"seat"`
	IsBot    bool   `json:"is_bot"`
}

// BotInfo builds the PlayerInfo used when auto-filling an empty seat.
func BotInfo(seat int) PlayerInfo {
	return PlayerInfo{
		PlayerID: fmt.Sprintf("bot:%d", seat),
		Name:     fmt.Sprintf("Bot %d", seat+1),
		Seat:     seat,
		IsBot:    true,
	}
}
