package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CompletedGame is the immutable record of a resolved round. ID is the
// round ID, so a round can never produce two outcome records.
type CompletedGame struct {
	ID               string         `gorm:"primaryKey" json:"round_id"`
	Participants     []Participant  `gorm:"-" json:"participants"`
	ParticipantsJSON datatypes.JSON `gorm:"column:participants" json:"-"`
	WinnerID         string         `gorm:"index" json:"winner_id"`
	WinnerName       string         `json:"winner_name"`
	WinnerEmoji      string         `json:"winner_emoji"`
	Pool             int64          `json:"pool"`
	Prize            int64          `json:"prize"`
	PlatformFee      int64          `json:"platform_fee"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (g *CompletedGame) EncodeParticipants() error {
	if g.Participants == nil {
		g.Participants = []Participant{}
	}
	data, err := json.Marshal(g.Participants)
	if err != nil {
		return err
	}
	g.ParticipantsJSON = datatypes.JSON(data)
	return nil
}

func (g *CompletedGame) DecodeParticipants() error {
	g.Participants = []Participant{}
	if len(g.ParticipantsJSON) == 0 {
		return nil
	}
	return json.Unmarshal(g.ParticipantsJSON, &g.Participants)
}

// GamePlayer is one participant's history entry for a completed game.
type GamePlayer struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RoundID   string    `gorm:"index" json:"round_id"`
	UserID    string    `gorm:"index" json:"user_id"`
	Won       bool      `json:"won"`
	Prize     int64     `json:"prize"`
	CreatedAt time.Time `json:"created_at"`
}
