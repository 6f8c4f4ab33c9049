package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type RoundPhase string

const (
	PhaseJoining   RoundPhase = "joining"
	PhaseLocked    RoundPhase = "locked"
	PhaseResolving RoundPhase = "resolving"
	PhaseBreak     RoundPhase = "break"
)

// Participant is one player entry in a round, in join order.
type Participant struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Emoji    string `json:"emoji"`
}

// Round is the unit of play. Participants live in a JSON column so the
// whole round is one row; Current marks the single live round.
type Round struct {
	ID               string         `gorm:"primaryKey" json:"round_id"`
	Phase            RoundPhase     `json:"phase"`
	JoinTimer        int            `json:"join_timer"`
	BreakTimer       int            `json:"break_timer"`
	Participants     []Participant  `gorm:"-" json:"participants"`
	ParticipantsJSON datatypes.JSON `gorm:"column:participants" json:"-"`
	Current          bool           `gorm:"index" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (r *Round) EncodeParticipants() error {
	if r.Participants == nil {
		r.Participants = []Participant{}
	}
	data, err := json.Marshal(r.Participants)
	if err != nil {
		return err
	}
	r.ParticipantsJSON = datatypes.JSON(data)
	return nil
}

func (r *Round) DecodeParticipants() error {
	r.Participants = []Participant{}
	if len(r.ParticipantsJSON) == 0 {
		return nil
	}
	return json.Unmarshal(r.ParticipantsJSON, &r.Participants)
}

func (r *Round) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (r *Round) Joinable() bool {
	return r.Phase == PhaseJoining
}

// Timer returns the countdown the client should display for the current phase.
func (r *Round) Timer() int {
	if r.Phase == PhaseBreak {
		return r.BreakTimer
	}
	return r.JoinTimer
}
