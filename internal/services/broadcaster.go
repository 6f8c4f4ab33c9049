package services

import "github.com/ritz541/iamwheel/internal/models"

// Broadcaster fans round events out to every connected observer.
// Implementations must never block the caller: the driver tick keeps
// going even when a consumer is slow.
type Broadcaster interface {
	RoundState(round *models.Round)
	Tick(timeLeft int, isBreak bool)
	PlayerJoined(round *models.Round, newPlayer models.Participant)
	BreakStarted(duration int)
	RoundCancelled(message string)
	ShowWheel()
	WinnerSelected(winner models.Participant, prize, walletBalance int64)
	GameEnd(winnerName string, prize int64)
}
