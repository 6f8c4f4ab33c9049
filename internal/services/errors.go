package services

import "errors"

// Sentinel errors for the outcomes callers need to tell apart. Handlers
// map these to distinct responses with errors.Is.
var (
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrAlreadyJoined       = errors.New("already joined this round")
	ErrRoundNotJoinable    = errors.New("cannot join now, wait for the next round")
	ErrRateLimited         = errors.New("too many requests, slow down")
	ErrAccountBlocked      = errors.New("account is blocked")
	ErrNoCurrentRound      = errors.New("no current round")
	ErrAlreadyResolved     = errors.New("round already resolved")
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrWrongStatus         = errors.New("transaction is not pending")
)
