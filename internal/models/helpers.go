package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DepositMin    = 20
	DepositMax    = 1000
	WithdrawalMin = 50
	WithdrawalMax = 500
)

func NewRoundID() string {
	return fmt.Sprintf("round_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func NewTransactionID() string {
	return uuid.New().String()
}

func NewUserID() string {
	return uuid.New().String()
}

// playerEmojis are the avatar tokens shown on the wheel grid. Assigned by
// join order, so avatars within a round stay distinct up to the list size.
var playerEmojis = []string{
	"🦁", "🐯", "🐸", "🐙", "🦊", "🐼", "🐵", "🦄",
	"🐷", "🐨", "🦉", "🐢", "🦋", "🐝", "🦀", "🐬",
	"🦜", "🐺", "🦒", "🐮", "🐹", "🦥", "🦩", "🐰",
}

func EmojiForIndex(i int) string {
	if i < 0 {
		i = 0
	}
	return playerEmojis[i%len(playerEmojis)]
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type DepositRequest struct {
	Amount int64 `json:"amount"`
}

func (r *DepositRequest) Validate() error {
	if r.Amount < DepositMin || r.Amount > DepositMax {
		return fmt.Errorf("invalid deposit amount: must be between %d and %d", DepositMin, DepositMax)
	}
	return nil
}

type WithdrawalRequest struct {
	Amount        int64  `json:"amount"`
	BankAccount   string `json:"bank_account"`
	IFSCCode      string `json:"ifsc_code"`
	AccountHolder string `json:"account_holder"`
}

func (r *WithdrawalRequest) Validate() error {
	if r.Amount < WithdrawalMin || r.Amount > WithdrawalMax {
		return fmt.Errorf("invalid withdrawal amount: must be between %d and %d", WithdrawalMin, WithdrawalMax)
	}
	if r.BankAccount == "" || r.IFSCCode == "" || r.AccountHolder == "" {
		return fmt.Errorf("bank account, IFSC code and account holder are required")
	}
	return nil
}
