package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type TransactionKind string

const (
	TransactionKindEntryFee   TransactionKind = "entry-fee"
	TransactionKindPrize      TransactionKind = "prize"
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusRejected  TransactionStatus = "rejected"
)

type BankDetails struct {
	AccountNumber string `json:"account_number"`
	IFSCCode      string `json:"ifsc_code"`
	AccountHolder string `json:"account_holder"`
}

// Transaction is the audit record of a balance change. Amount is always
// positive; the kind implies the sign.
type Transaction struct {
	ID              string            `gorm:"primaryKey" json:"id"`
	UserID          string            `gorm:"index" json:"user_id"`
	Kind            TransactionKind   `json:"kind"`
	Amount          int64             `json:"amount"`
	Status          TransactionStatus `gorm:"index" json:"status"`
	RoundID         string            `json:"round_id,omitempty"`
	BalanceAfter    int64             `json:"balance_after"`
	BankDetailsJSON datatypes.JSON    `gorm:"column:bank_details" json:"-"`
	Description     string            `json:"description"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (t *Transaction) SetBankDetails(details BankDetails) error {
	data, err := json.Marshal(details)
	if err != nil {
		return err
	}
	t.BankDetailsJSON = datatypes.JSON(data)
	return nil
}

func (t *Transaction) GetBankDetails() (BankDetails, error) {
	var details BankDetails
	if len(t.BankDetailsJSON) == 0 {
		return details, nil
	}
	err := json.Unmarshal(t.BankDetailsJSON, &details)
	return details, err
}
