package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ritz541/iamwheel/internal/models"
)

// Ledger owns every wallet balance mutation. A balance change is always a
// single conditional UPDATE paired with a transaction row in the same
// database transaction, so concurrent debits cannot lose an update and a
// balance can never go negative.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Credit(ctx context.Context, userID string, amount int64, kind models.TransactionKind, roundID, description string) (*models.Transaction, error) {
	var entry *models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = l.creditTx(tx, userID, amount, kind, roundID, description)
		return err
	})
	return entry, err
}

func (l *Ledger) Debit(ctx context.Context, userID string, amount int64, kind models.TransactionKind, roundID, description string) (*models.Transaction, error) {
	var entry *models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = l.debitTx(tx, userID, amount, kind, roundID, description)
		return err
	})
	return entry, err
}

// creditTx mutates the balance inside an existing transaction. Used by the
// round store so a prize credit commits atomically with its outcome record.
func (l *Ledger) creditTx(tx *gorm.DB, userID string, amount int64, kind models.TransactionKind, roundID, description string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return l.writeEntry(tx, userID, amount, kind, roundID, description, models.TransactionStatusCompleted)
}

func (l *Ledger) debitTx(tx *gorm.DB, userID string, amount int64, kind models.TransactionKind, roundID, description string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	res := tx.Model(&models.User{}).
		Where("id = ? AND balance >= ? AND is_blocked = ?", userID, amount, false).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to debit balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, l.diagnoseDebitFailure(tx, userID)
	}

	return l.writeEntry(tx, userID, amount, kind, roundID, description, models.TransactionStatusCompleted)
}

// diagnoseDebitFailure tells a refused debit apart: missing account,
// blocked account, or plain insufficient funds.
func (l *Ledger) diagnoseDebitFailure(tx *gorm.DB, userID string) error {
	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if user.IsBlocked {
		return ErrAccountBlocked
	}
	return ErrInsufficientFunds
}

func (l *Ledger) writeEntry(tx *gorm.DB, userID string, amount int64, kind models.TransactionKind, roundID, description string, status models.TransactionStatus) (*models.Transaction, error) {
	var user models.User
	if err := tx.Select("balance").First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to read balance for ledger entry: %w", err)
	}

	entry := &models.Transaction{
		ID:           models.NewTransactionID(),
		UserID:       userID,
		Kind:         kind,
		Amount:       amount,
		Status:       status,
		RoundID:      roundID,
		BalanceAfter: user.Balance,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to write ledger entry: %w", err)
	}
	return entry, nil
}

// RequestDeposit records a pending deposit. The wallet is only credited
// when an admin approves: deposits are not trusted until verified.
func (l *Ledger) RequestDeposit(ctx context.Context, userID string, amount int64) (*models.Transaction, error) {
	entry := &models.Transaction{
		ID:          models.NewTransactionID(),
		UserID:      userID,
		Kind:        models.TransactionKindDeposit,
		Amount:      amount,
		Status:      models.TransactionStatusPending,
		Description: fmt.Sprintf("Deposit request of %d", amount),
		CreatedAt:   time.Now(),
	}
	if err := l.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create deposit request: %w", err)
	}
	return entry, nil
}

// RequestWithdrawal debits the wallet eagerly and records a pending
// withdrawal. Users cannot withdraw funds they don't have; a rejected
// request refunds the debit.
func (l *Ledger) RequestWithdrawal(ctx context.Context, userID string, amount int64, bank models.BankDetails) (*models.Transaction, error) {
	var entry *models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND balance >= ? AND is_blocked = ?", userID, amount, false).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return fmt.Errorf("failed to debit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return l.diagnoseDebitFailure(tx, userID)
		}

		var user models.User
		if err := tx.Select("balance").First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("failed to read balance: %w", err)
		}

		entry = &models.Transaction{
			ID:           models.NewTransactionID(),
			UserID:       userID,
			Kind:         models.TransactionKindWithdrawal,
			Amount:       amount,
			Status:       models.TransactionStatusPending,
			BalanceAfter: user.Balance,
			Description:  fmt.Sprintf("Withdrawal request of %d", amount),
			CreatedAt:    time.Now(),
		}
		if err := entry.SetBankDetails(bank); err != nil {
			return fmt.Errorf("failed to encode bank details: %w", err)
		}
		return tx.Create(entry).Error
	})
	return entry, err
}

// Approve completes a pending transaction. A deposit credits the wallet
// now; a withdrawal only flips status because its funds were already
// deducted at request time.
func (l *Ledger) Approve(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var entry models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.loadPending(tx, transactionID, &entry); err != nil {
			return err
		}

		if entry.Kind == models.TransactionKindDeposit {
			res := tx.Model(&models.User{}).
				Where("id = ?", entry.UserID).
				Update("balance", gorm.Expr("balance + ?", entry.Amount))
			if res.Error != nil {
				return fmt.Errorf("failed to credit deposit: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrUserNotFound
			}
			var user models.User
			if err := tx.Select("balance").First(&user, "id = ?", entry.UserID).Error; err != nil {
				return fmt.Errorf("failed to read balance: %w", err)
			}
			entry.BalanceAfter = user.Balance
		}

		entry.Status = models.TransactionStatusCompleted
		return tx.Save(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Reject marks a pending transaction rejected. A withdrawal refunds the
// amount deducted at request time; a deposit only flips status.
func (l *Ledger) Reject(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var entry models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.loadPending(tx, transactionID, &entry); err != nil {
			return err
		}

		if entry.Kind == models.TransactionKindWithdrawal {
			res := tx.Model(&models.User{}).
				Where("id = ?", entry.UserID).
				Update("balance", gorm.Expr("balance + ?", entry.Amount))
			if res.Error != nil {
				return fmt.Errorf("failed to refund withdrawal: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrUserNotFound
			}
		}

		entry.Status = models.TransactionStatusRejected
		return tx.Save(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (l *Ledger) loadPending(tx *gorm.DB, transactionID string, entry *models.Transaction) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(entry, "id = ?", transactionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	if entry.Status != models.TransactionStatusPending {
		return ErrWrongStatus
	}
	return nil
}

func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var entries []models.Transaction
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction history: %w", err)
	}
	return entries, nil
}

func (l *Ledger) ListByStatus(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var entries []models.Transaction
	err := l.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return entries, nil
}
