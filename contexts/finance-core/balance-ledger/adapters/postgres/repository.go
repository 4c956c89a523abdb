package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"boostpanel/contexts/finance-core/balance-ledger/domain/entities"
	domainerrors "boostpanel/contexts/finance-core/balance-ledger/domain/errors"
	"boostpanel/contexts/finance-core/balance-ledger/ports"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

type userBalanceModel struct {
	UserID     string          `gorm:"column:user_id;primaryKey"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(20,8)"`
	TotalSpent decimal.Decimal `gorm:"column:total_spent;type:numeric(20,8)"`
	Version    int64           `gorm:"column:version"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}

func (userBalanceModel) TableName() string { return "user_balances" }

type balanceTransactionModel struct {
	TransactionID string          `gorm:"column:transaction_id;primaryKey"`
	UserID        string          `gorm:"column:user_id;index"`
	OrderID       *string         `gorm:"column:order_id"`
	DepositID     *string         `gorm:"column:deposit_id"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(20,8)"`
	BalanceBefore decimal.Decimal `gorm:"column:balance_before;type:numeric(20,8)"`
	BalanceAfter  decimal.Decimal `gorm:"column:balance_after;type:numeric(20,8)"`
	Type          string          `gorm:"column:transaction_type"`
	Description   string          `gorm:"column:description"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
}

func (balanceTransactionModel) TableName() string { return "balance_transactions" }

func (r *Repository) UpdateLocked(ctx context.Context, userID string, fn ports.MutateFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockBalance(tx, userID)
		if err != nil {
			return err
		}
		next, entries, err := fn(current)
		if err != nil {
			return err
		}
		if err := writeBalance(tx, current, next); err != nil {
			return err
		}
		return appendEntries(tx, entries)
	})
}

func (r *Repository) UpdatePairLocked(ctx context.Context, fromID, toID string, fn ports.MutatePairFunc) error {
	// Lock order is by user id, not by transfer direction, so concurrent
	// opposite-direction transfers cannot deadlock.
	first, second := strings.TrimSpace(fromID), strings.TrimSpace(toID)
	swapped := first > second
	if swapped {
		first, second = second, first
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := lockBalance(tx, first)
		if err != nil {
			return err
		}
		b, err := lockBalance(tx, second)
		if err != nil {
			return err
		}
		from, to := a, b
		if swapped {
			from, to = b, a
		}

		nextFrom, nextTo, entries, err := fn(from, to)
		if err != nil {
			return err
		}
		if err := writeBalance(tx, from, nextFrom); err != nil {
			return err
		}
		if err := writeBalance(tx, to, nextTo); err != nil {
			return err
		}
		return appendEntries(tx, entries)
	})
}

func (r *Repository) GetBalance(ctx context.Context, userID string) (entities.UserBalance, error) {
	var row userBalanceModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.UserBalance{}, domainerrors.ErrUserNotFound
		}
		return entities.UserBalance{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]entities.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []balanceTransactionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	items := make([]entities.Transaction, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func lockBalance(tx *gorm.DB, userID string) (entities.UserBalance, error) {
	var row userBalanceModel
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.UserBalance{}, domainerrors.ErrUserNotFound
		}
		return entities.UserBalance{}, err
	}
	return row.toEntity(), nil
}

func writeBalance(tx *gorm.DB, current, next entities.UserBalance) error {
	result := tx.Model(&userBalanceModel{}).
		Where("user_id = ? AND version = ?", current.UserID, current.Version).
		Updates(map[string]any{
			"balance":     next.Balance,
			"total_spent": next.TotalSpent,
			"version":     current.Version + 1,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConcurrencyConflict
	}
	return nil
}

func appendEntries(tx *gorm.DB, entries []entities.Transaction) error {
	for _, entry := range entries {
		row := transactionModelFromEntity(entry)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m userBalanceModel) toEntity() entities.UserBalance {
	return entities.UserBalance{
		UserID:     m.UserID,
		Balance:    m.Balance,
		TotalSpent: m.TotalSpent,
		Version:    m.Version,
		UpdatedAt:  m.UpdatedAt,
	}
}

func (m balanceTransactionModel) toEntity() entities.Transaction {
	item := entities.Transaction{
		TransactionID: m.TransactionID,
		UserID:        m.UserID,
		Amount:        m.Amount,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		Type:          entities.TransactionType(m.Type),
		Description:   m.Description,
		CreatedAt:     m.CreatedAt,
	}
	if m.OrderID != nil {
		item.OrderID = *m.OrderID
	}
	if m.DepositID != nil {
		item.DepositID = *m.DepositID
	}
	return item
}

func transactionModelFromEntity(item entities.Transaction) balanceTransactionModel {
	row := balanceTransactionModel{
		TransactionID: item.TransactionID,
		UserID:        item.UserID,
		Amount:        item.Amount,
		BalanceBefore: item.BalanceBefore,
		BalanceAfter:  item.BalanceAfter,
		Type:          string(item.Type),
		Description:   item.Description,
		CreatedAt:     item.CreatedAt.UTC(),
	}
	if item.OrderID != "" {
		orderID := item.OrderID
		row.OrderID = &orderID
	}
	if item.DepositID != "" {
		depositID := item.DepositID
		row.DepositID = &depositID
	}
	return row
}

var _ ports.LedgerStore = (*Repository)(nil)
