package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

// WalletRepository reads wallet balances straight from the wallets table.
type WalletRepository struct {
	db *sql.DB
}

// NewWalletRepository returns repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// WalletBalance returns the balance of userID. A missing wallet or a NULL
// balance is reported as unknown, not as zero.
func (r *WalletRepository) WalletBalance(ctx context.Context, userID string) (decimal.NullDecimal, error) {
	const query = `
		SELECT balance
		FROM wallets
		WHERE user_id = $1
	`
	var balance decimal.NullDecimal
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return balance, nil
}
