package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrTransactionNotFound = errors.New("wallet transaction not found")

// TransactionStorage определяет интерфейс журнала кошелька.
// Журнал append-only: записи не изменяются и не удаляются.
type TransactionStorage interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, transaction *models.WalletTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.WalletTransaction, error)
	SumCompletedByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// PostgresTransactionStorage реализует TransactionStorage для PostgreSQL.
type PostgresTransactionStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresTransactionStorage создаёт новый экземпляр.
func NewPostgresTransactionStorage(pool *pgxpool.Pool) *PostgresTransactionStorage {
	return &PostgresTransactionStorage{pool: pool}
}

// CreateWithTx добавляет запись журнала в рамках переданной транзакции.
func (s *PostgresTransactionStorage) CreateWithTx(ctx context.Context, tx pgx.Tx, transaction *models.WalletTransaction) error {
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}

	query := `
		INSERT INTO wallet_transactions
			(id, user_id, type, amount, status, payment_id, withdrawal_id, reversal_of, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), $9)
		RETURNING created_at
	`

	var completedAt *time.Time
	if transaction.Status == models.TransactionStatusCompleted {
		now := time.Now()
		completedAt = &now
		transaction.CompletedAt = completedAt
	}

	err := tx.QueryRow(ctx, query,
		transaction.ID,
		transaction.UserID,
		transaction.Type,
		transaction.Amount,
		transaction.Status,
		transaction.PaymentID,
		transaction.WithdrawalID,
		transaction.ReversalOf,
		completedAt,
	).Scan(&transaction.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create wallet transaction: %w", err)
	}

	return nil
}

// GetByID возвращает запись журнала по ID.
func (s *PostgresTransactionStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	return scanTransaction(s.pool.QueryRow(ctx, selectTransaction+` WHERE id = $1`, id))
}

// GetByUserID возвращает записи журнала пользователя (новые первыми).
func (s *PostgresTransactionStorage) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.WalletTransaction, error) {
	rows, err := s.pool.Query(ctx, selectTransaction+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.WalletTransaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return transactions, nil
}

// SumCompletedByUser возвращает сумму completed-записей пользователя.
// Это определение баланса; колонка users.balance обязана с ним совпадать.
func (s *PostgresTransactionStorage) SumCompletedByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE user_id = $1 AND status = 'completed'
	`

	var sum decimal.Decimal
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}

	return sum, nil
}

const selectTransaction = `
	SELECT id, user_id, type, amount, status, payment_id, withdrawal_id, reversal_of, created_at, completed_at
	FROM wallet_transactions`

// scanTransaction помогает читать запись журнала из строки результата.
func scanTransaction(row pgx.Row) (*models.WalletTransaction, error) {
	transaction := &models.WalletTransaction{}
	err := row.Scan(
		&transaction.ID,
		&transaction.UserID,
		&transaction.Type,
		&transaction.Amount,
		&transaction.Status,
		&transaction.PaymentID,
		&transaction.WithdrawalID,
		&transaction.ReversalOf,
		&transaction.CreatedAt,
		&transaction.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
	}

	return transaction, nil
}
