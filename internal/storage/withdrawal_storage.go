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
)

var ErrWithdrawalNotFound = errors.New("withdrawal not found")

// WithdrawalStorage определяет интерфейс для заявок на вывод средств.
// Переводы статусов выполняются условными обновлениями с предусловием
// по текущему статусу, поэтому конкурентные решения администраторов
// и фоновая сверка выплат не конфликтуют.
type WithdrawalStorage interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, withdrawal *models.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error)
	MarkApproved(ctx context.Context, id, reviewerID uuid.UUID, accountID, notes string) (bool, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	SetPayoutID(ctx context.Context, id uuid.UUID, payoutID string) error
	MarkRejectedTx(ctx context.Context, tx pgx.Tx, id, reviewerID uuid.UUID, notes string) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// PostgresWithdrawalStorage реализует WithdrawalStorage для PostgreSQL.
type PostgresWithdrawalStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresWithdrawalStorage создаёт новый экземпляр.
func NewPostgresWithdrawalStorage(pool *pgxpool.Pool) *PostgresWithdrawalStorage {
	return &PostgresWithdrawalStorage{pool: pool}
}

// CreateWithTx создаёт заявку в рамках переданной транзакции.
// Вызывается только вместе с резервацией средств в журнале кошелька.
func (s *PostgresWithdrawalStorage) CreateWithTx(ctx context.Context, tx pgx.Tx, withdrawal *models.Withdrawal) error {
	if withdrawal.ID == uuid.Nil {
		withdrawal.ID = uuid.New()
	}

	query := `
		INSERT INTO withdrawals
			(id, user_id, amount, pix_key, pix_key_type, status, reservation_tx, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		withdrawal.ID,
		withdrawal.UserID,
		withdrawal.Amount,
		withdrawal.PixKey,
		withdrawal.PixKeyType,
		withdrawal.Status,
		withdrawal.ReservationTx,
	).Scan(&withdrawal.CreatedAt, &withdrawal.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return nil
}

// GetByID возвращает заявку по ID.
func (s *PostgresWithdrawalStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	return scanWithdrawal(s.pool.QueryRow(ctx, selectWithdrawal+` WHERE id = $1`, id))
}

// GetByUserID возвращает заявки пользователя (новые первыми).
func (s *PostgresWithdrawalStorage) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error) {
	rows, err := s.pool.Query(ctx, selectWithdrawal+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

// ListByStatus возвращает заявки в указанном статусе (старые первыми).
func (s *PostgresWithdrawalStorage) ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error) {
	rows, err := s.pool.Query(ctx, selectWithdrawal+` WHERE status = $1 ORDER BY created_at ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals by status: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

// MarkApproved атомарно переводит заявку pending -> approved,
// фиксируя администратора и выбранный счёт. false означает, что заявка
// уже рассмотрена другим администратором.
func (s *PostgresWithdrawalStorage) MarkApproved(ctx context.Context, id, reviewerID uuid.UUID, accountID, notes string) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = 'approved', reviewed_by = $2, account_id = $3, review_notes = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := s.pool.Exec(ctx, query, id, reviewerID, accountID, notes)
	if err != nil {
		return false, fmt.Errorf("failed to mark withdrawal approved: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// MarkProcessing переводит заявку approved -> processing перед созданием
// выплаты у провайдера.
func (s *PostgresWithdrawalStorage) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status = 'approved'
	`

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark withdrawal processing: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// SetPayoutID записывает идентификатор выплаты, выданный провайдером.
func (s *PostgresWithdrawalStorage) SetPayoutID(ctx context.Context, id uuid.UUID, payoutID string) error {
	query := `
		UPDATE withdrawals
		SET payout_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := s.pool.Exec(ctx, query, id, payoutID)
	if err != nil {
		return fmt.Errorf("failed to set payout id: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrWithdrawalNotFound
	}

	return nil
}

// MarkRejectedTx переводит заявку pending -> rejected в рамках транзакции,
// в которой также сторнируется резервация средств.
func (s *PostgresWithdrawalStorage) MarkRejectedTx(ctx context.Context, tx pgx.Tx, id, reviewerID uuid.UUID, notes string) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = 'rejected', reviewed_by = $2, review_notes = $3, updated_at = NOW(), completed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := tx.Exec(ctx, query, id, reviewerID, notes)
	if err != nil {
		return false, fmt.Errorf("failed to reject withdrawal: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// MarkCompleted переводит заявку processing -> completed.
func (s *PostgresWithdrawalStorage) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = 'completed', updated_at = NOW(), completed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to complete withdrawal: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// MarkFailedTx переводит заявку processing -> failed в рамках транзакции,
// в которой также сторнируется резервация средств.
func (s *PostgresWithdrawalStorage) MarkFailedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = 'failed', updated_at = NOW(), completed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark withdrawal failed: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

const selectWithdrawal = `
	SELECT id, user_id, amount, pix_key, pix_key_type, status, reviewed_by,
		review_notes, account_id, payout_id, reservation_tx, created_at, updated_at, completed_at
	FROM withdrawals`

// scanWithdrawal помогает читать заявку из строки результата.
func scanWithdrawal(row pgx.Row) (*models.Withdrawal, error) {
	var (
		withdrawal  models.Withdrawal
		completedAt *time.Time
	)

	err := row.Scan(
		&withdrawal.ID,
		&withdrawal.UserID,
		&withdrawal.Amount,
		&withdrawal.PixKey,
		&withdrawal.PixKeyType,
		&withdrawal.Status,
		&withdrawal.ReviewedBy,
		&withdrawal.ReviewNotes,
		&withdrawal.AccountID,
		&withdrawal.PayoutID,
		&withdrawal.ReservationTx,
		&withdrawal.CreatedAt,
		&withdrawal.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
	}

	withdrawal.CompletedAt = completedAt
	return &withdrawal, nil
}

// collectWithdrawals читает все заявки из результата запроса.
func collectWithdrawals(rows pgx.Rows) ([]*models.Withdrawal, error) {
	var withdrawals []*models.Withdrawal
	for rows.Next() {
		withdrawal, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, withdrawal)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return withdrawals, nil
}
