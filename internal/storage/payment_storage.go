package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrActivePaymentExists = errors.New("active payment already exists")
)

// PaymentStorage определяет интерфейс для работы с PIX-платежами.
// Все переводы статусов выполняются условными обновлениями (CAS):
// предусловием всегда служит статус pending, поэтому повторные и
// конкурентные сигналы сверки безопасны.
type PaymentStorage interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByReferenceCode(ctx context.Context, referenceCode string) (*models.Payment, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error)
	GetPendingByUserID(ctx context.Context, userID uuid.UUID) (*models.Payment, error)
	GetPendingLive(ctx context.Context) ([]*models.Payment, error)
	MarkPaidTx(ctx context.Context, tx pgx.Tx, referenceCode string, payload json.RawMessage) (*models.Payment, bool, error)
	TransitionTerminal(ctx context.Context, referenceCode string, status models.PaymentStatus, payload json.RawMessage) (bool, error)
	CancelByUser(ctx context.Context, id, userID uuid.UUID) (bool, error)
	ExpireOverdue(ctx context.Context) (int64, error)
}

// PostgresPaymentStorage реализует PaymentStorage для PostgreSQL.
type PostgresPaymentStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresPaymentStorage создаёт новый экземпляр PostgresPaymentStorage.
func NewPostgresPaymentStorage(pool *pgxpool.Pool) *PostgresPaymentStorage {
	return &PostgresPaymentStorage{pool: pool}
}

// Create создаёт новый платёж в статусе pending.
func (s *PostgresPaymentStorage) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, user_id, amount, commission_rate, description, status,
			reference_code, pix_copy_paste, qr_code_image, provider_payload, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), $11)
		RETURNING created_at
	`

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	err := s.pool.QueryRow(ctx, query,
		payment.ID,
		payment.UserID,
		payment.Amount,
		payment.CommissionRate,
		payment.Description,
		payment.Status,
		payment.ReferenceCode,
		payment.PixCopyPaste,
		payment.QRCodeImage,
		payment.ProviderPayload,
		payment.ExpiresAt,
	).Scan(&payment.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			// Частичный уникальный индекс по (user_id) WHERE status = 'pending'
			// закрывает гонку двух одновременных созданий
			return ErrActivePaymentExists
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID возвращает платёж по ID.
func (s *PostgresPaymentStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return scanPayment(s.pool.QueryRow(ctx, selectPayment+` WHERE id = $1`, id))
}

// GetByReferenceCode возвращает платёж по reference code провайдера.
func (s *PostgresPaymentStorage) GetByReferenceCode(ctx context.Context, referenceCode string) (*models.Payment, error) {
	return scanPayment(s.pool.QueryRow(ctx, selectPayment+` WHERE reference_code = $1`, referenceCode))
}

// GetByUserID возвращает платежи пользователя (новые первыми).
func (s *PostgresPaymentStorage) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error) {
	rows, err := s.pool.Query(ctx, selectPayment+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

// GetPendingByUserID возвращает активный (pending) платёж пользователя.
func (s *PostgresPaymentStorage) GetPendingByUserID(ctx context.Context, userID uuid.UUID) (*models.Payment, error) {
	return scanPayment(s.pool.QueryRow(ctx,
		selectPayment+` WHERE user_id = $1 AND status = 'pending'`, userID))
}

// GetPendingLive возвращает pending-платежи, срок которых ещё не истёк.
// Их статусы периодически опрашиваются у провайдера.
func (s *PostgresPaymentStorage) GetPendingLive(ctx context.Context) ([]*models.Payment, error) {
	rows, err := s.pool.Query(ctx,
		selectPayment+` WHERE status = 'pending' AND expires_at > NOW() ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

// MarkPaidTx атомарно переводит платёж pending -> paid в рамках транзакции.
// Возвращает (платёж, true) только если именно этот вызов изменил строку;
// (nil, false) означает, что платёж уже в терминальном статусе и операция
// является идемпотентным no-op.
func (s *PostgresPaymentStorage) MarkPaidTx(ctx context.Context, tx pgx.Tx, referenceCode string, payload json.RawMessage) (*models.Payment, bool, error) {
	query := `
		UPDATE payments
		SET status = 'paid', paid_at = NOW(),
			provider_payload = COALESCE($2, provider_payload)
		WHERE reference_code = $1 AND status = 'pending'
		RETURNING id, user_id, amount, commission_rate, description, status,
			reference_code, pix_copy_paste, qr_code_image, provider_payload,
			created_at, expires_at, paid_at
	`

	payment, err := scanPayment(tx.QueryRow(ctx, query, referenceCode, payload))
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return payment, true, nil
}

// TransitionTerminal переводит платёж pending -> expired/cancelled тем же
// CAS-шаблоном. false означает, что платёж уже был в терминальном статусе.
func (s *PostgresPaymentStorage) TransitionTerminal(ctx context.Context, referenceCode string, status models.PaymentStatus, payload json.RawMessage) (bool, error) {
	if !status.IsTerminal() || status == models.PaymentStatusPaid {
		return false, fmt.Errorf("invalid terminal status %q", status)
	}

	query := `
		UPDATE payments
		SET status = $2, provider_payload = COALESCE($3, provider_payload)
		WHERE reference_code = $1 AND status = 'pending'
	`

	result, err := s.pool.Exec(ctx, query, referenceCode, status, payload)
	if err != nil {
		return false, fmt.Errorf("failed to transition payment: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// CancelByUser отменяет pending-платёж по запросу владельца.
// false означает, что платёж уже успел свериться или истечь.
func (s *PostgresPaymentStorage) CancelByUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'cancelled'
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
	`

	result, err := s.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel payment: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ExpireOverdue переводит просроченные pending-платежи в expired.
// Кошелёк при этом не затрагивается.
func (s *PostgresPaymentStorage) ExpireOverdue(ctx context.Context) (int64, error) {
	query := `
		UPDATE payments
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at <= NOW()
	`

	result, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to expire payments: %w", err)
	}

	return result.RowsAffected(), nil
}

const selectPayment = `
	SELECT id, user_id, amount, commission_rate, description, status,
		reference_code, pix_copy_paste, qr_code_image, provider_payload,
		created_at, expires_at, paid_at
	FROM payments`

// scanPayment помогает читать платёж из строки результата.
func scanPayment(row pgx.Row) (*models.Payment, error) {
	var (
		payment models.Payment
		paidAt  *time.Time
	)

	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Amount,
		&payment.CommissionRate,
		&payment.Description,
		&payment.Status,
		&payment.ReferenceCode,
		&payment.PixCopyPaste,
		&payment.QRCodeImage,
		&payment.ProviderPayload,
		&payment.CreatedAt,
		&payment.ExpiresAt,
		&paidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	payment.PaidAt = paidAt
	return &payment, nil
}

// collectPayments читает все платежи из результата запроса.
func collectPayments(rows pgx.Rows) ([]*models.Payment, error) {
	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return payments, nil
}
