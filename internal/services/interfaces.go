package services

import (
	"context"
	"encoding/json"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TxBeginner открывает транзакции БД. Реализуется *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WalletLedger определяет операции журнала кошелька.
// Все изменения балансов проходят только через эти операции.
type WalletLedger interface {
	CreditTx(ctx context.Context, tx pgx.Tx, entry *models.WalletTransaction) error
	ReserveTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, withdrawalID uuid.UUID) (*models.WalletTransaction, error)
	ReverseTx(ctx context.Context, tx pgx.Tx, originalID uuid.UUID) (*models.WalletTransaction, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.BalanceResponse, error)
	GetTransactions(ctx context.Context, userID uuid.UUID) ([]*models.TransactionResponse, error)
}

// Reconciler сверяет платёж с его статусом у провайдера.
// Единая точка входа для вебхуков и фонового опроса.
type Reconciler interface {
	Reconcile(ctx context.Context, referenceCode string, status psp.ChargeStatus, payload json.RawMessage) error
}

// PayoutFinalizer завершает обработку выплат с отложенным исходом.
type PayoutFinalizer interface {
	FinalizePayout(ctx context.Context, withdrawal *models.Withdrawal) error
}
