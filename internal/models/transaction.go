package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType описывает тип записи в журнале кошелька.
type TransactionType string

const (
	TransactionTypeDeposit       TransactionType = "deposit"
	TransactionTypeWithdrawal    TransactionType = "withdrawal"
	TransactionTypePaymentCredit TransactionType = "payment_credit"
	TransactionTypeCommission    TransactionType = "commission"
	TransactionTypeBonus         TransactionType = "bonus"
)

// TransactionStatus описывает статус записи журнала.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// WalletTransaction - неизменяемая запись журнала кошелька.
// Баланс пользователя всегда равен сумме Amount его completed-записей;
// записи никогда не изменяются и не удаляются, сторнирование выполняется
// новой записью с обратным знаком и ссылкой ReversalOf на оригинал.
type WalletTransaction struct {
	ID           uuid.UUID         `db:"id"`
	UserID       uuid.UUID         `db:"user_id"`
	Type         TransactionType   `db:"type"`
	Amount       decimal.Decimal   `db:"amount"`
	Status       TransactionStatus `db:"status"`
	PaymentID    *uuid.UUID        `db:"payment_id"`
	WithdrawalID *uuid.UUID        `db:"withdrawal_id"`
	ReversalOf   *uuid.UUID        `db:"reversal_of"`
	CreatedAt    time.Time         `db:"created_at"`
	CompletedAt  *time.Time        `db:"completed_at"`
}

// TransactionResponse DTO для истории операций кошелька.
type TransactionResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	CreatedAt   string    `json:"created_at"`
	CompletedAt *string   `json:"completed_at,omitempty"`
}
