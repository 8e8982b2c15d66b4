package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus описывает статус заявки на вывод средств.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusApproved   WithdrawalStatus = "approved"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
)

// PixKeyType описывает тип PIX-ключа получателя.
type PixKeyType string

const (
	PixKeyTypeCPF    PixKeyType = "cpf"
	PixKeyTypeCNPJ   PixKeyType = "cnpj"
	PixKeyTypeEmail  PixKeyType = "email"
	PixKeyTypePhone  PixKeyType = "phone"
	PixKeyTypeRandom PixKeyType = "random"
)

// Withdrawal представляет заявку на вывод средств.
// Средства резервируются (списываются с баланса) атомарно при создании
// заявки; ReservationTx ссылается на запись журнала с этим списанием.
type Withdrawal struct {
	ID            uuid.UUID        `db:"id"`
	UserID        uuid.UUID        `db:"user_id"`
	Amount        decimal.Decimal  `db:"amount"`
	PixKey        string           `db:"pix_key"`
	PixKeyType    PixKeyType       `db:"pix_key_type"`
	Status        WithdrawalStatus `db:"status"`
	ReviewedBy    *uuid.UUID       `db:"reviewed_by"`
	ReviewNotes   string           `db:"review_notes"`
	AccountID     string           `db:"account_id"`
	PayoutID      string           `db:"payout_id"`
	ReservationTx uuid.UUID        `db:"reservation_tx"`
	CreatedAt     time.Time        `db:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"`
	CompletedAt   *time.Time       `db:"completed_at"`
}

// CreateWithdrawalRequest DTO для создания заявки.
type CreateWithdrawalRequest struct {
	Amount     float64 `json:"amount"`
	PixKey     string  `json:"pixKey"`
	PixKeyType string  `json:"pixKeyType"`
}

// ReviewWithdrawalRequest DTO для решения администратора.
type ReviewWithdrawalRequest struct {
	Action    string `json:"action"` // approve | reject
	AccountID string `json:"account_id,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// WithdrawalResponse DTO для ответа по заявке.
type WithdrawalResponse struct {
	ID          uuid.UUID `json:"id"`
	Amount      float64   `json:"amount"`
	PixKey      string    `json:"pix_key"`
	PixKeyType  string    `json:"pix_key_type"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   string    `json:"created_at"`
	CompletedAt *string   `json:"completed_at,omitempty"`
}

// NewWithdrawalResponse преобразует заявку в DTO.
func NewWithdrawalResponse(w *Withdrawal) *WithdrawalResponse {
	amount, _ := w.Amount.Float64()
	resp := &WithdrawalResponse{
		ID:         w.ID,
		Amount:     amount,
		PixKey:     w.PixKey,
		PixKeyType: string(w.PixKeyType),
		Status:     string(w.Status),
		Notes:      w.ReviewNotes,
		CreatedAt:  w.CreatedAt.Format(time.RFC3339),
	}
	if w.CompletedAt != nil {
		completedAt := w.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completedAt
	}
	return resp
}
