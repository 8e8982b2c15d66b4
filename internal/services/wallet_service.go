package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidLedgerAmount = errors.New("ledger amount must be positive")
	ErrNotReversible       = errors.New("transaction is not reversible")
)

// WalletServiceImpl реализует WalletLedger.
// Журнал append-only; users.balance поддерживается строго в той же
// транзакции БД, что и добавление completed-записи, поэтому баланс
// всегда равен сумме completed-записей пользователя.
type WalletServiceImpl struct {
	pool        TxBeginner
	userStorage storage.UserStorage
	txStorage   storage.TransactionStorage
}

// NewWalletService создаёт сервис кошелька.
func NewWalletService(pool TxBeginner, userStorage storage.UserStorage, txStorage storage.TransactionStorage) *WalletServiceImpl {
	return &WalletServiceImpl{
		pool:        pool,
		userStorage: userStorage,
		txStorage:   txStorage,
	}
}

// CreditTx зачисляет средства в рамках переданной транзакции:
// одна completed-запись журнала плюс синхронное увеличение баланса.
func (s *WalletServiceImpl) CreditTx(ctx context.Context, tx pgx.Tx, entry *models.WalletTransaction) error {
	if entry.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidLedgerAmount
	}

	entry.Status = models.TransactionStatusCompleted
	if err := s.txStorage.CreateWithTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := s.userStorage.CreditBalanceTx(ctx, tx, entry.UserID, entry.Amount); err != nil {
		return err
	}

	return nil
}

// ReserveTx резервирует средства под вывод: условное списание баланса
// и отрицательная completed-запись журнала в одной транзакции.
// При нехватке средств возвращает storage.ErrInsufficientBalance.
func (s *WalletServiceImpl) ReserveTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, withdrawalID uuid.UUID) (*models.WalletTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidLedgerAmount
	}

	if err := s.userStorage.ReserveBalanceTx(ctx, tx, userID, amount); err != nil {
		return nil, err
	}

	entry := &models.WalletTransaction{
		UserID:       userID,
		Type:         models.TransactionTypeWithdrawal,
		Amount:       amount.Neg(),
		Status:       models.TransactionStatusCompleted,
		WithdrawalID: &withdrawalID,
	}
	if err := s.txStorage.CreateWithTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// ReverseTx сторнирует запись журнала: добавляет новую completed-запись
// с обратным знаком и возвращает средства на баланс. Оригинальная запись
// не изменяется.
func (s *WalletServiceImpl) ReverseTx(ctx context.Context, tx pgx.Tx, originalID uuid.UUID) (*models.WalletTransaction, error) {
	original, err := s.txStorage.GetByID(ctx, originalID)
	if err != nil {
		return nil, err
	}

	if original.Status != models.TransactionStatusCompleted {
		return nil, ErrNotReversible
	}

	entry := &models.WalletTransaction{
		UserID:       original.UserID,
		Type:         models.TransactionTypeDeposit,
		Amount:       original.Amount.Neg(),
		Status:       models.TransactionStatusCompleted,
		PaymentID:    original.PaymentID,
		WithdrawalID: original.WithdrawalID,
		ReversalOf:   &original.ID,
	}
	if err := s.txStorage.CreateWithTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := s.userStorage.CreditBalanceTx(ctx, tx, entry.UserID, entry.Amount); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetBalance возвращает текущий баланс пользователя.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (*models.BalanceResponse, error) {
	user, err := s.userStorage.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	current, _ := user.Balance.Float64()
	return &models.BalanceResponse{Current: current}, nil
}

// GetTransactions возвращает историю операций кошелька пользователя.
func (s *WalletServiceImpl) GetTransactions(ctx context.Context, userID uuid.UUID) ([]*models.TransactionResponse, error) {
	transactions, err := s.txStorage.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get wallet transactions: %w", err)
	}

	var response []*models.TransactionResponse
	for _, t := range transactions {
		amount, _ := t.Amount.Float64()
		item := &models.TransactionResponse{
			ID:        t.ID,
			Type:      string(t.Type),
			Amount:    amount,
			Status:    string(t.Status),
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		}
		if t.CompletedAt != nil {
			completedAt := t.CompletedAt.Format(time.RFC3339)
			item.CompletedAt = &completedAt
		}
		response = append(response, item)
	}

	return response, nil
}
