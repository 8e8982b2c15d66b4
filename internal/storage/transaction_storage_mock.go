package storage

import (
	"context"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MockTransactionStorage - мок для тестов.
type MockTransactionStorage struct {
	CreateWithTxFunc       func(ctx context.Context, tx pgx.Tx, transaction *models.WalletTransaction) error
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error)
	GetByUserIDFunc        func(ctx context.Context, userID uuid.UUID) ([]*models.WalletTransaction, error)
	SumCompletedByUserFunc func(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

func (m *MockTransactionStorage) CreateWithTx(ctx context.Context, tx pgx.Tx, transaction *models.WalletTransaction) error {
	if m.CreateWithTxFunc != nil {
		return m.CreateWithTxFunc(ctx, tx, transaction)
	}
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	return nil
}

func (m *MockTransactionStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrTransactionNotFound
}

func (m *MockTransactionStorage) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.WalletTransaction, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return []*models.WalletTransaction{}, nil
}

func (m *MockTransactionStorage) SumCompletedByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if m.SumCompletedByUserFunc != nil {
		return m.SumCompletedByUserFunc(ctx, userID)
	}
	return decimal.Zero, nil
}
