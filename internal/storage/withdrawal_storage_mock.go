package storage

import (
	"context"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MockWithdrawalStorage - мок для тестов.
type MockWithdrawalStorage struct {
	CreateWithTxFunc   func(ctx context.Context, tx pgx.Tx, withdrawal *models.Withdrawal) error
	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	GetByUserIDFunc    func(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error)
	ListByStatusFunc   func(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error)
	MarkApprovedFunc   func(ctx context.Context, id, reviewerID uuid.UUID, accountID, notes string) (bool, error)
	MarkProcessingFunc func(ctx context.Context, id uuid.UUID) (bool, error)
	SetPayoutIDFunc    func(ctx context.Context, id uuid.UUID, payoutID string) error
	MarkRejectedTxFunc func(ctx context.Context, tx pgx.Tx, id, reviewerID uuid.UUID, notes string) (bool, error)
	MarkCompletedFunc  func(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailedTxFunc   func(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

func (m *MockWithdrawalStorage) CreateWithTx(ctx context.Context, tx pgx.Tx, withdrawal *models.Withdrawal) error {
	if m.CreateWithTxFunc != nil {
		return m.CreateWithTxFunc(ctx, tx, withdrawal)
	}
	return nil
}

func (m *MockWithdrawalStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrWithdrawalNotFound
}

func (m *MockWithdrawalStorage) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return []*models.Withdrawal{}, nil
}

func (m *MockWithdrawalStorage) ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, status)
	}
	return []*models.Withdrawal{}, nil
}

func (m *MockWithdrawalStorage) MarkApproved(ctx context.Context, id, reviewerID uuid.UUID, accountID, notes string) (bool, error) {
	if m.MarkApprovedFunc != nil {
		return m.MarkApprovedFunc(ctx, id, reviewerID, accountID, notes)
	}
	return true, nil
}

func (m *MockWithdrawalStorage) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.MarkProcessingFunc != nil {
		return m.MarkProcessingFunc(ctx, id)
	}
	return true, nil
}

func (m *MockWithdrawalStorage) SetPayoutID(ctx context.Context, id uuid.UUID, payoutID string) error {
	if m.SetPayoutIDFunc != nil {
		return m.SetPayoutIDFunc(ctx, id, payoutID)
	}
	return nil
}

func (m *MockWithdrawalStorage) MarkRejectedTx(ctx context.Context, tx pgx.Tx, id, reviewerID uuid.UUID, notes string) (bool, error) {
	if m.MarkRejectedTxFunc != nil {
		return m.MarkRejectedTxFunc(ctx, tx, id, reviewerID, notes)
	}
	return true, nil
}

func (m *MockWithdrawalStorage) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, id)
	}
	return true, nil
}

func (m *MockWithdrawalStorage) MarkFailedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	if m.MarkFailedTxFunc != nil {
		return m.MarkFailedTxFunc(ctx, tx, id)
	}
	return true, nil
}
