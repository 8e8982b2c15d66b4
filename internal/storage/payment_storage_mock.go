package storage

import (
	"context"
	"encoding/json"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MockPaymentStorage - мок для тестов.
type MockPaymentStorage struct {
	CreateFunc             func(ctx context.Context, payment *models.Payment) error
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByReferenceCodeFunc func(ctx context.Context, referenceCode string) (*models.Payment, error)
	GetByUserIDFunc        func(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error)
	GetPendingByUserIDFunc func(ctx context.Context, userID uuid.UUID) (*models.Payment, error)
	GetPendingLiveFunc     func(ctx context.Context) ([]*models.Payment, error)
	MarkPaidTxFunc         func(ctx context.Context, tx pgx.Tx, referenceCode string, payload json.RawMessage) (*models.Payment, bool, error)
	TransitionTerminalFunc func(ctx context.Context, referenceCode string, status models.PaymentStatus, payload json.RawMessage) (bool, error)
	CancelByUserFunc       func(ctx context.Context, id, userID uuid.UUID) (bool, error)
	ExpireOverdueFunc      func(ctx context.Context) (int64, error)
}

func (m *MockPaymentStorage) Create(ctx context.Context, payment *models.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, payment)
	}
	return nil
}

func (m *MockPaymentStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrPaymentNotFound
}

func (m *MockPaymentStorage) GetByReferenceCode(ctx context.Context, referenceCode string) (*models.Payment, error) {
	if m.GetByReferenceCodeFunc != nil {
		return m.GetByReferenceCodeFunc(ctx, referenceCode)
	}
	return nil, ErrPaymentNotFound
}

func (m *MockPaymentStorage) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return []*models.Payment{}, nil
}

func (m *MockPaymentStorage) GetPendingByUserID(ctx context.Context, userID uuid.UUID) (*models.Payment, error) {
	if m.GetPendingByUserIDFunc != nil {
		return m.GetPendingByUserIDFunc(ctx, userID)
	}
	return nil, ErrPaymentNotFound
}

func (m *MockPaymentStorage) GetPendingLive(ctx context.Context) ([]*models.Payment, error) {
	if m.GetPendingLiveFunc != nil {
		return m.GetPendingLiveFunc(ctx)
	}
	return []*models.Payment{}, nil
}

func (m *MockPaymentStorage) MarkPaidTx(ctx context.Context, tx pgx.Tx, referenceCode string, payload json.RawMessage) (*models.Payment, bool, error) {
	if m.MarkPaidTxFunc != nil {
		return m.MarkPaidTxFunc(ctx, tx, referenceCode, payload)
	}
	return nil, false, nil
}

func (m *MockPaymentStorage) TransitionTerminal(ctx context.Context, referenceCode string, status models.PaymentStatus, payload json.RawMessage) (bool, error) {
	if m.TransitionTerminalFunc != nil {
		return m.TransitionTerminalFunc(ctx, referenceCode, status, payload)
	}
	return false, nil
}

func (m *MockPaymentStorage) CancelByUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	if m.CancelByUserFunc != nil {
		return m.CancelByUserFunc(ctx, id, userID)
	}
	return false, nil
}

func (m *MockPaymentStorage) ExpireOverdue(ctx context.Context) (int64, error) {
	if m.ExpireOverdueFunc != nil {
		return m.ExpireOverdueFunc(ctx)
	}
	return 0, nil
}
