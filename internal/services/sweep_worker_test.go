package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/agamariel/pixmarket/internal/storage"
	"github.com/google/uuid"
)

type mockReconciler struct {
	ReconcileFunc func(ctx context.Context, referenceCode string, status psp.ChargeStatus, payload json.RawMessage) error
}

func (m *mockReconciler) Reconcile(ctx context.Context, referenceCode string, status psp.ChargeStatus, payload json.RawMessage) error {
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx, referenceCode, status, payload)
	}
	return nil
}

type mockFinalizer struct {
	FinalizePayoutFunc func(ctx context.Context, withdrawal *models.Withdrawal) error
}

func (m *mockFinalizer) FinalizePayout(ctx context.Context, withdrawal *models.Withdrawal) error {
	if m.FinalizePayoutFunc != nil {
		return m.FinalizePayoutFunc(ctx, withdrawal)
	}
	return nil
}

func TestSweepWorker_SweepCharges(t *testing.T) {
	ctx := context.Background()

	t.Run("polls pending payments through reconciler", func(t *testing.T) {
		paymentStorage := &storage.MockPaymentStorage{
			GetPendingLiveFunc: func(ctx context.Context) ([]*models.Payment, error) {
				return []*models.Payment{
					{ID: uuid.New(), ReferenceCode: "ref-1", Status: models.PaymentStatusPending},
					{ID: uuid.New(), ReferenceCode: "ref-2", Status: models.PaymentStatusPending},
				}, nil
			},
		}
		client := &mockPSPClient{
			GetChargeStatusFunc: func(ctx context.Context, referenceCode string) (*psp.ChargeStatusResponse, error) {
				if referenceCode == "ref-1" {
					return &psp.ChargeStatusResponse{ReferenceCode: referenceCode, Status: psp.ChargeStatusPaid}, nil
				}
				return &psp.ChargeStatusResponse{ReferenceCode: referenceCode, Status: psp.ChargeStatusPending}, nil
			},
		}

		reconciled := map[string]psp.ChargeStatus{}
		reconciler := &mockReconciler{
			ReconcileFunc: func(ctx context.Context, referenceCode string, status psp.ChargeStatus, payload json.RawMessage) error {
				reconciled[referenceCode] = status
				return nil
			},
		}

		worker := NewSweepWorker(paymentStorage, &storage.MockWithdrawalStorage{}, reconciler, &mockFinalizer{}, client, time.Second, testLogger())
		worker.runSweep(ctx)

		if len(reconciled) != 2 {
			t.Fatalf("reconciled %d payments, want 2", len(reconciled))
		}
		if reconciled["ref-1"] != psp.ChargeStatusPaid {
			t.Errorf("ref-1 status = %v, want paid", reconciled["ref-1"])
		}
		if reconciled["ref-2"] != psp.ChargeStatusPending {
			t.Errorf("ref-2 status = %v, want pending", reconciled["ref-2"])
		}
	})

	t.Run("payment missing at provider is skipped", func(t *testing.T) {
		paymentStorage := &storage.MockPaymentStorage{
			GetPendingLiveFunc: func(ctx context.Context) ([]*models.Payment, error) {
				return []*models.Payment{
					{ID: uuid.New(), ReferenceCode: "ref-gone", Status: models.PaymentStatusPending},
				}, nil
			},
		}
		reconciler := &mockReconciler{
			ReconcileFunc: func(ctx context.Context, referenceCode string, status psp.ChargeStatus, payload json.RawMessage) error {
				t.Error("missing payment must not be reconciled")
				return nil
			},
		}

		worker := NewSweepWorker(paymentStorage, &storage.MockWithdrawalStorage{}, reconciler, &mockFinalizer{}, &mockPSPClient{}, time.Second, testLogger())
		worker.runSweep(ctx)
	})

	t.Run("one failed poll does not stop the rest", func(t *testing.T) {
		paymentStorage := &storage.MockPaymentStorage{
			GetPendingLiveFunc: func(ctx context.Context) ([]*models.Payment, error) {
				return []*models.Payment{
					{ID: uuid.New(), ReferenceCode: "ref-bad", Status: models.PaymentStatusPending},
					{ID: uuid.New(), ReferenceCode: "ref-good", Status: models.PaymentStatusPending},
				}, nil
			},
		}
		client := &mockPSPClient{
			GetChargeStatusFunc: func(ctx context.Context, referenceCode string) (*psp.ChargeStatusResponse, error) {
				if referenceCode == "ref-bad" {
					return nil, errors.New("connection reset")
				}
				return &psp.ChargeStatusResponse{ReferenceCode: referenceCode, Status: psp.ChargeStatusPaid}, nil
			},
		}

		var reconciledRefs []string
		reconciler := &mockReconciler{
			ReconcileFunc: func(ctx context.Context, referenceCode string, status psp.ChargeStatus, payload json.RawMessage) error {
				reconciledRefs = append(reconciledRefs, referenceCode)
				return nil
			},
		}

		worker := NewSweepWorker(paymentStorage, &storage.MockWithdrawalStorage{}, reconciler, &mockFinalizer{}, client, time.Second, testLogger())
		worker.runSweep(ctx)

		if len(reconciledRefs) != 1 || reconciledRefs[0] != "ref-good" {
			t.Errorf("reconciled = %v, want [ref-good]", reconciledRefs)
		}
	})
}

func TestSweepWorker_ExpireCharges(t *testing.T) {
	ctx := context.Background()

	called := false
	paymentStorage := &storage.MockPaymentStorage{
		GetPendingLiveFunc: func(ctx context.Context) ([]*models.Payment, error) {
			return nil, nil
		},
		ExpireOverdueFunc: func(ctx context.Context) (int64, error) {
			called = true
			return 3, nil
		},
	}

	worker := NewSweepWorker(paymentStorage, &storage.MockWithdrawalStorage{}, &mockReconciler{}, &mockFinalizer{}, &mockPSPClient{}, time.Second, testLogger())
	worker.runSweep(ctx)

	if !called {
		t.Error("overdue payments were not expired")
	}
}

func TestSweepWorker_SweepPayouts(t *testing.T) {
	ctx := context.Background()

	processing := &models.Withdrawal{
		ID:       uuid.New(),
		Status:   models.WithdrawalStatusProcessing,
		PayoutID: "payout-7",
	}

	withdrawalStorage := &storage.MockWithdrawalStorage{
		ListByStatusFunc: func(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error) {
			if status != models.WithdrawalStatusProcessing {
				t.Errorf("status filter = %v, want processing", status)
			}
			return []*models.Withdrawal{processing}, nil
		},
	}

	var finalized *models.Withdrawal
	finalizer := &mockFinalizer{
		FinalizePayoutFunc: func(ctx context.Context, withdrawal *models.Withdrawal) error {
			finalized = withdrawal
			return nil
		},
	}

	worker := NewSweepWorker(&storage.MockPaymentStorage{}, withdrawalStorage, &mockReconciler{}, finalizer, &mockPSPClient{}, time.Second, testLogger())
	worker.runSweep(ctx)

	if finalized == nil {
		t.Fatal("processing withdrawal was not finalized")
	}
	if finalized.ID != processing.ID {
		t.Errorf("finalized %v, want %v", finalized.ID, processing.ID)
	}
}

func TestSweepWorker_StartStopsOnContextCancel(t *testing.T) {
	polled := make(chan struct{}, 1)
	paymentStorage := &storage.MockPaymentStorage{
		GetPendingLiveFunc: func(ctx context.Context) ([]*models.Payment, error) {
			select {
			case polled <- struct{}{}:
			default:
			}
			return nil, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	worker := NewSweepWorker(paymentStorage, &storage.MockWithdrawalStorage{}, &mockReconciler{}, &mockFinalizer{}, &mockPSPClient{}, 10*time.Millisecond, testLogger())
	worker.Start(ctx)

	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("worker did not run initial sweep")
	}

	cancel()
}
