package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/agamariel/pixmarket/internal/storage"
)

// SweepWorker периодически сверяет платежи и выплаты с провайдером.
// Опрос и вебхуки проходят через один и тот же Reconciler, поэтому
// их гонка на одном платеже безопасна.
type SweepWorker struct {
	paymentStorage    storage.PaymentStorage
	withdrawalStorage storage.WithdrawalStorage
	reconciler        Reconciler
	finalizer         PayoutFinalizer
	client            psp.Client
	interval          time.Duration
	logger            *log.Logger
}

// NewSweepWorker создаёт воркер сверки.
func NewSweepWorker(paymentStorage storage.PaymentStorage, withdrawalStorage storage.WithdrawalStorage, reconciler Reconciler, finalizer PayoutFinalizer, client psp.Client, interval time.Duration, logger *log.Logger) *SweepWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SweepWorker{
		paymentStorage:    paymentStorage,
		withdrawalStorage: withdrawalStorage,
		reconciler:        reconciler,
		finalizer:         finalizer,
		client:            client,
		interval:          interval,
		logger:            logger,
	}
}

// Start запускает воркер в отдельной горутине и останавливается по ctx.Done().
func (w *SweepWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		w.runSweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runSweep(ctx)
			}
		}
	}()
}

// runSweep выполняет один проход: опрос живых платежей, перевод
// просроченных в expired и завершение выплат в processing.
func (w *SweepWorker) runSweep(ctx context.Context) {
	if err := w.sweepCharges(ctx); err != nil {
		w.logger.Printf("sweep charges error: %v", err)
	}
	if err := w.expireCharges(ctx); err != nil {
		w.logger.Printf("expire charges error: %v", err)
	}
	if err := w.sweepPayouts(ctx); err != nil {
		w.logger.Printf("sweep payouts error: %v", err)
	}
}

// sweepCharges опрашивает статусы pending-платежей у провайдера
// и передаёт результаты в общий Reconciler.
func (w *SweepWorker) sweepCharges(ctx context.Context) error {
	payments, err := w.paymentStorage.GetPendingLive(ctx)
	if err != nil {
		return err
	}

	if len(payments) > 0 {
		w.logger.Printf("polling %d pending payments", len(payments))
	}

	for _, p := range payments {
		if err := w.pollCharge(ctx, p); err != nil {
			w.logger.Printf("poll payment %s error: %v", p.ReferenceCode, err)
		}
	}
	return nil
}

func (w *SweepWorker) pollCharge(ctx context.Context, payment *models.Payment) error {
	resp, err := w.client.GetChargeStatus(ctx, payment.ReferenceCode)
	if err != nil {
		var rl psp.RateLimitError
		if errors.As(err, &rl) {
			w.logger.Printf("rate limited for payment %s, retrying after %s", payment.ReferenceCode, rl.RetryAfter)
			time.Sleep(rl.RetryAfter)
			return nil
		}
		if errors.Is(err, psp.ErrNotFound) {
			w.logger.Printf("payment %s not found at provider, skipping", payment.ReferenceCode)
			return nil
		}
		return err
	}

	return w.reconciler.Reconcile(ctx, payment.ReferenceCode, resp.Status, nil)
}

// expireCharges переводит просроченные pending-платежи в expired.
func (w *SweepWorker) expireCharges(ctx context.Context) error {
	expired, err := w.paymentStorage.ExpireOverdue(ctx)
	if err != nil {
		return err
	}

	if expired > 0 {
		w.logger.Printf("expired %d overdue payments", expired)
	}
	return nil
}

// sweepPayouts завершает заявки, выплаты по которым ещё обрабатывались
// провайдером в момент одобрения.
func (w *SweepWorker) sweepPayouts(ctx context.Context) error {
	withdrawals, err := w.withdrawalStorage.ListByStatus(ctx, models.WithdrawalStatusProcessing)
	if err != nil {
		return err
	}

	for _, wd := range withdrawals {
		if err := w.finalizer.FinalizePayout(ctx, wd); err != nil {
			w.logger.Printf("finalize payout for withdrawal %s error: %v", wd.ID, err)
		}
	}
	return nil
}
