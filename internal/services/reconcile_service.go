package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/agamariel/pixmarket/internal/storage"
	"github.com/google/uuid"
)

// ReconcileServiceImpl реализует Reconciler - единую точку сверки
// платежей для вебхуков и фонового опроса. Перевод статуса выполняется
// условным обновлением с предусловием status = pending, поэтому
// повторные доставки и гонка вебхука с опросом дают ровно одно
// зачисление на платёж.
type ReconcileServiceImpl struct {
	pool           TxBeginner
	paymentStorage storage.PaymentStorage
	wallet         WalletLedger
	platformUserID uuid.UUID
	logger         *log.Logger
}

// NewReconcileService создаёт сервис сверки.
func NewReconcileService(pool TxBeginner, paymentStorage storage.PaymentStorage, wallet WalletLedger, platformUserID uuid.UUID, logger *log.Logger) *ReconcileServiceImpl {
	if logger == nil {
		logger = log.Default()
	}
	return &ReconcileServiceImpl{
		pool:           pool,
		paymentStorage: paymentStorage,
		wallet:         wallet,
		platformUserID: platformUserID,
		logger:         logger,
	}
}

// Reconcile применяет статус провайдера к платежу.
// Повторный или запоздавший сигнал по уже терминальному платежу -
// не ошибка, а идемпотентный no-op.
func (s *ReconcileServiceImpl) Reconcile(ctx context.Context, referenceCode string, status psp.ChargeStatus, payload json.RawMessage) error {
	switch status {
	case psp.ChargeStatusPaid:
		return s.settle(ctx, referenceCode, payload)
	case psp.ChargeStatusExpired:
		return s.terminate(ctx, referenceCode, models.PaymentStatusExpired, payload)
	case psp.ChargeStatusCancelled, psp.ChargeStatusFailed:
		return s.terminate(ctx, referenceCode, models.PaymentStatusCancelled, payload)
	case psp.ChargeStatusPending:
		return nil
	default:
		s.logger.Printf("unknown provider status %q for charge %s", status, referenceCode)
		return nil
	}
}

// settle атомарно переводит платёж в paid и зачисляет средства:
// пользователю - сумма за вычетом комиссии, платформе - комиссия.
// Обе записи журнала создаются только если CAS-обновление фактически
// изменило строку платежа.
func (s *ReconcileServiceImpl) settle(ctx context.Context, referenceCode string, payload json.RawMessage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	payment, transitioned, err := s.paymentStorage.MarkPaidTx(ctx, tx, referenceCode, payload)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if !transitioned {
		// Платёж уже терминален: дубль вебхука или проигранная гонка
		return nil
	}

	creditEntry := &models.WalletTransaction{
		UserID:    payment.UserID,
		Type:      models.TransactionTypePaymentCredit,
		Amount:    payment.NetAmount(),
		PaymentID: &payment.ID,
	}
	if err := s.wallet.CreditTx(ctx, tx, creditEntry); err != nil {
		return fmt.Errorf("credit user: %w", err)
	}

	commission := payment.CommissionAmount()
	if commission.IsPositive() {
		commissionEntry := &models.WalletTransaction{
			UserID:    s.platformUserID,
			Type:      models.TransactionTypeCommission,
			Amount:    commission,
			PaymentID: &payment.ID,
		}
		if err := s.wallet.CreditTx(ctx, tx, commissionEntry); err != nil {
			return fmt.Errorf("credit commission: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settle: %w", err)
	}

	s.logger.Printf("payment %s settled: credited %s to user %s, commission %s",
		referenceCode, creditEntry.Amount.String(), payment.UserID, commission.String())
	return nil
}

// terminate переводит платёж в нефинансовый терминальный статус
// тем же CAS-шаблоном; кошелёк не затрагивается.
func (s *ReconcileServiceImpl) terminate(ctx context.Context, referenceCode string, status models.PaymentStatus, payload json.RawMessage) error {
	transitioned, err := s.paymentStorage.TransitionTerminal(ctx, referenceCode, status, payload)
	if err != nil {
		return fmt.Errorf("transition payment: %w", err)
	}

	if transitioned {
		s.logger.Printf("payment %s transitioned to %s", referenceCode, status)
	}
	return nil
}
