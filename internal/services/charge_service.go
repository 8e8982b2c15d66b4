package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/agamariel/pixmarket/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount       = errors.New("charge amount is out of bounds")
	ErrActiveChargeExists  = errors.New("user already has an active charge")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrPaymentAccessDenied = errors.New("payment belongs to another user")
)

// ChargeConfig - параметры создания платежей, внедряются из конфигурации.
type ChargeConfig struct {
	MinAmount      decimal.Decimal
	MaxAmount      decimal.Decimal
	TTL            time.Duration
	CommissionRate decimal.Decimal
}

// ChargeService определяет интерфейс работы с PIX-платежами.
type ChargeService interface {
	CreateCharge(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*models.Payment, error)
	GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error)
	GetUserPayments(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error)
	CancelCharge(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error)
}

// ChargeServiceImpl реализует ChargeService.
type ChargeServiceImpl struct {
	paymentStorage storage.PaymentStorage
	pspClient      psp.Client
	cfg            ChargeConfig
}

// NewChargeService создаёт сервис платежей.
func NewChargeService(paymentStorage storage.PaymentStorage, pspClient psp.Client, cfg ChargeConfig) *ChargeServiceImpl {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &ChargeServiceImpl{
		paymentStorage: paymentStorage,
		pspClient:      pspClient,
		cfg:            cfg,
	}
}

// CreateCharge создаёт PIX-платёж у провайдера и сохраняет его в статусе
// pending. Reference code провайдера становится ключом идемпотентности
// для всей последующей сверки. Ставка комиссии фиксируется на платеже
// в момент создания.
func (s *ChargeServiceImpl) CreateCharge(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*models.Payment, error) {
	if amount.LessThan(s.cfg.MinAmount) || amount.GreaterThan(s.cfg.MaxAmount) {
		return nil, ErrInvalidAmount
	}

	// Один активный платёж на пользователя
	existing, err := s.paymentStorage.GetPendingByUserID(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrPaymentNotFound) {
		return nil, fmt.Errorf("check pending payment: %w", err)
	}
	if existing != nil {
		return nil, ErrActiveChargeExists
	}

	expiresAt := time.Now().Add(s.cfg.TTL)

	var charge *psp.ChargeResponse
	err = pspCall(ctx, func(ctx context.Context) error {
		var callErr error
		charge, callErr = s.pspClient.CreateCharge(ctx, psp.ChargeRequest{
			Amount:      amount,
			Description: strings.TrimSpace(description),
			ExpiresAt:   expiresAt,
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if !charge.ExpiresAt.IsZero() {
		expiresAt = charge.ExpiresAt
	}

	payment := &models.Payment{
		UserID:         userID,
		Amount:         amount,
		CommissionRate: s.cfg.CommissionRate,
		Description:    strings.TrimSpace(description),
		Status:         models.PaymentStatusPending,
		ReferenceCode:  charge.ReferenceCode,
		PixCopyPaste:   charge.PixCopyPaste,
		QRCodeImage:    charge.QRCodeImage,
		ExpiresAt:      expiresAt,
	}

	if err := s.paymentStorage.Create(ctx, payment); err != nil {
		if errors.Is(err, storage.ErrActivePaymentExists) {
			// Гонка двух одновременных созданий: частичный уникальный
			// индекс пропустил только одного
			return nil, ErrActiveChargeExists
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	return payment, nil
}

// GetPayment возвращает платёж с проверкой владельца.
func (s *ChargeServiceImpl) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.paymentStorage.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.UserID != userID {
		return nil, ErrPaymentAccessDenied
	}

	return payment, nil
}

// GetUserPayments возвращает платежи пользователя.
func (s *ChargeServiceImpl) GetUserPayments(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error) {
	payments, err := s.paymentStorage.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user payments: %w", err)
	}
	return payments, nil
}

// CancelCharge отменяет pending-платёж по запросу владельца тем же
// CAS-шаблоном, что и сверка. Если платёж уже успел свериться,
// отмена является no-op и возвращается актуальное состояние.
func (s *ChargeServiceImpl) CancelCharge(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.GetPayment(ctx, userID, paymentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.paymentStorage.CancelByUser(ctx, paymentID, userID); err != nil {
		return nil, err
	}

	// Перечитываем: либо отменили мы, либо платёж уже был терминальным
	return s.GetPayment(ctx, userID, payment.ID)
}
