package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/agamariel/pixmarket/internal/storage"
	"github.com/agamariel/pixmarket/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidWithdrawalAmount   = errors.New("invalid withdrawal amount")
	ErrInvalidPixKey             = errors.New("invalid pix key")
	ErrWithdrawalNotPending      = errors.New("withdrawal is not pending")
	ErrWithdrawalNotFound        = storage.ErrWithdrawalNotFound
	ErrInsufficientProviderFunds = errors.New("insufficient funds on provider account")
	ErrPayoutFailed              = errors.New("payout failed")
)

// WithdrawalService определяет интерфейс работы с заявками на вывод.
type WithdrawalService interface {
	Create(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, pixKey string, pixKeyType models.PixKeyType) (*models.Withdrawal, error)
	Approve(ctx context.Context, id, reviewerID uuid.UUID, accountID, notes string) (*models.Withdrawal, error)
	Reject(ctx context.Context, id, reviewerID uuid.UUID, notes string) (*models.Withdrawal, error)
	FinalizePayout(ctx context.Context, withdrawal *models.Withdrawal) error
	GetUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error)
}

// WithdrawalServiceImpl реализует WithdrawalService.
// Средства резервируются атомарно при создании заявки, до решения
// администратора: две конкурентные заявки, вместе превышающие баланс,
// не пройдут обе. Неуспешная выплата и отклонение заявки
// автоматически сторнируют резервацию.
type WithdrawalServiceImpl struct {
	pool              TxBeginner
	withdrawalStorage storage.WithdrawalStorage
	wallet            WalletLedger
	registry          *psp.AccountRegistry
	pspClient         psp.Client
	logger            *log.Logger
}

// NewWithdrawalService создаёт сервис вывода средств.
func NewWithdrawalService(pool TxBeginner, withdrawalStorage storage.WithdrawalStorage, wallet WalletLedger, registry *psp.AccountRegistry, pspClient psp.Client, logger *log.Logger) *WithdrawalServiceImpl {
	if logger == nil {
		logger = log.Default()
	}
	return &WithdrawalServiceImpl{
		pool:              pool,
		withdrawalStorage: withdrawalStorage,
		wallet:            wallet,
		registry:          registry,
		pspClient:         pspClient,
		logger:            logger,
	}
}

// Create создаёт заявку и резервирует средства одной транзакцией БД.
// При нехватке средств возвращает storage.ErrInsufficientBalance.
func (s *WithdrawalServiceImpl) Create(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, pixKey string, pixKeyType models.PixKeyType) (*models.Withdrawal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidWithdrawalAmount
	}

	pixKey = strings.TrimSpace(pixKey)
	if !utils.ValidatePixKey(pixKey, string(pixKeyType)) {
		return nil, ErrInvalidPixKey
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	withdrawal := &models.Withdrawal{
		ID:         uuid.New(),
		UserID:     userID,
		Amount:     amount,
		PixKey:     pixKey,
		PixKeyType: pixKeyType,
		Status:     models.WithdrawalStatusPending,
	}

	reservation, err := s.wallet.ReserveTx(ctx, tx, userID, amount, withdrawal.ID)
	if err != nil {
		return nil, err
	}
	withdrawal.ReservationTx = reservation.ID

	if err := s.withdrawalStorage.CreateWithTx(ctx, tx, withdrawal); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit withdrawal: %w", err)
	}

	return withdrawal, nil
}

// Approve обрабатывает одобрение администратора: проверяет живой баланс
// выбранного счёта провайдера, переводит заявку pending -> approved ->
// processing и создаёт выплату. Нехватка средств на счёте не меняет
// состояние заявки - администратор может повторить с другим счётом.
func (s *WithdrawalServiceImpl) Approve(ctx context.Context, id, reviewerID uuid.UUID, accountID, notes string) (*models.Withdrawal, error) {
	withdrawal, err := s.withdrawalStorage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != models.WithdrawalStatusPending {
		return nil, ErrWithdrawalNotPending
	}

	if _, err := s.registry.Get(accountID); err != nil {
		return nil, err
	}

	// Баланс счёта запрашивается у провайдера на каждый вызов
	var balance *psp.AccountBalance
	err = pspCall(ctx, func(ctx context.Context) error {
		var callErr error
		balance, callErr = s.registry.AvailableBalance(ctx, accountID)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if balance.Available.LessThan(withdrawal.Amount) {
		return nil, ErrInsufficientProviderFunds
	}

	// CAS pending -> approved закрывает гонку двух администраторов
	claimed, err := s.withdrawalStorage.MarkApproved(ctx, id, reviewerID, accountID, notes)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrWithdrawalNotPending
	}

	// approved -> processing непосредственно перед созданием выплаты
	moved, err := s.withdrawalStorage.MarkProcessing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrWithdrawalNotPending
	}

	var payout *psp.PayoutResponse
	err = pspCall(ctx, func(ctx context.Context) error {
		var callErr error
		payout, callErr = s.pspClient.CreatePayout(ctx, accountID, psp.PayoutRequest{
			PixKey:     withdrawal.PixKey,
			PixKeyType: string(withdrawal.PixKeyType),
			Amount:     withdrawal.Amount,
		})
		return callErr
	})
	if err != nil {
		// Выплата не создана: заявка переводится в failed,
		// резервация сторнируется
		if failErr := s.fail(ctx, withdrawal); failErr != nil {
			s.logger.Printf("failed to revert withdrawal %s: %v", id, failErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}

	if err := s.withdrawalStorage.SetPayoutID(ctx, id, payout.PayoutID); err != nil {
		s.logger.Printf("failed to store payout id for withdrawal %s: %v", id, err)
	}

	switch payout.Status {
	case psp.PayoutStatusCompleted:
		if _, err := s.withdrawalStorage.MarkCompleted(ctx, id); err != nil {
			return nil, err
		}
	case psp.PayoutStatusFailed:
		if err := s.fail(ctx, withdrawal); err != nil {
			return nil, err
		}
		return nil, ErrPayoutFailed
	default:
		// processing: исход заберёт фоновая сверка выплат
	}

	return s.withdrawalStorage.GetByID(ctx, id)
}

// Reject отклоняет заявку и сторнирует резервацию одной транзакцией.
func (s *WithdrawalServiceImpl) Reject(ctx context.Context, id, reviewerID uuid.UUID, notes string) (*models.Withdrawal, error) {
	withdrawal, err := s.withdrawalStorage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rejected, err := s.withdrawalStorage.MarkRejectedTx(ctx, tx, id, reviewerID, notes)
	if err != nil {
		return nil, err
	}
	if !rejected {
		return nil, ErrWithdrawalNotPending
	}

	if _, err := s.wallet.ReverseTx(ctx, tx, withdrawal.ReservationTx); err != nil {
		return nil, fmt.Errorf("reverse reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reject: %w", err)
	}

	return s.withdrawalStorage.GetByID(ctx, id)
}

// FinalizePayout завершает заявку в processing по статусу выплаты
// у провайдера. Вызывается фоновой сверкой выплат.
func (s *WithdrawalServiceImpl) FinalizePayout(ctx context.Context, withdrawal *models.Withdrawal) error {
	if withdrawal.Status != models.WithdrawalStatusProcessing {
		return nil
	}
	if withdrawal.PayoutID == "" {
		// Идентификатор выплаты не сохранился: заявку у провайдера
		// не найти, сверка её не завершит
		s.logger.Printf("withdrawal %s is processing without payout id, manual intervention required", withdrawal.ID)
		return nil
	}

	var payout *psp.PayoutResponse
	err := pspCall(ctx, func(ctx context.Context) error {
		var callErr error
		payout, callErr = s.pspClient.GetPayoutStatus(ctx, withdrawal.AccountID, withdrawal.PayoutID)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("get payout status: %w", err)
	}

	switch payout.Status {
	case psp.PayoutStatusCompleted:
		if _, err := s.withdrawalStorage.MarkCompleted(ctx, withdrawal.ID); err != nil {
			return err
		}
		s.logger.Printf("withdrawal %s completed", withdrawal.ID)
	case psp.PayoutStatusFailed:
		if err := s.fail(ctx, withdrawal); err != nil {
			return err
		}
		s.logger.Printf("withdrawal %s failed, reservation reversed", withdrawal.ID)
	}

	return nil
}

// GetUserWithdrawals возвращает заявки пользователя.
func (s *WithdrawalServiceImpl) GetUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error) {
	return s.withdrawalStorage.GetByUserID(ctx, userID)
}

// ListByStatus возвращает заявки в указанном статусе (для администратора).
func (s *WithdrawalServiceImpl) ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error) {
	return s.withdrawalStorage.ListByStatus(ctx, status)
}

// fail переводит заявку processing -> failed и сторнирует резервацию
// одной транзакцией. CAS делает операцию безопасной при гонке
// с фоновой сверкой выплат.
func (s *WithdrawalServiceImpl) fail(ctx context.Context, withdrawal *models.Withdrawal) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	failed, err := s.withdrawalStorage.MarkFailedTx(ctx, tx, withdrawal.ID)
	if err != nil {
		return err
	}
	if !failed {
		// Уже завершена другим путём
		return nil
	}

	if _, err := s.wallet.ReverseTx(ctx, tx, withdrawal.ReservationTx); err != nil {
		return fmt.Errorf("reverse reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit fail: %w", err)
	}

	return nil
}
