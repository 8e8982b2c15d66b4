package services

import (
	"context"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/agamariel/pixmarket/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// mockTx реализует pgx.Tx для сервисных тестов. Сервисы лишь передают
// транзакцию в storage и вызывают Commit/Rollback, поэтому остальные
// методы заглушены.
type mockTx struct {
	commitCalled   bool
	rollbackCalled bool
	commitErr      error
}

func (t *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *mockTx) Commit(ctx context.Context) error {
	t.commitCalled = true
	return t.commitErr
}

func (t *mockTx) Rollback(ctx context.Context) error {
	t.rollbackCalled = true
	return nil
}

func (t *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *mockTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func (t *mockTx) Conn() *pgx.Conn { return nil }

// mockPool реализует TxBeginner.
type mockPool struct {
	tx       *mockTx
	beginErr error
}

func (p *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	if p.tx == nil {
		p.tx = &mockTx{}
	}
	return p.tx, nil
}

// racePool выдаёт отдельную транзакцию на каждый вызов Begin,
// как настоящий пул соединений.
type racePool struct{}

func (p *racePool) Begin(ctx context.Context) (pgx.Tx, error) {
	return &mockTx{}, nil
}

// mockWalletLedger - мок журнала кошелька.
type mockWalletLedger struct {
	CreditTxFunc        func(ctx context.Context, tx pgx.Tx, entry *models.WalletTransaction) error
	ReserveTxFunc       func(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, withdrawalID uuid.UUID) (*models.WalletTransaction, error)
	ReverseTxFunc       func(ctx context.Context, tx pgx.Tx, originalID uuid.UUID) (*models.WalletTransaction, error)
	GetBalanceFunc      func(ctx context.Context, userID uuid.UUID) (*models.BalanceResponse, error)
	GetTransactionsFunc func(ctx context.Context, userID uuid.UUID) ([]*models.TransactionResponse, error)
}

func (m *mockWalletLedger) CreditTx(ctx context.Context, tx pgx.Tx, entry *models.WalletTransaction) error {
	if m.CreditTxFunc != nil {
		return m.CreditTxFunc(ctx, tx, entry)
	}
	return nil
}

func (m *mockWalletLedger) ReserveTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, withdrawalID uuid.UUID) (*models.WalletTransaction, error) {
	if m.ReserveTxFunc != nil {
		return m.ReserveTxFunc(ctx, tx, userID, amount, withdrawalID)
	}
	return &models.WalletTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         models.TransactionTypeWithdrawal,
		Amount:       amount.Neg(),
		Status:       models.TransactionStatusCompleted,
		WithdrawalID: &withdrawalID,
	}, nil
}

func (m *mockWalletLedger) ReverseTx(ctx context.Context, tx pgx.Tx, originalID uuid.UUID) (*models.WalletTransaction, error) {
	if m.ReverseTxFunc != nil {
		return m.ReverseTxFunc(ctx, tx, originalID)
	}
	return &models.WalletTransaction{ID: uuid.New(), ReversalOf: &originalID}, nil
}

func (m *mockWalletLedger) GetBalance(ctx context.Context, userID uuid.UUID) (*models.BalanceResponse, error) {
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, userID)
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockWalletLedger) GetTransactions(ctx context.Context, userID uuid.UUID) ([]*models.TransactionResponse, error) {
	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, userID)
	}
	return nil, nil
}

// mockPSPClient - мок платёжного провайдера.
type mockPSPClient struct {
	CreateChargeFunc      func(ctx context.Context, req psp.ChargeRequest) (*psp.ChargeResponse, error)
	GetChargeStatusFunc   func(ctx context.Context, referenceCode string) (*psp.ChargeStatusResponse, error)
	CreatePayoutFunc      func(ctx context.Context, accountID string, req psp.PayoutRequest) (*psp.PayoutResponse, error)
	GetPayoutStatusFunc   func(ctx context.Context, accountID, payoutID string) (*psp.PayoutResponse, error)
	GetAccountBalanceFunc func(ctx context.Context, accountID string) (*psp.AccountBalance, error)
}

func (m *mockPSPClient) CreateCharge(ctx context.Context, req psp.ChargeRequest) (*psp.ChargeResponse, error) {
	if m.CreateChargeFunc != nil {
		return m.CreateChargeFunc(ctx, req)
	}
	return nil, psp.ErrNotFound
}

func (m *mockPSPClient) GetChargeStatus(ctx context.Context, referenceCode string) (*psp.ChargeStatusResponse, error) {
	if m.GetChargeStatusFunc != nil {
		return m.GetChargeStatusFunc(ctx, referenceCode)
	}
	return nil, psp.ErrNotFound
}

func (m *mockPSPClient) CreatePayout(ctx context.Context, accountID string, req psp.PayoutRequest) (*psp.PayoutResponse, error) {
	if m.CreatePayoutFunc != nil {
		return m.CreatePayoutFunc(ctx, accountID, req)
	}
	return nil, psp.ErrNotFound
}

func (m *mockPSPClient) GetPayoutStatus(ctx context.Context, accountID, payoutID string) (*psp.PayoutResponse, error) {
	if m.GetPayoutStatusFunc != nil {
		return m.GetPayoutStatusFunc(ctx, accountID, payoutID)
	}
	return nil, psp.ErrNotFound
}

func (m *mockPSPClient) GetAccountBalance(ctx context.Context, accountID string) (*psp.AccountBalance, error) {
	if m.GetAccountBalanceFunc != nil {
		return m.GetAccountBalanceFunc(ctx, accountID)
	}
	return nil, psp.ErrNotFound
}
