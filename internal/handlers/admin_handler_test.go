package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/agamariel/pixmarket/internal/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// mockPSPClient - минимальный мок провайдера для реестра счетов.
type mockPSPClient struct {
	GetAccountBalanceFunc func(ctx context.Context, accountID string) (*psp.AccountBalance, error)
}

func (m *mockPSPClient) CreateCharge(ctx context.Context, req psp.ChargeRequest) (*psp.ChargeResponse, error) {
	return nil, psp.ErrNotFound
}

func (m *mockPSPClient) GetChargeStatus(ctx context.Context, referenceCode string) (*psp.ChargeStatusResponse, error) {
	return nil, psp.ErrNotFound
}

func (m *mockPSPClient) CreatePayout(ctx context.Context, accountID string, req psp.PayoutRequest) (*psp.PayoutResponse, error) {
	return nil, psp.ErrNotFound
}

func (m *mockPSPClient) GetPayoutStatus(ctx context.Context, accountID, payoutID string) (*psp.PayoutResponse, error) {
	return nil, psp.ErrNotFound
}

func (m *mockPSPClient) GetAccountBalance(ctx context.Context, accountID string) (*psp.AccountBalance, error) {
	if m.GetAccountBalanceFunc != nil {
		return m.GetAccountBalanceFunc(ctx, accountID)
	}
	return nil, psp.ErrNotFound
}

func testRegistry(client psp.Client) *psp.AccountRegistry {
	return psp.NewAccountRegistry([]psp.Account{{ID: "acc1", Name: "Main"}}, client)
}

func TestAdminHandler_ListWithdrawals(t *testing.T) {
	t.Run("defaults to pending", func(t *testing.T) {
		var gotStatus models.WithdrawalStatus
		mockService := &MockWithdrawalService{
			ListByStatusFunc: func(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error) {
				gotStatus = status
				return []*models.Withdrawal{testWithdrawal(uuid.New())}, nil
			},
		}

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/withdrawals", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewAdminHandler(mockService, testRegistry(&mockPSPClient{}))
		if err := handler.ListWithdrawals(c); err != nil {
			t.Fatalf("ListWithdrawals() error = %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
		if gotStatus != models.WithdrawalStatusPending {
			t.Errorf("status filter = %v, want pending", gotStatus)
		}
	})

	t.Run("explicit status filter", func(t *testing.T) {
		var gotStatus models.WithdrawalStatus
		mockService := &MockWithdrawalService{
			ListByStatusFunc: func(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error) {
				gotStatus = status
				return []*models.Withdrawal{}, nil
			},
		}

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/withdrawals?status=completed", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewAdminHandler(mockService, testRegistry(&mockPSPClient{}))
		if err := handler.ListWithdrawals(c); err != nil {
			t.Fatalf("ListWithdrawals() error = %v", err)
		}
		if gotStatus != models.WithdrawalStatusCompleted {
			t.Errorf("status filter = %v, want completed", gotStatus)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/withdrawals?status=bogus", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewAdminHandler(&MockWithdrawalService{}, testRegistry(&mockPSPClient{}))
		err := handler.ListWithdrawals(c)
		if err == nil {
			t.Fatal("Expected error, got nil")
		}
		if he, ok := err.(*echo.HTTPError); ok && he.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", he.Code)
		}
	})
}

func TestAdminHandler_ReviewWithdrawal(t *testing.T) {
	reviewerID := uuid.New()
	withdrawalID := uuid.New()

	reviewRequest := func(body string) (echo.Context, *httptest.ResponseRecorder) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPut, "/api/admin/withdrawals/"+withdrawalID.String(), strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := authedContext(e, req, rec, reviewerID)
		c.SetParamNames("id")
		c.SetParamValues(withdrawalID.String())
		return c, rec
	}

	t.Run("successful approve", func(t *testing.T) {
		mockService := &MockWithdrawalService{
			ApproveFunc: func(ctx context.Context, id, revID uuid.UUID, accountID, notes string) (*models.Withdrawal, error) {
				if id != withdrawalID {
					t.Errorf("withdrawal id = %v, want %v", id, withdrawalID)
				}
				if revID != reviewerID {
					t.Errorf("reviewer = %v, want %v", revID, reviewerID)
				}
				if accountID != "acc1" {
					t.Errorf("account = %q, want acc1", accountID)
				}
				withdrawal := testWithdrawal(uuid.New())
				withdrawal.Status = models.WithdrawalStatusCompleted
				return withdrawal, nil
			},
		}

		c, rec := reviewRequest(`{"action":"approve","account_id":"acc1"}`)
		handler := NewAdminHandler(mockService, testRegistry(&mockPSPClient{}))
		if err := handler.ReviewWithdrawal(c); err != nil {
			t.Fatalf("ReviewWithdrawal() error = %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
	})

	t.Run("successful reject", func(t *testing.T) {
		var gotNotes string
		mockService := &MockWithdrawalService{
			RejectFunc: func(ctx context.Context, id, revID uuid.UUID, notes string) (*models.Withdrawal, error) {
				gotNotes = notes
				withdrawal := testWithdrawal(uuid.New())
				withdrawal.Status = models.WithdrawalStatusRejected
				return withdrawal, nil
			},
		}

		c, rec := reviewRequest(`{"action":"reject","notes":"suspicious activity"}`)
		handler := NewAdminHandler(mockService, testRegistry(&mockPSPClient{}))
		if err := handler.ReviewWithdrawal(c); err != nil {
			t.Fatalf("ReviewWithdrawal() error = %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
		if gotNotes != "suspicious activity" {
			t.Errorf("notes = %q, want suspicious activity", gotNotes)
		}
	})

	t.Run("approve without account_id", func(t *testing.T) {
		c, _ := reviewRequest(`{"action":"approve"}`)
		handler := NewAdminHandler(&MockWithdrawalService{}, testRegistry(&mockPSPClient{}))
		err := handler.ReviewWithdrawal(c)
		if err == nil {
			t.Fatal("Expected error, got nil")
		}
		if he, ok := err.(*echo.HTTPError); ok && he.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", he.Code)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		c, _ := reviewRequest(`{"action":"postpone"}`)
		handler := NewAdminHandler(&MockWithdrawalService{}, testRegistry(&mockPSPClient{}))
		err := handler.ReviewWithdrawal(c)
		if err == nil {
			t.Fatal("Expected error, got nil")
		}
		if he, ok := err.(*echo.HTTPError); ok && he.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", he.Code)
		}
	})

	errorTests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
	}{
		{name: "withdrawal not found", serviceErr: services.ErrWithdrawalNotFound, expectedStatus: http.StatusNotFound},
		{name: "already reviewed", serviceErr: services.ErrWithdrawalNotPending, expectedStatus: http.StatusConflict},
		{name: "unknown payout account", serviceErr: psp.ErrAccountNotFound, expectedStatus: http.StatusNotFound},
		{name: "insufficient provider funds", serviceErr: services.ErrInsufficientProviderFunds, expectedStatus: http.StatusUnprocessableEntity},
		{name: "payout failed", serviceErr: services.ErrPayoutFailed, expectedStatus: http.StatusBadGateway},
		{name: "provider unavailable", serviceErr: services.ErrProviderUnavailable, expectedStatus: http.StatusBadGateway},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockWithdrawalService{
				ApproveFunc: func(ctx context.Context, id, revID uuid.UUID, accountID, notes string) (*models.Withdrawal, error) {
					return nil, tt.serviceErr
				},
			}

			c, _ := reviewRequest(`{"action":"approve","account_id":"acc1"}`)
			handler := NewAdminHandler(mockService, testRegistry(&mockPSPClient{}))
			err := handler.ReviewWithdrawal(c)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if he, ok := err.(*echo.HTTPError); ok {
				if he.Code != tt.expectedStatus {
					t.Errorf("Expected status %d, got %d", tt.expectedStatus, he.Code)
				}
			}
		})
	}
}

func TestAdminHandler_ListAccounts(t *testing.T) {
	t.Run("returns accounts with live balances", func(t *testing.T) {
		client := &mockPSPClient{
			GetAccountBalanceFunc: func(ctx context.Context, accountID string) (*psp.AccountBalance, error) {
				return &psp.AccountBalance{Available: decimal.RequireFromString("1000.00")}, nil
			},
		}

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/accounts", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewAdminHandler(&MockWithdrawalService{}, testRegistry(client))
		if err := handler.ListAccounts(c); err != nil {
			t.Fatalf("ListAccounts() error = %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}

		var resp []psp.AccountWithBalance
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		if len(resp) != 1 || resp[0].ID != "acc1" {
			t.Errorf("unexpected accounts: %+v", resp)
		}
	})

	t.Run("provider unavailable", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/accounts", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewAdminHandler(&MockWithdrawalService{}, testRegistry(&mockPSPClient{}))
		err := handler.ListAccounts(c)
		if err == nil {
			t.Fatal("Expected error, got nil")
		}
		if he, ok := err.(*echo.HTTPError); ok && he.Code != http.StatusBadGateway {
			t.Errorf("Expected status 502, got %d", he.Code)
		}
	})
}
