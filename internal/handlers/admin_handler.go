package handlers

import (
	"errors"
	"net/http"

	"github.com/agamariel/pixmarket/internal/auth"
	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/agamariel/pixmarket/internal/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AdminHandler обрабатывает административные операции над выводами.
type AdminHandler struct {
	withdrawalService services.WithdrawalService
	registry          *psp.AccountRegistry
}

func NewAdminHandler(withdrawalService services.WithdrawalService, registry *psp.AccountRegistry) *AdminHandler {
	return &AdminHandler{
		withdrawalService: withdrawalService,
		registry:          registry,
	}
}

// ListWithdrawals обрабатывает GET /api/admin/withdrawals.
// Фильтр по статусу передаётся query-параметром, по умолчанию pending.
func (h *AdminHandler) ListWithdrawals(c echo.Context) error {
	status := models.WithdrawalStatus(c.QueryParam("status"))
	if status == "" {
		status = models.WithdrawalStatusPending
	}

	switch status {
	case models.WithdrawalStatusPending, models.WithdrawalStatusApproved,
		models.WithdrawalStatusRejected, models.WithdrawalStatusProcessing,
		models.WithdrawalStatusCompleted, models.WithdrawalStatusFailed:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown withdrawal status")
	}

	withdrawals, err := h.withdrawalService.ListByStatus(c.Request().Context(), status)
	if err != nil {
		c.Logger().Errorf("failed to list withdrawals: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	response := make([]*models.WithdrawalResponse, 0, len(withdrawals))
	for _, w := range withdrawals {
		response = append(response, models.NewWithdrawalResponse(w))
	}
	return c.JSON(http.StatusOK, response)
}

// ReviewWithdrawal обрабатывает PUT /api/admin/withdrawals/:id.
func (h *AdminHandler) ReviewWithdrawal(c echo.Context) error {
	reviewerID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid withdrawal id")
	}

	var req models.ReviewWithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	var withdrawal *models.Withdrawal
	switch req.Action {
	case "approve":
		if req.AccountID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "account_id is required for approval")
		}
		withdrawal, err = h.withdrawalService.Approve(c.Request().Context(), withdrawalID, reviewerID, req.AccountID, req.Notes)
	case "reject":
		withdrawal, err = h.withdrawalService.Reject(c.Request().Context(), withdrawalID, reviewerID, req.Notes)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "action must be approve or reject")
	}

	if err != nil {
		switch {
		case errors.Is(err, services.ErrWithdrawalNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "withdrawal not found")
		case errors.Is(err, services.ErrWithdrawalNotPending):
			return echo.NewHTTPError(http.StatusConflict, "withdrawal already reviewed")
		case errors.Is(err, psp.ErrAccountNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "payout account not found")
		case errors.Is(err, services.ErrInsufficientProviderFunds):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "insufficient funds on payout account")
		case errors.Is(err, services.ErrPayoutFailed):
			return echo.NewHTTPError(http.StatusBadGateway, "payout rejected by provider")
		case errors.Is(err, services.ErrProviderUnavailable):
			return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable")
		default:
			c.Logger().Errorf("failed to review withdrawal %s: %v", withdrawalID, err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(http.StatusOK, models.NewWithdrawalResponse(withdrawal))
}

// ListAccounts обрабатывает GET /api/admin/accounts.
func (h *AdminHandler) ListAccounts(c echo.Context) error {
	accounts, err := h.registry.ListAccounts(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("failed to list payout accounts: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable")
	}

	return c.JSON(http.StatusOK, accounts)
}
