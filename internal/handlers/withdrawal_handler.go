package handlers

import (
	"errors"
	"net/http"

	"github.com/agamariel/pixmarket/internal/auth"
	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/services"
	"github.com/agamariel/pixmarket/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// WithdrawalHandler обрабатывает пользовательские заявки на вывод средств.
type WithdrawalHandler struct {
	withdrawalService services.WithdrawalService
}

func NewWithdrawalHandler(withdrawalService services.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalService: withdrawalService}
}

// Create обрабатывает POST /api/user/withdrawals.
func (h *WithdrawalHandler) Create(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateWithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	if req.Amount <= 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid amount")
	}
	amount := decimal.NewFromFloat(req.Amount)

	withdrawal, err := h.withdrawalService.Create(c.Request().Context(), userID, amount, req.PixKey, models.PixKeyType(req.PixKeyType))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidWithdrawalAmount):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid withdrawal amount")
		case errors.Is(err, services.ErrInvalidPixKey):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid pix key")
		case errors.Is(err, storage.ErrInsufficientBalance):
			return echo.NewHTTPError(http.StatusPaymentRequired, "insufficient balance")
		default:
			c.Logger().Errorf("failed to create withdrawal: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(http.StatusCreated, models.NewWithdrawalResponse(withdrawal))
}

// List обрабатывает GET /api/user/withdrawals.
func (h *WithdrawalHandler) List(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	withdrawals, err := h.withdrawalService.GetUserWithdrawals(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("failed to list withdrawals: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if len(withdrawals) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	response := make([]*models.WithdrawalResponse, 0, len(withdrawals))
	for _, w := range withdrawals {
		response = append(response, models.NewWithdrawalResponse(w))
	}
	return c.JSON(http.StatusOK, response)
}
