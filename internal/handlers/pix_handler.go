package handlers

import (
	"errors"
	"net/http"

	"github.com/agamariel/pixmarket/internal/auth"
	"github.com/agamariel/pixmarket/internal/models"
	"github.com/agamariel/pixmarket/internal/services"
	"github.com/agamariel/pixmarket/internal/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// PixHandler обрабатывает запросы, связанные с PIX-платежами.
type PixHandler struct {
	chargeService services.ChargeService
}

func NewPixHandler(chargeService services.ChargeService) *PixHandler {
	return &PixHandler{chargeService: chargeService}
}

// Generate обрабатывает POST /api/pix/generate.
func (h *PixHandler) Generate(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.GenerateChargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	if req.Amount <= 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid amount")
	}
	amount := decimal.NewFromFloat(req.Amount)

	payment, err := h.chargeService.CreateCharge(c.Request().Context(), userID, amount, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "amount is out of bounds")
		case errors.Is(err, services.ErrActiveChargeExists):
			return echo.NewHTTPError(http.StatusConflict, "active charge already exists")
		case errors.Is(err, services.ErrProviderUnavailable):
			return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable")
		default:
			c.Logger().Errorf("failed to create charge: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(http.StatusCreated, models.NewPaymentResponse(payment))
}

// Status обрабатывает GET /api/pix/status/:id.
func (h *PixHandler) Status(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payment id")
	}

	payment, err := h.chargeService.GetPayment(c.Request().Context(), userID, paymentID)
	if err != nil {
		return paymentLookupError(c, err)
	}

	return c.JSON(http.StatusOK, models.NewPaymentResponse(payment))
}

// Cancel обрабатывает POST /api/pix/cancel/:id.
func (h *PixHandler) Cancel(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payment id")
	}

	payment, err := h.chargeService.CancelCharge(c.Request().Context(), userID, paymentID)
	if err != nil {
		return paymentLookupError(c, err)
	}

	return c.JSON(http.StatusOK, models.NewPaymentResponse(payment))
}

// List обрабатывает GET /api/pix.
func (h *PixHandler) List(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	payments, err := h.chargeService.GetUserPayments(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("failed to list payments: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if len(payments) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	// Маппинг domain моделей в DTO
	response := make([]*models.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		response = append(response, models.NewPaymentResponse(p))
	}
	return c.JSON(http.StatusOK, response)
}

// paymentLookupError преобразует ошибки поиска платежа в HTTP-ответ.
// Чужой платёж не раскрывается: для владельца другого пользователя
// ответ неотличим от несуществующего id.
func paymentLookupError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrPaymentNotFound), errors.Is(err, services.ErrPaymentAccessDenied):
		return echo.NewHTTPError(http.StatusNotFound, "payment not found")
	default:
		c.Logger().Errorf("payment lookup failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
