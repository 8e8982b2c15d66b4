package handlers

import (
	"net/http"

	"github.com/agamariel/pixmarket/internal/auth"
	"github.com/agamariel/pixmarket/internal/services"
	"github.com/labstack/echo/v4"
)

// WalletHandler обрабатывает запросы баланса и истории операций.
type WalletHandler struct {
	wallet services.WalletLedger
}

func NewWalletHandler(wallet services.WalletLedger) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// GetBalance обрабатывает GET /api/user/balance.
func (h *WalletHandler) GetBalance(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	balance, err := h.wallet.GetBalance(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("failed to get balance: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, balance)
}

// GetTransactions обрабатывает GET /api/user/transactions.
func (h *WalletHandler) GetTransactions(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	transactions, err := h.wallet.GetTransactions(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("failed to get transactions: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if len(transactions) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	return c.JSON(http.StatusOK, transactions)
}
