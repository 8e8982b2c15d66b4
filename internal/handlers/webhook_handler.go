package handlers

import (
	"io"
	"net/http"

	"github.com/agamariel/pixmarket/internal/auth"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/agamariel/pixmarket/internal/services"
	"github.com/labstack/echo/v4"
)

// WebhookHandler принимает уведомления платёжного провайдера.
type WebhookHandler struct {
	reconciler services.Reconciler
	secret     string
}

func NewWebhookHandler(reconciler services.Reconciler, secret string) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, secret: secret}
}

// HandlePixEvent обрабатывает POST /api/webhooks/pix.
// Повторные доставки одного события безопасны: сверка статусов
// идемпотентна, поэтому на дубликаты отвечаем 200.
func (h *WebhookHandler) HandlePixEvent(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	signature := c.Request().Header.Get("X-Webhook-Signature")
	if !auth.VerifyWebhookSignature(h.secret, body, signature) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook signature")
	}

	event, err := psp.ParseWebhookEvent(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}

	if err := h.reconciler.Reconcile(c.Request().Context(), event.ReferenceCode, event.Status, body); err != nil {
		c.Logger().Errorf("failed to reconcile webhook event %s: %v", event.ReferenceCode, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.NoContent(http.StatusOK)
}
