package psp

import (
	"encoding/json"
	"fmt"
)

// WebhookEvent - уведомление провайдера об изменении статуса платежа.
type WebhookEvent struct {
	Event         string       `json:"event"`
	ReferenceCode string       `json:"reference_code"`
	Status        ChargeStatus `json:"status"`
	Value         float64      `json:"value"`
}

// ParseWebhookEvent разбирает тело вебхука. Возвращает типизированное
// событие вместе с исходным телом для сохранения в provider_payload.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook body: %w", err)
	}
	if event.ReferenceCode == "" {
		return nil, fmt.Errorf("webhook event missing reference code")
	}
	if event.Status == "" {
		return nil, fmt.Errorf("webhook event missing status")
	}
	return &event, nil
}
