package psp

import (
	"context"
	"errors"
	"fmt"
)

var ErrAccountNotFound = errors.New("psp: payout account not found")

// Account описывает платёжный счёт провайдера, доступный для выплат.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AccountWithBalance - счёт вместе с живым балансом провайдера.
type AccountWithBalance struct {
	Account
	Balance AccountBalance `json:"balance"`
}

// AccountRegistry - реестр платёжных счетов, заданных конфигурацией.
// Баланс каждого счёта запрашивается у провайдера на каждый вызов:
// локальная копия баланса никогда не считается авторитетной.
type AccountRegistry struct {
	accounts []Account
	byID     map[string]Account
	client   Client
}

// NewAccountRegistry создаёт реестр счетов.
func NewAccountRegistry(accounts []Account, client Client) *AccountRegistry {
	byID := make(map[string]Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}
	return &AccountRegistry{
		accounts: accounts,
		byID:     byID,
		client:   client,
	}
}

// Get возвращает счёт по стабильному идентификатору.
func (r *AccountRegistry) Get(id string) (Account, error) {
	acc, ok := r.byID[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

// ListAccounts возвращает все счета с живыми балансами.
func (r *AccountRegistry) ListAccounts(ctx context.Context) ([]AccountWithBalance, error) {
	result := make([]AccountWithBalance, 0, len(r.accounts))
	for _, acc := range r.accounts {
		balance, err := r.client.GetAccountBalance(ctx, acc.ID)
		if err != nil {
			return nil, fmt.Errorf("get balance for account %s: %w", acc.ID, err)
		}
		result = append(result, AccountWithBalance{Account: acc, Balance: *balance})
	}
	return result, nil
}

// AvailableBalance возвращает доступный остаток конкретного счёта.
func (r *AccountRegistry) AvailableBalance(ctx context.Context, id string) (*AccountBalance, error) {
	if _, err := r.Get(id); err != nil {
		return nil, err
	}
	return r.client.GetAccountBalance(ctx, id)
}
