package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User представляет пользователя системы.
// Balance поддерживается строго в одной транзакции с добавлением
// соответствующей completed-записи в журнал кошелька.
type User struct {
	ID           uuid.UUID       `db:"id"`
	Login        string          `db:"login"`
	PasswordHash string          `db:"password_hash"`
	IsAdmin      bool            `db:"is_admin"`
	Balance      decimal.Decimal `db:"balance"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// RegisterRequest - запрос на регистрацию пользователя.
type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginRequest - запрос на аутентификацию пользователя.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// BalanceResponse - ответ с балансом пользователя.
type BalanceResponse struct {
	Current float64 `json:"current"`
}
