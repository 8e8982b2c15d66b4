package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// PayoutAccount описывает платёжный счёт провайдера для выплат.
type PayoutAccount struct {
	ID   string
	Name string
}

// Config содержит конфигурацию приложения.
type Config struct {
	RunAddress  string
	DatabaseURI string

	// Внешний платёжный провайдер (PSP)
	PSPAddress    string
	PSPAPIKey     string
	WebhookSecret string

	// Параметры PIX-платежей
	CommissionRate  decimal.Decimal
	MinChargeAmount decimal.Decimal
	MaxChargeAmount decimal.Decimal
	ChargeTTL       time.Duration
	SweepInterval   time.Duration

	// Счета для выплат и платформенный счёт комиссии
	PayoutAccounts []PayoutAccount
	PlatformUserID uuid.UUID

	JWTSecret       string
	TokenExpiration time.Duration
}

// DefaultPlatformUserID - id служебного пользователя платформы,
// на которого зачисляются комиссии (заводится миграцией).
const DefaultPlatformUserID = "00000000-0000-0000-0000-000000000001"

// Load загружает конфигурацию из флагов командной строки и переменных окружения.
// Приоритет: переменные окружения > флаги > значения по умолчанию.
func Load() *Config {
	// .env подхватывается, если присутствует
	_ = godotenv.Load()

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "адрес и порт запуска сервиса")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "строка подключения к PostgreSQL")
	flag.StringVar(&cfg.PSPAddress, "p", "", "адрес платёжного провайдера")
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		cfg.RunAddress = envRunAddr
	}
	if envDBURI := os.Getenv("DATABASE_URI"); envDBURI != "" {
		cfg.DatabaseURI = envDBURI
	}
	if envPSP := os.Getenv("PSP_ADDRESS"); envPSP != "" {
		cfg.PSPAddress = envPSP
	}

	cfg.PSPAPIKey = os.Getenv("PSP_API_KEY")

	// Секрет подписи вебхуков провайдера
	cfg.WebhookSecret = os.Getenv("PSP_WEBHOOK_SECRET")

	// JWT секрет
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "default-secret-change-in-production"
	}

	// Время жизни токена
	cfg.TokenExpiration = 24 * time.Hour

	// Ставка комиссии платформы (доля от суммы платежа)
	cfg.CommissionRate = decimalFromEnv("COMMISSION_RATE", "0.20")

	// Границы суммы платежа
	cfg.MinChargeAmount = decimalFromEnv("MIN_CHARGE_AMOUNT", "1.00")
	cfg.MaxChargeAmount = decimalFromEnv("MAX_CHARGE_AMOUNT", "5000.00")

	// Время жизни платежа и интервал фоновой сверки
	cfg.ChargeTTL = durationFromEnv("CHARGE_TTL", time.Hour)
	cfg.SweepInterval = durationFromEnv("SWEEP_INTERVAL", 5*time.Second)

	// Счета для выплат: "id:имя,id:имя"
	cfg.PayoutAccounts = parsePayoutAccounts(os.Getenv("PSP_PAYOUT_ACCOUNTS"))

	cfg.PlatformUserID = uuid.MustParse(DefaultPlatformUserID)
	if envPlatform := os.Getenv("PLATFORM_USER_ID"); envPlatform != "" {
		if id, err := uuid.Parse(envPlatform); err == nil {
			cfg.PlatformUserID = id
		}
	}

	return cfg
}

// decimalFromEnv читает decimal из переменной окружения с дефолтом.
func decimalFromEnv(key, def string) decimal.Decimal {
	val := os.Getenv(key)
	if val == "" {
		val = def
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		d, _ = decimal.NewFromString(def)
	}
	return d
}

// durationFromEnv читает time.Duration из переменной окружения с дефолтом.
func durationFromEnv(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// parsePayoutAccounts разбирает список счетов вида "acc1:Основной,acc2:Резервный".
func parsePayoutAccounts(raw string) []PayoutAccount {
	if raw == "" {
		return nil
	}

	var accounts []PayoutAccount
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, name, found := strings.Cut(part, ":")
		if !found {
			name = id
		}
		accounts = append(accounts, PayoutAccount{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}
	return accounts
}
