package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/agamariel/pixmarket/internal/auth"
	"github.com/agamariel/pixmarket/internal/config"
	"github.com/agamariel/pixmarket/internal/handlers"
	"github.com/agamariel/pixmarket/internal/migrations"
	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/agamariel/pixmarket/internal/services"
	"github.com/agamariel/pixmarket/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// App структура для управления приложением и его зависимостями.
type App struct {
	cfg    *config.Config
	dbPool *pgxpool.Pool
	echo   *echo.Echo
	worker *services.SweepWorker

	// Handlers
	userHandler       *handlers.UserHandler
	pixHandler        *handlers.PixHandler
	webhookHandler    *handlers.WebhookHandler
	walletHandler     *handlers.WalletHandler
	withdrawalHandler *handlers.WithdrawalHandler
	adminHandler      *handlers.AdminHandler
}

// NewApp создаёт и инициализирует новое приложение.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg: cfg,
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initDependencies(); err != nil {
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	app.initServer()

	return app, nil
}

// initDatabase инициализирует подключение к базе данных и выполняет миграции.
func (app *App) initDatabase(ctx context.Context) error {
	if app.cfg.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI is required")
	}

	// Применение миграций
	log.Println("Running database migrations...")
	sqlDB, err := sql.Open("pgx", app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to open database connection: %w", err)
	}
	defer sqlDB.Close()

	if err := migrations.Run(sqlDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Migrations completed successfully")

	// Подключение к базе данных через pgxpool
	dbPool, err := pgxpool.New(ctx, app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	app.dbPool = dbPool
	log.Println("Successfully connected to database")

	return nil
}

// initDependencies инициализирует все зависимости приложения (storage, services, handlers).
func (app *App) initDependencies() error {
	if app.cfg.PSPAddress == "" {
		return fmt.Errorf("PSP_ADDRESS is required")
	}
	if app.cfg.WebhookSecret == "" {
		return fmt.Errorf("PSP_WEBHOOK_SECRET is required")
	}

	// Storage layer
	userStorage := storage.NewPostgresUserStorage(app.dbPool)
	paymentStorage := storage.NewPostgresPaymentStorage(app.dbPool)
	transactionStorage := storage.NewPostgresTransactionStorage(app.dbPool)
	withdrawalStorage := storage.NewPostgresWithdrawalStorage(app.dbPool)

	// Клиент платёжного провайдера и реестр счетов для выплат
	pspClient := psp.NewHTTPClient(app.cfg.PSPAddress, app.cfg.PSPAPIKey, 5*time.Second)
	accounts := make([]psp.Account, 0, len(app.cfg.PayoutAccounts))
	for _, acc := range app.cfg.PayoutAccounts {
		accounts = append(accounts, psp.Account{ID: acc.ID, Name: acc.Name})
	}
	if len(accounts) == 0 {
		log.Println("WARNING: PSP_PAYOUT_ACCOUNTS is not configured. Withdrawals cannot be approved!")
	}
	registry := psp.NewAccountRegistry(accounts, pspClient)

	// Service layer
	userService := services.NewUserService(userStorage, app.cfg.JWTSecret, app.cfg.TokenExpiration)
	walletService := services.NewWalletService(app.dbPool, userStorage, transactionStorage)
	chargeService := services.NewChargeService(paymentStorage, pspClient, services.ChargeConfig{
		MinAmount:      app.cfg.MinChargeAmount,
		MaxAmount:      app.cfg.MaxChargeAmount,
		TTL:            app.cfg.ChargeTTL,
		CommissionRate: app.cfg.CommissionRate,
	})
	reconcileService := services.NewReconcileService(app.dbPool, paymentStorage, walletService, app.cfg.PlatformUserID, log.Default())
	withdrawalService := services.NewWithdrawalService(app.dbPool, withdrawalStorage, walletService, registry, pspClient, log.Default())

	// Handler layer
	app.userHandler = handlers.NewUserHandler(userService)
	app.pixHandler = handlers.NewPixHandler(chargeService)
	app.webhookHandler = handlers.NewWebhookHandler(reconcileService, app.cfg.WebhookSecret)
	app.walletHandler = handlers.NewWalletHandler(walletService)
	app.withdrawalHandler = handlers.NewWithdrawalHandler(withdrawalService)
	app.adminHandler = handlers.NewAdminHandler(withdrawalService, registry)

	// Воркер фоновой сверки платежей и выплат
	app.worker = services.NewSweepWorker(paymentStorage, withdrawalStorage, reconcileService, withdrawalService, pspClient, app.cfg.SweepInterval, log.Default())

	return nil
}

// initServer инициализирует HTTP-сервер и настраивает маршруты.
func (app *App) initServer() {
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	// Публичные маршруты (не требуют аутентификации)
	e.POST("/api/user/register", app.userHandler.Register)
	e.POST("/api/user/login", app.userHandler.Login)

	// Вебхуки провайдера: аутентификация по HMAC-подписи тела
	e.POST("/api/webhooks/pix", app.webhookHandler.HandlePixEvent)

	// Защищённые маршруты (требуют аутентификации)
	pix := e.Group("/api/pix")
	pix.Use(auth.JWTMiddleware(app.cfg.JWTSecret))
	pix.POST("/generate", app.pixHandler.Generate)
	pix.GET("", app.pixHandler.List)
	pix.GET("/status/:id", app.pixHandler.Status)
	pix.POST("/cancel/:id", app.pixHandler.Cancel)

	user := e.Group("/api/user")
	user.Use(auth.JWTMiddleware(app.cfg.JWTSecret))
	user.GET("/balance", app.walletHandler.GetBalance)
	user.GET("/transactions", app.walletHandler.GetTransactions)
	user.POST("/withdrawals", app.withdrawalHandler.Create)
	user.GET("/withdrawals", app.withdrawalHandler.List)

	// Административные маршруты
	admin := e.Group("/api/admin")
	admin.Use(auth.JWTMiddleware(app.cfg.JWTSecret))
	admin.Use(auth.AdminMiddleware())
	admin.GET("/withdrawals", app.adminHandler.ListWithdrawals)
	admin.PUT("/withdrawals/:id", app.adminHandler.ReviewWithdrawal)
	admin.GET("/accounts", app.adminHandler.ListAccounts)

	app.echo = e
}

// Start запускает приложение.
func (app *App) Start(ctx context.Context) error {
	// Запуск фоновой сверки
	log.Println("Starting sweep worker...")
	app.worker.Start(ctx)
	log.Println("Sweep worker started")

	// Запуск сервера
	log.Printf("Starting server on %s", app.cfg.RunAddress)
	if err := app.echo.Start(app.cfg.RunAddress); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	return nil
}

// Shutdown корректно завершает работу приложения.
func (app *App) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if err := app.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if app.dbPool != nil {
		app.dbPool.Close()
	}

	log.Println("Server gracefully stopped")
	return nil
}
