package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletledger/internal/auth"
	"github.com/congo-pay/walletledger/internal/clock"
	"github.com/congo-pay/walletledger/internal/config"
	"github.com/congo-pay/walletledger/internal/funding"
	"github.com/congo-pay/walletledger/internal/identity"
	"github.com/congo-pay/walletledger/internal/idgen"
	"github.com/congo-pay/walletledger/internal/journal"
	"github.com/congo-pay/walletledger/internal/ledger"
	"github.com/congo-pay/walletledger/internal/metrics"
	"github.com/congo-pay/walletledger/internal/middleware"
	"github.com/congo-pay/walletledger/internal/notification"
	"github.com/congo-pay/walletledger/internal/payments"
	"github.com/congo-pay/walletledger/internal/wallet"
	"github.com/congo-pay/walletledger/internal/worker"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// are optional in development.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Prometheus
	Pool    *worker.Pool
	Clock   clock.Clock
	IDs     idgen.Generator
}

// Services exposes the wired domain services.
type Services struct {
	Engine   *payments.Engine
	Wallets  *wallet.Store
	Identity *identity.Service
	Auth     *auth.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Services, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Pool == nil {
		return nil, fmt.Errorf("worker pool is required")
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.IDs == nil {
		d.IDs = idgen.NewUUID()
	}

	svc, err := buildServices(d)
	if err != nil {
		return nil, err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New())
	if d.Cfg.IsDev() {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
		}))
	}
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.HTTPMetrics(d.Metrics))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	RegisterPingRoute(api, d.Clock)

	identityHandler := identity.NewHandler(svc.Identity)
	authHandler := auth.NewHandler(svc.Auth)
	jwtmw := middleware.JWTAuth(svc.Auth)
	RegisterAuthRoutes(api, authHandler, identityHandler,
		middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimitPerM, d.Logger), jwtmw)

	protected := api.Group("", jwtmw)
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	walletHandler := wallet.NewHandler(svc.Wallets)
	paymentHandler := payments.NewHandler(svc.Engine)
	fundingHandler := funding.NewHandler(funding.NewService(svc.Engine, nil, d.Cfg.WalletCurrency, d.Logger))

	protected.Get("/me", identityHandler.Me)
	RegisterWalletRoutes(protected, walletHandler, paymentHandler)
	RegisterFundingRoutes(protected, fundingHandler)
	RegisterTransactionRoutes(protected, paymentHandler)
	RegisterAdminRoutes(protected, walletHandler, paymentHandler, identityHandler)

	return svc, nil
}

func buildServices(d Deps) (*Services, error) {
	seeder, err := newSeeder(d.Cfg)
	if err != nil {
		return nil, err
	}

	store := wallet.NewStore(seeder, d.IDs, d.Clock, d.Logger, wallet.Options{
		Currency:            d.Cfg.WalletCurrency,
		DisableProvisioning: !d.Cfg.WalletAutoProvision,
	})
	store.OnProvision(d.Metrics)

	policy := payments.OmitFailures
	if d.Cfg.RecordFailedTransfer {
		policy = payments.RecordFailures
	}
	engine := payments.NewEngine(payments.Deps{
		Wallets:   store,
		Ledger:    ledger.NewInMemory(),
		IDs:       d.IDs,
		Clock:     d.Clock,
		Logger:    d.Logger,
		Metrics:   d.Metrics,
		Policy:    policy,
		MaxAmount: d.Cfg.MaxAmount,
	})
	engine.Subscribe(notification.NewTransferNotifier(notification.NewLoggerNotifier(d.Logger), d.Pool, d.Logger))

	var users identity.Repository = identity.NewMemoryRepository()
	if d.DB != nil {
		users = identity.NewPostgresRepository(d.DB)
		mirror := journal.NewMirror(journal.NewPostgres(d.DB), d.Pool, d.Logger)
		store.OnProvision(mirror)
		engine.Subscribe(mirror)
	}
	identitySvc := identity.NewService(users, d.IDs, d.Clock, d.Cfg.AdminUsernames, d.Logger)
	tokens := auth.NewTokenManager(d.Cfg.JWTSecret, d.Cfg.RefreshSecret, d.Cfg.AccessTokenTTL, d.Cfg.RefreshTokenTTL, d.Clock)

	return &Services{
		Engine:   engine,
		Wallets:  store,
		Identity: identitySvc,
		Auth:     auth.NewService(tokens, identitySvc, d.Logger),
	}, nil
}

func newSeeder(cfg config.Config) (wallet.Seeder, error) {
	if cfg.SeedPolicy == config.SeedFixed {
		return wallet.FixedSeeder{Amount: cfg.SeedFixedAmount}, nil
	}
	seeder, err := wallet.NewRandomSeeder(cfg.SeedMin, cfg.SeedMax)
	if err != nil {
		return nil, fmt.Errorf("seed policy: %w", err)
	}
	return seeder, nil
}
