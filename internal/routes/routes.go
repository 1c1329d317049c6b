package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Malick44/ZemwifiApp-sub000/internal/auth"
	"github.com/Malick44/ZemwifiApp-sub000/internal/cashin"
	"github.com/Malick44/ZemwifiApp-sub000/internal/catalog"
	"github.com/Malick44/ZemwifiApp-sub000/internal/config"
	"github.com/Malick44/ZemwifiApp-sub000/internal/identity"
	"github.com/Malick44/ZemwifiApp-sub000/internal/ledger"
	"github.com/Malick44/ZemwifiApp-sub000/internal/middleware"
	"github.com/Malick44/ZemwifiApp-sub000/internal/notification"
	"github.com/Malick44/ZemwifiApp-sub000/internal/purchase"
	"github.com/Malick44/ZemwifiApp-sub000/internal/voucher"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Services bundles the long-lived services built during route wiring so main
// can reach the ones that need background work.
type Services struct {
	CashIn *cashin.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (Services, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Services{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Services{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	// Storage backends. Dev mode without a database runs fully in memory.
	var (
		ledgerBackend ledger.Ledger
		voucherStore  voucher.Store
		purchaseStore purchase.Store
		cashinStore   cashin.Store
		catalogRepo   catalog.Repository
		identityRepo  identity.Repository
	)
	if d.DB != nil {
		pgLedger := ledger.NewPostgresLedger(d.DB)
		pgVouchers := voucher.NewPostgresStore(d.DB)
		ledgerBackend = pgLedger
		voucherStore = pgVouchers
		purchaseStore = purchase.NewPostgresStore(d.DB, pgLedger, pgVouchers)
		cashinStore = cashin.NewPostgresStore(d.DB, pgLedger)
		catalogRepo = catalog.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		voucherStore = voucher.NewMemoryStore()
		purchaseStore = purchase.NewMemoryStore(ledgerBackend, voucherStore)
		cashinStore = cashin.NewMemoryStore(ledgerBackend)
		catalogRepo = catalog.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	catalogSvc := catalog.NewService(catalogRepo, d.Cache)
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	purchaseSvc := purchase.NewService(purchaseStore, voucherStore, catalogSvc, purchase.StaticGateway{}, notifier)
	cashinSvc := cashin.NewService(cashinStore, identityRepo, notifier, d.Cfg.CashInTTL)

	authHandler := auth.NewHandler(identitySvc, authSvc, ledgerBackend)
	catalogHandler := catalog.NewHandler(catalogSvc)
	purchaseHandler := purchase.NewHandler(purchaseSvc)
	voucherHandler := voucher.NewHandler(voucherStore)
	cashinHandler := cashin.NewHandler(cashinSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, 5))

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	protected.Post("/auth/logout", authHandler.Logout)
	RegisterWalletRoutes(protected, ledgerBackend, identityRepo)
	RegisterCatalogRoutes(protected, catalogHandler)
	RegisterPurchaseRoutes(protected, purchaseHandler)
	RegisterVoucherRoutes(protected, voucherHandler)
	RegisterCashInRoutes(protected, cashinHandler, middleware.CashInRateLimit(d.Cache, d.Cfg.CashInPerMinute))

	return Services{CashIn: cashinSvc}, nil
}
