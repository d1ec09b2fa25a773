package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cryptovault/cryptovault/internal/alerts"
	"github.com/cryptovault/cryptovault/internal/auth"
	"github.com/cryptovault/cryptovault/internal/chain"
	"github.com/cryptovault/cryptovault/internal/config"
	"github.com/cryptovault/cryptovault/internal/funding"
	"github.com/cryptovault/cryptovault/internal/history"
	"github.com/cryptovault/cryptovault/internal/identity"
	"github.com/cryptovault/cryptovault/internal/ledger"
	"github.com/cryptovault/cryptovault/internal/market"
	"github.com/cryptovault/cryptovault/internal/middleware"
	"github.com/cryptovault/cryptovault/internal/notification"
	"github.com/cryptovault/cryptovault/internal/payments"
	"github.com/cryptovault/cryptovault/internal/portfolio"
	"github.com/cryptovault/cryptovault/internal/session"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in development, in which case in-process stores are used.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	RPC    chain.RPC
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. The returned
// checker evaluates price alerts and must be started by the caller.
func Setup(app *fiber.App, d Deps) (*alerts.Checker, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Metrics())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	RegisterDocsRoutes(app)

	s, err := buildServices(d)
	if err != nil {
		return nil, err
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	authHandler := auth.NewHandler(s.auth)
	jwtmw := middleware.JWTAuth(s.auth)
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginPerMinute), jwtmw)
	RegisterMarketRoutes(api, market.NewHandler(s.market))

	protected := api.Group("", jwtmw)
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	protected.Get("/me", authHandler.Me)
	RegisterSessionRoutes(protected, session.NewHandler(s.sessions), notification.NewHandler(s.inbox))
	RegisterWalletRoutes(protected, wallet.NewHandler(s.wallets, s.sessions), chain.NewHandler(s.chain, s.wallets))
	RegisterWalletMeRoute(protected, s.wallets, s.sessions)
	RegisterPortfolioRoutes(protected, portfolio.NewHandler(s.portfolio, s.wallets, s.sessions))
	RegisterHistoryRoutes(protected, history.NewHandler(s.history, s.wallets))
	RegisterPaymentRoutes(protected, payments.NewHandler(s.payments))
	RegisterFundingRoutes(protected, funding.NewHandler(s.funding))
	RegisterAlertRoutes(protected, alerts.NewHandler(s.alerts))

	return s.checker, nil
}

type services struct {
	sessions  session.Store
	inbox     notification.Inbox
	auth      *auth.Service
	wallets   *wallet.Service
	chain     *chain.Reader
	market    *market.Service
	history   *history.Service
	payments  *payments.Service
	funding   *funding.Service
	portfolio *portfolio.Service
	alerts    *alerts.Service
	checker   *alerts.Checker
}

// buildServices picks Postgres/Redis backed stores when configured and
// in-memory ones otherwise.
func buildServices(d Deps) (*services, error) {
	var (
		ledgerBackend ledger.Ledger
		walletRepo    wallet.Repository
		identityRepo  identity.Repository
		historyRepo   history.Repository
		alertRepo     alerts.Repository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		historyRepo = history.NewPostgresRepository(d.DB)
		alertRepo = alerts.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		walletRepo = wallet.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
		historyRepo = history.NewMemoryRepository()
		alertRepo = alerts.NewMemoryRepository()
	}

	var (
		sessions   session.Store
		inbox      notification.Inbox
		priceCache market.Cache
	)
	if d.Cache != nil {
		sessions = session.NewRedisStore(d.Cache)
		inbox = notification.NewRedisInbox(d.Cache)
		priceCache = market.NewRedisCache(d.Cache)
	} else {
		sessions = session.NewMemoryStore()
		inbox = notification.NewMemoryInbox()
		priceCache = market.NewMemoryCache(nil)
	}
	notifier := notification.Fanout{notification.NewLoggerNotifier(d.Logger), inbox}

	sealer, err := wallet.NewSealer(d.Cfg.WalletEncryptionKey, 0)
	if err != nil {
		return nil, fmt.Errorf("wallet sealer: %w", err)
	}

	p := d.Cfg.Providers
	providers := []market.Provider{
		market.NewCoinGecko(market.ProviderConfig{BaseURL: p.CoinGeckoURL, APIKey: p.CoinGeckoAPIKey, RequestsPerSec: p.RequestsPerSec}),
		market.NewCoinCap(market.ProviderConfig{BaseURL: p.CoinCapURL, RequestsPerSec: p.RequestsPerSec}),
	}
	marketSvc := market.NewService(priceCache, providers, p.PriceCacheTTL, p.Timeout, d.Logger)

	chainReader := chain.NewReader(d.RPC, d.Logger)
	explorer := chain.NewExplorer(p.EtherscanURL, p.EtherscanAPIKey, p.Timeout, d.Logger)

	walletSvc := wallet.NewService(walletRepo, ledgerBackend, sealer, identity.NewService(identityRepo), d.Logger)
	historySvc := history.NewService(historyRepo, explorer, d.Logger)
	fundingSvc, err := funding.NewService(ledgerBackend, walletSvc, marketSvc, funding.NewStaticRamp(), historySvc, notifier, d.Logger)
	if err != nil {
		return nil, err
	}
	alertSvc := alerts.NewService(alertRepo, marketSvc, notifier, d.Logger)
	checker, err := alerts.NewChecker(alertSvc, p.AlertSchedule, p.Timeout*4, d.Logger)
	if err != nil {
		return nil, err
	}

	return &services{
		sessions:  sessions,
		inbox:     inbox,
		auth:      auth.NewService(d.Cfg, identityRepo, walletSvc, sessions, notifier, d.Logger),
		wallets:   walletSvc,
		chain:     chainReader,
		market:    marketSvc,
		history:   historySvc,
		payments:  payments.NewService(ledgerBackend, walletSvc, marketSvc, chainReader, historySvc, notifier, d.Logger),
		funding:   fundingSvc,
		portfolio: portfolio.NewService(walletSvc, marketSvc),
		alerts:    alertSvc,
		checker:   checker,
	}, nil
}
