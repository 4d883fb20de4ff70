package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wjtan-dev/blockwatch-backend/api/controllers"
	webhookcontrollers "github.com/wjtan-dev/blockwatch-backend/api/controllers/webhooks"
	"github.com/wjtan-dev/blockwatch-backend/api/middleware"
	"github.com/wjtan-dev/blockwatch-backend/internal/subscriptions"
	stripewebhook "github.com/wjtan-dev/blockwatch-backend/internal/webhooks/stripe"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db"
	"github.com/wjtan-dev/blockwatch-backend/pkg/logger"
	"github.com/wjtan-dev/blockwatch-backend/pkg/redis"
	"github.com/wjtan-dev/blockwatch-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger db.Pinger,
	redisClient *redis.Client,
	accountService controllers.AccountService,
	lookupGate controllers.LookupGate,
	incidentService controllers.IncidentService,
	usageService controllers.UsageHistoryService,
	passwordResetService controllers.PasswordResetService,
	billingService *subscriptions.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(accountService, cfg.JWT, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(accountService, cfg.JWT, logg))
		r.Route("/password-reset", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/request", controllers.PasswordResetRequest(passwordResetService, cfg, logg))
			r.Post("/confirm", controllers.PasswordResetConfirm(passwordResetService, logg))
		})
	})

	// Preview is unmetered and open to anonymous callers. A valid session is
	// attached when present so request logs carry the account.
	r.Route("/api/public", func(r chi.Router) {
		r.With(middleware.AttachOptionalSession(cfg.JWT, logg)).Get("/incidents/preview", controllers.IncidentPreview(incidentService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireSession(cfg.JWT, logg))

		r.Get("/incidents", controllers.IncidentLookup(lookupGate, incidentService, logg))
		r.Get("/auth/me", controllers.AuthMe(accountService, logg))
		r.Route("/usage", func(r chi.Router) {
			r.Get("/status", controllers.UsageStatus(lookupGate, logg))
			r.Get("/history", controllers.UsageHistory(usageService, logg))
		})
		r.Route("/billing", func(r chi.Router) {
			r.Post("/checkout", controllers.BillingCheckout(billingService, logg))
			r.Post("/cancel", controllers.BillingCancel(billingService, logg))
		})
	})

	return r
}
