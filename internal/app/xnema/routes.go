package xnema

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/cinexnema-cyber/projeto-xnema/internal/access"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/admin/approvecreator"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/admin/listusers"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/auth/login"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/auth/logout"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/auth/me"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/auth/register"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/auth/resetpassword"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/auth/resetrequest"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/content/premium"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/health"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/payment/paymentwebhook"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/subscription/cancel"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/subscription/history"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/handlers/subscription/subscribe"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/middlewarectx"
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
	"github.com/cinexnema-cyber/projeto-xnema/internal/paymentprovider"
	authservice "github.com/cinexnema-cyber/projeto-xnema/internal/services/auth"
	subservice "github.com/cinexnema-cyber/projeto-xnema/internal/services/subscription"
	"github.com/cinexnema-cyber/projeto-xnema/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authService *authservice.Service,
	subscriptionService *subservice.Service, providerClient *paymentprovider.Client,
	db *repository.Storage) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
		r.Post("/auth/login", login.New(logger, authService).ServeHTTP)
		r.Post("/auth/password-reset", resetrequest.New(logger, authService).ServeHTTP)

		// Webhook платёжного провайдера (подпись вместо JWT)
		r.Post("/payments/webhook", paymentwebhook.New(logger, subscriptionService, providerClient).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/auth/logout", logout.New(logger, authService).ServeHTTP)
			r.Get("/auth/me", me.New(logger).ServeHTTP)
			r.Post("/auth/reset-password", resetpassword.New(logger, authService).ServeHTTP)
			r.Post("/subscriptions", subscribe.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscriptions/cancel", cancel.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions/history", history.New(logger, subscriptionService).ServeHTTP)

			// Разделы с требованием активной подписки
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AccessMiddleware(logger, access.Requirement{RequireSubscription: true}))
				r.Get("/content/premium", premium.New(logger).ServeHTTP)
			})

			// Административный раздел
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AccessMiddleware(logger, access.Requirement{Roles: []string{models.RoleAdmin}}))
				r.Get("/admin/users", listusers.New(logger, authService).ServeHTTP)
				r.Post("/admin/creators/approve", approvecreator.New(logger, authService).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, map[string]health.Checker{
		"postgres": func() error { return repository.CheckDatabaseReady(db) },
	}).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
