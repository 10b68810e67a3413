// Package xnema собирает приложение платформы: хранилища, сервисы,
// HTTP-сервер и его жизненный цикл.
package xnema

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/cinexnema-cyber/projeto-xnema/internal/cache"
	"github.com/cinexnema-cyber/projeto-xnema/internal/config"
	"github.com/cinexnema-cyber/projeto-xnema/internal/identity"
	jwtlib "github.com/cinexnema-cyber/projeto-xnema/internal/lib/jwt"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/rabbitmq"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
	"github.com/cinexnema-cyber/projeto-xnema/internal/migrations"
	"github.com/cinexnema-cyber/projeto-xnema/internal/paymentprovider"
	authservice "github.com/cinexnema-cyber/projeto-xnema/internal/services/auth"
	subservice "github.com/cinexnema-cyber/projeto-xnema/internal/services/subscription"
	"github.com/cinexnema-cyber/projeto-xnema/internal/session"
	"github.com/cinexnema-cyber/projeto-xnema/internal/storage/repository"
)

// App — собранное приложение платформы.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

// New создаёт приложение: подключает PostgreSQL, прогоняет миграции,
// инициализирует Redis и RabbitMQ, собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}
	sessions := session.NewStore(cacheRedis, cfg.TokenTTL)

	// RabbitMQ опционален: без него события уведомлений не публикуются.
	var amqpConn *amqp.Connection
	var events subservice.EventPublisher
	var resetPublisher identity.ResetPublisher
	if cfg.AddressRabbitMQ != "" {
		amqpConn, err = rabbitmq.Connect(cfg.AddressRabbitMQ, cfg.RetriesRabbitMQ, cfg.DelayRabbitMQ)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(amqpConn, rabbitmq.GetNotificationQueues())
		if err != nil {
			return nil, err
		}
		publisher := rabbitmq.NewPublisher(ch)
		events = publisher
		resetPublisher = publisher
	} else {
		logger.Warn("rabbitmq address is empty, notifications are disabled")
	}

	var ids identity.Store
	switch cfg.IdentityProvider.Mode {
	case "remote":
		ids = identity.NewProviderStore(cfg.IdentityProvider.BaseURL,
			cfg.IdentityProvider.APIKey, cfg.IdentityProvider.RequestTimeout)
	default:
		ids = identity.NewPostgresStore(db.DB, resetPublisher)
	}

	jwtMaker := jwtlib.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.New(logger, ids, db, sessions, jwtMaker,
		cfg.AdminEmail, cfg.OperationTimeout)
	if err := authService.BootstrapAdmin(ctx, cfg.AdminPassword); err != nil {
		logger.Error("admin bootstrap failed", sl.Err(err))
	}

	providerClient := paymentprovider.NewClient(cfg.PaymentProvider.ShopID,
		cfg.PaymentProvider.SecretKey, cfg.PaymentProvider.WebhookSecret,
		cfg.PaymentProvider.ReturnURL)
	subscriptionService := subservice.New(logger, db, providerClient, ids, events, sessions)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, subscriptionService, providerClient, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.amqpConn != nil {
			_ = a.amqpConn.Close()
		}
		_ = a.db.DB.Close()
		return err
	}
}
