// Воркер почтовых уведомлений: потребляет события подписок и сброса
// пароля из RabbitMQ и отправляет письма по SMTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cinexnema-cyber/projeto-xnema/internal/config"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/rabbitmq"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/smtp"
	"github.com/cinexnema-cyber/projeto-xnema/internal/services/sender"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting notification-sender", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := rabbitmq.Connect(cfg.AddressRabbitMQ, cfg.RetriesRabbitMQ, cfg.DelayRabbitMQ)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = conn.Close()
	}()

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		logger.Error("failed to setup RabbitMQ channel", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = ch.Close()
	}()

	transport := smtp.NewTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, logger)
	senderService := sender.NewSenderService(logger, transport)

	if err = rabbitmq.ConsumerMessage(ctx, ch, "notifications.subscription", senderService.HandleSubscriptionEvent); err != nil {
		logger.Error("failed to start subscription consumer", sl.Err(err))
		os.Exit(1)
	}
	if err = rabbitmq.ConsumerMessage(ctx, ch, "notifications.account", senderService.HandlePasswordReset); err != nil {
		logger.Error("failed to start account consumer", sl.Err(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("notification sender shutting down gracefully")
}
