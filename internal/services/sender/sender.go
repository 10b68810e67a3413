// Package sender реализует воркер почтовых уведомлений: письма об оформлении
// и отмене подписки и письмо сброса пароля. Сообщения приходят из очередей
// RabbitMQ, тела сообщений — JSON.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/smtp"
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// SenderService отправляет почтовые уведомления.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.TransportInterface) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// HandleSubscriptionEvent обрабатывает событие жизненного цикла подписки.
func (s *SenderService) HandleSubscriptionEvent(body []byte) error {
	var event models.SubscriptionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	if event.Email == "" {
		// Событие без адресата: обогащение не удалось на стороне издателя.
		s.log.Warn("subscription event without email skipped",
			slog.String("account_uid", event.AccountUID))
		return nil
	}

	name := event.DisplayName
	if name == "" {
		name = event.Email
	}

	var subject, bodyText string
	switch event.Event {
	case "subscription.created":
		subject = "Sua assinatura XNEMA está ativa"
		bodyText = fmt.Sprintf("Olá, %s!\n\nSua assinatura (%s) foi ativada.", name, event.PlanType)
		if event.EndDate != nil {
			bodyText += fmt.Sprintf(" Válida até %s.", event.EndDate.Format("02/01/2006"))
		}
	case "subscription.cancelled":
		subject = "Sua assinatura XNEMA foi cancelada"
		bodyText = fmt.Sprintf("Olá, %s!\n\nSua assinatura foi cancelada. Você pode reativá-la a qualquer momento.", name)
	default:
		s.log.Warn("unknown subscription event skipped", slog.String("event", event.Event))
		return nil
	}

	return s.sendEmail([]string{event.Email}, subject, bodyText)
}

// HandlePasswordReset обрабатывает событие сброса пароля.
func (s *SenderService) HandlePasswordReset(body []byte) error {
	var event struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	if event.Email == "" {
		return fmt.Errorf("password reset event without email")
	}

	subject := "Redefinição de senha XNEMA"
	bodyText := "Olá!\n\nRecebemos um pedido de redefinição de senha da sua conta XNEMA.\n" +
		"Se não foi você, ignore este email."

	return s.sendEmail([]string{event.Email}, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", "error", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("failed to write email body", "error", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", "error", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", "error", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
