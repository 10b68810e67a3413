package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
)

// Transport устанавливает STARTTLS-соединения с SMTP-сервером рассылки.
// Сервер без поддержки STARTTLS отклоняется: учётные данные не должны
// уходить по открытому каналу.
type Transport struct {
	host string
	port string
	user string
	pass string
	log  *slog.Logger
}

// NewTransport создаёт транспорт для указанного SMTP-сервера.
// user служит и логином, и адресом отправителя.
func NewTransport(host, port, user, pass string, log *slog.Logger) *Transport {
	return &Transport{
		host: host,
		port: port,
		user: user,
		pass: pass,
		log:  log,
	}
}

// smtpClient адаптирует *smtp.Client к интерфейсу Client.
type smtpClient struct {
	c *smtp.Client
}

func (w *smtpClient) Mail(from string) error { return w.c.Mail(from) }

func (w *smtpClient) Rcpt(to string) error { return w.c.Rcpt(to) }

func (w *smtpClient) Data() (io.WriteCloser, error) { return w.c.Data() }

func (w *smtpClient) Quit() error { return w.c.Quit() }

func (w *smtpClient) Close() error { return w.c.Close() }

// Connect открывает соединение, поднимает TLS и аутентифицируется.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Connect"

	conn, err := net.Dial("tcp", net.JoinHostPort(t.host, t.port))
	if err != nil {
		t.log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		_ = conn.Close()
		t.log.Error("failed to create SMTP client", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		t.closeClient(client)
		return nil, fmt.Errorf("%s: smtp server does not support STARTTLS", op)
	}
	tlsConfig := &tls.Config{
		ServerName: t.host,
		MinVersion: tls.VersionTLS12,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		t.closeClient(client)
		t.log.Error("failed to start TLS", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	auth := smtp.PlainAuth("", t.user, t.pass, t.host)
	if err = client.Auth(auth); err != nil {
		t.closeClient(client)
		t.log.Error("smtp auth failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &smtpClient{c: client}, nil
}

func (t *Transport) closeClient(client *smtp.Client) {
	if err := client.Close(); err != nil {
		t.log.Error("failed to close SMTP client", sl.Err(err))
	}
}

// GetSMTPUser возвращает адрес отправителя.
func (t *Transport) GetSMTPUser() string {
	return t.user
}
