// Package smtp описывает транспорт для отправки почтовых уведомлений.
package smtp

import "io"

// Client минимальный набор операций SMTP-сессии, нужный сервису рассылки.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface открывает SMTP-соединение и сообщает адрес отправителя.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
