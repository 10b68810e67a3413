package smtp

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestTransportSenderAddress(t *testing.T) {
	tr := NewTransport("smtp.example.com", "587", "noreply@xnema.example.com", "secret", newNoopLogger())
	assert.Equal(t, "noreply@xnema.example.com", tr.GetSMTPUser())
}

func TestConnectDialError(t *testing.T) {
	// Порт резервируется и сразу освобождается: по нему никто не слушает.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	tr := NewTransport("127.0.0.1", strconv.Itoa(port), "noreply@xnema.example.com", "secret", newNoopLogger())
	_, err = tr.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp.Connect")
}

func TestConnectRequiresSTARTTLS(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() {
		_ = l.Close()
	}()

	// Минимальный SMTP-диалог без STARTTLS в ответе на EHLO.
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer func() {
			_ = conn.Close()
		}()
		r := bufio.NewReader(conn)
		fmt.Fprintf(conn, "220 test.local ESMTP\r\n")
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		fmt.Fprintf(conn, "250-test.local\r\n250 AUTH PLAIN\r\n")
		_, _ = r.ReadString('\n')
	}()

	port := l.Addr().(*net.TCPAddr).Port
	tr := NewTransport("127.0.0.1", strconv.Itoa(port), "noreply@xnema.example.com", "secret", newNoopLogger())
	_, err = tr.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STARTTLS")
}
