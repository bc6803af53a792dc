package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transport delivers a rendered message to the recipient and returns a
// transport-level message ID. Transient and permanent failures are not
// distinguished at this layer; any error sends the event to the dead-letter
// store. Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, message Message) (string, error)
	Close() error
}

// NopTransport accepts every message without delivering anything. Useful for
// testing and dry runs.
type NopTransport struct{}

// NewNopTransport creates a new NopTransport.
func NewNopTransport() *NopTransport {
	return &NopTransport{}
}

// Send implements the Transport interface.
func (t *NopTransport) Send(_ context.Context, _ Message) (string, error) {
	return uuid.NewString(), nil
}

// Close implements the Transport interface.
func (t *NopTransport) Close() error {
	return nil
}

// SMTPTransport delivers messages over SMTP.
type SMTPTransport struct {
	logger *zap.Logger
	addr   string
	from   string
	auth   smtp.Auth
	closed atomic.Bool
}

// SMTPTransportOption configures an SMTPTransport.
type SMTPTransportOption func(*SMTPTransport)

// WithSMTPAddr sets the host:port of the SMTP server.
func WithSMTPAddr(addr string) SMTPTransportOption {
	return func(t *SMTPTransport) {
		t.addr = addr
	}
}

// WithSMTPFrom sets the envelope sender address.
func WithSMTPFrom(from string) SMTPTransportOption {
	return func(t *SMTPTransport) {
		t.from = from
	}
}

// WithSMTPAuth sets the authentication mechanism. Without it the transport
// connects unauthenticated.
func WithSMTPAuth(auth smtp.Auth) SMTPTransportOption {
	return func(t *SMTPTransport) {
		t.auth = auth
	}
}

// NewSMTPTransport creates a new SMTPTransport with functional options.
func NewSMTPTransport(logger *zap.Logger, opts ...SMTPTransportOption) *SMTPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &SMTPTransport{
		logger: logger,
		addr:   "localhost:25",
		from:   "no-reply@localhost",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send delivers the message and returns a locally generated message ID.
// The call is bounded by ctx: if the deadline fires before the SMTP dialog
// completes, Send returns the context error and the delivery is treated as
// failed.
func (t *SMTPTransport) Send(ctx context.Context, message Message) (string, error) {
	if t.closed.Load() {
		return "", ErrTransportClosed
	}

	messageID := uuid.NewString()
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(t.addr, t.auth, t.from, []string{message.To}, formatMessage(t.from, messageID, message))
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("smtp send failed: %w", err)
		}
		t.logger.Debug("Message delivered",
			zap.String("message_id", messageID),
			zap.String("to", message.To),
		)
		return messageID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close marks the transport closed. Subsequent sends fail with
// ErrTransportClosed.
func (t *SMTPTransport) Close() error {
	t.closed.Store(true)
	return nil
}

// formatMessage assembles the RFC 5322 wire form of a message.
func formatMessage(from, messageID string, message Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", message.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", message.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s@notifier>\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(message.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
