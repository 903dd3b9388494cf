// Package email sends the transactional emails of the consultancy through Resend.
package email

import (
	"context"
	"fmt"
	"net/url"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// Message is a rendered email ready to be delivered
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// Transport defines the interface for delivering rendered messages
type Transport interface {
	// Send delivers the message and returns the provider message id
	Send(ctx context.Context, msg *Message) (string, error)

	// GetName returns the name of the transport implementation
	GetName() string
}

// ResendTransport delivers messages through the Resend API
type ResendTransport struct {
	client *resend.Client
}

// NewResendTransport creates a Resend transport
func NewResendTransport(apiKey string) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey)}
}

// WithBaseURL points the transport at another API host
func (t *ResendTransport) WithBaseURL(baseURL string) (*ResendTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid resend base URL: %w", err)
	}
	if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}
	t.client.BaseURL = u
	return t, nil
}

// Send implements Transport
func (t *ResendTransport) Send(ctx context.Context, msg *Message) (string, error) {
	resp, err := t.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return "", fmt.Errorf("resend rejected email: %w", err)
	}
	return resp.Id, nil
}

// GetName implements Transport
func (t *ResendTransport) GetName() string {
	return "resend"
}

// LogTransport only logs messages. Used in development when no API key is set.
type LogTransport struct {
	logger *logrus.Logger
}

// NewLogTransport creates a log-only transport
func NewLogTransport(logger *logrus.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Send implements Transport
func (t *LogTransport) Send(ctx context.Context, msg *Message) (string, error) {
	t.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email not sent (development transport)")
	return "", nil
}

// GetName implements Transport
func (t *LogTransport) GetName() string {
	return "log"
}
