// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers transactional email such as password-reset links.

Two senders are provided:

  - SMTPSender: real delivery through an SMTP relay, with bounded retries.
  - LogSender: writes the message to the structured log (development only).

Callers depend on the [Sender] interface and pick an implementation at startup.
*/
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/wneessen/go-mail"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Text    string
}

// Sender delivers a [Message]. Implementations must honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// # SMTP

// SMTPConfig holds the relay coordinates for [SMTPSender].
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// MaxRetries is the number of extra attempts after a transient failure.
	MaxRetries uint64
	// RetryBase is the first backoff interval; it doubles on each retry.
	RetryBase time.Duration
}

// SMTPSender sends mail through an SMTP relay using go-mail.
type SMTPSender struct {
	config SMTPConfig
	logger *slog.Logger

	// deliver performs one dial-and-send attempt.
	deliver func(ctx context.Context, message *mail.Msg) error
}

// NewSMTPSender builds a sender. The relay is dialled lazily on every Send.
func NewSMTPSender(config SMTPConfig, logger *slog.Logger) (*SMTPSender, error) {
	options := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if config.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	client, err := mail.NewClient(config.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("mailer: invalid smtp configuration: %w", err)
	}

	if config.RetryBase <= 0 {
		config.RetryBase = 250 * time.Millisecond
	}

	return &SMTPSender{
		config: config,
		logger: logger,
		deliver: func(ctx context.Context, message *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, message)
		},
	}, nil
}

/*
Send builds the MIME message and delivers it, retrying transient failures.

Parameters:
  - ctx: context.Context (bounds all attempts, including backoff sleeps)
  - message: Message

Returns:
  - error: The last delivery error, or nil on success
*/
func (sender *SMTPSender) Send(ctx context.Context, message Message) error {
	mimeMessage, err := sender.build(message)
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(sender.config.MaxRetries, retry.NewExponential(sender.config.RetryBase))
	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := sender.deliver(ctx, mimeMessage)
		if err == nil {
			return nil
		}

		sender.logger.WarnContext(ctx, "mail_delivery_attempt_failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if isPermanent(err) {
			return fmt.Errorf("mailer: permanent delivery failure: %w", err)
		}
		return retry.RetryableError(fmt.Errorf("mailer: delivery failed: %w", err))
	})
}

// build converts a [Message] to a go-mail message.
func (sender *SMTPSender) build(message Message) (*mail.Msg, error) {
	mimeMessage := mail.NewMsg()
	if err := mimeMessage.From(sender.config.From); err != nil {
		return nil, fmt.Errorf("mailer: invalid sender address: %w", err)
	}
	if err := mimeMessage.To(message.To); err != nil {
		return nil, fmt.Errorf("mailer: invalid recipient address: %w", err)
	}
	mimeMessage.Subject(message.Subject)
	mimeMessage.SetBodyString(mail.TypeTextPlain, message.Text)
	return mimeMessage, nil
}

// isPermanent reports whether the relay rejected the message for good
// (a 5xx reply), as opposed to a network or 4xx condition.
func isPermanent(err error) bool {
	var sendError *mail.SendError
	return errors.As(err, &sendError) && !sendError.IsTemp()
}

// # Logging

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a [LogSender].
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message. It never fails unless ctx is already done.
func (sender *LogSender) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sender.logger.InfoContext(ctx, "mail_logged",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("text", message.Text),
	)
	return nil
}
