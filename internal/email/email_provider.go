package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/wneessen/go-mail"

	"github.com/civicweb/cms/internal/config"
	"github.com/civicweb/cms/internal/usecase"
)

// NewFromEnv builds a provider from the SMTP_* env. It returns nil when
// SMTP_HOST is unset.
func NewFromEnv(log *slog.Logger) (*EmailProvider, error) {
	host := config.String(config.ENV_KEY_SMTP_HOST, "")
	if host == "" {
		return nil, nil
	}
	return NewEmailProvider(
		host,
		config.String(config.ENV_KEY_SMTP_USERNAME, ""),
		config.String(config.ENV_KEY_SMTP_PASSWORD, ""),
		config.String(config.ENV_KEY_SMTP_PORT, "587"),
		log,
	)
}

func NewEmailProvider(
	smtpHost, smtpUser, smtpPassword, smtpPort string, log *slog.Logger) (*EmailProvider, error) {

	if smtpHost == "" || smtpUser == "" || smtpPassword == "" {
		return nil, errors.New("email: SMTP host, user, and password must be provided")
	}
	if log == nil {
		log = slog.Default()
	}

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return nil, fmt.Errorf("email: invalid SMTP port: %w", err)
	}

	client, err := mail.NewClient(
		smtpHost,
		mail.WithPort(port),
		mail.WithUsername(smtpUser),
		mail.WithPassword(smtpPassword),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
	)
	if err != nil {
		return nil, fmt.Errorf("email: create SMTP client: %w", err)
	}

	provider := &EmailProvider{
		c:      make(chan *mail.Msg, 100),
		client: client,
		log:    log.With(slog.String("component", "email")),
	}

	provider.wg.Add(1)
	go provider.sendEmailWorker()

	return provider, nil
}

// EmailProvider queues messages and sends them from one background worker.
type EmailProvider struct {
	c      chan *mail.Msg
	client *mail.Client
	log    *slog.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

var _ usecase.Mailer = (*EmailProvider)(nil)

func (e *EmailProvider) SendEmail(ctx context.Context, email usecase.Email) error {
	msg, err := newMsg(email)
	if err != nil {
		return err
	}

	select {
	case e.c <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting mail and waits for queued messages to be sent.
func (e *EmailProvider) Close() {
	e.once.Do(func() { close(e.c) })
	e.wg.Wait()
}

func (e *EmailProvider) sendEmailWorker() {
	defer e.wg.Done()
	for msg := range e.c {
		if err := e.client.DialAndSend(msg); err != nil {
			e.log.Error("send email failed", slog.String("err", err.Error()))
		}
	}
}

func newMsg(email usecase.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(email.From); err != nil {
		return nil, fmt.Errorf("email: from: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("email: to: %w", err)
	}
	if len(email.CC) > 0 {
		if err := msg.Cc(email.CC...); err != nil {
			return nil, fmt.Errorf("email: cc: %w", err)
		}
	}
	if len(email.BCC) > 0 {
		if err := msg.Bcc(email.BCC...); err != nil {
			return nil, fmt.Errorf("email: bcc: %w", err)
		}
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextHTML, email.Body)
	for _, file := range email.Attachments {
		if err := msg.AttachReader(
			file.Name,
			bytes.NewReader(file.Content),
			mail.WithFileContentType(mail.ContentType(file.ContentType)),
		); err != nil {
			return nil, fmt.Errorf("email: attach %s: %w", file.Name, err)
		}
	}
	return msg, nil
}
