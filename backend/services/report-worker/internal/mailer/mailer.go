// Package mailer delivers report emails over implicit-TLS SMTP, one session per message.
package mailer

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/smtp"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"waterreport/backend/services/report-worker/internal/config"
	"waterreport/backend/services/report-worker/internal/failure"
)

// Session is the subset of *smtp.Client used to deliver one message.
type Session interface {
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer opens an SMTP session.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// TLSDialer connects with TLS from the first byte (SMTPS).
type TLSDialer struct {
	Host    string
	Addr    string
	Timeout time.Duration
}

// Dial implements Dialer.
func (d TLSDialer) Dial(ctx context.Context) (Session, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: d.Timeout},
		Config:    &tls.Config{ServerName: d.Host, MinVersion: tls.VersionTLS12},
	}
	conn, err := dialer.DialContext(ctx, "tcp", d.Addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	client, err := smtp.NewClient(conn, d.Host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

// Sender sends one HTML email per call.
type Sender struct {
	dialer   Dialer
	host     string
	from     string
	username string
	password string
	subject  string
	logger   *zap.Logger
}

// NewSender builds a sender. A nil dialer uses TLSDialer with the configured address.
func NewSender(cfg *config.Config, dialer Dialer, logger *zap.Logger) *Sender {
	if dialer == nil {
		dialer = TLSDialer{Host: cfg.Mail.Host, Addr: cfg.SMTPAddress(), Timeout: cfg.Mail.DialTimeout}
	}
	return &Sender{
		dialer:   dialer,
		host:     cfg.Mail.Host,
		from:     cfg.Mail.From,
		username: cfg.Mail.Username,
		password: cfg.Mail.Password,
		subject:  cfg.Mail.Subject,
		logger:   logger,
	}
}

// Send delivers htmlBody to a single recipient. Errors are failure.KindSend with the stage that failed.
func (s *Sender) Send(ctx context.Context, to, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", s.subject)
	msg.SetBody("text/html", htmlBody)

	sess, err := s.dialer.Dial(ctx)
	if err != nil {
		return failure.Send(failure.StageConnect, err)
	}
	defer sess.Close()

	if err := sess.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
		return failure.Send(failure.StageAuth, err)
	}

	if err := gomail.Send(transmitter(sess), msg); err != nil {
		return failure.Send(failure.StageTransmit, err)
	}

	if err := sess.Quit(); err != nil {
		s.logger.Debug("smtp quit failed after delivery", zap.String("to", to), zap.Error(err))
	}
	return nil
}

func transmitter(sess Session) gomail.SendFunc {
	return func(from string, to []string, msg io.WriterTo) error {
		if err := sess.Mail(from); err != nil {
			return err
		}
		for _, rcpt := range to {
			if err := sess.Rcpt(rcpt); err != nil {
				return err
			}
		}
		w, err := sess.Data()
		if err != nil {
			return err
		}
		if _, err := msg.WriteTo(w); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	}
}
