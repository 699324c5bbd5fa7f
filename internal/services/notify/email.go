package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

const (
	emailSubject    = "dipbuyer notification"
	defaultSMTPPort = 587
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) configured() bool {
	return c.Host != "" && c.From != ""
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Email struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

func NewEmail(cfg SMTPConfig) *Email {
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	return &Email{cfg: cfg, sendMail: smtp.SendMail}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Enabled(account domain.Account) bool {
	return e.cfg.configured() && account.Notify.ToEmail && account.Email != ""
}

func (e *Email) Send(ctx context.Context, account domain.Account, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	addr := net.JoinHostPort(e.cfg.Host, fmt.Sprint(e.cfg.Port))
	if err := e.sendMail(addr, auth, e.cfg.From, []string{account.Email}, buildMessage(e.cfg.From, account, message)); err != nil {
		return errors.Wrapf(err, "send email to %s", account.Email)
	}
	return nil
}

func buildMessage(from string, account domain.Account, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + account.Email + "\r\n")
	b.WriteString("Subject: " + emailSubject + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	if name := account.DisplayName(); name != "" {
		b.WriteString("Hi " + name + ",\r\n\r\n")
	}
	b.WriteString(body + "\r\n")
	return []byte(b.String())
}
