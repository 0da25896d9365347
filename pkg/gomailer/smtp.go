package gomailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
)

type SMTPMailer struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	From      string        `yaml:"from"`
	UseAuth   bool          `yaml:"useAuth"`
	Timeout   time.Duration `yaml:"timeout"`
	TLSConfig *tls.Config   `yaml:"-"`
}

func (m *SMTPMailer) tlsConfig() *tls.Config {
	if m.TLSConfig != nil {
		return m.TLSConfig
	}
	if m.Host == "localhost" {
		return &tls.Config{
			InsecureSkipVerify: true,
			ServerName:         m.Host,
		}
	}
	return &tls.Config{
		ServerName: m.Host,
	}
}

func buildMessage(email Email) string {
	headers := [][2]string{
		{"From", email.From},
		{"To", strings.Join(email.To, ",")},
		{"Subject", email.Subject},
		{"MIME-Version", "1.0"},
	}
	if email.HTML != "" {
		headers = append(headers, [2]string{"Content-Type", "text/html; charset=\"UTF-8\""})
	} else {
		headers = append(headers, [2]string{"Content-Type", "text/plain; charset=\"UTF-8\""})
	}
	for k, v := range email.Headers {
		headers = append(headers, [2]string{k, v})
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	if email.HTML != "" {
		msg.WriteString("\r\n" + email.HTML)
	} else {
		msg.WriteString("\r\n" + email.Text)
	}
	return msg.String()
}

// Send delivers the email over SMTP. net/smtp has no context support, so ctx
// is only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, email Email) (*types.SendResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if email.From == "" {
		email.From = m.From
	}
	msg := buildMessage(email)
	smtpAddr := fmt.Sprintf("%s:%d", m.Host, m.Port)

	var auth smtp.Auth
	if m.UseAuth {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	if m.Port == 465 {
		if err := m.sendImplicitTLS(smtpAddr, auth, email, msg); err != nil {
			return nil, err
		}
	} else if err := smtp.SendMail(smtpAddr, auth, email.From, email.To, []byte(msg)); err != nil {
		return nil, err
	}

	return &types.SendResponse{
		Provider:  "smtp",
		Status:    types.StatusAccepted,
		Timestamp: time.Now(),
	}, nil
}

func (m *SMTPMailer) sendImplicitTLS(addr string, auth smtp.Auth, email Email, msg string) error {
	conn, err := tls.Dial("tcp", addr, m.tlsConfig())
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if auth != nil {
		if err = c.Auth(auth); err != nil {
			return err
		}
	}
	if err = c.Mail(email.From); err != nil {
		return err
	}
	for _, recipient := range email.To {
		if err = c.Rcpt(recipient); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write([]byte(msg)); err != nil {
		return err
	}
	return w.Close()
}
