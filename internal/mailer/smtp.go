package mailer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/mail"
	"net/url"
	"os"

	"github.com/dajohi/goemail"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
)

// SMTPMailer sends account emails through an SMTP server. When the host or
// credentials are missing the mailer runs disabled: sends log the link and
// return nil, which keeps local development working without a mail server.
type SMTPMailer struct {
	smtp        *goemail.SMTP
	fromName    string
	fromAddress string
	baseURL     string
	disabled    bool
	logger      *zap.Logger
}

// NewSMTPMailer builds the mailer from configuration.
func NewSMTPMailer(cfg config.MailConfig, baseURL string, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.SMTPHost == "" || cfg.SMTPUser == "" || cfg.SMTPPassword == "" {
		logger.Warn("mail delivery disabled; SMTP credentials not configured")
		return &SMTPMailer{disabled: true, baseURL: baseURL, logger: logger}, nil
	}

	from, err := mail.ParseAddress(cfg.FromAddress)
	if err != nil {
		return nil, fmt.Errorf("parse from address: %w", err)
	}

	host := fmt.Sprintf("smtps://%s:%s@%s", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse smtp host: %w", err)
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.SkipVerify}
	if !cfg.SkipVerify && cfg.CertPath != "" {
		cert, err := os.ReadFile(cfg.CertPath)
		if err != nil {
			return nil, fmt.Errorf("read smtp cert: %w", err)
		}
		certPool, err := x509.SystemCertPool()
		if err != nil {
			certPool = x509.NewCertPool()
		}
		certPool.AppendCertsFromPEM(cert)
		tlsConfig.RootCAs = certPool
	}

	smtp, err := goemail.NewSMTP(u.String(), tlsConfig)
	if err != nil {
		return nil, err
	}

	logger.Info("mail delivery enabled", zap.String("from", from.Address))
	return &SMTPMailer{
		smtp:        smtp,
		fromName:    from.Name,
		fromAddress: from.Address,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

// SendVerification mails the email verification link.
func (m *SMTPMailer) SendVerification(_ context.Context, email, token string) error {
	link := fmt.Sprintf("%s/auth/verify-email?token=%s", m.baseURL, token)
	body := fmt.Sprintf("Welcome!\n\nPlease verify your email address by visiting:\n\n%s\n\nThe link expires in 24 hours.\n", link)
	return m.send(email, "Verify your email address", body, link)
}

// SendPasswordReset mails the password reset link.
func (m *SMTPMailer) SendPasswordReset(_ context.Context, email, token string) error {
	link := fmt.Sprintf("%s/auth/password/reset?token=%s", m.baseURL, token)
	body := fmt.Sprintf("A password reset was requested for your account.\n\nTo choose a new password, visit:\n\n%s\n\nThe link expires in 1 hour. If you did not request this, ignore this email.\n", link)
	return m.send(email, "Reset your password", body, link)
}

func (m *SMTPMailer) send(recipient, subject, body, link string) error {
	if m.disabled {
		m.logger.Info("mail delivery skipped",
			zap.String("to", recipient),
			zap.String("subject", subject),
			zap.String("link", link),
		)
		return nil
	}

	msg := goemail.NewMessage(m.fromAddress, subject, body)
	if m.fromName != "" {
		msg.SetName(m.fromName)
	}
	msg.AddTo(recipient)
	return m.smtp.Send(msg)
}
