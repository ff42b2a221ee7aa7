// File: /services/email_service.go
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/gomail.v2"

	"eventhub-api/config"
	"eventhub-api/logging"
)

// Mailer delivers account e-mails.
type Mailer interface {
	SendActivationEmail(ctx context.Context, to, username string, uid uint, token string) error
}

type EmailService struct {
	config config.EmailConfig
	dialer *gomail.Dialer
}

func NewEmailService(cfg config.EmailConfig) *EmailService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	dialer.SSL = cfg.UseSSL

	return &EmailService{
		config: cfg,
		dialer: dialer,
	}
}

// ActivationLink fills the configured URL template with uid and token.
func (es *EmailService) ActivationLink(uid uint, token string) string {
	return strings.NewReplacer(
		"{uid}", strconv.FormatUint(uint64(uid), 10),
		"{token}", token,
	).Replace(es.config.ActivationURL)
}

func (es *EmailService) buildActivationMessage(to, username string, uid uint, token string) *gomail.Message {
	link := es.ActivationLink(uid, token)

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", es.config.FromName, es.config.FromEmail))
	m.SetHeader("To", to)
	m.SetHeader("Subject", es.config.FromName+" - Account activation")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Account activation</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .btn { display: inline-block; background: #007bff; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; }
        .footer { margin-top: 20px; color: #666; font-size: 14px; }
    </style>
</head>
<body>
    <div class="container">
        <h2>Hello %s!</h2>
        <p>Please confirm your e-mail address to activate your account.</p>
        <p><a class="btn" href="%s">Activate account</a></p>
        <p class="footer">If you did not register, please ignore this email.</p>
    </div>
</body>
</html>`, username, link)

	textBody := fmt.Sprintf(`
Hello %s!

Please confirm your e-mail address to activate your account:

%s

If you did not register, please ignore this email.
`, username, link)

	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)
	return m
}

// SendActivationEmail sends the activation link. With e-mail disabled the link
// is only logged, which is what local development relies on.
func (es *EmailService) SendActivationEmail(ctx context.Context, to, username string, uid uint, token string) error {
	log := logging.Ctx(ctx)
	if !es.config.Enabled {
		log.Info().Str("to", to).Str("link", es.ActivationLink(uid, token)).Msg("email disabled, activation link not sent")
		return nil
	}

	if err := es.dialer.DialAndSend(es.buildActivationMessage(to, username, uid, token)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info().Str("to", to).Uint("uid", uid).Msg("activation email sent")
	return nil
}
