package service

import (
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/writervault/backend/internal/config"
	"github.com/writervault/backend/internal/logger"
)

// EmailService отправляет транзакционные письма через SMTP.
// Без настроенного SMTP-хоста письма не уходят, а пишутся в лог —
// так работает локальная разработка.
type EmailService struct {
	dialer *mail.Dialer
	from   string
}

// NewEmailService создаёт почтовый сервис из конфигурации SMTP.
func NewEmailService(cfg config.SMTPConfig) *EmailService {
	svc := &EmailService{from: cfg.From}
	if cfg.Host != "" {
		svc.dialer = mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return svc
}

// SendPasswordReset отправляет письмо со ссылкой на сброс пароля.
func (s *EmailService) SendPasswordReset(email, username, resetLink string) error {
	subject := "Сброс пароля"
	body := fmt.Sprintf(
		"<p>Здравствуйте, %s!</p>"+
			"<p>Вы запросили сброс пароля. Перейдите по ссылке, чтобы установить новый:</p>"+
			"<p><a href=%q>%s</a></p>"+
			"<p>Ссылка действует ограниченное время. Если вы не запрашивали сброс, просто проигнорируйте это письмо.</p>",
		username, resetLink, resetLink)

	return s.send(email, subject, body)
}

func (s *EmailService) send(to, subject, htmlBody string) error {
	if s.dialer == nil {
		logger.WithComponent("email").WithFields(map[string]interface{}{
			"to":      to,
			"subject": subject,
		}).Info("SMTP не настроен, письмо не отправлено")
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("email service: отправка на %s: %w", to, err)
	}
	return nil
}
