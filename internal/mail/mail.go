package mail

import (
	"fmt"

	"github.com/votranphi/heartistry-user-api/internal/config"

	gomail "github.com/go-mail/mail"
	"github.com/rs/zerolog/log"
)

// Sender delivers verification codes and recovery passwords out of band.
// The identity service only talks to this interface.
type Sender interface {
	SendOtpVerificationCode(username, email, otp string) error
	SendPasswordRecovery(username, email, newPassword string) error
}

// SMTPSender is the production Sender.
type SMTPSender struct {
	Host string
	Port int
	From string
	User string
	Pass string
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		Host: cfg.Host,
		Port: cfg.Port,
		From: cfg.From,
		User: cfg.User,
		Pass: cfg.Pass,
	}
}

func (s *SMTPSender) SendOtpVerificationCode(username, email, otp string) error {
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour OTP verification code is: %s\r\nThe code expires in 5 minutes.\r\n",
		username, otp,
	)
	return s.send(email, "OTP Verification Code", body)
}

func (s *SMTPSender) SendPasswordRecovery(username, email, newPassword string) error {
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour new password is: %s\r\nPlease log in and change it as soon as possible.\r\n",
		username, newPassword,
	)
	return s.send(email, "Password Recovery", body)
}

func (s *SMTPSender) send(to, subject, textBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	if err := d.DialAndSend(m); err != nil {
		log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("smtp send failed")
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Debug().Str("to", to).Str("subject", subject).Msg("smtp send ok")
	return nil
}
