package infrastructure

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/commerce-sdk/modules/notification/domain"
)

// LogSender writes notifications to the log instead of delivering
// them. Stands in for the real email/SMS gateway in development and
// tests.
type LogSender struct {
	logger *logrus.Logger
}

func NewLogSender(logger *logrus.Logger) domain.Sender {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.logger.WithFields(logrus.Fields{
		"channel": "email",
		"to":      to,
		"subject": subject,
	}).Info(body)
	return nil
}

func (s *LogSender) SendSMS(_ context.Context, to, message string) error {
	s.logger.WithFields(logrus.Fields{
		"channel": "sms",
		"to":      to,
	}).Info(message)
	return nil
}
