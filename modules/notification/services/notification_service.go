package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/commerce-sdk/modules/notification/domain"
)

type NotificationService struct {
	sender domain.Sender
	logger *logrus.Logger
}

func NewNotificationService(sender domain.Sender, logger *logrus.Logger) *NotificationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &NotificationService{sender: sender, logger: logger}
}

// NotifyOrderPaid and friends are fire-and-forget: a failed delivery
// is logged and swallowed so the saga never waits on the gateway.
func (s *NotificationService) NotifyOrderPaid(ctx context.Context, orderNo string) {
	s.send(ctx, orderNo, "Order confirmed", fmt.Sprintf("Your order %s has been paid and confirmed.", orderNo))
}

func (s *NotificationService) NotifyOrderCancelled(ctx context.Context, orderNo, reason string) {
	body := fmt.Sprintf("Your order %s has been cancelled.", orderNo)
	if reason != "" {
		body = fmt.Sprintf("Your order %s has been cancelled: %s.", orderNo, reason)
	}
	s.send(ctx, orderNo, "Order cancelled", body)
}

func (s *NotificationService) NotifyRefund(ctx context.Context, orderNo string) {
	s.send(ctx, orderNo, "Payment refunded", fmt.Sprintf("The payment for order %s has been refunded.", orderNo))
}

func (s *NotificationService) send(ctx context.Context, orderNo, subject, body string) {
	to := fmt.Sprintf("customer+%s@example.test", orderNo)
	if err := s.sender.SendEmail(ctx, to, subject, body); err != nil {
		s.logger.WithError(err).
			WithField("order_no", orderNo).
			Warn("failed to send notification")
	}
}
