// Package notification is the outbound mail contract. Sends are
// fire-and-forget from the coordinator's perspective: failures are logged by
// the caller, never turned into transaction failures.
package notification

import (
	"context"

	"go.uber.org/zap"
)

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateMagicLogin        = "magic_login"
	TemplateOrderCancelled    = "order_cancelled"
	TemplateOrderDenied       = "order_denied"
	TemplateOrderShipped      = "order_shipped"
)

type Mailer interface {
	Send(ctx context.Context, toEmail, templateName string, variables map[string]string) error
}

// LogMailer records sends instead of delivering them. Stands in for the
// real dispatcher in dev and tests.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, toEmail, templateName string, variables map[string]string) error {
	m.logger.Info("mail dispatched",
		zap.String("to", toEmail),
		zap.String("template", templateName),
		zap.Any("variables", variables),
	)
	return nil
}
