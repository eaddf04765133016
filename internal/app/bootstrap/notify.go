package bootstrap

import (
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/flowiq/scheduling-platform/internal/config"
	"github.com/flowiq/scheduling-platform/internal/notify"
	"github.com/flowiq/scheduling-platform/internal/sms"
	"github.com/flowiq/scheduling-platform/pkg/logging"
)

// BuildEmailSender selects the reminder email transport. EMAIL_PROVIDER
// forces sendgrid or ses; "auto" prefers SendGrid when a key is set and
// falls back to SES. Without either, a logging stub keeps the worker
// runnable in development.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	useSendGrid := cfg.SendGridAPIKey != "" && (provider == "sendgrid" || provider == "auto" || provider == "")
	if useSendGrid {
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			logger.Info("email sender: sendgrid", "from", cfg.SendGridFromEmail)
			return sender
		}
	}

	if provider == "ses" || provider == "auto" || provider == "" {
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			logger.Info("email sender: ses", "region", cfg.AWSRegion)
			return sender
		}
	}

	logger.Warn("email sender: no provider configured, using stub")
	return notify.NewStubEmailSender(logger)
}

// BuildSMSClient returns the SMS gateway client or nil when unconfigured.
// Reminder SMS is optional; booking flows never depend on it.
func BuildSMSClient(cfg *appconfig.Config, logger *slog.Logger) *sms.Client {
	if cfg == nil || strings.TrimSpace(cfg.SMSAPIKey) == "" || strings.TrimSpace(cfg.SMSBaseURL) == "" {
		return nil
	}
	client, err := sms.New(sms.Config{
		BaseURL:    cfg.SMSBaseURL,
		APIKey:     cfg.SMSAPIKey,
		FromNumber: cfg.SMSFromNumber,
		Logger:     logger,
	})
	if err != nil {
		return nil
	}
	return client
}
