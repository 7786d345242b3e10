package mail

import (
	"context"

	"github.com/google/uuid"

	"github.com/lifesciencesignals/radar/pkg/config"
	"github.com/lifesciencesignals/radar/pkg/logger"
	"github.com/lifesciencesignals/radar/pkg/redis"
)

// LogSender logs messages instead of sending them
type LogSender struct {
	logger *logger.Logger
}

// NewLogSender creates a dry-run sender
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}

	id := "dry-run-" + uuid.NewString()
	s.logger.WithFields(map[string]interface{}{
		"message_id": id,
		"to":         msg.To,
		"subject":    msg.Subject,
		"html_bytes": len(msg.HTML),
	}).Info("Email not sent (dry run)")

	return id, nil
}

// NewSender returns the Resend sender when mail is configured, otherwise
// the dry-run sender
func NewSender(cfg *config.Config, limiter *redis.RateLimiter, log *logger.Logger) Sender {
	if cfg.MailEnabled() {
		return NewResendSender(cfg, limiter, log)
	}
	log.Warn("Mail delivery disabled, digests are logged only")
	return NewLogSender(log)
}
