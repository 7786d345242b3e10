package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lifesciencesignals/radar/pkg/config"
	"github.com/lifesciencesignals/radar/pkg/httputil"
	"github.com/lifesciencesignals/radar/pkg/logger"
	"github.com/lifesciencesignals/radar/pkg/redis"
)

// ResendSender delivers mail through the Resend HTTP API
type ResendSender struct {
	client  *httputil.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// NewResendSender creates a Resend sender. limiter may be nil.
func NewResendSender(cfg *config.Config, limiter *redis.RateLimiter, log *logger.Logger) *ResendSender {
	client := httputil.NewWithTimeout(cfg, log, 15*time.Second).
		WithHeader("Authorization", "Bearer "+cfg.Mail.APIKey).
		WithRetry(2, 500*time.Millisecond)
	if limiter != nil {
		client = client.WithRateLimiter(limiter, redis.ResendRateLimit)
	}

	return &ResendSender{
		client:  client,
		baseURL: strings.TrimRight(cfg.Mail.BaseURL, "/"),
		breaker: newBreaker("resend"),
		logger:  log,
	}
}

// newBreaker trips after 3 consecutive failures and probes again after a minute.
// Rejected messages do not count as failures.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
	})
}

// Send posts the message and returns the Resend email id
func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.send(ctx, msg)
	})
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}

	id := out.(string)
	s.logger.WithFields(map[string]interface{}{
		"message_id": id,
		"recipients": len(msg.To),
	}).Info("Email sent")

	return id, nil
}

func (s *ResendSender) send(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(resendRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if msg.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", msg.IdempotencyKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: resend returned %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("resend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out resendResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.ID, nil
}
