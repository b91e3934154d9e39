// Package smsgateway delivers outbound replies through a Twilio-style SMS
// gateway API. Outbound sends are paced with a token bucket so a burst of
// inbound messages cannot trip the gateway's own rate limits.
package smsgateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
)

const (
	defaultSendTimeout = 5 * time.Second
	defaultSendRate    = 1.0
	defaultSendBurst   = 5
)

// Sender implements ports.MessageSender.
type Sender struct {
	baseURL     string
	accountSID  string
	authToken   string
	fromNumber  string
	httpClient  *http.Client
	limiter     *rate.Limiter
	sendTimeout time.Duration
	logger      *zap.Logger
}

// Config carries gateway credentials and pacing settings.
type Config struct {
	BaseURL     string
	AccountSID  string
	AuthToken   string
	FromNumber  string
	SendTimeout time.Duration

	// MessagesPerSecond and Burst shape outbound pacing. Zero values
	// fall back to conservative defaults.
	MessagesPerSecond float64
	Burst             int
}

// NewSender creates the gateway sender.
func NewSender(cfg Config, logger *zap.Logger) *Sender {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = defaultSendRate
	}

	if cfg.Burst <= 0 {
		cfg.Burst = defaultSendBurst
	}

	return &Sender{
		baseURL:     cfg.BaseURL,
		accountSID:  cfg.AccountSID,
		authToken:   cfg.AuthToken,
		fromNumber:  cfg.FromNumber,
		httpClient:  &http.Client{},
		limiter:     rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), cfg.Burst),
		sendTimeout: cfg.SendTimeout,
		logger:      logger,
	}
}

// Send transmits body to the destination number. It blocks on the pacing
// limiter first, honoring context cancellation, then posts the message.
func (s *Sender) Send(ctx context.Context, to, body string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return &domain.DeliveryError{Detail: "send canceled while waiting for rate limiter", Cause: err}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))

	if err != nil {
		return &domain.DeliveryError{Detail: "failed to create send request", Cause: err}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.httpClient.Do(req)

	if err != nil {
		return &domain.DeliveryError{Detail: "gateway request failed", Cause: err}
	}

	defer func(rbody io.ReadCloser) {
		if err := rbody.Close(); err != nil {
			s.logger.Error("failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.DeliveryError{Detail: fmt.Sprintf("gateway returned status %d", resp.StatusCode)}
	}

	s.logger.Debug("message delivered", zap.String("to", to), zap.Int("bytes", len(body)))

	return nil
}

var _ ports.MessageSender = (*Sender)(nil)
