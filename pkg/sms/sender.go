package sms

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrSMSDisabled signals that SMS delivery is disabled via configuration.
var ErrSMSDisabled = errors.New("sms: delivery disabled")

// Message represents an outbound text message to a single recipient.
type Message struct {
	To   string // E.164 phone number
	Body string
}

// Sender defines behaviour for delivering text messages. Implementations are
// expected to return an error for failed deliveries; callers own retry policy.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

type disabledSender struct{}

func (disabledSender) Send(context.Context, Message) error {
	return ErrSMSDisabled
}

// NewDisabledSender returns a Sender that rejects every message with ErrSMSDisabled.
func NewDisabledSender() Sender {
	return disabledSender{}
}

type logSender struct {
	log *zap.Logger
}

// NewLogSender returns a Sender that records messages to the application log
// instead of delivering them. Used in development and headless test deployments.
func NewLogSender(log *zap.Logger) Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &logSender{log: log}
}

func (s *logSender) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("sms: recipient is required")
	}
	s.log.Info("sms delivered to log",
		zap.String("to", msg.To),
		zap.Int("body_len", len(msg.Body)),
	)
	return nil
}

type throttledSender struct {
	next    Sender
	limiter *rate.Limiter
}

// NewThrottledSender wraps a Sender with a token-bucket limiter so bursts of
// invitations cannot flood the upstream provider. Waiting respects context
// cancellation.
func NewThrottledSender(next Sender, perSecond float64, burst int) Sender {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &throttledSender{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (s *throttledSender) Send(ctx context.Context, msg Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.next.Send(ctx, msg)
}
