package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NoopSender logs messages instead of delivering them and keeps the most
// recent ones so development builds can show confirmation links.
type NoopSender struct {
	mu   sync.Mutex
	sent []SendRequest
}

const noopKeep = 50

// NewNoopSender creates a NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send records req without delivering it.
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	slog.Info("noop_email_send", "to", req.To, "subject", req.Subject)

	s.mu.Lock()
	s.sent = append(s.sent, req)
	if len(s.sent) > noopKeep {
		s.sent = s.sent[len(s.sent)-noopKeep:]
	}
	s.mu.Unlock()

	now := time.Now()
	return SendResult{MessageID: fmt.Sprintf("noop-%d", now.UnixNano()), SentAt: now}, nil
}

// Sent returns a copy of the recorded messages, oldest first.
func (s *NoopSender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendRequest(nil), s.sent...)
}
