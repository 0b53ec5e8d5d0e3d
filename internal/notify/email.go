// Package notify defines the outbound email surface the matching core calls
// into. Delivery is best-effort at every call site: attempt, log, continue.
// Template rendering and transport live in the (external) email subsystem.
package notify

import (
	"context"
	"log/slog"
)

// MatchNotification is the payload for a "you have a new match" email.
type MatchNotification struct {
	MatchID        uint64
	Name           string
	Score          float64
	SharedInterest string
	Reason         string
}

// IntroReveal is the payload for the contact-detail reveal email sent when a
// match goes mutual.
type IntroReveal struct {
	MatchID          uint64
	CounterpartName  string
	CounterpartEmail string
	RevealToken      string
}

// EmailSender sends transactional mail. Implementations may fail; callers
// must treat every send as best-effort and never propagate the error.
type EmailSender interface {
	SendMatchNotification(ctx context.Context, toEmail, toName string, n MatchNotification) error
	SendIntroReveal(ctx context.Context, toEmail, toName string, r IntroReveal) error
}

// LogSender is the development sender: it logs instead of delivering.
type LogSender struct {
	Logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{Logger: logger}
}

func (s *LogSender) SendMatchNotification(ctx context.Context, toEmail, toName string, n MatchNotification) error {
	s.Logger.Info("match notification email",
		"to", toEmail, "name", toName, "match", n.MatchID, "score", n.Score, "reason", n.Reason)
	return nil
}

func (s *LogSender) SendIntroReveal(ctx context.Context, toEmail, toName string, r IntroReveal) error {
	s.Logger.Info("intro reveal email",
		"to", toEmail, "name", toName, "match", r.MatchID, "counterpart", r.CounterpartName)
	return nil
}
