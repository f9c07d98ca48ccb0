// Package notify escalates operational problems (quarantined payouts, stale
// wagers) to operators over chat webhooks.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jamarblack/Degen-Arena/config"

	"github.com/rs/zerolog"
)

// Sender delivers one message over one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier implements ports.Notifier by dispatching to every sender. With no
// senders configured it only logs.
type Notifier struct {
	senders []Sender
	log     zerolog.Logger
}

// NewNotifier creates a notifier over senders.
func NewNotifier(senders []Sender, log zerolog.Logger) *Notifier {
	return &Notifier{senders: senders, log: log}
}

// FromConfig builds senders for every channel with credentials present.
func FromConfig(cfg config.NotifyConfig, log zerolog.Logger) *Notifier {
	var senders []Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhook != "" {
		senders = append(senders, NewDiscordSender(cfg.DiscordWebhook))
	}
	return NewNotifier(senders, log)
}

// Notify sends to all senders. A failing sender does not block the rest;
// failures are combined into one error.
func (n *Notifier) Notify(ctx context.Context, subject, message string) error {
	n.log.Warn().Str("subject", subject).Str("detail", message).Msg("operator notification")

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, subject, message); err != nil {
			n.log.Error().Err(err).Str("sender", s.Name()).Msg("notification delivery failed")
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
