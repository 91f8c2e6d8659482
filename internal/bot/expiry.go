package bot

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/susu3304/geoguess/internal/commands"
	"github.com/susu3304/geoguess/internal/round"
)

const DefaultExpiryInterval = 15 * time.Second

// Expirer times out rounds past their deadline.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) []round.Outcome
}

// Minimal session interface for sending channel messages.
type ChannelSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ExpiryWorker periodically closes abandoned rounds and announces the
// Discord ones in their channel. A nil sender only expires.
type ExpiryWorker struct {
	rounds   Expirer
	sessions *commands.Sessions
	sender   ChannelSender
	interval time.Duration
	now      func() time.Time
}

func NewExpiryWorker(rounds Expirer, sessions *commands.Sessions, sender ChannelSender) *ExpiryWorker {
	return &ExpiryWorker{
		rounds:   rounds,
		sessions: sessions,
		sender:   sender,
		interval: DefaultExpiryInterval,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (w *ExpiryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	for _, out := range w.rounds.ExpireDue(ctx, w.now()) {
		if w.sessions == nil {
			continue
		}
		channelID, userID, ok := w.sessions.Release(out.Round.ID)
		if !ok || w.sender == nil {
			continue
		}
		msg := commands.RenderOutcome(userID, out) + "\n\n※このメッセージは自動投稿です"
		if err := w.sendWithRetry(ctx, channelID, msg); err != nil {
			logger.Warnf("expiry: failed to announce round %s in channel %s: %v", out.Round.ID, channelID, err)
		}
	}
}

func (w *ExpiryWorker) sendWithRetry(ctx context.Context, channelID, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := w.sender.ChannelMessageSend(channelID, content, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTemporaryOrTimeout(err) {
			return err
		}
		select {
		case <-time.After(time.Duration(300+rand.Intn(500)) * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func isTemporaryOrTimeout(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
