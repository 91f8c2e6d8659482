package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/susu3304/geoguess/internal/commands"
)

var logger = log.WithField("prefix", "bot")

type Bot struct {
	session *discordgo.Session
	geo     *commands.Geo
}

func New(token string, geo *commands.Geo) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		geo:     geo,
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

// Session is exposed so the expiry worker can announce in channels.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	logger.Info("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}
