package notify

// discord.go — alertas por Discord. Solo usa la API REST: el bot escribe en
// un canal y no necesita abrir el gateway.

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/alejandrodnm/whaleradar/internal/domain"
)

// Discord implementa ports.Notifier sobre un canal de Discord.
type Discord struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscord crea el notificador con un token de bot.
func NewDiscord(token, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("notify.NewDiscord: %w", err)
	}
	return &Discord{session: session, channelID: channelID}, nil
}

// SignalAlert envía la señal como mensaje con formato markdown.
func (d *Discord) SignalAlert(_ context.Context, s domain.Signal) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**SIGNAL #%d — %s**\n", s.ID, tierLabel(s.Tier))
	fmt.Fprintf(&sb, "%s\n", truncate(s.MarketTitle, 80))
	fmt.Fprintf(&sb, "Direction: **%s** @ %.2f — score %.2f (peak %.2f)\n",
		s.Direction, s.CurrentPrice, s.Score, s.PeakScore)
	for _, c := range s.Contributors {
		fmt.Fprintf(&sb, "- %s\n", contributorLine(c))
	}
	if url := marketURL(s); url != "" {
		fmt.Fprintf(&sb, "<%s>", url)
	}

	if _, err := d.session.ChannelMessageSend(d.channelID, sb.String()); err != nil {
		return fmt.Errorf("notify.Discord.SignalAlert: #%d: %w", s.ID, err)
	}
	return nil
}

// ResolutionAlert envía el desenlace de una señal.
func (d *Discord) ResolutionAlert(_ context.Context, s domain.Signal) error {
	if _, err := d.session.ChannelMessageSend(d.channelID, "**"+resolutionHeadline(s)+"**"); err != nil {
		return fmt.Errorf("notify.Discord.ResolutionAlert: #%d: %w", s.ID, err)
	}
	return nil
}

// BotEvent envía un evento del bot.
func (d *Discord) BotEvent(_ context.Context, text string) error {
	if _, err := d.session.ChannelMessageSend(d.channelID, text); err != nil {
		return fmt.Errorf("notify.Discord.BotEvent: %w", err)
	}
	return nil
}
