package notify

// telegram.go — alertas por Telegram vía Bot API.
//
// Sin librería de cliente: sendMessage es un único POST JSON y el bot solo
// escribe, nunca lee updates. El chat del bot puede ser distinto del chat de
// señales para separar el ruido operativo de las alertas.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram implementa ports.Notifier sobre la Bot API.
type Telegram struct {
	httpClient *http.Client
	base       string
	token      string
	chatID     string
	botChatID  string
}

// NewTelegram crea el notificador. botChatID vacío reutiliza chatID para los
// eventos del bot.
func NewTelegram(token, chatID, botChatID string) *Telegram {
	if botChatID == "" {
		botChatID = chatID
	}
	return &Telegram{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		base:       telegramAPIBase,
		token:      token,
		chatID:     chatID,
		botChatID:  botChatID,
	}
}

// NewTelegramWithBase crea el notificador contra otra URL base, para tests.
func NewTelegramWithBase(base, token, chatID, botChatID string) *Telegram {
	t := NewTelegram(token, chatID, botChatID)
	t.base = base
	return t
}

// SignalAlert envía la señal con sus contribuyentes en HTML.
func (t *Telegram) SignalAlert(ctx context.Context, s domain.Signal) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>SIGNAL #%d — %s</b>\n", s.ID, html.EscapeString(tierLabel(s.Tier)))
	fmt.Fprintf(&sb, "%s\n", html.EscapeString(truncate(s.MarketTitle, 80)))
	fmt.Fprintf(&sb, "Direction: <b>%s</b> @ %.2f\n", html.EscapeString(s.Direction), s.CurrentPrice)
	fmt.Fprintf(&sb, "Score: %.2f (peak %.2f)\n", s.Score, s.PeakScore)
	fmt.Fprintf(&sb, "Traders (%d):\n", len(s.Contributors))
	for _, c := range s.Contributors {
		fmt.Fprintf(&sb, "  • %s\n", html.EscapeString(contributorLine(c)))
	}
	if url := marketURL(s); url != "" {
		fmt.Fprintf(&sb, "%s", url)
	}

	if err := t.send(ctx, t.chatID, sb.String()); err != nil {
		return fmt.Errorf("notify.Telegram.SignalAlert: #%d: %w", s.ID, err)
	}
	return nil
}

// ResolutionAlert envía el desenlace de una señal.
func (t *Telegram) ResolutionAlert(ctx context.Context, s domain.Signal) error {
	msg := "<b>" + html.EscapeString(resolutionHeadline(s)) + "</b>"
	if err := t.send(ctx, t.chatID, msg); err != nil {
		return fmt.Errorf("notify.Telegram.ResolutionAlert: #%d: %w", s.ID, err)
	}
	return nil
}

// BotEvent envía un evento del bot al chat operativo.
func (t *Telegram) BotEvent(ctx context.Context, text string) error {
	if err := t.send(ctx, t.botChatID, html.EscapeString(text)); err != nil {
		return fmt.Errorf("notify.Telegram.BotEvent: %w", err)
	}
	return nil
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) send(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	var tr telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if !tr.OK {
		return fmt.Errorf("telegram API: HTTP %d: %s", resp.StatusCode, tr.Description)
	}
	return nil
}
