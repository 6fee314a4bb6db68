package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier escribiendo a stdout. Es el canal que
// siempre está activo; Telegram y Discord se suman por configuración.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador de consola. Con table=true las señales
// salen como tabla de contribuyentes en vez de línea compacta.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// SignalAlert imprime la señal en el modo configurado.
func (c *Console) SignalAlert(_ context.Context, s domain.Signal) error {
	now := time.Now().Format("15:04:05")

	if !c.table {
		fmt.Fprintf(c.out, "[%s] SIGNAL #%d %s\n", now, s.ID, signalHeadline(s))
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] SIGNAL #%d — %s\n", now, s.ID, signalHeadline(s))
	if url := marketURL(s); url != "" {
		fmt.Fprintf(c.out, "  %s\n", url)
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Trader", "Type", "WR", "Score", "Change", "Conviction", "Fresh")

	for _, contrib := range s.Contributors {
		name := contrib.Username
		if name == "" {
			name = shortWallet(contrib.Wallet)
		}
		table.Append(
			truncate(name, 20),
			string(contrib.TraderType),
			fmt.Sprintf("%.0f%%", contrib.WinRate*100),
			fmt.Sprintf("%.2f", contrib.TraderScore),
			string(contrib.ChangeType),
			fmt.Sprintf("%.2fx", contrib.Conviction),
			fmt.Sprintf("%.1f", contrib.Freshness),
		)
	}
	table.Render()
	return nil
}

// ResolutionAlert imprime el desenlace de una señal resuelta.
func (c *Console) ResolutionAlert(_ context.Context, s domain.Signal) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] %s\n", now, resolutionHeadline(s))
	return nil
}

// BotEvent imprime un evento del bot tal cual.
func (c *Console) BotEvent(_ context.Context, text string) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s][BOT] %s\n", now, text)
	return nil
}
