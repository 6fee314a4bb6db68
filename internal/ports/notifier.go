package ports

import (
	"context"

	"github.com/alejandrodnm/whaleradar/internal/domain"
)

// Notifier envía alertas del radar y del bot a un canal externo
// (consola, Telegram, Discord).
type Notifier interface {
	// SignalAlert notifica una señal nueva o actualizada.
	SignalAlert(ctx context.Context, s domain.Signal) error

	// ResolutionAlert notifica la resolución de un mercado con señal.
	ResolutionAlert(ctx context.Context, s domain.Signal) error

	// BotEvent envía un mensaje de texto libre del bot (trade ejecutado,
	// circuit breaker, resumen diario).
	BotEvent(ctx context.Context, text string) error
}
