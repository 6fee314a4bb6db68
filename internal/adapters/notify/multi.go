package notify

// multi.go — fanout a varios canales. Un canal caído no bloquea a los demás:
// se intentan todos y los errores salen juntos.

import (
	"context"
	"errors"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// Multi implementa ports.Notifier repartiendo cada alerta entre varios
// notificadores.
type Multi struct {
	targets []ports.Notifier
}

// NewMulti crea el fanout.
func NewMulti(targets ...ports.Notifier) *Multi {
	return &Multi{targets: targets}
}

func (m *Multi) SignalAlert(ctx context.Context, s domain.Signal) error {
	var errs []error
	for _, t := range m.targets {
		if err := t.SignalAlert(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) ResolutionAlert(ctx context.Context, s domain.Signal) error {
	var errs []error
	for _, t := range m.targets {
		if err := t.ResolutionAlert(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) BotEvent(ctx context.Context, text string) error {
	var errs []error
	for _, t := range m.targets {
		if err := t.BotEvent(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
