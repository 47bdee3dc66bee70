// Package alert define las notificaciones operativas del servicio: fallos
// de almacenes y trabajos descartados tras agotar reentregas.
package alert

import "context"

// Notifier envia una alerta operativa. Las implementaciones nunca deben
// bloquear el pipeline: un fallo de alerta solo se loguea.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Disabled es el Notifier nulo que se usa cuando no hay SMTP configurado.
type Disabled struct{}

func (Disabled) Notify(_ context.Context, _, _ string) error { return nil }
