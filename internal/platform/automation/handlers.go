package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wiye1050/gestionclinica-sub003/internal/domain/event"
	"github.com/wiye1050/gestionclinica-sub003/internal/domain/kpi"
	"github.com/wiye1050/gestionclinica-sub003/internal/domain/task"
	"github.com/wiye1050/gestionclinica-sub003/internal/platform/notify"
)

// DefaultNotifyTimeout bounds a single outbound notification call so a
// stuck channel cannot stall the processor.
const DefaultNotifyTimeout = 5 * time.Second

// Deps are the collaborators the automation handlers write to.
// Notifiers are optional; a nil notifier disables that channel.
type Deps struct {
	Tasks         task.Repository
	KPIs          kpi.Repository
	Chat          notify.ChatNotifier
	Email         notify.EmailNotifier
	NotifyTimeout time.Duration
	Log           zerolog.Logger
}

// Handlers builds the static event-type to handler table. Losing a
// chat message is acceptable; losing a task or KPI record is not, so
// store writes propagate their errors while notifications are logged
// and swallowed.
func Handlers(d Deps) map[string]HandlerFunc {
	if d.NotifyTimeout <= 0 {
		d.NotifyTimeout = DefaultNotifyTimeout
	}
	return map[string]HandlerFunc{
		"Inventory.Deducted":   d.handleInventoryDeducted,
		"FollowUp.Scheduled":   d.handleFollowUpScheduled,
		"Episode.StateChanged": d.handleEpisodeStateChanged,
		"Quote.Presented":      d.handleQuotePresented,
		"Quote.Accepted":       d.handleQuoteAccepted,
	}
}

func (d Deps) handleInventoryDeducted(ctx context.Context, ev *event.CanonicalEvent) error {
	sku := ev.Meta.Str("sku", "desconocido")
	qty := ev.Meta.Int64("qty", 0)
	summary := fmt.Sprintf("Reponer SKU %s (%d uds)", sku, qty)

	t := &task.Task{
		ID:          "inventory-" + ev.ID.String(),
		Summary:     summary,
		Priority:    task.PriorityHigh,
		Status:      task.StatusOpen,
		SubjectKind: string(ev.Subject.Kind),
		SubjectID:   ev.Subject.ID,
		Source:      ev.Type,
	}
	if err := d.Tasks.Put(ctx, t); err != nil {
		return err
	}

	d.notify(ctx, "Inventario", summary)
	return nil
}

func (d Deps) handleFollowUpScheduled(ctx context.Context, ev *event.CanonicalEvent) error {
	priority := task.PriorityHigh
	if ev.Meta.Str("kind", "") == "PROs" {
		priority = task.PriorityMedium
	}
	due := time.UnixMilli(ev.Meta.Int64("date", time.Now().UnixMilli()))
	summary := fmt.Sprintf("Seguimiento programado para %s", due.Format("02/01/2006"))

	t := &task.Task{
		ID:          "followup-" + ev.ID.String(),
		Summary:     summary,
		Priority:    priority,
		Status:      task.StatusOpen,
		SubjectKind: string(ev.Subject.Kind),
		SubjectID:   ev.Subject.ID,
		Source:      ev.Type,
		DueAt:       &due,
	}
	if err := d.Tasks.Put(ctx, t); err != nil {
		return err
	}

	d.notify(ctx, "Seguimiento", summary)
	return nil
}

func (d Deps) handleEpisodeStateChanged(ctx context.Context, ev *event.CanonicalEvent) error {
	return d.KPIs.Put(ctx, &kpi.Row{
		ID:         ev.ID.String(),
		Kind:       kpi.KindStateChange,
		EpisodeID:  ev.Subject.ID,
		FromState:  ev.Meta.Str("from", ""),
		ToState:    ev.Meta.Str("to", ""),
		Trigger:    ev.Meta.Str("trigger", ""),
		OccurredAt: ev.Time(),
	})
}

func (d Deps) handleQuotePresented(ctx context.Context, ev *event.CanonicalEvent) error {
	episodeID := ev.Meta.Str("episodeId", ev.Subject.ID)
	total := ev.Meta.Float64("total", 0)
	summary := fmt.Sprintf("Presupuesto presentado (episodio %s, total %.2f EUR)", episodeID, total)

	t := &task.Task{
		ID:          "quote-presented-" + ev.ID.String(),
		Summary:     summary,
		Priority:    task.PriorityMedium,
		Status:      task.StatusOpen,
		SubjectKind: string(ev.Subject.Kind),
		SubjectID:   ev.Subject.ID,
		Source:      ev.Type,
	}
	if err := d.Tasks.Put(ctx, t); err != nil {
		return err
	}

	d.notify(ctx, "Presupuesto", summary)
	return nil
}

func (d Deps) handleQuoteAccepted(ctx context.Context, ev *event.CanonicalEvent) error {
	row := &kpi.Row{
		ID:         "quote-" + ev.ID.String(),
		Kind:       kpi.KindQuoteAccepted,
		EpisodeID:  ev.Meta.Str("episodeId", ""),
		Amount:     ev.Meta.Float64("total", 0),
		OccurredAt: ev.Time(),
	}
	if err := d.KPIs.Put(ctx, row); err != nil {
		return err
	}

	d.notify(ctx, "Presupuesto", fmt.Sprintf("Presupuesto aceptado (%.2f EUR)", row.Amount))
	return nil
}

// notify fans the message out to the configured channels. Failures are
// logged and swallowed; each call is bounded by the notify timeout.
func (d Deps) notify(ctx context.Context, subject, text string) {
	nctx, cancel := context.WithTimeout(ctx, d.NotifyTimeout)
	defer cancel()

	if d.Chat != nil {
		if err := d.Chat.NotifyChat(nctx, text); err != nil {
			d.Log.Warn().Err(err).Msg("chat notification failed")
		}
	}
	if d.Email != nil {
		if err := d.Email.NotifyEmail(nctx, subject, text); err != nil {
			d.Log.Warn().Err(err).Msg("email notification failed")
		}
	}
}
