package adapter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/messages"
	"github.com/aelexs/timetuner/internal/timetuner/app"
)

// Broadcaster delivers a rendered message to every player in a zone.
type Broadcaster interface {
	Broadcast(ctx context.Context, zone domain.ZoneID, text string) error
}

// Compile-time check: Notifier satisfies app.Notifier.
var _ app.Notifier = (*Notifier)(nil)

// Notifier renders app notices through the message catalog and hands them
// to a Broadcaster.
type Notifier struct {
	catalog *messages.Catalog
	out     Broadcaster
}

// NewNotifier creates a Notifier.
func NewNotifier(catalog *messages.Catalog, out Broadcaster) *Notifier {
	return &Notifier{catalog: catalog, out: out}
}

// Notify renders n in the catalog's default language and broadcasts it.
func (n *Notifier) Notify(ctx context.Context, notice app.Notice) error {
	ctx, span := tracer.Start(ctx, "notifier.notify", trace.WithAttributes(
		attribute.String("zone.id", notice.Zone.String()),
		attribute.String("notice.kind", string(notice.Kind)),
	))
	defer span.End()

	zone := notice.ZoneName
	if zone == "" {
		zone = notice.Zone.String()
	}

	var id string
	switch notice.Kind {
	case app.NoticeNightSkipped:
		id = messages.SleepSkipped
	case app.NoticeVoteProgress:
		id = messages.SleepProgress
	default:
		return fmt.Errorf("%w: unknown notice kind %q", domain.ErrInvalidInput, notice.Kind)
	}

	text := n.catalog.Localize(id, map[string]any{
		"Zone":   zone,
		"Votes":  notice.Votes,
		"Needed": notice.Needed,
	})
	if err := n.out.Broadcast(ctx, notice.Zone, text); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("broadcast to %s: %w", notice.Zone, err)
	}
	return nil
}
