package adapter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/messages"
	"github.com/aelexs/timetuner/internal/timetuner/adapter"
	"github.com/aelexs/timetuner/internal/timetuner/app"
)

// stubBroadcaster implements adapter.Broadcaster with a function field.
type stubBroadcaster struct {
	broadcastFn func(ctx context.Context, zone domain.ZoneID, text string) error
}

func (s *stubBroadcaster) Broadcast(ctx context.Context, zone domain.ZoneID, text string) error {
	if s.broadcastFn != nil {
		return s.broadcastFn(ctx, zone, text)
	}
	return nil
}

func newTestCatalog(t *testing.T, lang string) *messages.Catalog {
	t.Helper()
	c, err := messages.NewCatalog(lang, nil)
	require.NoError(t, err)
	return c
}

func TestNotifier_Notify(t *testing.T) {
	zone := domain.GenerateZoneID()

	tests := []struct {
		name   string
		lang   string
		notice app.Notice
		want   string
	}{
		{
			name:   "night skipped",
			lang:   "en",
			notice: app.Notice{Kind: app.NoticeNightSkipped, Zone: zone, ZoneName: "overworld"},
			want:   "The night has been skipped in overworld. Good morning!",
		},
		{
			name:   "progress in french",
			lang:   "fr",
			notice: app.Notice{Kind: app.NoticeVoteProgress, Zone: zone, ZoneName: "overworld", Votes: 1, Needed: 3},
			want:   "1/3 joueurs dorment dans overworld.",
		},
		{
			name:   "falls back to the zone id",
			lang:   "en",
			notice: app.Notice{Kind: app.NoticeNightSkipped, Zone: zone},
			want:   "The night has been skipped in " + zone.String() + ". Good morning!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			out := &stubBroadcaster{broadcastFn: func(_ context.Context, z domain.ZoneID, text string) error {
				assert.Equal(t, zone, z)
				got = text
				return nil
			}}
			n := adapter.NewNotifier(newTestCatalog(t, tt.lang), out)

			require.NoError(t, n.Notify(context.Background(), tt.notice))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotifier_Errors(t *testing.T) {
	zone := domain.GenerateZoneID()

	t.Run("unknown kind", func(t *testing.T) {
		n := adapter.NewNotifier(newTestCatalog(t, "en"), &stubBroadcaster{})
		err := n.Notify(context.Background(), app.Notice{Kind: "weather.changed", Zone: zone})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("broadcast failure", func(t *testing.T) {
		boom := errors.New("boom")
		n := adapter.NewNotifier(newTestCatalog(t, "en"), &stubBroadcaster{
			broadcastFn: func(context.Context, domain.ZoneID, string) error { return boom },
		})
		err := n.Notify(context.Background(), app.Notice{Kind: app.NoticeNightSkipped, Zone: zone})
		require.ErrorIs(t, err, boom)
	})
}
